// Command integration checks a live wallet daemon: it opens a session with
// the configured keyfile and prints sync progress and balances. Read-only.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"buddy_go/internal/app"
	"buddy_go/internal/infra"
	"buddy_go/internal/infra/walletd"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	slog.Info("Starting wallet daemon integration check...")

	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		slog.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	key, err := walletd.LoadAccountKey(cfg.Wallet.Keyfile)
	if err != nil {
		slog.Error("Failed to load keyfile", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := walletd.NewClient(cfg.Wallet.URL, cfg.RPCTimeout(), cfg.Wallet.RequestsPerSec)

	// fewer retries than the daemon: this is an interactive check
	session, err := app.OpenSession(ctx, client, key, 3, func(ctx context.Context, d time.Duration) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
			return nil
		}
	})
	if err != nil {
		slog.Error("Session failed", "err", err)
		os.Exit(1)
	}
	slog.Info("Session opened", "monitor", session.MonitorID, "address", session.Address)

	total, err := client.BlockCount(ctx)
	if err != nil {
		slog.Error("Ledger info failed", "err", err)
		os.Exit(1)
	}
	synced, err := client.MonitorNextBlock(ctx)
	if err != nil {
		slog.Error("Monitor status failed", "err", err)
		os.Exit(1)
	}
	slog.Info("Sync progress", "synced", synced, "total", total)

	for _, t := range app.BuildTokenInfos(session.Fees, cfg.Tokens) {
		bal, err := client.Balance(ctx, t.TokenID)
		if err != nil {
			slog.Error("Balance failed", "token", t.Symbol, "err", err)
			continue
		}
		slog.Info("Balance",
			"token", t.Symbol,
			"value", bal,
			"display", t.Scaled(bal).String(),
			"fee", t.Scaled(t.Fee).String(),
		)
	}

	slog.Info("Integration check finished")
}
