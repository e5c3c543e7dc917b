package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"buddy_go/internal/api"
	"buddy_go/internal/infra"
	"buddy_go/internal/infra/deqs"
	"buddy_go/internal/infra/walletd"
	"buddy_go/internal/order"
	"buddy_go/internal/storage"
	"buddy_go/internal/swap"
	"buddy_go/internal/worker"
)

const snapshotsKept = 5

// Bootstrap orchestrates the application startup sequence and owns every
// long-lived component.
type Bootstrap struct {
	Config       *infra.Config
	Journal      *storage.Journal
	Snapshots    *storage.SnapshotManager
	Wallet       *walletd.Client
	Quoting      *deqs.Client // nil when no quoting service is configured
	Worker       *worker.Worker
	Orchestrator *swap.Orchestrator
	Session      Session

	unlock func()
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads configuration and brings up every component. Any error
// is fatal: the engine cannot run without a wallet-daemon session.
func (b *Bootstrap) Initialize(ctx context.Context) error {
	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err
	}
	b.Config = cfg

	infra.NewLogger(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	infra.SetUserAgent(infra.DefaultUserAgent(cfg.App.Version))
	slog.Info("Bootstrapping", "version", cfg.App.Version)

	workDir := infra.GetWorkspaceDir()
	dbPath := infra.JournalPath(workDir)
	if err := infra.EnsureDir(filepath.Dir(dbPath)); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	// one engine per wallet monitor
	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	journal, err := storage.OpenJournal(dbPath)
	if err != nil {
		return err
	}
	b.Journal = journal
	slog.Info("Journal opened", "path", dbPath)

	b.Snapshots = storage.NewSnapshotManager(infra.SnapshotDir(workDir))

	key, err := walletd.LoadAccountKey(cfg.Wallet.Keyfile)
	if err != nil {
		return err
	}

	b.Wallet = walletd.NewClient(cfg.Wallet.URL, cfg.RPCTimeout(), cfg.Wallet.RequestsPerSec)
	session, err := OpenSession(ctx, b.Wallet, key, cfg.Wallet.ConnectRetries, sleepCtx)
	if err != nil {
		return err
	}
	session.Tokens = BuildTokenInfos(session.Fees, cfg.Tokens)
	b.Session = session
	slog.Info("Wallet session ready", "monitor", session.MonitorID, "tokens", len(session.Tokens))

	restore := SnapshotMatches(ctx, journal, session.Address)
	now := time.Now().UnixMilli()
	for k, v := range map[string]string{"monitor_id": session.MonitorID, "address": session.Address} {
		if err := journal.UpsertMetadata(ctx, k, v, now); err != nil {
			slog.Warn("Failed to store metadata", "key", k, "err", err)
		}
	}

	validator := order.NewValidator(nil)

	// Interfaces stay nil when the quoting service is off.
	var (
		quoter    worker.Quoter
		submitter swap.QuoteSubmitter
	)
	if cfg.Quoting.URL != "" {
		b.Quoting = deqs.NewClient(cfg.Quoting.URL, cfg.RPCTimeout())
		quoter, submitter = b.Quoting, b.Quoting
	}

	b.Worker = worker.New(b.Wallet, quoter, validator, session.Tokens, worker.Config{
		PollInterval: cfg.PollInterval(),
		ErrorBackoff: cfg.ErrorBackoff(),
		PageLimit:    cfg.Quoting.PageLimit,
	})
	if restore {
		if snap, err := b.Snapshots.LoadLatest(); err != nil {
			slog.Warn("Ignoring unreadable snapshot", "err", err)
		} else if snap != nil {
			b.Worker.Restore(snap.SyncedBlocks, snap.TotalBlocks, snap.Balances)
		}
	}

	b.Orchestrator = swap.New(swap.Deps{
		Wallet:    b.Wallet,
		Quoter:    submitter,
		Validator: validator,
		Errors:    b.Worker.State(),
		Journal:   journal,
		Address:   session.Address,
		Tokens:    session.Tokens,
	}, swap.Config{
		UTXOAttempts:       cfg.Swap.UTXOAttempts,
		RetryBackoff:       cfg.RetryBackoff(),
		StatusPoll:         cfg.StatusPoll(),
		SettleDelay:        cfg.SettleDelay(),
		InputFetchAttempts: cfg.Swap.InputFetchAttempts,
		MinFillFeeMultiple: cfg.Swap.MinFillFeeMultiple,
	})

	return nil
}

// Start launches the background loops. They outlive ctx and end only in
// Shutdown, so a call in flight at signal time completes.
func (b *Bootstrap) Start(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	if b.Quoting != nil {
		b.Quoting.Start(ctx)
	}
	b.Worker.Start(ctx)
}

// API builds the consumer HTTP surface over the running components.
func (b *Bootstrap) API() *api.Server {
	deps := api.Deps{
		State:     b.Worker.State(),
		Actions:   b.Orchestrator,
		History:   b.Journal,
		Tokens:    b.Session.Tokens,
		Address:   b.Session.Address,
		HasQuoter: b.Worker.HasQuoter(),
	}
	if b.Quoting != nil {
		deps.Quoting = b.Quoting
	}
	return api.New(deps)
}

// Shutdown stops the loops, records a snapshot and releases resources.
// It is safe to call after a partial Initialize.
func (b *Bootstrap) Shutdown() {
	if b.Worker != nil {
		b.Worker.Stop()
		synced, total := b.Worker.State().SyncProgress()
		snap := storage.CreateSnapshot(synced, total, b.Worker.State().Balances())
		if err := b.Snapshots.Save(snap); err != nil {
			slog.Warn("Failed to save snapshot", "err", err)
		} else if err := b.Snapshots.Cleanup(snapshotsKept); err != nil {
			slog.Warn("Snapshot cleanup failed", "err", err)
		}
	}
	if b.Quoting != nil {
		b.Quoting.Stop()
	}
	if b.Journal != nil {
		if err := b.Journal.Close(); err != nil {
			slog.Warn("Failed to close journal", "err", err)
		}
	}
	if b.unlock != nil {
		b.unlock()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
