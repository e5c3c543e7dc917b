package app

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"buddy_go/internal/domain"
	"buddy_go/internal/infra"
	"buddy_go/internal/infra/walletd"
)

// SessionWallet is the part of the wallet daemon needed to open a session.
type SessionWallet interface {
	AddMonitor(ctx context.Context, key walletd.AccountKey) (string, error)
	PublicAddress(ctx context.Context) (string, error)
	MinimumFees(ctx context.Context) (map[domain.TokenID]uint64, error)
}

// Session is what the engine learns from the wallet daemon at startup.
type Session struct {
	MonitorID string
	Address   string
	Fees      map[domain.TokenID]uint64
	Tokens    []domain.TokenInfo
}

// OpenSession registers the account monitor and reads the public address
// and fee list, retrying the whole sequence up to retries times.
func OpenSession(ctx context.Context, w SessionWallet, key walletd.AccountKey, retries int, sleep func(context.Context, time.Duration) error) (Session, error) {
	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		if attempt > 0 {
			delay := infra.CalculateBackoff(attempt - 1)
			slog.Warn("Wallet daemon not ready, retrying", "attempt", attempt, "delay", delay, "err", lastErr)
			if err := sleep(ctx, delay); err != nil {
				return Session{}, err
			}
		}

		s, err := openSession(ctx, w, key)
		if err == nil {
			return s, nil
		}
		lastErr = err
	}
	return Session{}, fmt.Errorf("wallet daemon session failed after %d attempts: %w", retries, lastErr)
}

func openSession(ctx context.Context, w SessionWallet, key walletd.AccountKey) (Session, error) {
	monitorID, err := w.AddMonitor(ctx, key)
	if err != nil {
		return Session{}, fmt.Errorf("add monitor: %w", err)
	}
	addr, err := w.PublicAddress(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("public address: %w", err)
	}
	fees, err := w.MinimumFees(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("network status: %w", err)
	}
	return Session{MonitorID: monitorID, Address: addr, Fees: fees}, nil
}

// BuildTokenInfos joins the network fee list with configured display
// metadata. The fee list decides which tokens exist; a token without
// metadata is shown as TOKEN<id> with no decimals.
func BuildTokenInfos(fees map[domain.TokenID]uint64, meta []infra.TokenMeta) []domain.TokenInfo {
	byID := make(map[domain.TokenID]infra.TokenMeta, len(meta))
	for _, m := range meta {
		byID[m.ID] = m
	}

	infos := make([]domain.TokenInfo, 0, len(fees))
	for id, fee := range fees {
		info := domain.TokenInfo{TokenID: id, Fee: fee, Symbol: fmt.Sprintf("TOKEN%d", id)}
		if m, ok := byID[id]; ok {
			info.Symbol, info.Decimals = m.Symbol, m.Decimals
		}
		infos = append(infos, info)
	}
	slices.SortFunc(infos, func(a, b domain.TokenInfo) int {
		return cmp.Compare(a.TokenID, b.TokenID)
	})

	for _, m := range meta {
		if _, ok := fees[m.ID]; !ok {
			slog.Warn("Configured token unknown to the network", "token", m.ID, "symbol", m.Symbol)
		}
	}
	return infos
}

// MetadataReader reads values stored by a previous run.
type MetadataReader interface {
	GetMetadata(ctx context.Context, key string) (string, error)
}

// SnapshotMatches reports whether state saved by a previous run belongs to
// the wallet at address. A first run has nothing stored and matches.
func SnapshotMatches(ctx context.Context, md MetadataReader, address string) bool {
	prev, err := md.GetMetadata(ctx, "address")
	if err != nil {
		slog.Warn("Failed to read stored address", "err", err)
		return false
	}
	if prev != "" && prev != address {
		slog.Warn("Wallet changed since last run, discarding snapshot", "previous", prev, "current", address)
		return false
	}
	return true
}
