package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"buddy_go/internal/domain"
	"buddy_go/internal/order"
	"buddy_go/internal/quote"

	"go.uber.org/atomic"
)

// Wallet is the part of the wallet daemon the sync loop polls.
type Wallet interface {
	BlockCount(ctx context.Context) (uint64, error)
	MonitorNextBlock(ctx context.Context) (uint64, error)
	Balance(ctx context.Context, token domain.TokenID) (uint64, error)
}

// Quoter fetches raw orders for one orientation of a pair.
type Quoter interface {
	GetQuotes(ctx context.Context, pair domain.Pair, limit int) ([]quote.RawQuote, error)
}

type Config struct {
	PollInterval time.Duration
	ErrorBackoff time.Duration
	PageLimit    int
}

func DefaultConfig() Config {
	return Config{
		PollInterval: 50 * time.Millisecond,
		ErrorBackoff: 500 * time.Millisecond,
		PageLimit:    100,
	}
}

// Worker owns the background sync loop and is the only writer of State,
// apart from the active pair and error pops done by readers.
type Worker struct {
	wallet    Wallet
	quoter    Quoter
	validator order.Validator
	tokens    []domain.TokenInfo
	cfg       Config
	state     *State

	stop     atomic.Bool
	wake     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New builds a worker. quoter may be nil when no quoting service is configured.
func New(wallet Wallet, quoter Quoter, validator order.Validator, tokens []domain.TokenInfo, cfg Config) *Worker {
	return &Worker{
		wallet:    wallet,
		quoter:    quoter,
		validator: validator,
		tokens:    tokens,
		cfg:       cfg,
		state:     NewState(),
		wake:      make(chan struct{}),
	}
}

func (w *Worker) State() *State { return w.state }

func (w *Worker) Tokens() []domain.TokenInfo { return w.tokens }

func (w *Worker) HasQuoter() bool { return w.quoter != nil }

// Restore seeds the state with values from a previous session so readers
// have numbers before the first cycle completes. Call it before Start.
func (w *Worker) Restore(synced, total uint64, balances map[domain.TokenID]uint64) {
	w.state.setTotalBlocks(total)
	w.state.setSyncedBlocks(synced)
	for _, t := range w.tokens {
		if v, ok := balances[t.TokenID]; ok {
			w.state.setBalance(t.TokenID, v)
		}
	}
}

// Start launches the loop. RPCs run under a context detached from ctx's
// cancellation, so only Stop ends the loop and a call in flight always
// completes.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(context.WithoutCancel(ctx))
}

// Stop raises the stop flag and blocks until the loop exits. An RPC in
// flight is allowed to finish first.
func (w *Worker) Stop() {
	w.stop.Store(true)
	w.stopOnce.Do(func() { close(w.wake) })
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	slog.Info("Sync worker started", "tokens", len(w.tokens), "quoting", w.HasQuoter())

	for !w.stop.Load() {
		if err := w.cycle(ctx); err != nil {
			slog.Warn("Sync cycle failed", "err", err)
			if !w.state.PushError(err.Error()) {
				slog.Debug("Error queue full, dropping", "err", err)
			}
			w.sleep(w.cfg.ErrorBackoff)
			continue
		}
		w.sleep(w.cfg.PollInterval)
	}
	slog.Info("Sync worker stopped")
}

func (w *Worker) sleep(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-w.wake:
	}
}

// cycle runs one pass. It returns at the first failing step.
func (w *Worker) cycle(ctx context.Context) error {
	total, err := w.wallet.BlockCount(ctx)
	if err != nil {
		return fmt.Errorf("ledger info: %w", err)
	}
	w.state.setTotalBlocks(total)

	synced, err := w.wallet.MonitorNextBlock(ctx)
	if err != nil {
		return fmt.Errorf("monitor status: %w", err)
	}
	w.state.setSyncedBlocks(synced)

	for _, t := range w.tokens {
		bal, err := w.wallet.Balance(ctx, t.TokenID)
		if err != nil {
			return fmt.Errorf("balance %s: %w", t.Symbol, err)
		}
		w.state.setBalance(t.TokenID, bal)
	}

	if w.quoter == nil {
		return nil
	}
	pair, ok := w.state.ActivePair()
	if !ok || pair.Base == pair.Counter {
		return nil
	}

	books := make(map[domain.Pair][]quote.ValidatedQuote, 2)
	for _, p := range []domain.Pair{pair, pair.Reverse()} {
		raws, err := w.quoter.GetQuotes(ctx, p, w.cfg.PageLimit)
		if err != nil {
			return fmt.Errorf("get quotes %s: %w", p, err)
		}
		books[p] = w.parseQuotes(raws)
	}
	w.state.setQuoteBooks(books)
	return nil
}

func (w *Worker) parseQuotes(raws []quote.RawQuote) []quote.ValidatedQuote {
	book := make([]quote.ValidatedQuote, 0, len(raws))
	for _, raw := range raws {
		q, err := quote.NewValidatedQuote(raw.ID, raw.Order, raw.Timestamp, w.validator)
		if err != nil {
			slog.Warn("Dropping quote", "quote", raw.ID, "err", err)
			continue
		}
		book = append(book, q)
	}
	return book
}
