// Package swap drives the wallet-daemon protocols behind user actions:
// sending payments, offering new swap orders and filling existing ones.
package swap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"buddy_go/internal/domain"
	"buddy_go/internal/event"
	"buddy_go/internal/infra/deqs"
	"buddy_go/internal/infra/walletd"
	"buddy_go/internal/order"
)

var (
	ErrNoInputOfRequiredValue = errors.New("failed to produce input of required value")
	ErrNoQuotingService       = errors.New("no quoting service configured")
)

// Wallet is the wallet-daemon surface the orchestrator drives.
type Wallet interface {
	UnspentOutputs(ctx context.Context, token domain.TokenID) ([]walletd.UTXO, error)
	SendPayment(ctx context.Context, amount domain.Amount, recipient string) (walletd.Receipt, error)
	TxStatus(ctx context.Context, receipt walletd.Receipt) (walletd.TxStatus, error)
	GenerateSwap(ctx context.Context, input walletd.UTXO, counter domain.Amount, minFill uint64) (*order.SignedOrder, error)
	GenerateFulfillment(ctx context.Context, sci *order.SignedOrder, partialFill uint64, inputs []walletd.UTXO, feeToken domain.TokenID) (walletd.TxProposal, error)
	SubmitTx(ctx context.Context, tx walletd.TxProposal) (walletd.Receipt, error)
}

type QuoteSubmitter interface {
	SubmitQuotes(ctx context.Context, orders []*order.SignedOrder) ([]deqs.SubmitResult, error)
}

// ErrorSink receives user-visible failures.
type ErrorSink interface {
	PushError(msg string) bool
}

type Journal interface {
	Append(ctx context.Context, ev event.Event) error
}

type Config struct {
	UTXOAttempts       int
	RetryBackoff       time.Duration
	StatusPoll         time.Duration
	SettleDelay        time.Duration
	InputFetchAttempts int
	MinFillFeeMultiple uint64
}

func DefaultConfig() Config {
	return Config{
		UTXOAttempts:       5,
		RetryBackoff:       200 * time.Millisecond,
		StatusPoll:         50 * time.Millisecond,
		SettleDelay:        time.Second,
		InputFetchAttempts: 3,
		MinFillFeeMultiple: 10,
	}
}

// Deps are the collaborators of an Orchestrator. Quoter and Journal may be nil.
type Deps struct {
	Wallet    Wallet
	Quoter    QuoteSubmitter
	Validator order.Validator
	Errors    ErrorSink
	Journal   Journal
	// Address is our own printable address, used for self-payments.
	Address string
	Tokens  []domain.TokenInfo
}

// Orchestrator runs user-triggered actions synchronously on the caller's
// goroutine. Calls block on RPCs and on retry sleeps.
type Orchestrator struct {
	Deps
	cfg Config

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func New(deps Deps, cfg Config) *Orchestrator {
	return &Orchestrator{
		Deps:  deps,
		cfg:   cfg,
		sleep: sleepCtx,
		now:   time.Now,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// report logs a terminal failure of step and queues it for the user.
func (o *Orchestrator) report(step string, err error) error {
	err = fmt.Errorf("%s: %w", step, err)
	slog.Error("Swap step failed", "step", step, "err", err)
	if o.Errors != nil {
		o.Errors.PushError(err.Error())
	}
	return err
}

func (o *Orchestrator) record(ctx context.Context, ev event.Event) {
	if o.Journal == nil {
		return
	}
	if err := o.Journal.Append(ctx, ev); err != nil {
		slog.Warn("Journal append failed", "type", ev.GetType(), "err", err)
	}
}

func (o *Orchestrator) tokenInfo(id domain.TokenID) (domain.TokenInfo, error) {
	info, ok := domain.FindToken(o.Tokens, id)
	if !ok {
		return domain.TokenInfo{}, fmt.Errorf("unknown token %d", id)
	}
	return info, nil
}
