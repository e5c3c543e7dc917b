package swap

import (
	"context"
	"log/slog"

	"buddy_go/internal/domain"
	"buddy_go/internal/event"
	"buddy_go/internal/infra/walletd"
)

// AcquireInput returns an unspent output worth exactly amount. When none
// exists it pays amount to our own address and searches again once the
// payment settles. Every search consumes one of cfg.UTXOAttempts, and the
// last search is never followed by a self-payment.
func (o *Orchestrator) AcquireInput(ctx context.Context, amount domain.Amount) (walletd.UTXO, error) {
	for attempt := 1; attempt <= o.cfg.UTXOAttempts; attempt++ {
		utxos, err := o.Wallet.UnspentOutputs(ctx, amount.TokenID)
		if err != nil {
			slog.Warn("List unspent outputs failed", "attempt", attempt, "err", err)
			if err := o.sleep(ctx, o.cfg.RetryBackoff); err != nil {
				return walletd.UTXO{}, err
			}
			continue
		}

		for _, u := range utxos {
			if u.TokenID == amount.TokenID && u.Value == amount.Value {
				slog.Info("Found input of required value", "amount", amount, "attempt", attempt)
				return u, nil
			}
		}

		if attempt == o.cfg.UTXOAttempts {
			break
		}
		if err := o.selfPay(ctx, amount, attempt); err != nil {
			return walletd.UTXO{}, err
		}
	}
	return walletd.UTXO{}, o.report("acquire input", ErrNoInputOfRequiredValue)
}

// selfPay splits out amount by paying it to ourselves and waits for the
// ledger to decide the payment. Only context errors are returned; RPC
// failures are logged and leave the retry to the caller's next attempt.
func (o *Orchestrator) selfPay(ctx context.Context, amount domain.Amount, attempt int) error {
	slog.Info("No input of required value, paying self", "amount", amount, "attempt", attempt)

	receipt, err := o.Wallet.SendPayment(ctx, amount, o.Address)
	if err != nil {
		slog.Warn("Self-payment failed", "attempt", attempt, "err", err)
		return o.sleep(ctx, o.cfg.RetryBackoff)
	}

	status := walletd.TxStatusUnknown
	for {
		status, err = o.Wallet.TxStatus(ctx, receipt)
		if err != nil {
			slog.Warn("Self-payment status failed", "attempt", attempt, "err", err)
			break
		}
		if status.Settled() {
			break
		}
		if err := o.sleep(ctx, o.cfg.StatusPoll); err != nil {
			return err
		}
	}
	slog.Info("Self-payment settled", "status", status, "attempt", attempt)

	o.record(ctx, event.SelfPaymentEvent{
		BaseEvent: event.NewBase(o.now()),
		Amount:    amount,
		Attempt:   attempt,
		Status:    string(status),
	})

	// Give the daemon's utxo view time to catch up.
	return o.sleep(ctx, o.cfg.SettleDelay)
}
