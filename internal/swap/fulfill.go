package swap

import (
	"context"
	"log/slog"

	"buddy_go/internal/domain"
	"buddy_go/internal/event"
	"buddy_go/internal/infra/walletd"
	"buddy_go/internal/quote"
)

// Fulfill fills the selected counter-order, paying in fromToken and the fee
// in feeToken. Each failing step is reported and aborts the fill.
func (o *Orchestrator) Fulfill(ctx context.Context, sel quote.QuoteSelection, fromToken, feeToken domain.TokenID) (walletd.Receipt, error) {
	inputs, err := o.fetchInputs(ctx, fromToken)
	if err != nil {
		return walletd.Receipt{}, o.report("fetch inputs", err)
	}

	tx, err := o.Wallet.GenerateFulfillment(ctx, sel.Order, sel.PartialFillValue, inputs, feeToken)
	if err != nil {
		return walletd.Receipt{}, o.report("build fulfillment", err)
	}

	receipt, err := o.Wallet.SubmitTx(ctx, tx)
	if err != nil {
		return walletd.Receipt{}, o.report("submit fulfillment", err)
	}

	received := sel.Order.PseudoOutput
	if sel.PartialFillValue != 0 {
		received.Value = sel.PartialFillValue
	}
	slog.Info("Swap fulfilled", "quote", sel.QuoteID, "received", received, "paid", sel.FromU64Value)

	o.record(ctx, event.SwapFulfilledEvent{
		BaseEvent:        event.NewBase(o.now()),
		QuoteID:          sel.QuoteID,
		PartialFillValue: sel.PartialFillValue,
		Received:         received,
		Paid:             domain.NewAmount(sel.FromU64Value, fromToken),
		FeeTokenID:       tx.FeeTokenID,
		Fee:              tx.Fee,
	})
	return receipt, nil
}

func (o *Orchestrator) fetchInputs(ctx context.Context, token domain.TokenID) ([]walletd.UTXO, error) {
	var lastErr error
	for attempt := 1; attempt <= o.cfg.InputFetchAttempts; attempt++ {
		if attempt > 1 {
			if err := o.sleep(ctx, o.cfg.RetryBackoff); err != nil {
				return nil, err
			}
		}
		inputs, err := o.Wallet.UnspentOutputs(ctx, token)
		if err == nil {
			return inputs, nil
		}
		lastErr = err
		slog.Warn("Fetch inputs attempt failed", "attempt", attempt, "err", err)
	}
	return nil, lastErr
}
