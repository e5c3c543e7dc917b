package swap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"buddy_go/internal/domain"
	"buddy_go/internal/event"
	"buddy_go/internal/infra/deqs"
	"buddy_go/internal/order"
	"buddy_go/pkg/safe"
)

// Offer mints a partial-fill order giving `give` for `want` and submits it
// to the quoting service.
func (o *Orchestrator) Offer(ctx context.Context, give, want domain.Amount) (deqs.SubmitResult, error) {
	if o.Quoter == nil {
		return deqs.SubmitResult{}, ErrNoQuotingService
	}
	info, err := o.tokenInfo(give.TokenID)
	if err != nil {
		return deqs.SubmitResult{}, err
	}
	minFill, err := safe.Mul(info.Fee, o.cfg.MinFillFeeMultiple)
	if err != nil {
		return deqs.SubmitResult{}, fmt.Errorf("minimum fill: %w", err)
	}

	input, err := o.AcquireInput(ctx, give)
	if err != nil {
		// Already reported.
		return deqs.SubmitResult{}, err
	}

	sci, err := o.Wallet.GenerateSwap(ctx, input, want, minFill)
	if err != nil {
		return deqs.SubmitResult{}, o.report("generate swap", err)
	}
	if _, err := o.Validator.Validate(sci); err != nil {
		return deqs.SubmitResult{}, o.report("validate generated swap", err)
	}

	results, err := o.Quoter.SubmitQuotes(ctx, []*order.SignedOrder{sci})
	if err != nil {
		return deqs.SubmitResult{}, o.report("submit quote", err)
	}
	if len(results) != 1 {
		return deqs.SubmitResult{}, o.report("submit quote", errors.New("unexpected result count"))
	}
	res := results[0]
	if err := res.Err(); err != nil {
		return res, o.report("submit quote", err)
	}

	slog.Info("Swap offered", "give", give, "want", want, "min_fill", minFill, "quote", res.QuoteID)
	o.record(ctx, event.SwapOfferedEvent{
		BaseEvent: event.NewBase(o.now()),
		Give:      give,
		Want:      want,
		MinFill:   minFill,
		QuoteID:   res.QuoteID,
	})
	return res, nil
}
