package swap

import (
	"context"
	"log/slog"

	"buddy_go/internal/address"
	"buddy_go/internal/domain"
	"buddy_go/internal/event"
	"buddy_go/internal/infra/walletd"
)

// Send pays amount to recipient. An undecodable recipient is a user-input
// error and is returned without reaching the error queue.
func (o *Orchestrator) Send(ctx context.Context, amount domain.Amount, recipient string) (walletd.Receipt, error) {
	if _, err := address.Decode(recipient); err != nil {
		return walletd.Receipt{}, err
	}

	receipt, err := o.Wallet.SendPayment(ctx, amount, recipient)
	if err != nil {
		return walletd.Receipt{}, o.report("send payment", err)
	}

	slog.Info("Payment sent", "amount", amount, "tombstone", receipt.TombstoneBlock)
	o.record(ctx, event.PaymentSentEvent{
		BaseEvent:      event.NewBase(o.now()),
		Amount:         amount,
		Recipient:      recipient,
		TombstoneBlock: receipt.TombstoneBlock,
	})
	return receipt, nil
}
