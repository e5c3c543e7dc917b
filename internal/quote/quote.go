package quote

import (
	"errors"
	"fmt"

	"buddy_go/internal/order"
)

var (
	ErrUnknownToken          = errors.New("unknown token")
	ErrQuoteNotInBook        = errors.New("quote does not belong to this book")
	ErrBadPartialFillOutput  = errors.New("partial fill output has the wrong token")
	ErrBadRequiredOutput     = errors.New("required output has the wrong token")
	ErrTooComplicated        = order.ErrTooComplicated
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
)

// TooComplicatedError carries the reason an order shape was refused.
type TooComplicatedError = order.TooComplicatedError

// RawQuote is an order as delivered by the quoting service, not yet validated.
type RawQuote struct {
	ID        string
	Order     *order.SignedOrder
	Timestamp uint64
}

// ValidatedQuote is an order that passed validation, with its unmasked amounts.
type ValidatedQuote struct {
	ID        string
	Order     *order.SignedOrder
	Amounts   order.Decomposition
	Timestamp uint64
}

// NewValidatedQuote validates a raw order. Failures are not retried.
func NewValidatedQuote(id string, o *order.SignedOrder, timestamp uint64, v order.Validator) (ValidatedQuote, error) {
	amounts, err := v.Validate(o)
	if err != nil {
		return ValidatedQuote{}, fmt.Errorf("quote %s: %w", id, err)
	}
	return ValidatedQuote{
		ID:        id,
		Order:     o,
		Amounts:   amounts,
		Timestamp: timestamp,
	}, nil
}
