package swap

import (
	"errors"
	"fmt"

	"buddy_go/internal/address"
	"buddy_go/internal/domain"
	"buddy_go/internal/quote"
	"buddy_go/pkg/safe"

	"github.com/shopspring/decimal"
)

// User-input failures. They are returned to the caller and never queued.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOverflowWithFee   = errors.New("u64 overflow with fee")
	ErrSameToken         = errors.New("from and to tokens are the same")
)

// InsufficientError names the token the user is short of.
type InsufficientError struct {
	Symbol string
}

func (e *InsufficientError) Error() string { return "Insufficient " + e.Symbol }

func (e *InsufficientError) Unwrap() error { return ErrInsufficientFunds }

// SendPlan is a checked payment ready for Orchestrator.Send.
type SendPlan struct {
	Amount    domain.Amount
	Fee       uint64
	Recipient string
}

// PlanSend checks a user's payment request: value is in display units of
// info, and value plus the network fee must fit in balance.
func PlanSend(info domain.TokenInfo, balance uint64, value, recipient string) (SendPlan, error) {
	u64, err := info.ParseU64(value)
	if err != nil {
		return SendPlan{}, err
	}
	total, err := safe.Add(u64, info.Fee)
	if err != nil {
		return SendPlan{}, ErrOverflowWithFee
	}
	if total > balance {
		return SendPlan{}, ErrInsufficientFunds
	}
	if _, err := address.Decode(recipient); err != nil {
		return SendPlan{}, err
	}
	return SendPlan{
		Amount:    domain.NewAmount(u64, info.TokenID),
		Fee:       info.Fee,
		Recipient: recipient,
	}, nil
}

// PlanSwap selects the cheapest order delivering `to` from book, the quotes
// offering to.TokenID for fromInfo's token. The fee is paid in the from token.
func PlanSwap(book []quote.ValidatedQuote, fromInfo domain.TokenInfo, fromBalance uint64, to domain.Amount) (quote.QuoteSelection, error) {
	if fromInfo.TokenID == to.TokenID {
		return quote.QuoteSelection{}, ErrSameToken
	}
	sel, err := quote.Select(book, fromInfo.TokenID, fromInfo, to)
	if err != nil {
		return quote.QuoteSelection{}, err
	}
	total, err := safe.Add(sel.FromU64Value, fromInfo.Fee)
	if err != nil {
		return quote.QuoteSelection{}, ErrOverflowWithFee
	}
	if fromBalance < total {
		return quote.QuoteSelection{}, ErrInsufficientFunds
	}
	return sel, nil
}

// OfferLeg is one direction of a user's limit order.
type OfferLeg struct {
	Give       domain.Amount `json:"give"`
	Want       domain.Amount `json:"want"`
	giveSymbol string
}

// CheckBalance fails with *InsufficientError when balance cannot cover Give.
func (l OfferLeg) CheckBalance(balance uint64) error {
	if balance < l.Give.Value {
		return &InsufficientError{Symbol: l.giveSymbol}
	}
	return nil
}

// OfferPlan holds both directions of a limit order at one price.
// Buy gives counter for base, Sell gives base for counter.
type OfferPlan struct {
	Buy  OfferLeg `json:"buy"`
	Sell OfferLeg `json:"sell"`
}

// PlanOffer converts a price (counter per base) and a base volume into
// smallest-unit amounts for both legs.
func PlanOffer(base, counter domain.TokenInfo, price, volume decimal.Decimal) (OfferPlan, error) {
	if base.TokenID == counter.TokenID {
		return OfferPlan{}, ErrSameToken
	}
	if price.Sign() <= 0 || volume.Sign() <= 0 {
		return OfferPlan{}, fmt.Errorf("price and volume must be positive")
	}

	counterVolume := volume.Mul(price)
	baseU64, err := base.ToU64(volume)
	if err != nil {
		return OfferPlan{}, fmt.Errorf("%s volume: %w", base.Symbol, err)
	}
	counterU64, err := counter.ToU64(counterVolume)
	if err != nil {
		return OfferPlan{}, fmt.Errorf("%s volume: %w", counter.Symbol, err)
	}
	if baseU64 == 0 || counterU64 == 0 {
		return OfferPlan{}, fmt.Errorf("volume rounds to zero")
	}

	baseAmt := domain.NewAmount(baseU64, base.TokenID)
	counterAmt := domain.NewAmount(counterU64, counter.TokenID)
	return OfferPlan{
		Buy:  OfferLeg{Give: counterAmt, Want: baseAmt, giveSymbol: counter.Symbol},
		Sell: OfferLeg{Give: baseAmt, Want: counterAmt, giveSymbol: base.Symbol},
	}, nil
}
