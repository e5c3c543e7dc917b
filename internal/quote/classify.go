package quote

import (
	"fmt"
	"log/slog"

	"buddy_go/internal/domain"
	"buddy_go/internal/order"

	"github.com/shopspring/decimal"
)

// Side of the book a quote sits on.
type Side int

const (
	Bid Side = iota // offers counter, wants base
	Ask             // offers base, wants counter
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "BID"
	case Ask:
		return "ASK"
	default:
		return "UNKNOWN"
	}
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// QuoteInfo projects a quote onto a (base, counter) pair for display.
// Volume is in base units, Price in counter per base.
type QuoteInfo struct {
	ID            string          `json:"id"`
	Side          Side            `json:"side"`
	Price         decimal.Decimal `json:"price"`
	Volume        decimal.Decimal `json:"volume"`
	IsPartialFill bool            `json:"is_partial_fill"`
	Timestamp     uint64          `json:"timestamp,string"`
}

// Classify decides the side of q within the (base, counter) book and
// computes its price and volume.
func Classify(q ValidatedQuote, base, counter domain.TokenID, infos []domain.TokenInfo) (QuoteInfo, error) {
	baseInfo, ok := domain.FindToken(infos, base)
	if !ok {
		return QuoteInfo{}, fmt.Errorf("%w: %d", ErrUnknownToken, base)
	}
	counterInfo, ok := domain.FindToken(infos, counter)
	if !ok {
		return QuoteInfo{}, fmt.Errorf("%w: %d", ErrUnknownToken, counter)
	}

	var (
		side                  Side
		offeredInfo, wantInfo domain.TokenInfo
	)
	switch q.Amounts.PseudoOutput.TokenID {
	case base:
		side, offeredInfo, wantInfo = Ask, baseInfo, counterInfo
	case counter:
		side, offeredInfo, wantInfo = Bid, counterInfo, baseInfo
	default:
		return QuoteInfo{}, fmt.Errorf("%w: pseudo-output token %d", ErrQuoteNotInBook, q.Amounts.PseudoOutput.TokenID)
	}

	shape, err := q.Amounts.Shape()
	if err != nil {
		return QuoteInfo{}, err
	}

	var partial bool
	switch s := shape.(type) {
	case order.PartialFill:
		if s.Want.TokenID != wantInfo.TokenID {
			return QuoteInfo{}, fmt.Errorf("%w: got %d, want %d", ErrBadPartialFillOutput, s.Want.TokenID, wantInfo.TokenID)
		}
		partial = true
	case order.AllOrNothing:
		if s.Want.TokenID != wantInfo.TokenID {
			return QuoteInfo{}, fmt.Errorf("%w: got %d, want %d", ErrBadRequiredOutput, s.Want.TokenID, wantInfo.TokenID)
		}
	default:
		return QuoteInfo{}, fmt.Errorf("unhandled order shape %T", shape)
	}

	offeredVolume := offeredInfo.Scaled(shape.Offered().Value)
	wantVolume := wantInfo.Scaled(shape.Wanted().Value)

	baseVolume, counterVolume := offeredVolume, wantVolume
	if side == Bid {
		baseVolume, counterVolume = wantVolume, offeredVolume
	}
	if baseVolume.IsZero() {
		return QuoteInfo{}, fmt.Errorf("quote %s has zero base volume", q.ID)
	}

	return QuoteInfo{
		ID:            q.ID,
		Side:          side,
		Price:         counterVolume.Div(baseVolume),
		Volume:        baseVolume,
		IsPartialFill: partial,
		Timestamp:     q.Timestamp,
	}, nil
}

// ClassifyBook classifies every quote, logging and skipping the ones that fail.
func ClassifyBook(book []ValidatedQuote, pair domain.Pair, infos []domain.TokenInfo) []QuoteInfo {
	out := make([]QuoteInfo, 0, len(book))
	for _, q := range book {
		info, err := Classify(q, pair.Base, pair.Counter, infos)
		if err != nil {
			slog.Error("get quote info", "quote", q.ID, "err", err)
			continue
		}
		out = append(out, info)
	}
	return out
}
