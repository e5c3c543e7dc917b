package quote

import (
	"log/slog"

	"buddy_go/internal/domain"
	"buddy_go/internal/order"

	"github.com/shopspring/decimal"
)

// QuoteSelection is the cheapest way found to acquire a target amount.
type QuoteSelection struct {
	QuoteID string             `json:"quote_id"`
	Order   *order.SignedOrder `json:"order"`
	// PartialFillValue is 0 for all-or-nothing orders.
	PartialFillValue uint64 `json:"partial_fill_value,string"`
	// FromU64Value is the exact cost to the caller in from-token units.
	FromU64Value     uint64          `json:"from_u64_value,string"`
	FromValueDecimal decimal.Decimal `json:"from_value"`
}

type candidate struct {
	quote            *ValidatedQuote
	partialFillValue uint64
	cost             uint64
}

// Select picks the quote that delivers exactly `to` for the least amount of
// fromToken. The book is expected to hold one orientation of a pair.
// When several quotes cost the same, the first one in the book wins.
func Select(book []ValidatedQuote, fromToken domain.TokenID, fromInfo domain.TokenInfo, to domain.Amount) (QuoteSelection, error) {
	var best *candidate

	for i := range book {
		q := &book[i]
		c, ok := evaluate(q, fromToken, to)
		if !ok {
			continue
		}
		if best == nil || c.cost < best.cost {
			best = &c
		}
	}

	if best == nil {
		return QuoteSelection{}, ErrInsufficientLiquidity
	}

	return QuoteSelection{
		QuoteID:          best.quote.ID,
		Order:            best.quote.Order.Clone(),
		PartialFillValue: best.partialFillValue,
		FromU64Value:     best.cost,
		FromValueDecimal: fromInfo.Scaled(best.cost),
	}, nil
}

func evaluate(q *ValidatedQuote, fromToken domain.TokenID, to domain.Amount) (candidate, bool) {
	log := slog.With("quote", q.ID)

	if q.Amounts.PseudoOutput.TokenID != to.TokenID {
		log.Warn("Skipping quote with wrong pseudo-output token",
			"got", q.Amounts.PseudoOutput.TokenID, "want", to.TokenID)
		return candidate{}, false
	}

	shape, err := q.Amounts.Shape()
	if err != nil {
		log.Debug("Skipping quote", "err", err)
		return candidate{}, false
	}

	var fill uint64
	switch s := shape.(type) {
	case order.PartialFill:
		if s.Give.Value < to.Value {
			return candidate{}, false
		}
		if to.Value < s.MinFill {
			log.Debug("Skipping quote below its minimum fill", "min_fill", s.MinFill)
			return candidate{}, false
		}
		fill = to.Value
	case order.AllOrNothing:
		if s.Give.Value != to.Value {
			return candidate{}, false
		}
	default:
		log.Warn("Skipping quote with unhandled shape")
		return candidate{}, false
	}

	sheet, err := q.Amounts.BalanceSheet(fill)
	if err != nil {
		log.Warn("Balance sheet failed", "err", err)
		return candidate{}, false
	}
	resolved, err := sheet.Resolve()
	if err != nil {
		log.Warn("Balance sheet does not resolve", "err", err)
		return candidate{}, false
	}
	if _, ok := sheet[fromToken]; !ok || resolved.Loss.TokenID != fromToken {
		log.Warn("Quote is not priced in the from token", "from_token", fromToken)
		return candidate{}, false
	}

	return candidate{quote: q, partialFillValue: fill, cost: resolved.Loss.Value}, true
}
