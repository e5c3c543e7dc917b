package order

import (
	"fmt"

	"buddy_go/internal/domain"
	"buddy_go/pkg/safe"
)

// Entry accumulates what the counterparty receives and pays in one token.
type Entry struct {
	Gain uint64
	Loss uint64
}

// BalanceSheet is the counterparty's per-token position for one fill.
type BalanceSheet map[domain.TokenID]Entry

// Resolved is a balance sheet reduced to one gained and one paid amount.
type Resolved struct {
	Gain domain.Amount
	Loss domain.Amount
}

// BalanceSheet computes what a counterparty receives and pays to fill the order
// to partialFillValue. Partial fill outputs are charged pro rata, rounded up.
// partialFillValue is ignored for orders without a change output.
func (d Decomposition) BalanceSheet(partialFillValue uint64) (BalanceSheet, error) {
	sheet := make(BalanceSheet)

	gain := d.PseudoOutput.Value
	if change := d.PartialFillChange; change != nil {
		if partialFillValue > change.Value {
			return nil, fmt.Errorf("partial fill value %d exceeds change value %d", partialFillValue, change.Value)
		}
		if partialFillValue < d.MinPartialFillValue {
			return nil, fmt.Errorf("partial fill value %d below minimum %d", partialFillValue, d.MinPartialFillValue)
		}
		// The creator keeps change.Value - partialFillValue.
		kept := change.Value - partialFillValue
		var err error
		if gain, err = safe.Sub(gain, kept); err != nil {
			return nil, fmt.Errorf("change exceeds pseudo-output: %w", err)
		}
	}
	if err := sheet.credit(d.PseudoOutput.TokenID, gain); err != nil {
		return nil, err
	}

	for _, out := range d.RequiredOutputs {
		if err := sheet.debit(out.TokenID, out.Value); err != nil {
			return nil, err
		}
	}

	for _, out := range d.PartialFillOutputs {
		if d.PartialFillChange == nil {
			return nil, tooComplicated("partial fill outputs without a change output")
		}
		owed, err := safe.MulDivCeil(out.Value, partialFillValue, d.PartialFillChange.Value)
		if err != nil {
			return nil, fmt.Errorf("partial fill output: %w", err)
		}
		if err := sheet.debit(out.TokenID, owed); err != nil {
			return nil, err
		}
	}

	return sheet, nil
}

func (b BalanceSheet) credit(id domain.TokenID, v uint64) error {
	e := b[id]
	sum, err := safe.Add(e.Gain, v)
	if err != nil {
		return fmt.Errorf("token %d gain: %w", id, err)
	}
	e.Gain = sum
	b[id] = e
	return nil
}

func (b BalanceSheet) debit(id domain.TokenID, v uint64) error {
	e := b[id]
	sum, err := safe.Add(e.Loss, v)
	if err != nil {
		return fmt.Errorf("token %d loss: %w", id, err)
	}
	e.Loss = sum
	b[id] = e
	return nil
}

// Resolve nets each token and requires exactly one gained and one paid token.
func (b BalanceSheet) Resolve() (Resolved, error) {
	var (
		res              Resolved
		gains, losses, n int
	)
	for id, e := range b {
		switch {
		case e.Gain > e.Loss:
			res.Gain = domain.NewAmount(e.Gain-e.Loss, id)
			gains++
		case e.Loss > e.Gain:
			res.Loss = domain.NewAmount(e.Loss-e.Gain, id)
			losses++
		default:
			continue
		}
		n++
	}
	if n != 2 || gains != 1 || losses != 1 {
		return Resolved{}, tooComplicated(fmt.Sprintf("balance sheet has %d gained and %d paid tokens", gains, losses))
	}
	return res, nil
}
