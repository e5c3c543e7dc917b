package order

import (
	"errors"

	"buddy_go/internal/domain"
)

// ErrTooComplicated is returned for order shapes the engine does not trade against.
var ErrTooComplicated = errors.New("order too complicated")

// TooComplicatedError names the specific structural reason an order was refused.
type TooComplicatedError struct {
	Reason string
}

func (e *TooComplicatedError) Error() string {
	return "order too complicated: " + e.Reason
}

func (e *TooComplicatedError) Unwrap() error { return ErrTooComplicated }

func tooComplicated(reason string) error {
	return &TooComplicatedError{Reason: reason}
}

// Shape is one of the supported order shapes. The set is closed:
// only PartialFill and AllOrNothing implement it.
type Shape interface {
	// Offered is what the order's creator gives up.
	Offered() domain.Amount
	// Wanted is what the creator asks for at full fill.
	Wanted() domain.Amount
	isShape()
}

// PartialFill can be filled to any degree between MinFill and Offered.Value.
type PartialFill struct {
	Give    domain.Amount
	Want    domain.Amount
	MinFill uint64
}

func (s PartialFill) Offered() domain.Amount { return s.Give }
func (s PartialFill) Wanted() domain.Amount  { return s.Want }
func (PartialFill) isShape()                 {}

// AllOrNothing must be filled exactly.
type AllOrNothing struct {
	Give domain.Amount
	Want domain.Amount
}

func (s AllOrNothing) Offered() domain.Amount { return s.Give }
func (s AllOrNothing) Wanted() domain.Amount  { return s.Want }
func (AllOrNothing) isShape()                 {}

// Shape classifies the decomposition into a supported shape.
func (d Decomposition) Shape() (Shape, error) {
	hasPartial := len(d.PartialFillOutputs) > 0
	hasRequired := len(d.RequiredOutputs) > 0

	switch {
	case hasPartial && hasRequired:
		return nil, tooComplicated("mixes partial fill and required outputs")
	case hasPartial:
		if d.PartialFillChange == nil {
			return nil, tooComplicated("partial fill outputs without a change output")
		}
		if *d.PartialFillChange != d.PseudoOutput {
			return nil, tooComplicated("partial fill change does not match pseudo-output")
		}
		if len(d.PartialFillOutputs) != 1 {
			return nil, tooComplicated("more than one partial fill output")
		}
		return PartialFill{
			Give:    d.PseudoOutput,
			Want:    d.PartialFillOutputs[0],
			MinFill: d.MinPartialFillValue,
		}, nil
	case hasRequired:
		if d.PartialFillChange != nil {
			return nil, tooComplicated("change output on an all-or-nothing order")
		}
		if len(d.RequiredOutputs) != 1 {
			return nil, tooComplicated("more than one required output")
		}
		return AllOrNothing{Give: d.PseudoOutput, Want: d.RequiredOutputs[0]}, nil
	default:
		return nil, tooComplicated("no outputs")
	}
}
