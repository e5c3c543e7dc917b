package order

import (
	"errors"
	"fmt"

	"buddy_go/internal/domain"
)

// ErrInvalidOrder is returned when an order fails structural or signature checks.
var ErrInvalidOrder = errors.New("invalid order")

// Validator turns a raw signed order into its unmasked amounts.
type Validator interface {
	Validate(o *SignedOrder) (Decomposition, error)
}

// SignatureVerifier checks the cryptographic part of an order.
type SignatureVerifier interface {
	VerifySignature(o *SignedOrder) error
}

// StructuralValidator checks amount consistency and delegates the
// signature check to an optional SignatureVerifier.
type StructuralValidator struct {
	verifier SignatureVerifier
}

// NewValidator creates a validator. verifier may be nil when orders come
// from a source that already verified them (the wallet daemon or the
// quoting service, which rejects invalid signatures on submission).
func NewValidator(verifier SignatureVerifier) *StructuralValidator {
	return &StructuralValidator{verifier: verifier}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidOrder, fmt.Sprintf(format, args...))
}

// Validate implements Validator.
func (v *StructuralValidator) Validate(o *SignedOrder) (Decomposition, error) {
	if o == nil {
		return Decomposition{}, invalid("nil order")
	}
	if len(o.Payload) == 0 {
		return Decomposition{}, invalid("missing signature payload")
	}
	if o.PseudoOutput.Value == 0 {
		return Decomposition{}, invalid("zero pseudo-output")
	}

	if change := o.PartialFillChange; change != nil {
		if change.TokenID != o.PseudoOutput.TokenID {
			return Decomposition{}, invalid("change token %d differs from pseudo-output token %d", change.TokenID, o.PseudoOutput.TokenID)
		}
		if change.Value > o.PseudoOutput.Value {
			return Decomposition{}, invalid("change %d exceeds pseudo-output %d", change.Value, o.PseudoOutput.Value)
		}
		if o.MinPartialFillValue > change.Value {
			return Decomposition{}, invalid("minimum fill %d exceeds change %d", o.MinPartialFillValue, change.Value)
		}
	} else if len(o.PartialFillOutputs) > 0 {
		return Decomposition{}, invalid("partial fill outputs without change output")
	}

	for _, out := range o.PartialFillOutputs {
		if out.Value == 0 {
			return Decomposition{}, invalid("zero partial fill output")
		}
	}
	for _, out := range o.RequiredOutputs {
		if out.Value == 0 {
			return Decomposition{}, invalid("zero required output")
		}
	}

	if v.verifier != nil {
		if err := v.verifier.VerifySignature(o); err != nil {
			return Decomposition{}, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
		}
	}

	d := Decomposition{
		PseudoOutput:        o.PseudoOutput,
		PartialFillOutputs:  append([]domain.Amount(nil), o.PartialFillOutputs...),
		RequiredOutputs:     append([]domain.Amount(nil), o.RequiredOutputs...),
		MinPartialFillValue: o.MinPartialFillValue,
	}
	if o.PartialFillChange != nil {
		change := *o.PartialFillChange
		d.PartialFillChange = &change
	}
	return d, nil
}
