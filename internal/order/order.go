package order

import (
	"buddy_go/internal/domain"
)

// SignedOrder is a signed contingent input: the creator pledges PseudoOutput
// in exchange for RequiredOutputs, or for a proportional share of
// PartialFillOutputs when PartialFillChange is set.
// Payload carries the ring members and signature; it is opaque here.
type SignedOrder struct {
	BlockVersion        uint32          `json:"block_version"`
	PseudoOutput        domain.Amount   `json:"pseudo_output"`
	PartialFillChange   *domain.Amount  `json:"partial_fill_change,omitempty"`
	PartialFillOutputs  []domain.Amount `json:"partial_fill_outputs,omitempty"`
	RequiredOutputs     []domain.Amount `json:"required_outputs,omitempty"`
	MinPartialFillValue uint64          `json:"min_partial_fill_value,string"`
	TombstoneBlock      uint64          `json:"tombstone_block,string"`
	KeyImage            []byte          `json:"key_image"`
	Payload             []byte          `json:"payload"`
}

// Clone returns a deep copy.
func (o *SignedOrder) Clone() *SignedOrder {
	if o == nil {
		return nil
	}
	c := *o
	if o.PartialFillChange != nil {
		change := *o.PartialFillChange
		c.PartialFillChange = &change
	}
	c.PartialFillOutputs = append([]domain.Amount(nil), o.PartialFillOutputs...)
	c.RequiredOutputs = append([]domain.Amount(nil), o.RequiredOutputs...)
	c.KeyImage = append([]byte(nil), o.KeyImage...)
	c.Payload = append([]byte(nil), o.Payload...)
	return &c
}

// Decomposition is the validated, unmasked view of an order's amounts.
type Decomposition struct {
	PseudoOutput        domain.Amount
	PartialFillChange   *domain.Amount
	PartialFillOutputs  []domain.Amount
	RequiredOutputs     []domain.Amount
	MinPartialFillValue uint64
}

// IsPartialFill reports whether the change output returns the whole pseudo-output,
// i.e. the order can be filled to any degree.
func (d Decomposition) IsPartialFill() bool {
	return d.PartialFillChange != nil && *d.PartialFillChange == d.PseudoOutput
}
