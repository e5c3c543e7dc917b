package event

import (
	"time"

	"buddy_go/internal/domain"

	"github.com/google/uuid"
)

// Type defines the type of event.
type Type uint16

const (
	EvPaymentSent Type = iota + 1
	EvSelfPayment
	EvSwapOffered
	EvSwapFulfilled
)

func (t Type) String() string {
	switch t {
	case EvPaymentSent:
		return "payment_sent"
	case EvSelfPayment:
		return "self_payment"
	case EvSwapOffered:
		return "swap_offered"
	case EvSwapFulfilled:
		return "swap_fulfilled"
	default:
		return "unknown"
	}
}

func (t Type) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// Event is the interface for all journal events.
type Event interface {
	GetID() string
	GetTs() int64
	GetType() Type
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	ID string `json:"id"`
	Ts int64  `json:"ts"` // unix millis
}

// NewBase stamps a fresh event id at now.
func NewBase(now time.Time) BaseEvent {
	return BaseEvent{ID: uuid.NewString(), Ts: now.UnixMilli()}
}

func (e BaseEvent) GetID() string { return e.ID }
func (e BaseEvent) GetTs() int64  { return e.Ts }

// PaymentSentEvent records a payment to another address.
type PaymentSentEvent struct {
	BaseEvent
	Amount         domain.Amount `json:"amount"`
	Recipient      string        `json:"recipient"`
	TombstoneBlock uint64        `json:"tombstone_block,string"`
}

func (e PaymentSentEvent) GetType() Type { return EvPaymentSent }

// SelfPaymentEvent records a payment to our own address made to split out
// an input of an exact value.
type SelfPaymentEvent struct {
	BaseEvent
	Amount  domain.Amount `json:"amount"`
	Attempt int           `json:"attempt"`
	Status  string        `json:"status"`
}

func (e SelfPaymentEvent) GetType() Type { return EvSelfPayment }

// SwapOfferedEvent records a new order submitted to the quoting service.
type SwapOfferedEvent struct {
	BaseEvent
	Give    domain.Amount `json:"give"`
	Want    domain.Amount `json:"want"`
	MinFill uint64        `json:"min_fill,string"`
	QuoteID string        `json:"quote_id,omitempty"`
}

func (e SwapOfferedEvent) GetType() Type { return EvSwapOffered }

// SwapFulfilledEvent records a counter-order we filled.
type SwapFulfilledEvent struct {
	BaseEvent
	QuoteID          string         `json:"quote_id,omitempty"`
	PartialFillValue uint64         `json:"partial_fill_value,string"`
	Received         domain.Amount  `json:"received"`
	Paid             domain.Amount  `json:"paid"`
	FeeTokenID       domain.TokenID `json:"fee_token_id,string"`
	Fee              uint64         `json:"fee,string"`
}

func (e SwapFulfilledEvent) GetType() Type { return EvSwapFulfilled }
