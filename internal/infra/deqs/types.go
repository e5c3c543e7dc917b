package deqs

import (
	"encoding/json"
	"fmt"

	"buddy_go/internal/domain"
	"buddy_go/internal/order"
)

// QuoteStatusCode is the per-order result of submit_quotes.
type QuoteStatusCode int

const (
	StatusInvalid QuoteStatusCode = iota
	StatusCreated
	StatusInvalidSCI
	StatusUnsupportedSCI
	StatusQuoteAlreadyExists
	StatusQuoteIsStale
	StatusOther
)

func (c QuoteStatusCode) String() string {
	switch c {
	case StatusInvalid:
		return "INVALID"
	case StatusCreated:
		return "CREATED"
	case StatusInvalidSCI:
		return "INVALID_SCI"
	case StatusUnsupportedSCI:
		return "UNSUPPORTED_SCI"
	case StatusQuoteAlreadyExists:
		return "QUOTE_ALREADY_EXISTS"
	case StatusQuoteIsStale:
		return "QUOTE_IS_STALE"
	case StatusOther:
		return "OTHER"
	default:
		return fmt.Sprintf("STATUS(%d)", int(c))
	}
}

// SubmitResult is the service's verdict on one submitted order.
type SubmitResult struct {
	Status  QuoteStatusCode
	Message string
	QuoteID string
}

// Err converts a non-created status into an error carrying the message.
func (r SubmitResult) Err() error {
	if r.Status == StatusCreated {
		return nil
	}
	if r.Message != "" {
		return fmt.Errorf("quote rejected (%s): %s", r.Status, r.Message)
	}
	return fmt.Errorf("quote rejected (%s)", r.Status)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
}

type getQuotesParams struct {
	BaseTokenID    domain.TokenID `json:"base_token_id,string"`
	CounterTokenID domain.TokenID `json:"counter_token_id,string"`
	Limit          int            `json:"limit"`
}

type wireQuote struct {
	ID        string             `json:"id"`
	SCI       *order.SignedOrder `json:"sci"`
	Timestamp uint64             `json:"timestamp,string"`
}

type getQuotesResult struct {
	Quotes []wireQuote `json:"quotes"`
}

type submitQuotesParams struct {
	Quotes []*order.SignedOrder `json:"quotes"`
}

type submitQuotesResult struct {
	StatusCodes   []QuoteStatusCode `json:"status_codes"`
	ErrorMessages []string          `json:"error_messages"`
	Quotes        []wireQuote       `json:"quotes"`
}
