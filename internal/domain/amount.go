package domain

import (
	"fmt"
	"strconv"
)

// TokenID identifies a token on the ledger. Token 0 is the native token.
type TokenID uint64

func (t TokenID) String() string {
	return strconv.FormatUint(uint64(t), 10)
}

// ParseTokenID parses a decimal token id.
func ParseTokenID(s string) (TokenID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid token id %q: %w", s, err)
	}
	return TokenID(v), nil
}

// Amount is a quantity of a token in its smallest unit.
type Amount struct {
	Value   uint64  `json:"value,string"`
	TokenID TokenID `json:"token_id,string"`
}

// NewAmount creates an amount.
func NewAmount(value uint64, tokenID TokenID) Amount {
	return Amount{Value: value, TokenID: tokenID}
}

func (a Amount) String() string {
	return fmt.Sprintf("%d@%d", a.Value, a.TokenID)
}
