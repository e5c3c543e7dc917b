package domain

import (
	"buddy_go/pkg/quant"

	"github.com/shopspring/decimal"
)

// TokenInfo is display and fee metadata for a token.
// Fee comes from the network minimum fee list, symbol/decimals from config.
type TokenInfo struct {
	TokenID  TokenID `json:"token_id,string"`
	Symbol   string  `json:"symbol"`
	Fee      uint64  `json:"fee,string"`
	Decimals uint32  `json:"decimals"`
}

// Scaled converts a smallest-unit value to a human decimal.
func (t TokenInfo) Scaled(value uint64) decimal.Decimal {
	return quant.FromSmallestUnits(value, t.Decimals)
}

// ToU64 converts a human decimal into smallest units of this token.
func (t TokenInfo) ToU64(d decimal.Decimal) (uint64, error) {
	return quant.ToSmallestUnits(d, t.Decimals)
}

// ParseU64 parses a user-entered decimal string into smallest units.
func (t TokenInfo) ParseU64(s string) (uint64, error) {
	return quant.ParseSmallestUnits(s, t.Decimals)
}

// FindToken looks up a token by id.
func FindToken(infos []TokenInfo, id TokenID) (TokenInfo, bool) {
	for _, info := range infos {
		if info.TokenID == id {
			return info, true
		}
	}
	return TokenInfo{}, false
}
