package quant

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

// MaxDecimals is the largest decimal count a token may declare.
// Values scaled beyond this cannot be represented by the wallet daemon.
const MaxDecimals = 28

// maxScaledDigits is the integer width of a 96-bit decimal mantissa.
const maxScaledDigits = 29

var (
	ErrDecimalOverflow = errors.New("decimal overflow")
	ErrIntegerOverflow = errors.New("u64 overflow")
)

var maxUint64 = decimal.NewFromBigInt(new(big.Int).SetUint64(^uint64(0)), 0)

// ToSmallestUnits rescales a human decimal to the token's smallest unit.
// E.g., ToSmallestUnits(1.5, 6) -> 1,500,000.
// Rounds half away from zero before the integer conversion.
func ToSmallestUnits(d decimal.Decimal, decimals uint32) (uint64, error) {
	if decimals > MaxDecimals {
		return 0, ErrDecimalOverflow
	}

	// Bound the exponent first, rescaling 1e2000000000 would never finish.
	exp := int64(d.Exponent()) + int64(decimals)
	digits := int64(len(d.Coefficient().String()))
	if d.IsNegative() {
		digits--
	}
	switch {
	case d.IsZero() || exp+digits < 0:
		return 0, nil
	case exp+digits > maxScaledDigits:
		return 0, ErrDecimalOverflow
	case exp+digits > 20:
		return 0, ErrIntegerOverflow
	}

	scaled := d.Shift(int32(decimals)).Round(0)
	if scaled.IsNegative() || scaled.GreaterThan(maxUint64) {
		return 0, ErrIntegerOverflow
	}
	return scaled.BigInt().Uint64(), nil
}

// FromSmallestUnits converts a smallest-unit value into a human decimal.
// E.g., FromSmallestUnits(1_500_000, 6) -> 1.5.
func FromSmallestUnits(value uint64, decimals uint32) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(value), -int32(decimals))
}

// ParseSmallestUnits parses a user-entered decimal string and rescales it.
func ParseSmallestUnits(s string, decimals uint32) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return ToSmallestUnits(d, decimals)
}
