package safe

import (
	"errors"
	"math/bits"
)

var (
	ErrOverflow  = errors.New("u64 overflow")
	ErrUnderflow = errors.New("u64 underflow")
	ErrDivByZero = errors.New("division by zero")
)

// Add returns a+b or ErrOverflow.
func Add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

// Sub returns a-b or ErrUnderflow.
func Sub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrUnderflow
	}
	return diff, nil
}

// Mul returns a*b or ErrOverflow.
func Mul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrOverflow
	}
	return lo, nil
}

// MulDivCeil computes ceil(a*b/c) with a 128-bit intermediate product.
func MulDivCeil(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, ErrDivByZero
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= c {
		return 0, ErrOverflow
	}
	quo, rem := bits.Div64(hi, lo, c)
	if rem != 0 {
		if quo == ^uint64(0) {
			return 0, ErrOverflow
		}
		quo++
	}
	return quo, nil
}
