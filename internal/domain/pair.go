package domain

import "fmt"

// Pair is a (base, counter) token pair. Prices are counter per base.
type Pair struct {
	Base    TokenID `json:"base,string"`
	Counter TokenID `json:"counter,string"`
}

// Reverse returns the opposite orientation of the pair.
func (p Pair) Reverse() Pair {
	return Pair{Base: p.Counter, Counter: p.Base}
}

// Valid reports whether the pair names two distinct tokens.
func (p Pair) Valid() bool {
	return p.Base != p.Counter
}

func (p Pair) String() string {
	return fmt.Sprintf("%d/%d", p.Base, p.Counter)
}
