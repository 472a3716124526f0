package model

import "math"

// PriceRange is the concentrated liquidity band, in units of token B per token A.
type PriceRange struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Width returns Upper - Lower. It is negative for an inverted range.
func (r PriceRange) Width() float64 {
	return r.Upper - r.Lower
}

// Mid returns the midpoint of the range.
func (r PriceRange) Mid() float64 {
	return (r.Lower + r.Upper) / 2
}

// Valid reports whether both bounds are finite and Lower < Upper.
func (r PriceRange) Valid() bool {
	if math.IsNaN(r.Lower) || math.IsInf(r.Lower, 0) || math.IsNaN(r.Upper) || math.IsInf(r.Upper, 0) {
		return false
	}
	return r.Lower < r.Upper
}
