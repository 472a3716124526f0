package engine

import (
	"fmt"
	"math"
)

// Policy holds the constants of the threshold heuristic.
type Policy struct {
	// Threshold splits high from low volume, in quote units per hour.
	Threshold float64
	FeeStep   float64
	MinFee    float64
	MaxFee    float64

	// ReserveMultiplier scales both reserves on a high-volume step.
	ReserveMultiplier float64
	// MaxReserveGrowth caps reserves at this multiple of the construction
	// snapshot. Zero disables the cap.
	MaxReserveGrowth float64

	WidenLowerFactor float64
	WidenUpperFactor float64
	NarrowStep       float64
	// MinRangeWidth is the narrowest range a low-volume step may produce.
	// Zero disables the clamp and allows the range to invert.
	MinRangeWidth float64
}

// DefaultPolicy returns the production heuristic.
func DefaultPolicy() Policy {
	return Policy{
		Threshold:         700,
		FeeStep:           0.1,
		MinFee:            0.05,
		MaxFee:            1.0,
		ReserveMultiplier: 1.1,
		MaxReserveGrowth:  2.0,
		WidenLowerFactor:  0.95,
		WidenUpperFactor:  1.05,
		NarrowStep:        0.02,
		MinRangeWidth:     0.01,
	}
}

// Validate rejects policies that cannot keep the pool invariants.
func (p Policy) Validate() error {
	fields := map[string]float64{
		"threshold":          p.Threshold,
		"fee step":           p.FeeStep,
		"min fee":            p.MinFee,
		"max fee":            p.MaxFee,
		"reserve multiplier": p.ReserveMultiplier,
		"max reserve growth": p.MaxReserveGrowth,
		"widen lower factor": p.WidenLowerFactor,
		"widen upper factor": p.WidenUpperFactor,
		"narrow step":        p.NarrowStep,
		"min range width":    p.MinRangeWidth,
	}
	for name, v := range fields {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be finite", name)
		}
		if v < 0 {
			return fmt.Errorf("%s must not be negative, got %v", name, v)
		}
	}

	if p.MinFee <= 0 {
		return fmt.Errorf("min fee must be positive")
	}
	if p.MinFee > p.MaxFee {
		return fmt.Errorf("min fee %v above max fee %v", p.MinFee, p.MaxFee)
	}
	if p.ReserveMultiplier == 0 || p.WidenLowerFactor == 0 || p.WidenUpperFactor == 0 {
		return fmt.Errorf("multipliers must be positive")
	}
	if p.MaxReserveGrowth != 0 && p.MaxReserveGrowth < 1 {
		return fmt.Errorf("max reserve growth must be 0 or at least 1, got %v", p.MaxReserveGrowth)
	}
	return nil
}
