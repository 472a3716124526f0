package engine

import (
	"fmt"
	"math"
	"math/big"
	"strconv"

	"veaxflow/internal/model"
	"veaxflow/internal/pool"
)

// Engine maps a volume signal to new pool parameters. It keeps no state
// between calls; all history lives in the pool.State it mutates.
type Engine struct {
	policy     Policy
	reserveMul *big.Rat
	growthCap  *big.Rat
}

// New validates the policy and builds an Engine.
func New(policy Policy) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	mul, err := exactRat(policy.ReserveMultiplier)
	if err != nil {
		return nil, fmt.Errorf("reserve multiplier: %w", err)
	}
	e := &Engine{policy: policy, reserveMul: mul}
	if policy.MaxReserveGrowth > 0 {
		growth, err := exactRat(policy.MaxReserveGrowth)
		if err != nil {
			return nil, fmt.Errorf("max reserve growth: %w", err)
		}
		e.growthCap = growth
	}
	return e, nil
}

// Policy returns the engine's policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Adjust applies one step of the heuristic to state and reports it.
// avgVolume must be finite and non-negative.
func (e *Engine) Adjust(state *pool.State, avgVolume float64) model.Adjustment {
	p := e.policy
	adj := model.Adjustment{
		AvgVolume: avgVolume,
		PrevFee:   state.FeeTier,
		PrevRange: state.PriceRange,
	}

	if avgVolume >= p.Threshold {
		adj.Branch = model.BranchHighVolume
		adj.NewFee = math.Max(p.MinFee, state.FeeTier-p.FeeStep)

		var capA, capB bool
		state.ReserveA, capA = e.scaleReserve(state.ReserveA, state.InitialReserveA)
		state.ReserveB, capB = e.scaleReserve(state.ReserveB, state.InitialReserveB)
		adj.ReservesCapped = capA || capB

		adj.NewRange = model.PriceRange{
			Lower: state.PriceRange.Lower * p.WidenLowerFactor,
			Upper: state.PriceRange.Upper * p.WidenUpperFactor,
		}
	} else {
		adj.Branch = model.BranchLowVolume
		adj.NewFee = math.Min(p.MaxFee, state.FeeTier+p.FeeStep)
		adj.NewRange, adj.RangeClamped = e.narrow(state.PriceRange)
	}

	adj.YieldEstimate = YieldEstimate(adj.NewFee, avgVolume)

	state.FeeTier = adj.NewFee
	state.PriceRange = adj.NewRange
	adj.ReserveA = copyInt(state.ReserveA)
	adj.ReserveB = copyInt(state.ReserveB)
	return adj
}

// CheckInvariants verifies the state against the policy's fee bounds and
// the pool's structural invariants.
func (e *Engine) CheckInvariants(state *pool.State) error {
	if state.FeeTier < e.policy.MinFee || state.FeeTier > e.policy.MaxFee {
		return fmt.Errorf("fee tier %v outside [%v, %v]", state.FeeTier, e.policy.MinFee, e.policy.MaxFee)
	}
	return state.Validate()
}

// YieldEstimate is the projected quote-currency revenue rate at fee percent.
func YieldEstimate(fee, avgVolume float64) float64 {
	return (fee / 100) * avgVolume
}

func (e *Engine) narrow(r model.PriceRange) (model.PriceRange, bool) {
	step := e.policy.NarrowStep
	out := model.PriceRange{Lower: r.Lower + step, Upper: r.Upper - step}
	minWidth := e.policy.MinRangeWidth
	if minWidth <= 0 || out.Width() >= minWidth {
		return out, false
	}
	mid := r.Mid()
	return model.PriceRange{Lower: mid - minWidth/2, Upper: mid + minWidth/2}, true
}

func (e *Engine) scaleReserve(current, initial *big.Int) (*big.Int, bool) {
	if current == nil {
		return nil, false
	}
	scaled := mulRat(current, e.reserveMul)
	if e.growthCap == nil || initial == nil {
		return scaled, false
	}
	limit := mulRat(initial, e.growthCap)
	if scaled.Cmp(limit) <= 0 {
		return scaled, false
	}
	if current.Cmp(limit) > 0 {
		return new(big.Int).Set(current), true
	}
	return limit, true
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// mulRat returns trunc(v * r) for non-negative v.
func mulRat(v *big.Int, r *big.Rat) *big.Int {
	out := new(big.Int).Mul(v, r.Num())
	return out.Quo(out, r.Denom())
}

// exactRat converts f through its shortest decimal form, so 1.1 becomes 11/10.
func exactRat(f float64) (*big.Rat, error) {
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(f, 'f', -1, 64))
	if !ok {
		return nil, fmt.Errorf("cannot represent %v", f)
	}
	return r, nil
}
