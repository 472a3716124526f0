package pool

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	gmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/shopspring/decimal"

	"veaxflow/internal/model"
)

const (
	DefaultInitialFee = 0.3
	DefaultRangePct   = 0.05
	pairSeparator     = "-"
)

// Options controls the parameters a fresh State starts from.
type Options struct {
	InitialFee float64
	RangePct   float64
}

// DefaultOptions returns a 0.3% fee and a +/-5% range around spot.
func DefaultOptions() Options {
	return Options{InitialFee: DefaultInitialFee, RangePct: DefaultRangePct}
}

// State is the mutable economic configuration of one token-pair pool.
// A State is owned by a single caller; it is not safe for concurrent use.
type State struct {
	TokenA         string
	TokenB         string
	ReserveA       *big.Int
	ReserveB       *big.Int
	SpotPrice      float64
	FeeTier        float64
	PriceRange     model.PriceRange
	TotalLiquidity decimal.Decimal

	// Reserves observed at construction, the baseline for growth caps.
	InitialReserveA *big.Int
	InitialReserveB *big.Int
}

// NewState builds a State from a pool listing record.
func NewState(rec model.PoolRecord, opts Options) (*State, error) {
	if strings.TrimSpace(rec.TokenA) == "" || strings.TrimSpace(rec.TokenB) == "" {
		return nil, fmt.Errorf("pool record missing token ids")
	}
	if opts.RangePct <= 0 || opts.RangePct >= 1 {
		return nil, fmt.Errorf("range pct must be in (0, 1), got %v", opts.RangePct)
	}
	if math.IsNaN(opts.InitialFee) || opts.InitialFee <= 0 {
		return nil, fmt.Errorf("initial fee must be positive, got %v", opts.InitialFee)
	}

	reserveA, err := parseReserve(rec.ReserveA)
	if err != nil {
		return nil, fmt.Errorf("reserve_a: %w", err)
	}
	reserveB, err := parseReserve(rec.ReserveB)
	if err != nil {
		return nil, fmt.Errorf("reserve_b: %w", err)
	}

	spot, err := strconv.ParseFloat(strings.TrimSpace(rec.SpotPrice), 64)
	if err != nil {
		return nil, fmt.Errorf("spot_price %q: %w", rec.SpotPrice, err)
	}
	if math.IsNaN(spot) || math.IsInf(spot, 0) || spot <= 0 {
		return nil, fmt.Errorf("spot_price must be positive and finite, got %q", rec.SpotPrice)
	}

	liquidity, err := sumLiquidities(rec.Liquidities)
	if err != nil {
		return nil, err
	}

	return &State{
		TokenA:         rec.TokenA,
		TokenB:         rec.TokenB,
		ReserveA:       reserveA,
		ReserveB:       reserveB,
		SpotPrice:      spot,
		FeeTier:        opts.InitialFee,
		PriceRange:     model.PriceRange{Lower: spot * (1 - opts.RangePct), Upper: spot * (1 + opts.RangePct)},
		TotalLiquidity: liquidity,

		InitialReserveA: new(big.Int).Set(reserveA),
		InitialReserveB: new(big.Int).Set(reserveB),
	}, nil
}

// PairID returns the display key "tokenA-tokenB".
func (s *State) PairID() string {
	return s.TokenA + pairSeparator + s.TokenB
}

// Validate checks the structural invariants of the state.
func (s *State) Validate() error {
	if s.ReserveA == nil || s.ReserveB == nil {
		return fmt.Errorf("reserves not set")
	}
	if s.ReserveA.Sign() < 0 || s.ReserveB.Sign() < 0 {
		return fmt.Errorf("negative reserve")
	}
	if math.IsNaN(s.FeeTier) || math.IsInf(s.FeeTier, 0) || s.FeeTier < 0 {
		return fmt.Errorf("invalid fee tier %v", s.FeeTier)
	}
	if !s.PriceRange.Valid() {
		return fmt.Errorf("invalid price range %.6f-%.6f", s.PriceRange.Lower, s.PriceRange.Upper)
	}
	return nil
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	out := *s
	out.ReserveA = cloneInt(s.ReserveA)
	out.ReserveB = cloneInt(s.ReserveB)
	out.InitialReserveA = cloneInt(s.InitialReserveA)
	out.InitialReserveB = cloneInt(s.InitialReserveB)
	return &out
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func parseReserve(value string) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("empty value")
	}
	parsed, ok := gmath.ParseBig256(value)
	if !ok {
		return nil, fmt.Errorf("invalid uint256: %s", value)
	}
	if parsed.Sign() < 0 {
		return nil, fmt.Errorf("negative value: %s", value)
	}
	return parsed, nil
}

func sumLiquidities(values []string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, value := range values {
		d, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return decimal.Zero, fmt.Errorf("liquidity %q: %w", value, err)
		}
		if d.IsZero() {
			continue
		}
		total = total.Add(d)
	}
	return total, nil
}
