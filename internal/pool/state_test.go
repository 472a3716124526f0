package pool

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veaxflow/internal/model"
)

func nearUSDTRecord() model.PoolRecord {
	return model.PoolRecord{
		TokenA:      "wrap.near",
		TokenB:      "usdt.tether-token.near",
		ReserveA:    "1250000000000000000000000000",
		ReserveB:    "6250000000",
		SpotPrice:   "5.0",
		Liquidities: []string{"1000", "0", "234.25", "0"},
	}
}

func TestNewStateFromRecord(t *testing.T) {
	state, err := NewState(nearUSDTRecord(), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "wrap.near-usdt.tether-token.near", state.PairID())
	assert.Equal(t, "1250000000000000000000000000", state.ReserveA.String())
	assert.Equal(t, "6250000000", state.ReserveB.String())
	assert.Equal(t, 5.0, state.SpotPrice)
	assert.Equal(t, 0.3, state.FeeTier)
	assert.InDelta(t, 4.75, state.PriceRange.Lower, 1e-12)
	assert.InDelta(t, 5.25, state.PriceRange.Upper, 1e-12)
	assert.Equal(t, "1234.25", state.TotalLiquidity.String())
	require.NoError(t, state.Validate())

	// Initial reserves must not alias the live ones.
	state.ReserveA.SetInt64(1)
	assert.Equal(t, "1250000000000000000000000000", state.InitialReserveA.String())
}

func TestNewStateRejectsMalformedRecords(t *testing.T) {
	cases := map[string]func(*model.PoolRecord){
		"missing token":      func(r *model.PoolRecord) { r.TokenB = "" },
		"bad reserve":        func(r *model.PoolRecord) { r.ReserveA = "12.5" },
		"negative reserve":   func(r *model.PoolRecord) { r.ReserveB = "-1" },
		"empty reserve":      func(r *model.PoolRecord) { r.ReserveB = "" },
		"reserve over 256b":  func(r *model.PoolRecord) { r.ReserveA = "1" + strings.Repeat("0", 80) },
		"bad spot price":     func(r *model.PoolRecord) { r.SpotPrice = "five" },
		"zero spot price":    func(r *model.PoolRecord) { r.SpotPrice = "0" },
		"bad liquidity item": func(r *model.PoolRecord) { r.Liquidities = []string{"1", "x"} },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			rec := nearUSDTRecord()
			mutate(&rec)
			_, err := NewState(rec, DefaultOptions())
			assert.Error(t, err)
		})
	}
}

func TestNewStateRejectsBadOptions(t *testing.T) {
	_, err := NewState(nearUSDTRecord(), Options{InitialFee: 0.3, RangePct: 0})
	assert.Error(t, err)
	_, err = NewState(nearUSDTRecord(), Options{InitialFee: 0, RangePct: 0.05})
	assert.Error(t, err)
}

func TestValidateDetectsInvertedRange(t *testing.T) {
	state, err := NewState(nearUSDTRecord(), DefaultOptions())
	require.NoError(t, err)

	state.PriceRange = model.PriceRange{Lower: 5.01, Upper: 4.99}
	assert.Error(t, state.Validate())
}

func TestCloneIsDeep(t *testing.T) {
	state, err := NewState(nearUSDTRecord(), DefaultOptions())
	require.NoError(t, err)

	cp := state.Clone()
	cp.ReserveB.Add(cp.ReserveB, big.NewInt(1))
	cp.FeeTier = 1.0

	assert.Equal(t, "6250000000", state.ReserveB.String())
	assert.Equal(t, 0.3, state.FeeTier)
}

func TestStatusLine(t *testing.T) {
	state, err := NewState(nearUSDTRecord(), DefaultOptions())
	require.NoError(t, err)

	got := state.Status(DefaultUnits())
	want := "Pool: wrap.near/usdt.tether-token.near, Reserves: 1250.00 NEAR/6250.00 USDT, " +
		"Fee: 0.30%, Range: 4.7500-5.2500, Liquidity: 1,234"
	assert.Equal(t, want, got)
}

func TestFormatAmount(t *testing.T) {
	raw, _ := new(big.Int).SetString("1234567000000000000000000", 10)
	assert.Equal(t, "1.23", FormatAmount(raw, 24))
	assert.Equal(t, "0.00", FormatAmount(nil, 6))
	assert.Equal(t, "12.35", FormatAmount(big.NewInt(12345678), 6))
}
