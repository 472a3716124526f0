package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veaxflow/internal/config"
	"veaxflow/internal/engine"
	"veaxflow/internal/model"
	"veaxflow/internal/pool"
)

func simulateConfig(volumes ...float64) config.SimulateConfig {
	return config.SimulateConfig{
		TokenA:     "wrap.near",
		TokenB:     "usdt.tether-token.near",
		SpotPrice:  "5.0",
		ReserveA:   "1250000000000000000000000000",
		ReserveB:   "6250000000",
		Volumes:    volumes,
		InitialFee: 0.3,
		RangePct:   0.05,
		Units:      pool.DefaultUnits(),
		Policy:     engine.DefaultPolicy(),
	}
}

func TestSimulateReplaysVolumes(t *testing.T) {
	initial, steps, final, err := simulate(simulateConfig(1000, 300))
	require.NoError(t, err)
	require.Len(t, steps, 2)

	assert.Equal(t, 0.3, initial.FeeTier)
	assert.Equal(t, "1250000000000000000000000000", initial.ReserveA.String())

	assert.Equal(t, model.BranchHighVolume, steps[0].Branch)
	assert.InDelta(t, 2.0, steps[0].YieldEstimate, 1e-12)
	assert.Equal(t, model.BranchLowVolume, steps[1].Branch)
	assert.InDelta(t, 0.3, final.FeeTier, 1e-12)
	assert.InDelta(t, 4.5325, final.PriceRange.Lower, 1e-12)
	assert.InDelta(t, 5.4925, final.PriceRange.Upper, 1e-12)
	assert.Equal(t, "1375000000000000000000000000", final.ReserveA.String())
}

func TestSimulateRejectsBadPool(t *testing.T) {
	cfg := simulateConfig(1000)
	cfg.SpotPrice = "-1"
	_, _, _, err := simulate(cfg)
	assert.Error(t, err)
}

func TestRenderSteps(t *testing.T) {
	_, steps, _, err := simulate(simulateConfig(1000))
	require.NoError(t, err)

	out := renderSteps(steps, pool.DefaultUnits())
	assert.True(t, strings.Contains(out, "high_volume"))
	assert.True(t, strings.Contains(out, "0.20%"))
	assert.True(t, strings.Contains(out, "4.5125-5.5125"))
	assert.True(t, strings.Contains(out, "1,000.00"))
	assert.True(t, strings.Contains(out, "1375.00 NEAR"))
}
