package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"veaxflow/internal/engine"
	"veaxflow/internal/model"
	"veaxflow/internal/pool"
	"veaxflow/internal/veax"
	"veaxflow/internal/volume"
)

type fakeLister struct {
	records []model.PoolRecord
	err     error
}

func (f *fakeLister) GetPools(context.Context) ([]model.PoolRecord, error) {
	return f.records, f.err
}

type scriptedSource struct {
	signals []volume.Signal
	calls   int
	onCall  func(n int)
}

func (s *scriptedSource) AverageVolume(context.Context, *pool.State) volume.Signal {
	s.calls++
	if s.onCall != nil {
		s.onCall(s.calls)
	}
	return s.signals[(s.calls-1)%len(s.signals)]
}

type captureRecorder struct {
	adjustments []model.Adjustment
	fallbacks   []string
}

func (c *captureRecorder) ObserveAdjustment(_ string, adj model.Adjustment) {
	c.adjustments = append(c.adjustments, adj)
}

func (c *captureRecorder) ObserveFallback(_ string, reason string) {
	c.fallbacks = append(c.fallbacks, reason)
}

func listing() []model.PoolRecord {
	return []model.PoolRecord{
		{TokenA: "aurora", TokenB: "wrap.near", ReserveA: "1", ReserveB: "1", SpotPrice: "1"},
		{
			TokenA:      "wrap.near",
			TokenB:      "usdt.tether-token.near",
			ReserveA:    "1250000000000000000000000000",
			ReserveB:    "6250000000",
			SpotPrice:   "5.0",
			Liquidities: []string{"100", "0"},
		},
	}
}

func runConfig(iterations int) RunConfig {
	return RunConfig{
		TokenA:      "wrap.near",
		TokenB:      "usdt.tether-token.near",
		Iterations:  iterations,
		PoolOptions: pool.DefaultOptions(),
		Units:       pool.DefaultUnits(),
	}
}

func defaultEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.New(engine.DefaultPolicy())
	require.NoError(t, err)
	return e
}

func TestRunAppliesEachSignal(t *testing.T) {
	src := &scriptedSource{signals: []volume.Signal{
		{AvgVolume: 1000, Samples: 24},
		{AvgVolume: 300, Samples: 24},
		{AvgVolume: volume.DefaultFallback, Fallback: true, Reason: volume.ReasonFetchFailed},
	}}
	rec := &captureRecorder{}
	r := NewRunner(runConfig(3), &fakeLister{records: listing()}, src, defaultEngine(t), rec, zaptest.NewLogger(t))

	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, 3, src.calls)
	require.Len(t, rec.adjustments, 3)
	assert.Equal(t, model.BranchHighVolume, rec.adjustments[0].Branch)
	assert.Equal(t, model.BranchLowVolume, rec.adjustments[1].Branch)
	assert.Equal(t, model.BranchHighVolume, rec.adjustments[2].Branch)
	assert.Equal(t, []string{volume.ReasonFetchFailed}, rec.fallbacks)

	// 0.3 -> 0.2 -> 0.3 -> 0.2
	assert.InDelta(t, 0.2, rec.adjustments[2].NewFee, 1e-9)
	assert.Equal(t, "1512500000000000000000000000", rec.adjustments[2].ReserveA.String())
}

func TestStepMutatesOwnedState(t *testing.T) {
	src := &scriptedSource{signals: []volume.Signal{{AvgVolume: 300}}}
	r := NewRunner(runConfig(1), &fakeLister{records: listing()}, src, defaultEngine(t), nil, nil)

	state, err := r.LoadPool(context.Background())
	require.NoError(t, err)

	adj, err := r.Step(context.Background(), state)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, state.FeeTier, 1e-12)
	assert.InDelta(t, 4.77, state.PriceRange.Lower, 1e-12)
	assert.InDelta(t, 1.2, adj.YieldEstimate, 1e-12)
}

func TestRunPoolNotFound(t *testing.T) {
	src := &scriptedSource{signals: []volume.Signal{{AvgVolume: 1}}}
	cfg := runConfig(1)
	cfg.TokenB = "usdc.near"
	r := NewRunner(cfg, &fakeLister{records: listing()}, src, defaultEngine(t), nil, nil)

	err := r.Run(context.Background())
	assert.ErrorIs(t, err, veax.ErrPoolNotFound)
	assert.Equal(t, 0, src.calls)
}

func TestRunListingFailureAborts(t *testing.T) {
	src := &scriptedSource{signals: []volume.Signal{{AvgVolume: 1}}}
	r := NewRunner(runConfig(1), &fakeLister{err: errors.New("dial tcp: refused")}, src, defaultEngine(t), nil, nil)

	err := r.Run(context.Background())
	assert.ErrorContains(t, err, "fetch pools")
	assert.Equal(t, 0, src.calls)
}

func TestRunMalformedRecordAborts(t *testing.T) {
	records := listing()
	records[1].ReserveA = "not-a-number"
	src := &scriptedSource{signals: []volume.Signal{{AvgVolume: 1}}}
	r := NewRunner(runConfig(1), &fakeLister{records: records}, src, defaultEngine(t), nil, nil)

	assert.ErrorContains(t, r.Run(context.Background()), "build pool state")
}

func TestRunStopsOnCancelBetweenIterations(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &scriptedSource{
		signals: []volume.Signal{{AvgVolume: 1000}},
		onCall: func(n int) {
			if n == 2 {
				cancel()
			}
		},
	}
	cfg := runConfig(0)
	cfg.Interval = time.Millisecond
	r := NewRunner(cfg, &fakeLister{records: listing()}, src, defaultEngine(t), nil, nil)

	err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, src.calls)
}

func TestRunRejectsMissingDependencies(t *testing.T) {
	r := NewRunner(runConfig(1), &fakeLister{records: listing()}, nil, defaultEngine(t), nil, nil)
	assert.Error(t, r.Run(context.Background()))

	r = NewRunner(runConfig(1), &fakeLister{records: listing()}, &scriptedSource{}, nil, nil, nil)
	assert.Error(t, r.Run(context.Background()))
}
