package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"veaxflow/internal/engine"
	"veaxflow/internal/model"
	"veaxflow/internal/pool"
	"veaxflow/internal/veax"
	"veaxflow/internal/volume"
)

// PoolLister fetches the pool listing.
type PoolLister interface {
	GetPools(ctx context.Context) ([]model.PoolRecord, error)
}

// VolumeSource yields the averaged volume signal for a pool.
type VolumeSource interface {
	AverageVolume(ctx context.Context, state *pool.State) volume.Signal
}

// Recorder receives the outcome of every step.
type Recorder interface {
	ObserveAdjustment(pair string, adj model.Adjustment)
	ObserveFallback(pair, reason string)
}

// RunConfig holds the settings of the control loop.
type RunConfig struct {
	TokenA      string
	TokenB      string
	Iterations  int
	Interval    time.Duration
	PoolOptions pool.Options
	Units       pool.Units
}

// Runner drives fetch, adjust and report for a single pool.
type Runner struct {
	cfg      RunConfig
	pools    PoolLister
	volume   VolumeSource
	engine   *engine.Engine
	recorder Recorder
	logger   *zap.Logger
}

// NewRunner builds a Runner with its dependencies. recorder may be nil.
func NewRunner(cfg RunConfig, pools PoolLister, source VolumeSource, eng *engine.Engine, recorder Recorder, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Runner{
		cfg:      cfg,
		pools:    pools,
		volume:   source,
		engine:   eng,
		recorder: recorder,
		logger:   logger,
	}
}

// LoadPool fetches the listing and builds the State of the target pair.
func (r *Runner) LoadPool(ctx context.Context) (*pool.State, error) {
	if r.pools == nil {
		return nil, fmt.Errorf("pool lister is nil")
	}
	records, err := r.pools.GetPools(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch pools: %w", err)
	}
	rec, err := veax.FindPool(records, r.cfg.TokenA, r.cfg.TokenB)
	if err != nil {
		return nil, err
	}
	state, err := pool.NewState(rec, r.cfg.PoolOptions)
	if err != nil {
		return nil, fmt.Errorf("build pool state: %w", err)
	}
	if err := state.Validate(); err != nil {
		return nil, fmt.Errorf("initial pool state: %w", err)
	}
	r.logger.Info("pool loaded", zap.String("pair", state.PairID()), zap.Int("pools_listed", len(records)))
	return state, nil
}

// Run loads the pool and performs the configured number of steps.
// Zero iterations runs until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if r.volume == nil {
		return fmt.Errorf("volume source is nil")
	}
	if r.engine == nil {
		return fmt.Errorf("engine is nil")
	}

	state, err := r.LoadPool(ctx)
	if err != nil {
		return err
	}
	r.logger.Info("initial", zap.String("status", state.Status(r.cfg.Units)))

	for i := 1; r.cfg.Iterations == 0 || i <= r.cfg.Iterations; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, err := r.Step(ctx, state); err != nil {
			return err
		}

		if r.cfg.Iterations != 0 && i == r.cfg.Iterations {
			break
		}
		if err := wait(ctx, r.cfg.Interval); err != nil {
			return err
		}
	}

	r.logger.Info("agent run complete", zap.String("status", state.Status(r.cfg.Units)))
	return nil
}

// Step pulls a fresh signal, applies the engine to state and reports it.
func (r *Runner) Step(ctx context.Context, state *pool.State) (model.Adjustment, error) {
	logger := r.logger.With(zap.String("cycle_id", uuid.NewString()), zap.String("pair", state.PairID()))

	signal := r.volume.AverageVolume(ctx, state)
	if signal.Fallback {
		r.recorder.ObserveFallback(state.PairID(), signal.Reason)
	}

	adj := r.engine.Adjust(state, signal.AvgVolume)
	if err := r.engine.CheckInvariants(state); err != nil {
		return adj, fmt.Errorf("pool invariants violated: %w", err)
	}
	r.recorder.ObserveAdjustment(state.PairID(), adj)

	logger.Info("pool adjusted",
		zap.String("branch", string(adj.Branch)),
		zap.Float64("avg_volume", adj.AvgVolume),
		zap.Int("samples", signal.Samples),
		zap.Bool("fallback", signal.Fallback),
		zap.Float64("prev_fee", adj.PrevFee),
		zap.Float64("new_fee", adj.NewFee),
		zap.Float64("range_lower", adj.NewRange.Lower),
		zap.Float64("range_upper", adj.NewRange.Upper),
		zap.String("reserve_a", adj.ReserveA.String()),
		zap.String("reserve_b", adj.ReserveB.String()),
		zap.Float64("yield_estimate", adj.YieldEstimate),
	)
	if adj.RangeClamped {
		logger.Warn("price range clamped at minimum width",
			zap.Float64("min_width", r.engine.Policy().MinRangeWidth),
			zap.Float64("prev_lower", adj.PrevRange.Lower),
			zap.Float64("prev_upper", adj.PrevRange.Upper))
	}
	if adj.ReservesCapped {
		logger.Warn("reserve growth capped", zap.Float64("max_growth", r.engine.Policy().MaxReserveGrowth))
	}
	logger.Info("updated", zap.String("status", state.Status(r.cfg.Units)))
	return adj, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type nopRecorder struct{}

func (nopRecorder) ObserveAdjustment(string, model.Adjustment) {}
func (nopRecorder) ObserveFallback(string, string)             {}
