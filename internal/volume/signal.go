package volume

import (
	"context"
	"errors"
	"math"

	"go.uber.org/zap"

	"veaxflow/internal/model"
	"veaxflow/internal/pool"
)

// DefaultFallback is the average volume assumed when no signal is available.
const DefaultFallback = 5_000_000

const (
	ReasonFetchFailed = "fetch_failed"
	ReasonMalformed   = "malformed_series"
	ReasonEmptySeries = "empty_series"
	ReasonInvalid     = "invalid_average"
)

// ChartFetcher returns the raw volume series of a pair.
type ChartFetcher interface {
	ChartVolume(ctx context.Context, tokenA, tokenB, chartRange string) ([]model.VolumePoint, error)
}

// Config controls how the signal is fetched and what replaces a missing one.
// A zero Fallback selects DefaultFallback.
type Config struct {
	ChartRange string
	Fallback   float64
}

// Signal is the average hourly volume handed to the engine, in quote units.
type Signal struct {
	AvgVolume float64
	Samples   int
	Fallback  bool
	Reason    string
}

// Source turns the chart_volume series into a single average.
type Source struct {
	fetcher ChartFetcher
	cfg     Config
	logger  *zap.Logger
}

func NewSource(fetcher ChartFetcher, cfg Config, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Fallback <= 0 || math.IsNaN(cfg.Fallback) || math.IsInf(cfg.Fallback, 0) {
		cfg.Fallback = DefaultFallback
	}
	return &Source{fetcher: fetcher, cfg: cfg, logger: logger}
}

// AverageVolume never fails: any problem yields the fallback signal.
func (s *Source) AverageVolume(ctx context.Context, state *pool.State) Signal {
	points, err := s.fetcher.ChartVolume(ctx, state.TokenA, state.TokenB, s.cfg.ChartRange)
	if err != nil {
		reason := ReasonFetchFailed
		if errors.Is(err, model.ErrMalformed) {
			reason = ReasonMalformed
		}
		s.logger.Warn("volume fetch failed, using fallback",
			zap.String("pair", state.PairID()),
			zap.String("reason", reason),
			zap.Float64("fallback", s.cfg.Fallback),
			zap.Error(err))
		return s.fallback(reason)
	}
	if len(points) == 0 {
		s.logger.Warn("volume series empty, using fallback", zap.String("pair", state.PairID()))
		return s.fallback(ReasonEmptySeries)
	}

	avg, samples, ok := Average(points, state.SpotPrice)
	if !ok {
		s.logger.Warn("volume average invalid, using fallback", zap.String("pair", state.PairID()), zap.Int("points", len(points)), zap.Int("samples", samples))
		return s.fallback(ReasonInvalid)
	}
	if skipped := len(points) - samples; skipped > 0 {
		s.logger.Debug("volume samples skipped", zap.String("pair", state.PairID()), zap.Int("skipped", skipped))
	}
	return Signal{AvgVolume: avg, Samples: samples}
}

func (s *Source) fallback(reason string) Signal {
	return Signal{AvgVolume: s.cfg.Fallback, Fallback: true, Reason: reason}
}

// Average converts each base-asset value to quote units at spotPrice and
// returns the mean over the samples that carry a value. NaN samples are
// skipped and counted out of samples. ok is false when no sample remains or
// the mean is not a finite non-negative number.
func Average(points []model.VolumePoint, spotPrice float64) (avg float64, samples int, ok bool) {
	var sum float64
	for _, p := range points {
		if math.IsNaN(p.Value) {
			continue
		}
		sum += p.Value * spotPrice
		samples++
	}
	if samples == 0 {
		return 0, 0, false
	}
	avg = sum / float64(samples)
	if math.IsNaN(avg) || math.IsInf(avg, 0) || avg < 0 {
		return 0, samples, false
	}
	return avg, samples, true
}
