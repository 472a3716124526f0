package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"veaxflow/internal/model"
)

const namespace = "veaxflow"

// Metrics holds the collectors of the control loop on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	feeTier       *prometheus.GaugeVec
	rangeLower    *prometheus.GaugeVec
	rangeUpper    *prometheus.GaugeVec
	avgVolume     *prometheus.GaugeVec
	yieldEstimate *prometheus.GaugeVec

	adjustments     *prometheus.CounterVec
	volumeFallbacks *prometheus.CounterVec
	rangeClamps     *prometheus.CounterVec
	reserveCaps     *prometheus.CounterVec
}

func New() *Metrics {
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help}, []string{"pair"})
	}
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, append([]string{"pair"}, labels...))
	}

	m := &Metrics{
		registry:      prometheus.NewRegistry(),
		feeTier:       gauge("fee_tier", "Recommended fee tier in percent."),
		rangeLower:    gauge("range_lower", "Lower bound of the recommended price range."),
		rangeUpper:    gauge("range_upper", "Upper bound of the recommended price range."),
		avgVolume:     gauge("avg_volume", "Average hourly volume fed to the engine, in quote units."),
		yieldEstimate: gauge("yield_estimate", "Projected fee revenue per hour, in quote units."),

		adjustments:     counter("adjustments_total", "Engine steps by branch.", "branch"),
		volumeFallbacks: counter("volume_fallbacks_total", "Volume signals replaced by the fallback.", "reason"),
		rangeClamps:     counter("range_clamps_total", "Low-volume steps clamped at the minimum range width."),
		reserveCaps:     counter("reserve_caps_total", "High-volume steps limited by the reserve growth cap."),
	}
	m.registry.MustRegister(
		m.feeTier, m.rangeLower, m.rangeUpper, m.avgVolume, m.yieldEstimate,
		m.adjustments, m.volumeFallbacks, m.rangeClamps, m.reserveCaps,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveFallback counts a volume signal replaced by the fallback.
func (m *Metrics) ObserveFallback(pair, reason string) {
	m.volumeFallbacks.WithLabelValues(pair, reason).Inc()
}

// ObserveAdjustment records the outcome of one engine step.
func (m *Metrics) ObserveAdjustment(pair string, adj model.Adjustment) {
	m.feeTier.WithLabelValues(pair).Set(adj.NewFee)
	m.rangeLower.WithLabelValues(pair).Set(adj.NewRange.Lower)
	m.rangeUpper.WithLabelValues(pair).Set(adj.NewRange.Upper)
	m.avgVolume.WithLabelValues(pair).Set(adj.AvgVolume)
	m.yieldEstimate.WithLabelValues(pair).Set(adj.YieldEstimate)
	m.adjustments.WithLabelValues(pair, string(adj.Branch)).Inc()
	if adj.RangeClamped {
		m.rangeClamps.WithLabelValues(pair).Inc()
	}
	if adj.ReservesCapped {
		m.reserveCaps.WithLabelValues(pair).Inc()
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen metrics: %w", err)
	}
	return m.ServeListener(ctx, ln)
}

// ServeListener exposes /metrics on ln until ctx is cancelled. ln is closed
// on return.
func (m *Metrics) ServeListener(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
