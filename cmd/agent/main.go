package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"veaxflow/internal/agent"
	"veaxflow/internal/config"
	"veaxflow/internal/engine"
	"veaxflow/internal/metrics"
	"veaxflow/internal/veax"
	"veaxflow/internal/volume"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "agent",
		Short:        "Liquidity pool parameter agent for Veax",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch the pool and adjust its parameters on a fixed cadence",
		RunE:  runAgent,
	}
	addAgentFlags(runCmd.Flags())
	runCmd.Flags().Int("iterations", 3, "number of adjustment steps, 0 runs until interrupted")
	runCmd.Flags().Duration("interval", 2*time.Second, "delay between steps")
	runCmd.Flags().String("chart-range", veax.DefaultChartRange, "chart_volume range (e.g. DAY)")
	runCmd.Flags().Float64("fallback-volume", volume.DefaultFallback, "average volume used when the signal is unavailable")
	runCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (empty disables)")
	addPolicyFlags(runCmd.Flags())

	root.AddCommand(runCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the current status of the target pool",
		RunE:  runStatus,
	}
	addAgentFlags(statusCmd.Flags())

	root.AddCommand(statusCmd)

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay the adjustment engine over a volume sequence without network access",
		RunE:  runSimulate,
	}
	simulateCmd.Flags().String("token-a", "wrap.near", "base token id")
	simulateCmd.Flags().String("token-b", "usdt.tether-token.near", "quote token id")
	simulateCmd.Flags().String("spot-price", "5.0", "spot price of token A in token B")
	simulateCmd.Flags().String("reserve-a", "0", "reserve of token A in smallest units")
	simulateCmd.Flags().String("reserve-b", "0", "reserve of token B in smallest units")
	simulateCmd.Flags().String("symbol-a", "NEAR", "display symbol of token A")
	simulateCmd.Flags().String("symbol-b", "USDT", "display symbol of token B")
	simulateCmd.Flags().Int32("decimals-a", 24, "decimal exponent of token A")
	simulateCmd.Flags().Int32("decimals-b", 6, "decimal exponent of token B")
	simulateCmd.Flags().StringSlice("volume", nil, "average hourly volumes in quote units, applied in order")
	simulateCmd.Flags().Float64("initial-fee", 0.3, "starting fee tier in percent")
	simulateCmd.Flags().Float64("initial-range-pct", 0.05, "starting half-width of the range around spot")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	addPolicyFlags(simulateCmd.Flags())

	root.AddCommand(simulateCmd)

	return root
}

func addAgentFlags(fs *pflag.FlagSet) {
	fs.String("rpc-url", veax.DefaultURL, "Veax JSON-RPC URL")
	fs.String("token-a", "wrap.near", "base token id")
	fs.String("token-b", "usdt.tether-token.near", "quote token id")
	fs.String("symbol-a", "NEAR", "display symbol of token A")
	fs.String("symbol-b", "USDT", "display symbol of token B")
	fs.Int32("decimals-a", 24, "decimal exponent of token A")
	fs.Int32("decimals-b", 6, "decimal exponent of token B")
	fs.Duration("request-timeout", 10*time.Second, "per-request timeout")
	fs.Int("max-retries", 3, "maximum retry attempts per request")
	fs.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	fs.Float64("rpc-rate", 5, "maximum requests per second, 0 disables")
	fs.Float64("initial-fee", 0.3, "starting fee tier in percent")
	fs.Float64("initial-range-pct", 0.05, "starting half-width of the range around spot")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
}

func addPolicyFlags(fs *pflag.FlagSet) {
	p := engine.DefaultPolicy()
	fs.Float64("threshold", p.Threshold, "hourly volume separating high from low volume")
	fs.Float64("min-range-width", p.MinRangeWidth, "narrowest price range a low-volume step may leave, 0 disables")
	fs.Float64("max-reserve-growth", p.MaxReserveGrowth, "cap on reserves as a multiple of the initial snapshot, 0 disables")
}

func runAgent(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	eng, err := engine.New(cfg.Policy)
	if err != nil {
		return err
	}

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder := metrics.New()
	source := volume.NewSource(client, volume.Config{
		ChartRange: cfg.ChartRange,
		Fallback:   cfg.FallbackVolume,
	}, logger.Named("volume"))

	runner := agent.NewRunner(agent.RunConfig{
		TokenA:      cfg.TokenA,
		TokenB:      cfg.TokenB,
		Iterations:  cfg.Iterations,
		Interval:    cfg.Interval,
		PoolOptions: cfg.PoolOptions(),
		Units:       cfg.Units(),
	}, client, source, eng, recorder, logger)

	logger.Info("agent start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("token_a", cfg.TokenA),
		zap.String("token_b", cfg.TokenB),
		zap.Int("iterations", cfg.Iterations),
		zap.Duration("interval", cfg.Interval),
		zap.Float64("threshold", cfg.Policy.Threshold),
		zap.Float64("fallback_volume", cfg.FallbackVolume),
		zap.String("metrics_addr", cfg.MetricsAddr),
	)

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancelRun := context.WithCancel(gctx)
	defer cancelRun()

	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return recorder.Serve(runCtx, cfg.MetricsAddr)
		})
	}
	g.Go(func() error {
		defer cancelRun()
		return runner.Run(runCtx)
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("agent stopped")
			return nil
		}
		return err
	}
	return nil
}

func newClient(cfg config.Config, logger *zap.Logger) (*veax.Client, error) {
	return veax.NewClient(veax.Config{
		URL:          cfg.RPCURL,
		Timeout:      cfg.RequestTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		RateLimit:    cfg.RPCRate,
	}, logger.Named("veax"))
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
