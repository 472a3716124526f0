package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"veaxflow/internal/engine"
	"veaxflow/internal/pool"
	"veaxflow/internal/veax"
	"veaxflow/internal/volume"
)

const envPrefix = "VEAXFLOW"

// Config holds configuration for the run and status commands.
type Config struct {
	RPCURL         string
	TokenA         string
	TokenB         string
	SymbolA        string
	SymbolB        string
	DecimalsA      int32
	DecimalsB      int32
	ChartRange     string
	Iterations     int
	Interval       time.Duration
	RequestTimeout time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	RPCRate        float64
	FallbackVolume float64
	InitialFee     float64
	RangePct       float64
	Policy         engine.Policy
	MetricsAddr    string
	LogLevel       string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	units := pool.DefaultUnits()
	v.SetDefault("rpc-url", veax.DefaultURL)
	v.SetDefault("token-a", "wrap.near")
	v.SetDefault("token-b", "usdt.tether-token.near")
	v.SetDefault("symbol-a", units.SymbolA)
	v.SetDefault("symbol-b", units.SymbolB)
	v.SetDefault("decimals-a", units.DecimalsA)
	v.SetDefault("decimals-b", units.DecimalsB)
	v.SetDefault("chart-range", veax.DefaultChartRange)
	v.SetDefault("iterations", 3)
	v.SetDefault("interval", 2*time.Second)
	v.SetDefault("request-timeout", 10*time.Second)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("rpc-rate", 5.0)
	v.SetDefault("fallback-volume", float64(volume.DefaultFallback))
	setPoolDefaults(v)
	setPolicyDefaults(v)
	v.SetDefault("log-level", "info")

	if err := readInto(v, cfgFile, flags); err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:         v.GetString("rpc-url"),
		TokenA:         v.GetString("token-a"),
		TokenB:         v.GetString("token-b"),
		SymbolA:        v.GetString("symbol-a"),
		SymbolB:        v.GetString("symbol-b"),
		DecimalsA:      v.GetInt32("decimals-a"),
		DecimalsB:      v.GetInt32("decimals-b"),
		ChartRange:     v.GetString("chart-range"),
		Iterations:     v.GetInt("iterations"),
		Interval:       v.GetDuration("interval"),
		RequestTimeout: v.GetDuration("request-timeout"),
		MaxRetries:     v.GetInt("max-retries"),
		RetryBackoff:   v.GetDuration("retry-backoff"),
		RPCRate:        v.GetFloat64("rpc-rate"),
		FallbackVolume: v.GetFloat64("fallback-volume"),
		InitialFee:     v.GetFloat64("initial-fee"),
		RangePct:       v.GetFloat64("initial-range-pct"),
		Policy:         loadPolicy(v),
		MetricsAddr:    v.GetString("metrics-addr"),
		LogLevel:       v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate checks the values that would otherwise fail deep inside a run.
func (c Config) Validate() error {
	if strings.TrimSpace(c.RPCURL) == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.TokenA == "" || c.TokenB == "" {
		return fmt.Errorf("token-a and token-b are required")
	}
	if c.Iterations < 0 {
		return fmt.Errorf("iterations must not be negative")
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval must not be negative")
	}
	if c.Iterations == 0 && c.Interval == 0 {
		return fmt.Errorf("interval must be positive when iterations is 0")
	}
	if err := validateDecimals(c.DecimalsA, c.DecimalsB); err != nil {
		return err
	}
	if !(c.FallbackVolume > 0) || math.IsInf(c.FallbackVolume, 0) {
		return fmt.Errorf("fallback volume must be a positive finite number, got %v", c.FallbackVolume)
	}
	if c.RPCRate < 0 {
		return fmt.Errorf("rpc rate must not be negative")
	}
	if err := c.Policy.Validate(); err != nil {
		return err
	}
	return validateInitialFee(c.InitialFee, c.Policy)
}

// Units returns the display units of the pair.
func (c Config) Units() pool.Units {
	return pool.Units{SymbolA: c.SymbolA, SymbolB: c.SymbolB, DecimalsA: c.DecimalsA, DecimalsB: c.DecimalsB}
}

// PoolOptions returns the starting parameters for a fresh pool state.
func (c Config) PoolOptions() pool.Options {
	return pool.Options{InitialFee: c.InitialFee, RangePct: c.RangePct}
}

func readInto(v *viper.Viper, cfgFile string, flags *pflag.FlagSet) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func setPoolDefaults(v *viper.Viper) {
	opts := pool.DefaultOptions()
	v.SetDefault("initial-fee", opts.InitialFee)
	v.SetDefault("initial-range-pct", opts.RangePct)
}

func validateInitialFee(fee float64, policy engine.Policy) error {
	if fee < policy.MinFee || fee > policy.MaxFee || math.IsNaN(fee) {
		return fmt.Errorf("initial fee %v outside [%v, %v]", fee, policy.MinFee, policy.MaxFee)
	}
	return nil
}

func validateDecimals(values ...int32) error {
	for _, d := range values {
		if d < 0 || d > 77 {
			return fmt.Errorf("decimals must be in [0, 77], got %d", d)
		}
	}
	return nil
}
