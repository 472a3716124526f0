package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veaxflow/internal/engine"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "https://veax-liquidity-pool.veax.com/v1/rpc", cfg.RPCURL)
	assert.Equal(t, "wrap.near", cfg.TokenA)
	assert.Equal(t, "usdt.tether-token.near", cfg.TokenB)
	assert.Equal(t, int32(24), cfg.DecimalsA)
	assert.Equal(t, int32(6), cfg.DecimalsB)
	assert.Equal(t, 3, cfg.Iterations)
	assert.Equal(t, 2*time.Second, cfg.Interval)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 5_000_000.0, cfg.FallbackVolume)
	assert.Equal(t, 0.3, cfg.InitialFee)
	assert.Equal(t, engine.DefaultPolicy(), cfg.Policy)
	require.NoError(t, cfg.Validate())
}

func TestLoadFlagsAndEnv(t *testing.T) {
	t.Setenv("VEAXFLOW_TOKEN_B", "usdc.near")
	t.Setenv("VEAXFLOW_MIN_RANGE_WIDTH", "0.05")

	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.Int("iterations", 3, "")
	flags.Duration("interval", 2*time.Second, "")
	flags.Float64("threshold", 700, "")
	require.NoError(t, flags.Parse([]string{"--iterations=0", "--interval=1m", "--threshold=1500"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, "usdc.near", cfg.TokenB)
	assert.Equal(t, 0, cfg.Iterations)
	assert.Equal(t, time.Minute, cfg.Interval)
	assert.Equal(t, 1500.0, cfg.Policy.Threshold)
	assert.Equal(t, 0.05, cfg.Policy.MinRangeWidth)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("token-a: aurora\nmax-reserve-growth: 3\nmetrics-addr: \":9100\"\n"), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "aurora", cfg.TokenA)
	assert.Equal(t, 3.0, cfg.Policy.MaxReserveGrowth)
	assert.Equal(t, ":9100", cfg.MetricsAddr)
}

func TestValidateRejects(t *testing.T) {
	base, err := Load("", nil)
	require.NoError(t, err)

	cases := map[string]func(*Config){
		"empty url":         func(c *Config) { c.RPCURL = " " },
		"negative interval": func(c *Config) { c.Interval = -time.Second },
		"bad decimals":      func(c *Config) { c.DecimalsA = 90 },
		"bad policy":        func(c *Config) { c.Policy.MinFee = 5 },
		"missing token":     func(c *Config) { c.TokenA = "" },
		"fee above max":     func(c *Config) { c.InitialFee = 2 },
		"fee below min":     func(c *Config) { c.InitialFee = 0.01 },
		"zero fallback":     func(c *Config) { c.FallbackVolume = 0 },
		"negative fallback": func(c *Config) { c.FallbackVolume = -1 },
		"unbounded busy loop": func(c *Config) {
			c.Iterations = 0
			c.Interval = 0
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateAccepts(t *testing.T) {
	base, err := Load("", nil)
	require.NoError(t, err)

	cases := map[string]func(*Config){
		"fee at min":          func(c *Config) { c.InitialFee = c.Policy.MinFee },
		"fee at max":          func(c *Config) { c.InitialFee = c.Policy.MaxFee },
		"bounded zero wait":   func(c *Config) { c.Interval = 0 },
		"unbounded with wait": func(c *Config) { c.Iterations = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			assert.NoError(t, cfg.Validate())
		})
	}
}

func TestSimulateValidateInitialFee(t *testing.T) {
	base, err := LoadSimulate("", nil)
	require.NoError(t, err)
	base.Volumes = []float64{1000}
	require.NoError(t, base.Validate())

	cases := []struct {
		name string
		fee  float64
		ok   bool
	}{
		{"default", 0.3, true},
		{"at min", 0.05, true},
		{"at max", 1.0, true},
		{"above max", 2.0, false},
		{"below min", 0.01, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			cfg.InitialFee = tc.fee
			if tc.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.ErrorContains(t, cfg.Validate(), "initial fee")
			}
		})
	}
}

func TestLoadSimulateVolumes(t *testing.T) {
	flags := pflag.NewFlagSet("simulate", pflag.ContinueOnError)
	flags.StringSlice("volume", nil, "")
	flags.String("reserve-a", "0", "")
	require.NoError(t, flags.Parse([]string{"--volume=1000,300", "--volume", "5000000", "--reserve-a=1000"}))

	cfg, err := LoadSimulate("", flags)
	require.NoError(t, err)

	assert.Equal(t, []float64{1000, 300, 5_000_000}, cfg.Volumes)
	assert.Equal(t, "1000", cfg.ReserveA)
	assert.Equal(t, "5.0", cfg.SpotPrice)
	require.NoError(t, cfg.Validate())
}

func TestLoadSimulateRejectsBadVolume(t *testing.T) {
	flags := pflag.NewFlagSet("simulate", pflag.ContinueOnError)
	flags.StringSlice("volume", nil, "")
	require.NoError(t, flags.Parse([]string{"--volume=abc"}))

	_, err := LoadSimulate("", flags)
	assert.Error(t, err)

	cfg, err := LoadSimulate("", nil)
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())
}
