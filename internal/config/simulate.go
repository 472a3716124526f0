package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"veaxflow/internal/engine"
	"veaxflow/internal/pool"
)

// SimulateConfig holds configuration for an offline engine replay.
type SimulateConfig struct {
	TokenA     string
	TokenB     string
	SpotPrice  string
	ReserveA   string
	ReserveB   string
	Volumes    []float64
	InitialFee float64
	RangePct   float64
	Units      pool.Units
	Policy     engine.Policy
	LogLevel   string
}

// LoadSimulate merges config file, environment variables, and flags into SimulateConfig.
func LoadSimulate(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	v := viper.New()
	units := pool.DefaultUnits()
	v.SetDefault("token-a", "wrap.near")
	v.SetDefault("token-b", "usdt.tether-token.near")
	v.SetDefault("symbol-a", units.SymbolA)
	v.SetDefault("symbol-b", units.SymbolB)
	v.SetDefault("decimals-a", units.DecimalsA)
	v.SetDefault("decimals-b", units.DecimalsB)
	v.SetDefault("spot-price", "5.0")
	v.SetDefault("reserve-a", "0")
	v.SetDefault("reserve-b", "0")
	setPoolDefaults(v)
	setPolicyDefaults(v)
	v.SetDefault("log-level", "info")

	if err := readInto(v, cfgFile, flags); err != nil {
		return SimulateConfig{}, err
	}

	volumes, err := getFloatSlice(v, "volume")
	if err != nil {
		return SimulateConfig{}, err
	}

	cfg := SimulateConfig{
		TokenA:     v.GetString("token-a"),
		TokenB:     v.GetString("token-b"),
		SpotPrice:  v.GetString("spot-price"),
		ReserveA:   v.GetString("reserve-a"),
		ReserveB:   v.GetString("reserve-b"),
		Volumes:    volumes,
		InitialFee: v.GetFloat64("initial-fee"),
		RangePct:   v.GetFloat64("initial-range-pct"),
		Units: pool.Units{
			SymbolA:   v.GetString("symbol-a"),
			SymbolB:   v.GetString("symbol-b"),
			DecimalsA: v.GetInt32("decimals-a"),
			DecimalsB: v.GetInt32("decimals-b"),
		},
		Policy:   loadPolicy(v),
		LogLevel: v.GetString("log-level"),
	}
	return cfg, nil
}

// Validate checks the replay inputs.
func (c SimulateConfig) Validate() error {
	if len(c.Volumes) == 0 {
		return fmt.Errorf("at least one volume is required")
	}
	for _, vol := range c.Volumes {
		if vol < 0 {
			return fmt.Errorf("volume must not be negative, got %v", vol)
		}
	}
	if err := validateDecimals(c.Units.DecimalsA, c.Units.DecimalsB); err != nil {
		return err
	}
	if err := c.Policy.Validate(); err != nil {
		return err
	}
	return validateInitialFee(c.InitialFee, c.Policy)
}

func getFloatSlice(v *viper.Viper, key string) ([]float64, error) {
	if !v.IsSet(key) {
		return nil, nil
	}

	var items []string
	switch typed := v.Get(key).(type) {
	case []float64:
		return typed, nil
	case []string:
		for _, s := range typed {
			items = append(items, splitAndClean(s)...)
		}
	case string:
		items = splitAndClean(strings.Trim(typed, "[]"))
	case []interface{}:
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
	case float64:
		return []float64{typed}, nil
	case int:
		return []float64{float64(typed)}, nil
	default:
		return nil, fmt.Errorf("%s: unsupported value %T", key, typed)
	}

	out := make([]float64, 0, len(items))
	for _, item := range cleanStrings(items) {
		f, err := strconv.ParseFloat(item, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid number %q", key, item)
		}
		out = append(out, f)
	}
	return out, nil
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
