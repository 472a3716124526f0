package config

import (
	"github.com/spf13/viper"

	"veaxflow/internal/engine"
)

func setPolicyDefaults(v *viper.Viper) {
	p := engine.DefaultPolicy()
	v.SetDefault("threshold", p.Threshold)
	v.SetDefault("fee-step", p.FeeStep)
	v.SetDefault("min-fee", p.MinFee)
	v.SetDefault("max-fee", p.MaxFee)
	v.SetDefault("reserve-multiplier", p.ReserveMultiplier)
	v.SetDefault("max-reserve-growth", p.MaxReserveGrowth)
	v.SetDefault("widen-lower-factor", p.WidenLowerFactor)
	v.SetDefault("widen-upper-factor", p.WidenUpperFactor)
	v.SetDefault("narrow-step", p.NarrowStep)
	v.SetDefault("min-range-width", p.MinRangeWidth)
}

func loadPolicy(v *viper.Viper) engine.Policy {
	return engine.Policy{
		Threshold:         v.GetFloat64("threshold"),
		FeeStep:           v.GetFloat64("fee-step"),
		MinFee:            v.GetFloat64("min-fee"),
		MaxFee:            v.GetFloat64("max-fee"),
		ReserveMultiplier: v.GetFloat64("reserve-multiplier"),
		MaxReserveGrowth:  v.GetFloat64("max-reserve-growth"),
		WidenLowerFactor:  v.GetFloat64("widen-lower-factor"),
		WidenUpperFactor:  v.GetFloat64("widen-upper-factor"),
		NarrowStep:        v.GetFloat64("narrow-step"),
		MinRangeWidth:     v.GetFloat64("min-range-width"),
	}
}
