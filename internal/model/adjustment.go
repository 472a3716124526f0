package model

import "math/big"

// Branch names the side of the volume threshold an adjustment took.
type Branch string

const (
	BranchHighVolume Branch = "high_volume"
	BranchLowVolume  Branch = "low_volume"
)

// Adjustment is the outcome of one engine step on a pool.
type Adjustment struct {
	Branch         Branch     `json:"branch"`
	AvgVolume      float64    `json:"avg_volume"`
	PrevFee        float64    `json:"prev_fee"`
	NewFee         float64    `json:"new_fee"`
	PrevRange      PriceRange `json:"prev_range"`
	NewRange       PriceRange `json:"new_range"`
	ReserveA       *big.Int   `json:"reserve_a"`
	ReserveB       *big.Int   `json:"reserve_b"`
	YieldEstimate  float64    `json:"yield_estimate"`
	RangeClamped   bool       `json:"range_clamped"`
	ReservesCapped bool       `json:"reserves_capped"`
}
