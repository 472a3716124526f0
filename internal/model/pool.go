package model

// PoolRecord is one entry of the get_pools listing as returned on the wire.
type PoolRecord struct {
	TokenA      string   `json:"token_a"`
	TokenB      string   `json:"token_b"`
	ReserveA    string   `json:"reserve_a"`
	ReserveB    string   `json:"reserve_b"`
	SpotPrice   string   `json:"spot_price"`
	Liquidities []string `json:"liquidities"`
}

// Matches reports whether the record is the (tokenA, tokenB) pair in that order.
func (r PoolRecord) Matches(tokenA, tokenB string) bool {
	return r.TokenA == tokenA && r.TokenB == tokenB
}
