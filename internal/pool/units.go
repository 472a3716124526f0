package pool

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Units describes how raw reserves are displayed.
type Units struct {
	SymbolA   string
	SymbolB   string
	DecimalsA int32
	DecimalsB int32
}

// DefaultUnits is NEAR (24 decimals) against USDT (6 decimals).
func DefaultUnits() Units {
	return Units{SymbolA: "NEAR", SymbolB: "USDT", DecimalsA: 24, DecimalsB: 6}
}

var printer = message.NewPrinter(language.English)

// FormatAmount renders a raw integer amount in whole units with two decimals.
func FormatAmount(raw *big.Int, decimals int32) string {
	if raw == nil {
		return "0.00"
	}
	return decimal.NewFromBigInt(raw, -decimals).StringFixed(2)
}

// Status renders the single-line report of the pool.
func (s *State) Status(u Units) string {
	return fmt.Sprintf("Pool: %s/%s, Reserves: %s %s/%s %s, Fee: %.2f%%, Range: %.4f-%.4f, Liquidity: %s",
		s.TokenA, s.TokenB,
		FormatAmount(s.ReserveA, u.DecimalsA), u.SymbolA,
		FormatAmount(s.ReserveB, u.DecimalsB), u.SymbolB,
		s.FeeTier,
		s.PriceRange.Lower, s.PriceRange.Upper,
		printer.Sprintf("%.0f", s.TotalLiquidity.InexactFloat64()),
	)
}
