package curve

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// LovelacePerADA is the smallest-unit scale of the native coin.
const LovelacePerADA = 1_000_000

const adaDecimals = 6

// FormatLovelace renders a lovelace amount as ADA with six decimals.
func FormatLovelace(v *big.Int) string {
	if v == nil {
		return "0.000000"
	}
	return decimal.NewFromBigInt(v, -adaDecimals).StringFixed(adaDecimals)
}

// FormatRatLovelace renders an exact lovelace ratio (an average price) as ADA.
func FormatRatLovelace(r *big.Rat) string {
	if r == nil {
		return "0.000000"
	}
	num := decimal.NewFromBigInt(r.Num(), -adaDecimals)
	den := decimal.NewFromBigInt(r.Denom(), 0)
	return num.DivRound(den, adaDecimals).StringFixed(adaDecimals)
}
