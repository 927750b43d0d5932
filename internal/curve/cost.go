// Package curve holds the linear-price bonding curve arithmetic. Settlement
// amounts are exact unbounded integers; floats never enter this path.
package curve

import (
	"errors"
	"fmt"
	"math/big"

	"pumpCurve/internal/model"
)

var (
	ErrNegativeInput   = errors.New("curve inputs must be non-negative")
	ErrDescendingRange = errors.New("supply range must be ascending")
)

var two = big.NewInt(2)

// Cost returns slope * (end^2 - start^2) / 2, truncated toward zero. It is
// the area under the price line between the two supply points and must agree
// exactly with the on-chain validator.
func Cost(slope, supplyStart, supplyEnd *big.Int) (*big.Int, error) {
	if slope == nil || supplyStart == nil || supplyEnd == nil {
		return nil, fmt.Errorf("curve inputs must not be nil")
	}
	if slope.Sign() < 0 || supplyStart.Sign() < 0 || supplyEnd.Sign() < 0 {
		return nil, ErrNegativeInput
	}
	if supplyEnd.Cmp(supplyStart) < 0 {
		return nil, ErrDescendingRange
	}

	endSq := new(big.Int).Mul(supplyEnd, supplyEnd)
	startSq := new(big.Int).Mul(supplyStart, supplyStart)
	diff := endSq.Sub(endSq, startSq)
	total := diff.Mul(diff, slope)
	// Quo truncates toward zero; the operand is non-negative here anyway.
	return total.Quo(total, two), nil
}

// BuyCost is the reserve paid to move supply from supply to supply+amount.
func BuyCost(slope, supply, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrNegativeInput
	}
	end := new(big.Int).Add(supply, amount)
	return Cost(slope, supply, end)
}

// SellRefund is the reserve returned to move supply down by amount.
func SellRefund(slope, supply, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrNegativeInput
	}
	if amount.Cmp(supply) > 0 {
		return nil, fmt.Errorf("%w: cannot sell %s with current supply %s", model.ErrInsufficientSupply, amount, supply)
	}
	start := new(big.Int).Sub(supply, amount)
	return Cost(slope, start, supply)
}

// Price is the instantaneous marginal price at a supply level. Display only.
func Price(slope, supply *big.Int) *big.Int {
	return new(big.Int).Mul(slope, supply)
}

// MarketCap is Price * supply. A display heuristic, not a ledger quantity.
func MarketCap(slope, supply *big.Int) *big.Int {
	p := Price(slope, supply)
	return p.Mul(p, supply)
}

// AveragePrice returns total/amount as an exact ratio, nil when amount is zero.
func AveragePrice(total, amount *big.Int) *big.Rat {
	if total == nil || amount == nil || amount.Sign() == 0 {
		return nil
	}
	return new(big.Rat).SetFrac(total, amount)
}
