package curve

import (
	"fmt"
	"math/big"
)

// BpsDenominator is the basis-point scale of slippage tolerances.
const BpsDenominator = 10_000

// DefaultSlippageBps is the tolerance applied when the caller gives no explicit limit.
const DefaultSlippageBps = 500

// MaxCost widens a quoted cost by bps, rounding down.
func MaxCost(cost *big.Int, bps uint32) (*big.Int, error) {
	if cost == nil || cost.Sign() < 0 {
		return nil, ErrNegativeInput
	}
	num := new(big.Int).Mul(cost, big.NewInt(int64(BpsDenominator)+int64(bps)))
	return num.Quo(num, big.NewInt(BpsDenominator)), nil
}

// MinRefund narrows a quoted refund by bps, rounding down.
func MinRefund(refund *big.Int, bps uint32) (*big.Int, error) {
	if refund == nil || refund.Sign() < 0 {
		return nil, ErrNegativeInput
	}
	if bps > BpsDenominator {
		return nil, fmt.Errorf("slippage %d bps exceeds 100%%", bps)
	}
	num := new(big.Int).Mul(refund, big.NewInt(int64(BpsDenominator)-int64(bps)))
	return num.Quo(num, big.NewInt(BpsDenominator)), nil
}
