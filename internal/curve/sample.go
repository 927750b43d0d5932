package curve

import (
	"fmt"
	"math/big"
)

// Point is one row of a curve table.
type Point struct {
	Supply *big.Int `json:"supply"`
	Price  *big.Int `json:"price"`
	Cost   *big.Int `json:"cost"`
}

// Sample walks the curve from zero to maxSupply in step increments. The last
// point is always maxSupply. Cost is cumulative from zero supply.
func Sample(slope, maxSupply, step *big.Int) ([]Point, error) {
	if slope == nil || maxSupply == nil || step == nil {
		return nil, fmt.Errorf("curve inputs must not be nil")
	}
	if step.Sign() <= 0 {
		return nil, fmt.Errorf("step must be greater than zero")
	}
	if maxSupply.Sign() < 0 || slope.Sign() < 0 {
		return nil, ErrNegativeInput
	}

	zero := new(big.Int)
	points := make([]Point, 0)
	supply := new(big.Int)
	for {
		if supply.Cmp(maxSupply) > 0 {
			supply.Set(maxSupply)
		}
		cost, err := Cost(slope, zero, supply)
		if err != nil {
			return nil, err
		}
		points = append(points, Point{
			Supply: new(big.Int).Set(supply),
			Price:  Price(slope, supply),
			Cost:   cost,
		})
		if supply.Cmp(maxSupply) == 0 {
			break
		}
		supply.Add(supply, step)
	}
	return points, nil
}
