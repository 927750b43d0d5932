// Package utxo picks collateral, one-shot and funding inputs from a wallet's
// unspent outputs. Every choice is first-match in iteration order and is made
// fresh per operation.
package utxo

import (
	"fmt"
	"math/big"

	"pumpCurve/internal/model"
)

// CollateralFloor is the minimum lovelace a collateral output must hold.
const CollateralFloor = 5_000_000

// SelectCollateral returns the first pure-lovelace output holding at least
// floor lovelace. A nil floor means CollateralFloor.
func SelectCollateral(utxos []model.UTxO, floor *big.Int) (model.UTxO, error) {
	if floor == nil {
		floor = big.NewInt(CollateralFloor)
	}
	for _, u := range utxos {
		v, err := u.Value()
		if err != nil {
			continue
		}
		if v.OnlyLovelace() && v.Lovelace().Cmp(floor) >= 0 {
			return u, nil
		}
	}
	return model.UTxO{}, model.ErrNoCollateral
}

// SelectOneShot returns the first output; its reference parameterizes a new pool.
func SelectOneShot(utxos []model.UTxO) (model.UTxO, error) {
	if len(utxos) == 0 {
		return model.UTxO{}, model.ErrNoUtxoAvailable
	}
	return utxos[0], nil
}

// Selection is the outcome of a funding pass.
type Selection struct {
	Inputs []model.UTxO
	Total  model.Value
}

// SelectFunding accumulates outputs in iteration order until every unit of
// required is covered. Outputs listed in exclude are skipped; preselected
// outputs count toward the requirement without being returned again.
func SelectFunding(utxos []model.UTxO, required model.Value, preselected []model.UTxO, exclude ...model.TxInput) (Selection, error) {
	skip := make(map[model.TxInput]struct{}, len(exclude)+len(preselected))
	for _, in := range exclude {
		skip[in] = struct{}{}
	}

	total := model.NewValue()
	for _, u := range preselected {
		v, err := u.Value()
		if err != nil {
			return Selection{}, err
		}
		total.Merge(v)
		skip[u.Input] = struct{}{}
	}

	sel := Selection{Total: total}
	if _, _, missing := total.Missing(required); !missing {
		return sel, nil
	}

	for _, u := range utxos {
		if _, ok := skip[u.Input]; ok {
			continue
		}
		v, err := u.Value()
		if err != nil {
			continue
		}
		if !contributes(v, total, required) {
			continue
		}
		sel.Inputs = append(sel.Inputs, u)
		total.Merge(v)
		if _, _, missing := total.Missing(required); !missing {
			return sel, nil
		}
	}

	unit, short, _ := total.Missing(required)
	return Selection{}, fmt.Errorf("%w: short %s %s", model.ErrNoUtxoAvailable, short, unit)
}

// contributes reports whether v adds anything to a unit that is still short.
func contributes(v, have, required model.Value) bool {
	for unit, need := range required {
		if need == nil || need.Sign() <= 0 {
			continue
		}
		if have.Quantity(unit).Cmp(need) >= 0 {
			continue
		}
		if v.Quantity(unit).Sign() > 0 {
			return true
		}
	}
	return false
}
