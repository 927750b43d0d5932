package model

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"
)

// Lovelace is the unit name of the native coin.
const Lovelace = "lovelace"

// Asset is a single unit/quantity pair as reported by providers and wallets.
type Asset struct {
	Unit     string `json:"unit"`
	Quantity string `json:"quantity"`
}

// AssetUnit returns the provider unit for a native token: policy id followed by
// the hex-encoded asset name.
func AssetUnit(policyID, tokenName string) string {
	return policyID + hex.EncodeToString([]byte(tokenName))
}

// Value is a multi-asset bundle keyed by unit.
type Value map[string]*big.Int

func NewValue() Value {
	return make(Value)
}

// ValueFromAssets parses provider asset lists. Repeated units are summed.
func ValueFromAssets(assets []Asset) (Value, error) {
	v := NewValue()
	for _, a := range assets {
		q, ok := new(big.Int).SetString(a.Quantity, 10)
		if !ok {
			return nil, fmt.Errorf("invalid quantity for %s: %q", a.Unit, a.Quantity)
		}
		if q.Sign() < 0 {
			return nil, fmt.Errorf("negative quantity for %s: %s", a.Unit, a.Quantity)
		}
		v.Add(a.Unit, q)
	}
	return v, nil
}

// Add increases unit by qty. qty is not retained.
func (v Value) Add(unit string, qty *big.Int) {
	if qty == nil {
		return
	}
	cur, ok := v[unit]
	if !ok {
		v[unit] = new(big.Int).Set(qty)
		return
	}
	cur.Add(cur, qty)
}

// Quantity returns a copy of the unit balance, zero when absent.
func (v Value) Quantity(unit string) *big.Int {
	if q, ok := v[unit]; ok && q != nil {
		return new(big.Int).Set(q)
	}
	return new(big.Int)
}

func (v Value) Lovelace() *big.Int {
	return v.Quantity(Lovelace)
}

// OnlyLovelace reports whether the bundle holds the native coin and nothing else.
func (v Value) OnlyLovelace() bool {
	if v.Lovelace().Sign() <= 0 {
		return false
	}
	for unit, q := range v {
		if unit != Lovelace && q != nil && q.Sign() != 0 {
			return false
		}
	}
	return true
}

// Merge adds every unit of other into v.
func (v Value) Merge(other Value) {
	for unit, q := range other {
		v.Add(unit, q)
	}
}

// Missing returns the first unit (sorted) for which v does not cover req, and
// the shortfall. ok is false when v covers req entirely.
func (v Value) Missing(req Value) (unit string, short *big.Int, ok bool) {
	for _, u := range sortedUnits(req) {
		need := req[u]
		if need == nil || need.Sign() <= 0 {
			continue
		}
		have := v.Quantity(u)
		if have.Cmp(need) < 0 {
			return u, new(big.Int).Sub(need, have), true
		}
	}
	return "", nil, false
}

// Assets renders the bundle with lovelace first and tokens in unit order.
// Zero quantities are dropped.
func (v Value) Assets() []Asset {
	out := make([]Asset, 0, len(v))
	for _, u := range sortedUnits(v) {
		q := v[u]
		if q == nil || q.Sign() == 0 {
			continue
		}
		out = append(out, Asset{Unit: u, Quantity: q.String()})
	}
	return out
}

func sortedUnits(v Value) []string {
	units := make([]string, 0, len(v))
	for u := range v {
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool {
		if units[i] == Lovelace {
			return units[j] != Lovelace
		}
		if units[j] == Lovelace {
			return false
		}
		return units[i] < units[j]
	})
	return units
}
