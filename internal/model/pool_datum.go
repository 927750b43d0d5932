package model

import "math/big"

// PoolDatum mirrors the on-chain pool state.
type PoolDatum struct {
	TokenPolicy   string   `json:"token_policy"`
	TokenName     string   `json:"token_name"`
	Slope         *big.Int `json:"slope"`
	CurrentSupply *big.Int `json:"current_supply"`
	Creator       string   `json:"creator"`
}

// Equal compares field values, treating nil integers as zero.
func (d PoolDatum) Equal(other PoolDatum) bool {
	return d.TokenPolicy == other.TokenPolicy &&
		d.TokenName == other.TokenName &&
		cmpInt(d.Slope, other.Slope) == 0 &&
		cmpInt(d.CurrentSupply, other.CurrentSupply) == 0 &&
		d.Creator == other.Creator
}

// Clone returns a deep copy.
func (d PoolDatum) Clone() PoolDatum {
	out := d
	out.Slope = copyInt(d.Slope)
	out.CurrentSupply = copyInt(d.CurrentSupply)
	return out
}

func cmpInt(a, b *big.Int) int {
	return copyInt(a).Cmp(copyInt(b))
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
