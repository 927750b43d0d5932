// Package pool encodes and decodes the on-chain pool datum and the trade
// redeemers as Plutus data.
package pool

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/blinklabs-io/gouroboros/cbor"

	"pumpCurve/internal/model"
)

const datumFieldCount = 5

// datumFields is the field list of constructor 0, in ledger order.
type datumFields struct {
	cbor.StructAsArray
	Policy  []byte
	Name    []byte
	Slope   big.Int
	Supply  big.Int
	Creator []byte
}

// InitialDatum is the datum attached to a freshly minted pool.
func InitialDatum(policyID, tokenName string, slope *big.Int, creator string) model.PoolDatum {
	return model.PoolDatum{
		TokenPolicy:   strings.ToLower(policyID),
		TokenName:     tokenName,
		Slope:         new(big.Int).Set(slope),
		CurrentSupply: new(big.Int),
		Creator:       strings.ToLower(creator),
	}
}

// EncodeDatum serializes d as constr 0 [policy, name, slope, supply, creator].
func EncodeDatum(d model.PoolDatum) ([]byte, error) {
	policy, err := hex.DecodeString(d.TokenPolicy)
	if err != nil {
		return nil, fmt.Errorf("encode datum: token policy: %w", err)
	}
	creator, err := hex.DecodeString(d.Creator)
	if err != nil {
		return nil, fmt.Errorf("encode datum: creator: %w", err)
	}
	if d.Slope == nil || d.Slope.Sign() < 0 {
		return nil, fmt.Errorf("encode datum: slope must be non-negative")
	}
	if d.CurrentSupply == nil || d.CurrentSupply.Sign() < 0 {
		return nil, fmt.Errorf("encode datum: current supply must be non-negative")
	}

	constr := cbor.NewConstructor(0, []any{
		policy,
		[]byte(d.TokenName),
		new(big.Int).Set(d.Slope),
		new(big.Int).Set(d.CurrentSupply),
		creator,
	})
	out, err := cbor.Encode(&constr)
	if err != nil {
		return nil, fmt.Errorf("encode datum: %w", err)
	}
	return out, nil
}

// ParseDatum decodes raw Plutus data into a PoolDatum. Any deviation from the
// five-field schema is reported as model.ErrMalformedDatum.
func ParseDatum(raw []byte) (model.PoolDatum, error) {
	if len(raw) == 0 {
		return model.PoolDatum{}, fmt.Errorf("%w: empty datum", model.ErrMalformedDatum)
	}
	var constr cbor.Constructor
	n, err := cbor.Decode(raw, &constr)
	if err != nil {
		return model.PoolDatum{}, fmt.Errorf("%w: %v", model.ErrMalformedDatum, err)
	}
	if n != len(raw) {
		return model.PoolDatum{}, fmt.Errorf("%w: %d trailing bytes", model.ErrMalformedDatum, len(raw)-n)
	}
	if constr.Constructor() != 0 {
		return model.PoolDatum{}, fmt.Errorf("%w: expected constructor 0, got %d", model.ErrMalformedDatum, constr.Constructor())
	}
	if got := len(constr.Fields()); got != datumFieldCount {
		return model.PoolDatum{}, fmt.Errorf("%w: expected %d fields, got %d", model.ErrMalformedDatum, datumFieldCount, got)
	}

	var fields datumFields
	if _, err := cbor.Decode(constr.FieldsCbor(), &fields); err != nil {
		return model.PoolDatum{}, fmt.Errorf("%w: %v", model.ErrMalformedDatum, err)
	}
	if fields.Slope.Sign() < 0 {
		return model.PoolDatum{}, fmt.Errorf("%w: negative slope %s", model.ErrMalformedDatum, fields.Slope.String())
	}
	if fields.Supply.Sign() < 0 {
		return model.PoolDatum{}, fmt.Errorf("%w: negative supply %s", model.ErrMalformedDatum, fields.Supply.String())
	}

	return model.PoolDatum{
		TokenPolicy:   hex.EncodeToString(fields.Policy),
		TokenName:     string(fields.Name),
		Slope:         new(big.Int).Set(&fields.Slope),
		CurrentSupply: new(big.Int).Set(&fields.Supply),
		Creator:       hex.EncodeToString(fields.Creator),
	}, nil
}

// ParseDatumHex decodes the inline datum hex reported by providers.
func ParseDatumHex(s string) (model.PoolDatum, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return model.PoolDatum{}, fmt.Errorf("%w: %v", model.ErrMalformedDatum, err)
	}
	return ParseDatum(raw)
}

// DeriveNext returns cur with the supply moved by delta: up for a buy, down
// for a sell. cur is never modified.
func DeriveNext(cur model.PoolDatum, delta *big.Int, direction model.TradeKind) (model.PoolDatum, error) {
	if delta == nil || delta.Sign() < 0 {
		return model.PoolDatum{}, fmt.Errorf("delta must be non-negative")
	}
	next := cur.Clone()
	switch direction {
	case model.TradeBuy:
		next.CurrentSupply.Add(next.CurrentSupply, delta)
	case model.TradeSell:
		if delta.Cmp(next.CurrentSupply) > 0 {
			return model.PoolDatum{}, fmt.Errorf("%w: cannot sell %s with current supply %s", model.ErrInsufficientSupply, delta, next.CurrentSupply)
		}
		next.CurrentSupply.Sub(next.CurrentSupply, delta)
	default:
		return model.PoolDatum{}, fmt.Errorf("unsupported direction %q", direction)
	}
	return next, nil
}
