package pool

import (
	"fmt"
	"math/big"

	"github.com/blinklabs-io/gouroboros/cbor"

	"pumpCurve/internal/model"
)

// Redeemer constructor indices understood by the pool validators.
const (
	mintConstructor = 0
	buyConstructor  = 1
	sellConstructor = 2
)

// Redeemer is a decoded pool redeemer. Amount and Limit are nil for a mint.
type Redeemer struct {
	Kind   model.TradeKind
	Amount *big.Int
	Limit  *big.Int
}

type tradeFields struct {
	cbor.StructAsArray
	Amount big.Int
	Limit  big.Int
}

// MintRedeemer authorizes the one-shot mint. It carries no fields.
func MintRedeemer() ([]byte, error) {
	constr := cbor.NewConstructor(mintConstructor, []any{})
	out, err := cbor.Encode(&constr)
	if err != nil {
		return nil, fmt.Errorf("encode mint redeemer: %w", err)
	}
	return out, nil
}

// BuyRedeemer is constr 1 [amount, maxCost].
func BuyRedeemer(amount, maxCost *big.Int) ([]byte, error) {
	return tradeRedeemer(buyConstructor, amount, maxCost)
}

// SellRedeemer is constr 2 [amount, minRefund].
func SellRedeemer(amount, minRefund *big.Int) ([]byte, error) {
	return tradeRedeemer(sellConstructor, amount, minRefund)
}

func tradeRedeemer(idx uint, amount, limit *big.Int) ([]byte, error) {
	if amount == nil || amount.Sign() < 0 || limit == nil || limit.Sign() < 0 {
		return nil, fmt.Errorf("redeemer fields must be non-negative")
	}
	constr := cbor.NewConstructor(idx, []any{
		new(big.Int).Set(amount),
		new(big.Int).Set(limit),
	})
	out, err := cbor.Encode(&constr)
	if err != nil {
		return nil, fmt.Errorf("encode redeemer %d: %w", idx, err)
	}
	return out, nil
}

// ParseRedeemer decodes any of the three pool redeemers.
func ParseRedeemer(raw []byte) (Redeemer, error) {
	var constr cbor.Constructor
	if _, err := cbor.Decode(raw, &constr); err != nil {
		return Redeemer{}, fmt.Errorf("decode redeemer: %w", err)
	}
	switch constr.Constructor() {
	case mintConstructor:
		if n := len(constr.Fields()); n != 0 {
			return Redeemer{}, fmt.Errorf("mint redeemer has %d fields, want 0", n)
		}
		return Redeemer{Kind: model.TradeMint}, nil
	case buyConstructor, sellConstructor:
		if n := len(constr.Fields()); n != 2 {
			return Redeemer{}, fmt.Errorf("trade redeemer has %d fields, want 2", n)
		}
		var fields tradeFields
		if _, err := cbor.Decode(constr.FieldsCbor(), &fields); err != nil {
			return Redeemer{}, fmt.Errorf("decode redeemer fields: %w", err)
		}
		kind := model.TradeBuy
		if constr.Constructor() == sellConstructor {
			kind = model.TradeSell
		}
		return Redeemer{
			Kind:   kind,
			Amount: new(big.Int).Set(&fields.Amount),
			Limit:  new(big.Int).Set(&fields.Limit),
		}, nil
	default:
		return Redeemer{}, fmt.Errorf("unknown redeemer constructor %d", constr.Constructor())
	}
}
