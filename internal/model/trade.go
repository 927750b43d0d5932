package model

import (
	"fmt"
	"math/big"
)

// TradeKind names the three pool operations.
type TradeKind string

const (
	TradeMint TradeKind = "mint"
	TradeBuy  TradeKind = "buy"
	TradeSell TradeKind = "sell"
)

// ParseTradeKind accepts buy or sell.
func ParseTradeKind(s string) (TradeKind, error) {
	switch TradeKind(s) {
	case TradeBuy, TradeSell:
		return TradeKind(s), nil
	default:
		return "", fmt.Errorf("unknown trade side %q (want buy or sell)", s)
	}
}

// TradeRequest is built per user action. Limit is the maximum cost for a buy
// and the minimum refund for a sell.
type TradeRequest struct {
	Kind   TradeKind
	Amount *big.Int
	Limit  *big.Int
}

func (r TradeRequest) Validate() error {
	if r.Kind != TradeBuy && r.Kind != TradeSell {
		return fmt.Errorf("unsupported trade kind %q", r.Kind)
	}
	if r.Amount == nil || r.Amount.Sign() <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	if r.Limit == nil || r.Limit.Sign() < 0 {
		return fmt.Errorf("limit must be non-negative")
	}
	return nil
}

// MintRequest describes a new pool.
type MintRequest struct {
	TokenName   string
	Slope       *big.Int
	TotalSupply *big.Int
}

func (r MintRequest) Validate() error {
	if r.TokenName == "" {
		return fmt.Errorf("token name is required")
	}
	if len(r.TokenName) > 32 {
		return fmt.Errorf("token name exceeds 32 bytes")
	}
	if r.Slope == nil || r.Slope.Sign() < 0 {
		return fmt.Errorf("slope must be non-negative")
	}
	if r.TotalSupply == nil || r.TotalSupply.Sign() <= 0 {
		return fmt.Errorf("total supply must be positive")
	}
	return nil
}
