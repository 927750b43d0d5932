package model

import (
	"encoding/json"
)

// TradeReceipt records a submitted pool transaction for the trade journal.
type TradeReceipt struct {
	Kind          TradeKind `json:"kind"`
	TxHash        string    `json:"tx_hash"`
	PolicyID      string    `json:"policy_id"`
	TokenName     string    `json:"token_name"`
	ScriptAddress string    `json:"script_address"`
	Amount        string    `json:"amount"`
	Settlement    string    `json:"settlement"`
	Limit         string    `json:"limit"`
	SupplyBefore  string    `json:"supply_before"`
	SupplyAfter   string    `json:"supply_after"`
	Trader        string    `json:"trader"`
	SubmittedAt   string    `json:"submitted_at"`
}

// MarshalJSON ensures TradeReceipt is encoded with stable field names.
func (r TradeReceipt) MarshalJSON() ([]byte, error) {
	type Alias TradeReceipt
	return json.Marshal(Alias(r))
}

// UnmarshalJSON decodes a TradeReceipt from JSON.
func (r *TradeReceipt) UnmarshalJSON(data []byte) error {
	type Alias TradeReceipt
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = TradeReceipt(a)
	return nil
}
