package model

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// PoolConfig is the client-held reference to an existing pool. The one-shot
// input pair parameterizes the pool scripts and never changes.
type PoolConfig struct {
	PolicyID        string   `json:"policy_id"`
	TokenName       string   `json:"token_name"`
	ScriptAddress   string   `json:"script_address"`
	UtxoTxHash      string   `json:"utxo_tx_hash"`
	UtxoOutputIndex uint32   `json:"utxo_output_index"`
	Slope           *big.Int `json:"slope,omitempty"`
}

// OneShot returns the input whose consumption minted the pool.
func (c PoolConfig) OneShot() TxInput {
	return TxInput{TxHash: c.UtxoTxHash, OutputIndex: c.UtxoOutputIndex}
}

// Unit returns the provider unit of the pool token.
func (c PoolConfig) Unit() string {
	return AssetUnit(c.PolicyID, c.TokenName)
}

// Validate checks field shapes without touching the ledger.
func (c PoolConfig) Validate() error {
	if err := validateHex(c.PolicyID, 28, "policy id"); err != nil {
		return err
	}
	if c.TokenName == "" {
		return fmt.Errorf("token name is required")
	}
	if len(c.TokenName) > 32 {
		return fmt.Errorf("token name exceeds 32 bytes")
	}
	if strings.TrimSpace(c.ScriptAddress) == "" {
		return fmt.Errorf("script address is required")
	}
	if err := validateHex(c.UtxoTxHash, 32, "utxo tx hash"); err != nil {
		return err
	}
	if c.Slope != nil && c.Slope.Sign() < 0 {
		return fmt.Errorf("slope must be non-negative")
	}
	return nil
}

func validateHex(value string, size int, name string) error {
	if value == "" {
		return fmt.Errorf("%s is required", name)
	}
	raw, err := hex.DecodeString(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if len(raw) != size {
		return fmt.Errorf("invalid %s length: %d bytes, want %d", name, len(raw), size)
	}
	return nil
}
