package model

import "errors"

// Terminal failures for a single engine operation. Callers match them with
// errors.Is; the wrapped message carries the detail.
var (
	ErrWalletNotConnected = errors.New("wallet not connected")
	ErrNoUtxoAvailable    = errors.New("no utxo available")
	ErrNoCollateral       = errors.New("no suitable collateral utxo (need a pure-lovelace output of at least 5 ADA)")
	ErrPoolNotFound       = errors.New("no pool utxo found at script address")
	ErrAmbiguousPool      = errors.New("more than one pool utxo found at script address")
	ErrMalformedDatum     = errors.New("malformed pool datum")
	ErrInsufficientSupply = errors.New("insufficient supply")
	ErrSlippageExceeded   = errors.New("slippage limit exceeded")
	ErrLedgerRejected     = errors.New("transaction rejected by ledger")
	ErrProviderError      = errors.New("provider request failed")
)
