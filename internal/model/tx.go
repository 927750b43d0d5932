package model

// PlutusScript is a compiled script in its single CBOR-wrapped form.
type PlutusScript struct {
	Version string   `json:"version"`
	Code    HexBytes `json:"code"`
}

// ScriptWitness authorizes spending a script-locked input.
type ScriptWitness struct {
	Script             PlutusScript `json:"script"`
	Redeemer           HexBytes     `json:"redeemer"`
	InlineDatumPresent bool         `json:"inline_datum_present"`
}

// TxIn is a consumed output. Witness is nil for wallet-owned inputs.
type TxIn struct {
	UTxO    UTxO           `json:"utxo"`
	Witness *ScriptWitness `json:"witness,omitempty"`
}

// TxOut is a produced output.
type TxOut struct {
	Address     string   `json:"address"`
	Amount      []Asset  `json:"amount"`
	InlineDatum HexBytes `json:"inline_datum,omitempty"`
}

// MintAction mints Quantity units of one asset under a Plutus policy.
type MintAction struct {
	PolicyID  string       `json:"policy_id"`
	AssetName string       `json:"asset_name"`
	Quantity  string       `json:"quantity"`
	Script    PlutusScript `json:"script"`
	Redeemer  HexBytes     `json:"redeemer"`
}

// Tx is the assembled, unbalanced transaction handed to the signer. Fee
// balancing and change output construction happen in the signer against
// ChangeAddress.
type Tx struct {
	Kind          TradeKind   `json:"kind"`
	Inputs        []TxIn      `json:"inputs"`
	Collateral    UTxO        `json:"collateral"`
	Mint          *MintAction `json:"mint,omitempty"`
	Outputs       []TxOut     `json:"outputs"`
	ChangeAddress string      `json:"change_address"`
}

// ScriptInput returns the first script-witnessed input, if any.
func (t *Tx) ScriptInput() (TxIn, bool) {
	for _, in := range t.Inputs {
		if in.Witness != nil {
			return in, true
		}
	}
	return TxIn{}, false
}
