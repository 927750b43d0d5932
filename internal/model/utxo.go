package model

import "fmt"

// TxInput identifies an unspent output by transaction hash and output index.
type TxInput struct {
	TxHash      string `json:"tx_hash"`
	OutputIndex uint32 `json:"output_index"`
}

func (in TxInput) String() string {
	return fmt.Sprintf("%s#%d", in.TxHash, in.OutputIndex)
}

// UTxO is an unspent output as reported by the provider or the wallet.
type UTxO struct {
	Input       TxInput `json:"input"`
	Address     string  `json:"address"`
	Amount      []Asset `json:"amount"`
	InlineDatum string  `json:"inline_datum,omitempty"`
	DataHash    string  `json:"data_hash,omitempty"`
}

// Value parses the output's asset list.
func (u UTxO) Value() (Value, error) {
	v, err := ValueFromAssets(u.Amount)
	if err != nil {
		return nil, fmt.Errorf("utxo %s: %w", u.Input, err)
	}
	return v, nil
}
