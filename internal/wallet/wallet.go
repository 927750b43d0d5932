// Package wallet is the signer/session boundary: a CIP-30 style wallet that
// reports its outputs, signs assembled transactions and submits them.
package wallet

import (
	"context"

	"pumpCurve/internal/model"
)

// Wallet is the capability set an engine operation needs from the user's wallet.
type Wallet interface {
	GetChangeAddress(ctx context.Context) (string, error)
	GetUtxos(ctx context.Context) ([]model.UTxO, error)
	SignTx(ctx context.Context, tx *model.Tx) ([]byte, error)
	SubmitTx(ctx context.Context, signedTx []byte) (string, error)
}

// Submitter posts signed transactions to the network.
type Submitter interface {
	SubmitTx(ctx context.Context, signedTx []byte) (string, error)
}

// providerSubmit signs with the wallet and submits through a provider.
type providerSubmit struct {
	Wallet
	submitter Submitter
}

// WithSubmitter routes SubmitTx to s, for wallets that only sign.
func WithSubmitter(w Wallet, s Submitter) Wallet {
	if w == nil || s == nil {
		return w
	}
	return &providerSubmit{Wallet: w, submitter: s}
}

func (p *providerSubmit) SubmitTx(ctx context.Context, signedTx []byte) (string, error) {
	return p.submitter.SubmitTx(ctx, signedTx)
}
