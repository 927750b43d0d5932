package engine

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"pumpCurve/internal/address"
	"pumpCurve/internal/curve"
	"pumpCurve/internal/model"
	"pumpCurve/internal/pool"
	"pumpCurve/internal/storage"
)

type fakeProvider struct {
	utxos map[string][]model.UTxO
	err   error
	calls int
}

func (p *fakeProvider) FetchAddressUTxOs(_ context.Context, addr string) ([]model.UTxO, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.utxos[addr], nil
}

type fakeScripts struct{}

func (fakeScripts) script(title string, ref model.TxInput) model.PlutusScript {
	return model.PlutusScript{Version: "V3", Code: []byte(fmt.Sprintf("%s/%s", title, ref))}
}

func (f fakeScripts) MintScript(ref model.TxInput) (model.PlutusScript, error) {
	return f.script("mint", ref), nil
}

func (f fakeScripts) SpendScript(ref model.TxInput) (model.PlutusScript, error) {
	return f.script("spend", ref), nil
}

type fakeWallet struct {
	change    string
	utxos     []model.UTxO
	submitErr error

	calls  int
	signed *model.Tx
}

func (w *fakeWallet) GetChangeAddress(context.Context) (string, error) {
	w.calls++
	return w.change, nil
}

func (w *fakeWallet) GetUtxos(context.Context) ([]model.UTxO, error) {
	w.calls++
	return w.utxos, nil
}

func (w *fakeWallet) SignTx(_ context.Context, tx *model.Tx) ([]byte, error) {
	w.calls++
	w.signed = tx
	return []byte{0x84}, nil
}

func (w *fakeWallet) SubmitTx(context.Context, []byte) (string, error) {
	w.calls++
	if w.submitErr != nil {
		return "", w.submitErr
	}
	return "f00d", nil
}

type memJournal struct {
	receipts []model.TradeReceipt
}

func (j *memJournal) PutReceipts(_ context.Context, r []model.TradeReceipt) error {
	j.receipts = append(j.receipts, r...)
	return nil
}

var (
	testPolicy  = "4a1b6c3d2e1f00112233445566778899aabbccddeeff001122334455"
	testOneShot = model.TxInput{TxHash: "a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8f90", OutputIndex: 0}
	testSlope   = big.NewInt(1_000_000)
	testMinted  = big.NewInt(1_000_000)
)

func changeAddress(t *testing.T) (string, string) {
	t.Helper()
	pay := bytes.Repeat([]byte{0x11}, 28)
	raw := append([]byte{0x00}, pay...)
	raw = append(raw, bytes.Repeat([]byte{0x22}, 28)...)
	addr, err := address.Encode("addr_test", raw)
	require.NoError(t, err)
	return addr, fmt.Sprintf("%x", pay)
}

func scriptAddress(t *testing.T) string {
	t.Helper()
	addr, err := address.EnterpriseScriptAddress(address.Preprod, bytes.Repeat([]byte{0x33}, 28))
	require.NoError(t, err)
	return addr
}

func poolConfig(t *testing.T) model.PoolConfig {
	return model.PoolConfig{
		PolicyID:        testPolicy,
		TokenName:       "PUMP",
		ScriptAddress:   scriptAddress(t),
		UtxoTxHash:      testOneShot.TxHash,
		UtxoOutputIndex: testOneShot.OutputIndex,
		Slope:           testSlope,
	}
}

// poolUTxO builds a consistent pool output at the given supply.
func poolUTxO(t *testing.T, cfg model.PoolConfig, supply int64, idx uint32) model.UTxO {
	t.Helper()
	_, creator := changeAddress(t)
	d := pool.InitialDatum(cfg.PolicyID, cfg.TokenName, testSlope, creator)
	d.CurrentSupply = big.NewInt(supply)
	raw, err := pool.EncodeDatum(d)
	require.NoError(t, err)

	reserve, err := curve.Cost(testSlope, big.NewInt(0), big.NewInt(supply))
	require.NoError(t, err)
	reserve.Add(reserve, big.NewInt(5_000_000))
	tokens := new(big.Int).Sub(testMinted, big.NewInt(supply))

	return model.UTxO{
		Input:   model.TxInput{TxHash: "9999999999999999999999999999999999999999999999999999999999999999", OutputIndex: idx},
		Address: cfg.ScriptAddress,
		Amount: []model.Asset{
			{Unit: model.Lovelace, Quantity: reserve.String()},
			{Unit: cfg.Unit(), Quantity: tokens.String()},
		},
		InlineDatum: fmt.Sprintf("%x", raw),
	}
}

func walletUTxO(hash string, idx uint32, lovelace string, tokens map[string]string) model.UTxO {
	amount := []model.Asset{{Unit: model.Lovelace, Quantity: lovelace}}
	for unit, q := range tokens {
		amount = append(amount, model.Asset{Unit: unit, Quantity: q})
	}
	return model.UTxO{Input: model.TxInput{TxHash: hash, OutputIndex: idx}, Amount: amount}
}

func newTestEngine(t *testing.T, provider Provider, journal *memJournal) *Engine {
	t.Helper()
	var j storage.Storage
	if journal != nil {
		j = journal
	}
	e, err := New(provider, fakeScripts{}, DefaultParams(), j, nil)
	require.NoError(t, err)
	return e
}
