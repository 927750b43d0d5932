package engine

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"pumpCurve/internal/address"
	"pumpCurve/internal/blueprint"
	"pumpCurve/internal/model"
	"pumpCurve/internal/pool"
)

const (
	walletHash = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func outputValue(t *testing.T, out model.TxOut) model.Value {
	t.Helper()
	v, err := model.ValueFromAssets(out.Amount)
	require.NoError(t, err)
	return v
}

func TestBuyScenario(t *testing.T) {
	cfg := poolConfig(t)
	provider := &fakeProvider{utxos: map[string][]model.UTxO{cfg.ScriptAddress: {poolUTxO(t, cfg, 0, 0)}}}
	change, _ := changeAddress(t)
	w := &fakeWallet{change: change, utxos: []model.UTxO{
		walletUTxO(walletHash, 0, "10000000", nil),
		walletUTxO(walletHash, 1, "600000000000", nil),
	}}
	journal := &memJournal{}
	e := newTestEngine(t, provider, journal)
	s := NewSession(w, &cfg)

	_, err := e.Query(context.Background(), s)
	require.NoError(t, err)
	require.NotNil(t, s.Snapshot())

	res, err := e.Buy(context.Background(), s, model.TradeRequest{Amount: big.NewInt(1_000), Limit: big.NewInt(525_000_000_000)})
	require.NoError(t, err)
	require.Equal(t, "500000000000", res.Settlement.String())
	require.Equal(t, "1000", res.SupplyAfter.String())
	require.Equal(t, "1000000000", res.NewPrice.String())
	require.Equal(t, "f00d", res.TxHash)
	require.Nil(t, s.Snapshot())

	tx := w.signed
	require.NotNil(t, tx)
	require.Equal(t, model.TradeBuy, tx.Kind)
	require.Equal(t, uint32(0), tx.Collateral.Input.OutputIndex)

	scriptIn, ok := tx.ScriptInput()
	require.True(t, ok)
	require.True(t, scriptIn.Witness.InlineDatumPresent)
	redeemer, err := pool.ParseRedeemer(scriptIn.Witness.Redeemer)
	require.NoError(t, err)
	require.Equal(t, model.TradeBuy, redeemer.Kind)
	require.Equal(t, "1000", redeemer.Amount.String())
	require.Equal(t, "525000000000", redeemer.Limit.String())

	require.Len(t, tx.Outputs, 2)
	poolOut := outputValue(t, tx.Outputs[0])
	require.Equal(t, cfg.ScriptAddress, tx.Outputs[0].Address)
	require.Equal(t, "500005000000", poolOut.Lovelace().String())
	require.Equal(t, "999000", poolOut.Quantity(cfg.Unit()).String())
	datum, err := pool.ParseDatum(tx.Outputs[0].InlineDatum)
	require.NoError(t, err)
	require.Equal(t, "1000", datum.CurrentSupply.String())

	buyerOut := outputValue(t, tx.Outputs[1])
	require.Equal(t, change, tx.Outputs[1].Address)
	require.Equal(t, "1000", buyerOut.Quantity(cfg.Unit()).String())
	require.Equal(t, "1500000", buyerOut.Lovelace().String())

	require.Len(t, journal.receipts, 1)
	require.Equal(t, "500000000000", journal.receipts[0].Settlement)
	require.Equal(t, "0", journal.receipts[0].SupplyBefore)
}

func TestSellScenario(t *testing.T) {
	cfg := poolConfig(t)
	provider := &fakeProvider{utxos: map[string][]model.UTxO{cfg.ScriptAddress: {poolUTxO(t, cfg, 1_000, 0)}}}
	change, _ := changeAddress(t)
	w := &fakeWallet{change: change, utxos: []model.UTxO{
		walletUTxO(walletHash, 0, "10000000", nil),
		walletUTxO(walletHash, 1, "1500000", map[string]string{cfg.Unit(): "1000"}),
	}}
	e := newTestEngine(t, provider, nil)
	s := NewSession(w, &cfg)

	res, err := e.Sell(context.Background(), s, model.TradeRequest{Amount: big.NewInt(500), Limit: big.NewInt(356_250_000_000)})
	require.NoError(t, err)
	require.Equal(t, "375000000000", res.Settlement.String())
	require.Equal(t, "500", res.SupplyAfter.String())

	tx := w.signed
	require.Len(t, tx.Outputs, 1)
	poolOut := outputValue(t, tx.Outputs[0])
	require.Equal(t, "125005000000", poolOut.Lovelace().String())
	require.Equal(t, "999500", poolOut.Quantity(cfg.Unit()).String())

	var fundedTokens bool
	for _, in := range tx.Inputs {
		if in.Witness == nil && in.UTxO.Input.OutputIndex == 1 {
			fundedTokens = true
		}
	}
	require.True(t, fundedTokens)

	scriptIn, ok := tx.ScriptInput()
	require.True(t, ok)
	redeemer, err := pool.ParseRedeemer(scriptIn.Witness.Redeemer)
	require.NoError(t, err)
	require.Equal(t, model.TradeSell, redeemer.Kind)
	require.Equal(t, "356250000000", redeemer.Limit.String())
}

func TestBuySlippageFailsBeforeBuild(t *testing.T) {
	cfg := poolConfig(t)
	provider := &fakeProvider{utxos: map[string][]model.UTxO{cfg.ScriptAddress: {poolUTxO(t, cfg, 0, 0)}}}
	w := &fakeWallet{}
	e := newTestEngine(t, provider, nil)

	// cost of 100 from zero supply is 5,000,000,000
	_, err := e.Buy(context.Background(), NewSession(w, &cfg), model.TradeRequest{Amount: big.NewInt(100), Limit: big.NewInt(4_999_999_999)})
	require.ErrorIs(t, err, model.ErrSlippageExceeded)
	require.Zero(t, w.calls)
	require.Nil(t, w.signed)
}

func TestSellSlippageAndSupply(t *testing.T) {
	cfg := poolConfig(t)
	provider := &fakeProvider{utxos: map[string][]model.UTxO{cfg.ScriptAddress: {poolUTxO(t, cfg, 1_000, 0)}}}
	w := &fakeWallet{}
	e := newTestEngine(t, provider, nil)
	s := NewSession(w, &cfg)

	_, err := e.Sell(context.Background(), s, model.TradeRequest{Amount: big.NewInt(1_001), Limit: big.NewInt(0)})
	require.ErrorIs(t, err, model.ErrInsufficientSupply)

	_, err = e.Sell(context.Background(), s, model.TradeRequest{Amount: big.NewInt(500), Limit: big.NewInt(375_000_000_001)})
	require.ErrorIs(t, err, model.ErrSlippageExceeded)
	require.Zero(t, w.calls)
}

func TestBuyExceedingPoolBalance(t *testing.T) {
	cfg := poolConfig(t)
	provider := &fakeProvider{utxos: map[string][]model.UTxO{cfg.ScriptAddress: {poolUTxO(t, cfg, 999_999, 0)}}}
	e := newTestEngine(t, provider, nil)

	_, err := e.Buy(context.Background(), NewSession(&fakeWallet{}, &cfg), model.TradeRequest{Amount: big.NewInt(2), Limit: new(big.Int).Lsh(big.NewInt(1), 100)})
	require.ErrorIs(t, err, model.ErrInsufficientSupply)
}

func TestTradeRequiresWallet(t *testing.T) {
	cfg := poolConfig(t)
	e := newTestEngine(t, &fakeProvider{}, nil)

	_, err := e.Buy(context.Background(), NewSession(nil, &cfg), model.TradeRequest{Amount: big.NewInt(1), Limit: big.NewInt(1)})
	require.ErrorIs(t, err, model.ErrWalletNotConnected)

	_, err = e.Mint(context.Background(), nil, model.MintRequest{TokenName: "PUMP", Slope: DefaultSlope, TotalSupply: DefaultTotalSupply})
	require.ErrorIs(t, err, model.ErrWalletNotConnected)
}

func TestTradeRequiresCollateral(t *testing.T) {
	cfg := poolConfig(t)
	provider := &fakeProvider{utxos: map[string][]model.UTxO{cfg.ScriptAddress: {poolUTxO(t, cfg, 0, 0)}}}
	change, _ := changeAddress(t)
	w := &fakeWallet{change: change, utxos: []model.UTxO{
		walletUTxO(walletHash, 0, "600000000000", map[string]string{cfg.Unit(): "1"}),
	}}
	e := newTestEngine(t, provider, nil)

	_, err := e.Buy(context.Background(), NewSession(w, &cfg), model.TradeRequest{Amount: big.NewInt(1), Limit: big.NewInt(1_000_000)})
	require.ErrorIs(t, err, model.ErrNoCollateral)
}

func TestBuyInsufficientFunds(t *testing.T) {
	cfg := poolConfig(t)
	provider := &fakeProvider{utxos: map[string][]model.UTxO{cfg.ScriptAddress: {poolUTxO(t, cfg, 0, 0)}}}
	change, _ := changeAddress(t)
	w := &fakeWallet{change: change, utxos: []model.UTxO{walletUTxO(walletHash, 0, "10000000", nil)}}
	e := newTestEngine(t, provider, nil)

	_, err := e.Buy(context.Background(), NewSession(w, &cfg), model.TradeRequest{Amount: big.NewInt(1_000), Limit: big.NewInt(600_000_000_000)})
	require.ErrorIs(t, err, model.ErrNoUtxoAvailable)
	require.Nil(t, w.signed)
}

func TestSubmitFailureIsLedgerRejected(t *testing.T) {
	cfg := poolConfig(t)
	provider := &fakeProvider{utxos: map[string][]model.UTxO{cfg.ScriptAddress: {poolUTxO(t, cfg, 0, 0)}}}
	change, _ := changeAddress(t)
	w := &fakeWallet{
		change:    change,
		utxos:     []model.UTxO{walletUTxO(walletHash, 0, "10000000", nil), walletUTxO(walletHash, 1, "900000000000", nil)},
		submitErr: errors.New("BadInputsUTxO"),
	}
	journal := &memJournal{}
	e := newTestEngine(t, provider, journal)
	s := NewSession(w, &cfg)
	_, err := e.Query(context.Background(), s)
	require.NoError(t, err)

	_, err = e.Buy(context.Background(), s, model.TradeRequest{Amount: big.NewInt(10), Limit: big.NewInt(100_000_000)})
	require.ErrorIs(t, err, model.ErrLedgerRejected)
	require.Contains(t, err.Error(), "BadInputsUTxO")
	require.NotNil(t, s.Snapshot())
	require.Empty(t, journal.receipts)
}

func TestQueryPoolNotFound(t *testing.T) {
	cfg := poolConfig(t)
	e := newTestEngine(t, &fakeProvider{}, nil)

	_, err := e.Query(context.Background(), NewSession(nil, &cfg))
	require.ErrorIs(t, err, model.ErrPoolNotFound)

	exists, err := e.PoolExists(context.Background(), cfg.ScriptAddress)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestQueryIgnoresForeignOutputs(t *testing.T) {
	cfg := poolConfig(t)
	stray := walletUTxO(walletHash, 5, "2000000", nil)
	stray.Address = cfg.ScriptAddress
	provider := &fakeProvider{utxos: map[string][]model.UTxO{cfg.ScriptAddress: {stray}}}
	e := newTestEngine(t, provider, nil)

	_, err := e.Query(context.Background(), NewSession(nil, &cfg))
	require.ErrorIs(t, err, model.ErrPoolNotFound)

	exists, err := e.PoolExists(context.Background(), cfg.ScriptAddress)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestQueryAmbiguousPool(t *testing.T) {
	cfg := poolConfig(t)
	provider := &fakeProvider{utxos: map[string][]model.UTxO{cfg.ScriptAddress: {
		poolUTxO(t, cfg, 0, 0),
		poolUTxO(t, cfg, 10, 1),
	}}}
	e := newTestEngine(t, provider, nil)

	_, err := e.Query(context.Background(), NewSession(nil, &cfg))
	require.ErrorIs(t, err, model.ErrAmbiguousPool)
}

func TestQueryMalformedDatum(t *testing.T) {
	cfg := poolConfig(t)
	bad := poolUTxO(t, cfg, 0, 0)
	bad.InlineDatum = "d87980"
	provider := &fakeProvider{utxos: map[string][]model.UTxO{cfg.ScriptAddress: {bad}}}
	e := newTestEngine(t, provider, nil)

	_, err := e.Query(context.Background(), NewSession(nil, &cfg))
	require.ErrorIs(t, err, model.ErrMalformedDatum)
}

func TestQueryProviderError(t *testing.T) {
	cfg := poolConfig(t)
	e := newTestEngine(t, &fakeProvider{err: errors.New("connection reset")}, nil)

	_, err := e.Query(context.Background(), NewSession(nil, &cfg))
	require.ErrorIs(t, err, model.ErrProviderError)
}

func TestQueryDerivedValues(t *testing.T) {
	cfg := poolConfig(t)
	provider := &fakeProvider{utxos: map[string][]model.UTxO{cfg.ScriptAddress: {poolUTxO(t, cfg, 1_000, 0)}}}
	e := newTestEngine(t, provider, nil)
	s := NewSession(nil, &cfg)

	state, err := e.Query(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, "1000000000", state.Price.String())
	require.Equal(t, "1000000000000", state.MarketCap.String())
	require.Equal(t, "999000", state.TokenBalance.String())
	require.Equal(t, "1000000", state.TotalMinted.String())
	require.Zero(t, state.ReserveLovelace.Cmp(state.ExpectedReserve))
	require.Same(t, state, s.Snapshot())
}

func TestQuote(t *testing.T) {
	cfg := poolConfig(t)
	provider := &fakeProvider{utxos: map[string][]model.UTxO{cfg.ScriptAddress: {poolUTxO(t, cfg, 1_000, 0)}}}
	e := newTestEngine(t, provider, nil)
	s := NewSession(nil, &cfg)

	q, err := e.Quote(context.Background(), s, model.TradeSell, big.NewInt(500))
	require.NoError(t, err)
	require.Equal(t, "375000000000", q.Settlement.String())
	require.Equal(t, "356250000000", q.SuggestedLimit.String())
	require.Equal(t, "500", q.SupplyAfter.String())
	require.Equal(t, "500000000", q.PriceAfter.String())
	require.Equal(t, "750000000/1", q.AveragePrice.String())

	q, err = e.Quote(context.Background(), s, model.TradeBuy, big.NewInt(1_000))
	require.NoError(t, err)
	// 1e6 * (2000^2 - 1000^2) / 2
	require.Equal(t, "1500000000000", q.Settlement.String())
	require.Equal(t, "1575000000000", q.SuggestedLimit.String())
}

func TestMint(t *testing.T) {
	change, creator := changeAddress(t)
	w := &fakeWallet{change: change, utxos: []model.UTxO{
		walletUTxO(testOneShot.TxHash, 0, "3000000", nil),
		walletUTxO(walletHash, 1, "10000000", nil),
	}}
	journal := &memJournal{}
	e := newTestEngine(t, &fakeProvider{}, journal)
	s := NewSession(w, nil)

	res, err := e.Mint(context.Background(), s, model.MintRequest{TokenName: DefaultTokenName, Slope: DefaultSlope, TotalSupply: DefaultTotalSupply})
	require.NoError(t, err)

	mintScript, _ := fakeScripts{}.MintScript(testOneShot)
	policyID, err := blueprint.PolicyID(mintScript)
	require.NoError(t, err)
	spendScript, _ := fakeScripts{}.SpendScript(testOneShot)
	spendHash, err := blueprint.ScriptHash(spendScript)
	require.NoError(t, err)
	scriptAddr, err := address.EnterpriseScriptAddress(address.Preprod, spendHash)
	require.NoError(t, err)

	require.Equal(t, policyID, res.Config.PolicyID)
	require.Equal(t, scriptAddr, res.Config.ScriptAddress)
	require.Equal(t, testOneShot.TxHash, res.Config.UtxoTxHash)
	require.Equal(t, uint32(0), res.Config.UtxoOutputIndex)
	require.NoError(t, res.Config.Validate())
	require.Equal(t, &res.Config, s.Pool)

	tx := w.signed
	require.Equal(t, testOneShot, tx.Inputs[0].UTxO.Input)
	require.Equal(t, uint32(1), tx.Collateral.Input.OutputIndex)
	require.NotNil(t, tx.Mint)
	require.Equal(t, "1000000", tx.Mint.Quantity)
	require.Equal(t, "50554d50", tx.Mint.AssetName)
	r, err := pool.ParseRedeemer(tx.Mint.Redeemer)
	require.NoError(t, err)
	require.Equal(t, model.TradeMint, r.Kind)

	require.Len(t, tx.Outputs, 1)
	out := outputValue(t, tx.Outputs[0])
	require.Equal(t, "5000000", out.Lovelace().String())
	require.Equal(t, "1000000", out.Quantity(res.Config.Unit()).String())

	datum, err := pool.ParseDatum(tx.Outputs[0].InlineDatum)
	require.NoError(t, err)
	require.Zero(t, datum.CurrentSupply.Sign())
	require.Equal(t, creator, datum.Creator)
	require.Equal(t, policyID, datum.TokenPolicy)

	require.Len(t, journal.receipts, 1)
	require.Equal(t, model.TradeMint, journal.receipts[0].Kind)
}

func TestMintWithEmptyWallet(t *testing.T) {
	change, _ := changeAddress(t)
	e := newTestEngine(t, &fakeProvider{}, nil)

	_, err := e.Mint(context.Background(), NewSession(&fakeWallet{change: change}, nil), model.MintRequest{TokenName: "PUMP", Slope: DefaultSlope, TotalSupply: DefaultTotalSupply})
	require.ErrorIs(t, err, model.ErrNoUtxoAvailable)
}

func TestNewValidatesParams(t *testing.T) {
	p := DefaultParams()
	p.SlippageBps = 20_000
	_, err := New(&fakeProvider{}, fakeScripts{}, p, nil, nil)
	require.Error(t, err)

	_, err = New(nil, fakeScripts{}, DefaultParams(), nil, nil)
	require.Error(t, err)
}
