package engine

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"pumpCurve/internal/address"
	"pumpCurve/internal/blueprint"
	"pumpCurve/internal/model"
	"pumpCurve/internal/pool"
	"pumpCurve/internal/utxo"
)

// Default mint parameters offered to users who give none.
const (
	DefaultTokenName = "PUMP"
)

var (
	DefaultSlope       = big.NewInt(1_000_000)
	DefaultTotalSupply = big.NewInt(1_000_000)
)

// MintResult describes a newly created pool. Config is returned to the caller
// and never persisted by the engine.
type MintResult struct {
	Config      model.PoolConfig
	TxHash      string
	TotalSupply *big.Int
	Tx          *model.Tx
}

// Mint creates a pool: it consumes a one-shot wallet output, mints the whole
// supply under the freshly parameterized policy and locks it at the pool
// script with the initial datum.
func (e *Engine) Mint(ctx context.Context, s *Session, req model.MintRequest) (*MintResult, error) {
	if err := requireWallet(s); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("mint request: %w", err)
	}

	w, err := e.loadWallet(ctx, s)
	if err != nil {
		return nil, err
	}
	creator, err := address.PaymentKeyHash(w.changeAddress)
	if err != nil {
		return nil, fmt.Errorf("creator key hash: %w", err)
	}
	oneShot, err := utxo.SelectOneShot(w.utxos)
	if err != nil {
		return nil, err
	}
	ref := oneShot.Input

	mintScript, err := e.scripts.MintScript(ref)
	if err != nil {
		return nil, fmt.Errorf("mint script: %w", err)
	}
	policyID, err := blueprint.PolicyID(mintScript)
	if err != nil {
		return nil, err
	}
	spendScript, err := e.scripts.SpendScript(ref)
	if err != nil {
		return nil, fmt.Errorf("spend script: %w", err)
	}
	spendHash, err := blueprint.ScriptHash(spendScript)
	if err != nil {
		return nil, err
	}
	scriptAddr, err := address.EnterpriseScriptAddress(e.params.Network, spendHash)
	if err != nil {
		return nil, err
	}

	datum := pool.InitialDatum(policyID, req.TokenName, req.Slope, creator)
	datumRaw, err := pool.EncodeDatum(datum)
	if err != nil {
		return nil, err
	}
	redeemer, err := pool.MintRedeemer()
	if err != nil {
		return nil, err
	}

	cfg := model.PoolConfig{
		PolicyID:        policyID,
		TokenName:       req.TokenName,
		ScriptAddress:   scriptAddr,
		UtxoTxHash:      ref.TxHash,
		UtxoOutputIndex: ref.OutputIndex,
		Slope:           new(big.Int).Set(req.Slope),
	}

	poolValue := model.NewValue()
	poolValue.Add(model.Lovelace, lovelace(e.params.MinPoolLovelace))
	poolValue.Add(cfg.Unit(), req.TotalSupply)

	required := model.NewValue()
	required.Add(model.Lovelace, lovelace(e.params.MinPoolLovelace+e.params.FeeBuffer))
	funding, err := utxo.SelectFunding(w.utxos, required, []model.UTxO{oneShot})
	if err != nil {
		return nil, err
	}

	tx := &model.Tx{
		Kind:       model.TradeMint,
		Inputs:     append([]model.TxIn{{UTxO: oneShot}}, walletOnly(funding.Inputs)...),
		Collateral: w.collateral,
		Mint: &model.MintAction{
			PolicyID:  policyID,
			AssetName: hex.EncodeToString([]byte(req.TokenName)),
			Quantity:  req.TotalSupply.String(),
			Script:    mintScript,
			Redeemer:  redeemer,
		},
		Outputs: []model.TxOut{{
			Address:     scriptAddr,
			Amount:      poolValue.Assets(),
			InlineDatum: datumRaw,
		}},
		ChangeAddress: w.changeAddress,
	}

	e.logger.Info("mint assembled",
		zap.String("policy_id", policyID),
		zap.String("script_address", scriptAddr),
		zap.String("one_shot", ref.String()),
		zap.Stringer("total_supply", req.TotalSupply),
		zap.Int("inputs", len(tx.Inputs)),
	)

	hash, err := e.signAndSubmit(ctx, s, tx)
	if err != nil {
		return nil, err
	}
	s.SelectPool(cfg)

	e.record(ctx, model.TradeReceipt{
		Kind:          model.TradeMint,
		TxHash:        hash,
		PolicyID:      policyID,
		TokenName:     req.TokenName,
		ScriptAddress: scriptAddr,
		Amount:        req.TotalSupply.String(),
		Settlement:    "0",
		Limit:         "0",
		SupplyBefore:  "0",
		SupplyAfter:   "0",
		Trader:        w.changeAddress,
		SubmittedAt:   e.now().UTC().Format(timeLayout),
	})

	return &MintResult{
		Config:      cfg,
		TxHash:      hash,
		TotalSupply: new(big.Int).Set(req.TotalSupply),
		Tx:          tx,
	}, nil
}
