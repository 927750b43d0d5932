package engine

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"pumpCurve/internal/curve"
	"pumpCurve/internal/model"
	"pumpCurve/internal/pool"
	"pumpCurve/internal/utxo"
)

// TradeResult is the outcome of a submitted buy or sell. Settlement is the
// cost paid for a buy and the refund received for a sell.
type TradeResult struct {
	Kind         model.TradeKind
	TxHash       string
	Amount       *big.Int
	Settlement   *big.Int
	Limit        *big.Int
	SupplyBefore *big.Int
	SupplyAfter  *big.Int
	NewPrice     *big.Int
	AveragePrice *big.Rat
	Tx           *model.Tx
}

// Quote prices a trade against live pool state without building anything.
type Quote struct {
	Kind           model.TradeKind
	Amount         *big.Int
	Settlement     *big.Int
	SuggestedLimit *big.Int
	SlippageBps    uint32
	SupplyBefore   *big.Int
	SupplyAfter    *big.Int
	PriceBefore    *big.Int
	PriceAfter     *big.Int
	AveragePrice   *big.Rat
}

// settle computes the curve amount for a trade and the successor datum.
func settle(state *model.PoolState, kind model.TradeKind, amount *big.Int) (*big.Int, model.PoolDatum, error) {
	d := state.Datum
	var (
		amt *big.Int
		err error
	)
	switch kind {
	case model.TradeBuy:
		if state.TokenBalance.Cmp(amount) < 0 {
			return nil, model.PoolDatum{}, fmt.Errorf("%w: pool holds %s tokens, %s requested", model.ErrInsufficientSupply, state.TokenBalance, amount)
		}
		amt, err = curve.BuyCost(d.Slope, d.CurrentSupply, amount)
	case model.TradeSell:
		amt, err = curve.SellRefund(d.Slope, d.CurrentSupply, amount)
	default:
		return nil, model.PoolDatum{}, fmt.Errorf("unsupported trade kind %q", kind)
	}
	if err != nil {
		return nil, model.PoolDatum{}, err
	}
	next, err := pool.DeriveNext(d, amount, kind)
	if err != nil {
		return nil, model.PoolDatum{}, err
	}
	return amt, next, nil
}

// Quote returns the live settlement amount and a limit widened by the
// configured slippage tolerance.
func (e *Engine) Quote(ctx context.Context, s *Session, kind model.TradeKind, amount *big.Int) (*Quote, error) {
	cfg, err := requirePool(s)
	if err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	state, err := e.fetchPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	amt, next, err := settle(state, kind, amount)
	if err != nil {
		return nil, err
	}

	var limit *big.Int
	if kind == model.TradeBuy {
		limit, err = curve.MaxCost(amt, e.params.SlippageBps)
	} else {
		limit, err = curve.MinRefund(amt, e.params.SlippageBps)
	}
	if err != nil {
		return nil, err
	}

	return &Quote{
		Kind:           kind,
		Amount:         new(big.Int).Set(amount),
		Settlement:     amt,
		SuggestedLimit: limit,
		SlippageBps:    e.params.SlippageBps,
		SupplyBefore:   new(big.Int).Set(state.Datum.CurrentSupply),
		SupplyAfter:    next.CurrentSupply,
		PriceBefore:    state.Price,
		PriceAfter:     curve.Price(next.Slope, next.CurrentSupply),
		AveragePrice:   curve.AveragePrice(amt, amount),
	}, nil
}

// Buy moves amount tokens from the pool to the wallet for the curve cost.
func (e *Engine) Buy(ctx context.Context, s *Session, req model.TradeRequest) (*TradeResult, error) {
	req.Kind = model.TradeBuy
	return e.trade(ctx, s, req)
}

// Sell returns amount tokens to the pool for the curve refund.
func (e *Engine) Sell(ctx context.Context, s *Session, req model.TradeRequest) (*TradeResult, error) {
	req.Kind = model.TradeSell
	return e.trade(ctx, s, req)
}

func (e *Engine) trade(ctx context.Context, s *Session, req model.TradeRequest) (*TradeResult, error) {
	if err := requireWallet(s); err != nil {
		return nil, err
	}
	cfg, err := requirePool(s)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%s request: %w", req.Kind, err)
	}

	state, err := e.fetchPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	amt, next, err := settle(state, req.Kind, req.Amount)
	if err != nil {
		return nil, err
	}

	// Slippage is checked before the wallet is touched or anything is built.
	if req.Kind == model.TradeBuy && amt.Cmp(req.Limit) > 0 {
		return nil, fmt.Errorf("%w: cost %s exceeds max cost %s", model.ErrSlippageExceeded, amt, req.Limit)
	}
	if req.Kind == model.TradeSell && amt.Cmp(req.Limit) < 0 {
		return nil, fmt.Errorf("%w: refund %s below min refund %s", model.ErrSlippageExceeded, amt, req.Limit)
	}
	if req.Kind == model.TradeSell && state.ReserveLovelace.Cmp(amt) < 0 {
		return nil, fmt.Errorf("pool reserve %s cannot cover refund %s", state.ReserveLovelace, amt)
	}

	w, err := e.loadWallet(ctx, s)
	if err != nil {
		return nil, err
	}
	spendScript, err := e.scripts.SpendScript(cfg.OneShot())
	if err != nil {
		return nil, fmt.Errorf("spend script: %w", err)
	}
	datumRaw, err := pool.EncodeDatum(next)
	if err != nil {
		return nil, err
	}

	unit := cfg.Unit()
	poolValue, err := state.UTxO.Value()
	if err != nil {
		return nil, err
	}
	required := model.NewValue()
	var redeemer []byte
	outputs := make([]model.TxOut, 0, 2)

	switch req.Kind {
	case model.TradeBuy:
		redeemer, err = pool.BuyRedeemer(req.Amount, req.Limit)
		if err != nil {
			return nil, err
		}
		poolValue.Add(model.Lovelace, amt)
		poolValue.Add(unit, new(big.Int).Neg(req.Amount))

		buyer := model.NewValue()
		buyer.Add(model.Lovelace, lovelace(e.params.MinUtxoLovelace))
		buyer.Add(unit, req.Amount)
		outputs = append(outputs,
			model.TxOut{Address: cfg.ScriptAddress, Amount: poolValue.Assets(), InlineDatum: datumRaw},
			model.TxOut{Address: w.changeAddress, Amount: buyer.Assets()},
		)

		need := new(big.Int).Add(amt, lovelace(e.params.MinUtxoLovelace+e.params.FeeBuffer))
		required.Add(model.Lovelace, need)
	case model.TradeSell:
		redeemer, err = pool.SellRedeemer(req.Amount, req.Limit)
		if err != nil {
			return nil, err
		}
		poolValue.Add(model.Lovelace, new(big.Int).Neg(amt))
		poolValue.Add(unit, req.Amount)
		outputs = append(outputs,
			model.TxOut{Address: cfg.ScriptAddress, Amount: poolValue.Assets(), InlineDatum: datumRaw},
		)

		required.Add(unit, req.Amount)
		// The refund comes back as change and can cover the fee.
		if short := new(big.Int).Sub(lovelace(e.params.FeeBuffer), amt); short.Sign() > 0 {
			required.Add(model.Lovelace, short)
		}
	}

	funding, err := utxo.SelectFunding(w.utxos, required, nil, state.UTxO.Input)
	if err != nil {
		return nil, err
	}

	poolIn := model.TxIn{
		UTxO: state.UTxO,
		Witness: &model.ScriptWitness{
			Script:             spendScript,
			Redeemer:           redeemer,
			InlineDatumPresent: true,
		},
	}
	tx := &model.Tx{
		Kind:          req.Kind,
		Inputs:        append([]model.TxIn{poolIn}, walletOnly(funding.Inputs)...),
		Collateral:    w.collateral,
		Outputs:       outputs,
		ChangeAddress: w.changeAddress,
	}

	e.logger.Info("trade assembled",
		zap.String("kind", string(req.Kind)),
		zap.String("policy_id", cfg.PolicyID),
		zap.String("pool_utxo", state.UTxO.Input.String()),
		zap.Stringer("amount", req.Amount),
		zap.Stringer("settlement", amt),
		zap.Stringer("limit", req.Limit),
		zap.Stringer("supply_after", next.CurrentSupply),
	)

	hash, err := e.signAndSubmit(ctx, s, tx)
	if err != nil {
		return nil, err
	}
	// The ledger is the only source of truth once a trade is in flight.
	s.Invalidate()

	e.record(ctx, model.TradeReceipt{
		Kind:          req.Kind,
		TxHash:        hash,
		PolicyID:      cfg.PolicyID,
		TokenName:     cfg.TokenName,
		ScriptAddress: cfg.ScriptAddress,
		Amount:        req.Amount.String(),
		Settlement:    amt.String(),
		Limit:         req.Limit.String(),
		SupplyBefore:  state.Datum.CurrentSupply.String(),
		SupplyAfter:   next.CurrentSupply.String(),
		Trader:        w.changeAddress,
		SubmittedAt:   e.now().UTC().Format(timeLayout),
	})

	return &TradeResult{
		Kind:         req.Kind,
		TxHash:       hash,
		Amount:       new(big.Int).Set(req.Amount),
		Settlement:   amt,
		Limit:        new(big.Int).Set(req.Limit),
		SupplyBefore: new(big.Int).Set(state.Datum.CurrentSupply),
		SupplyAfter:  next.CurrentSupply,
		NewPrice:     curve.Price(next.Slope, next.CurrentSupply),
		AveragePrice: curve.AveragePrice(amt, req.Amount),
		Tx:           tx,
	}, nil
}
