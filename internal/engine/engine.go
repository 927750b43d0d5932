// Package engine assembles mint, buy and sell transactions against a bonding
// curve pool and reads pool state back from the ledger.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"pumpCurve/internal/address"
	"pumpCurve/internal/curve"
	"pumpCurve/internal/model"
	"pumpCurve/internal/storage"
	"pumpCurve/internal/utxo"
	"pumpCurve/internal/wallet"
)

// Provider reads unspent outputs at an address.
type Provider interface {
	FetchAddressUTxOs(ctx context.Context, address string) ([]model.UTxO, error)
}

// Scripts hands out the pool validators parameterized by a one-shot reference.
type Scripts interface {
	MintScript(ref model.TxInput) (model.PlutusScript, error)
	SpendScript(ref model.TxInput) (model.PlutusScript, error)
}

// Params are the fixed lovelace amounts used while assembling transactions.
type Params struct {
	MinPoolLovelace int64
	CollateralFloor int64
	FeeBuffer       int64
	MinUtxoLovelace int64
	SlippageBps     uint32
	Network         address.Network
}

// DefaultParams returns the amounts the pool validators were deployed with.
func DefaultParams() Params {
	return Params{
		MinPoolLovelace: 5_000_000,
		CollateralFloor: utxo.CollateralFloor,
		FeeBuffer:       2_000_000,
		MinUtxoLovelace: 1_500_000,
		SlippageBps:     curve.DefaultSlippageBps,
		Network:         address.Preprod,
	}
}

func (p Params) validate() error {
	if p.MinPoolLovelace <= 0 {
		return fmt.Errorf("min pool lovelace must be positive")
	}
	if p.CollateralFloor <= 0 {
		return fmt.Errorf("collateral floor must be positive")
	}
	if p.FeeBuffer < 0 || p.MinUtxoLovelace < 0 {
		return fmt.Errorf("fee buffer and min utxo must be non-negative")
	}
	if p.SlippageBps > curve.BpsDenominator {
		return fmt.Errorf("slippage %d bps exceeds 100%%", p.SlippageBps)
	}
	if _, err := address.ParseNetwork(string(p.Network)); err != nil {
		return err
	}
	return nil
}

// Session carries the wallet and the selected pool for a sequence of
// operations. The pool snapshot is display state only; trades always fetch
// fresh state.
type Session struct {
	Wallet wallet.Wallet
	Pool   *model.PoolConfig

	snapshot *model.PoolState
}

func NewSession(w wallet.Wallet, pool *model.PoolConfig) *Session {
	return &Session{Wallet: w, Pool: pool}
}

// SelectPool switches the session to cfg and drops any snapshot.
func (s *Session) SelectPool(cfg model.PoolConfig) {
	s.Pool = &cfg
	s.snapshot = nil
}

// Snapshot returns the last queried pool state, nil after a trade.
func (s *Session) Snapshot() *model.PoolState {
	return s.snapshot
}

// Invalidate drops the pool snapshot.
func (s *Session) Invalidate() {
	s.snapshot = nil
}

// Engine builds and submits pool transactions.
type Engine struct {
	provider Provider
	scripts  Scripts
	params   Params
	journal  storage.Storage
	logger   *zap.Logger
	now      func() time.Time
}

// New builds an Engine. journal may be nil.
func New(provider Provider, scripts Scripts, params Params, journal storage.Storage, logger *zap.Logger) (*Engine, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is nil")
	}
	if scripts == nil {
		return nil, fmt.Errorf("scripts are nil")
	}
	if err := params.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		provider: provider,
		scripts:  scripts,
		params:   params,
		journal:  journal,
		logger:   logger,
		now:      time.Now,
	}, nil
}

func (e *Engine) Params() Params {
	return e.params
}

const timeLayout = time.RFC3339

func lovelace(v int64) *big.Int {
	return big.NewInt(v)
}

func requireWallet(s *Session) error {
	if s == nil || s.Wallet == nil {
		return model.ErrWalletNotConnected
	}
	return nil
}

func requirePool(s *Session) (model.PoolConfig, error) {
	if s == nil || s.Pool == nil {
		return model.PoolConfig{}, fmt.Errorf("no pool selected")
	}
	if err := s.Pool.Validate(); err != nil {
		return model.PoolConfig{}, fmt.Errorf("pool config: %w", err)
	}
	return *s.Pool, nil
}

var sentinels = []error{
	model.ErrWalletNotConnected,
	model.ErrNoUtxoAvailable,
	model.ErrNoCollateral,
	model.ErrPoolNotFound,
	model.ErrAmbiguousPool,
	model.ErrMalformedDatum,
	model.ErrInsufficientSupply,
	model.ErrSlippageExceeded,
	model.ErrLedgerRejected,
	model.ErrProviderError,
}

// collaboratorErr keeps a known failure class or classifies err as a
// provider failure.
func collaboratorErr(op string, err error) error {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", model.ErrProviderError, op, err)
}

// walletInputs gathers what every script transaction needs from the wallet.
type walletInputs struct {
	changeAddress string
	utxos         []model.UTxO
	collateral    model.UTxO
}

func (e *Engine) loadWallet(ctx context.Context, s *Session) (walletInputs, error) {
	changeAddr, err := s.Wallet.GetChangeAddress(ctx)
	if err != nil {
		return walletInputs{}, collaboratorErr("get change address", err)
	}
	utxos, err := s.Wallet.GetUtxos(ctx)
	if err != nil {
		return walletInputs{}, collaboratorErr("get wallet utxos", err)
	}
	if len(utxos) == 0 {
		return walletInputs{}, model.ErrNoUtxoAvailable
	}
	collateral, err := utxo.SelectCollateral(utxos, lovelace(e.params.CollateralFloor))
	if err != nil {
		return walletInputs{}, err
	}
	return walletInputs{changeAddress: changeAddr, utxos: utxos, collateral: collateral}, nil
}

// signAndSubmit hands tx to the wallet. Submission failures are ledger
// rejections and are never retried here.
func (e *Engine) signAndSubmit(ctx context.Context, s *Session, tx *model.Tx) (string, error) {
	signed, err := s.Wallet.SignTx(ctx, tx)
	if err != nil {
		return "", collaboratorErr("sign tx", err)
	}
	hash, err := s.Wallet.SubmitTx(ctx, signed)
	if err != nil {
		if errors.Is(err, model.ErrLedgerRejected) {
			return "", fmt.Errorf("submit tx: %w", err)
		}
		return "", fmt.Errorf("%w: submit tx: %w", model.ErrLedgerRejected, err)
	}
	return hash, nil
}

func (e *Engine) record(ctx context.Context, r model.TradeReceipt) {
	if e.journal == nil {
		return
	}
	if err := e.journal.PutReceipts(ctx, []model.TradeReceipt{r}); err != nil {
		e.logger.Warn("journal write failed", zap.String("tx_hash", r.TxHash), zap.Error(err))
	}
}

func walletOnly(utxos []model.UTxO) []model.TxIn {
	out := make([]model.TxIn, 0, len(utxos))
	for _, u := range utxos {
		out = append(out, model.TxIn{UTxO: u})
	}
	return out
}
