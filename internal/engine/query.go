package engine

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"go.uber.org/zap"

	"pumpCurve/internal/curve"
	"pumpCurve/internal/model"
	"pumpCurve/internal/pool"
)

// Query fetches the unique pool output for the session's pool and derives
// the display quantities. The result becomes the session snapshot.
func (e *Engine) Query(ctx context.Context, s *Session) (*model.PoolState, error) {
	cfg, err := requirePool(s)
	if err != nil {
		return nil, err
	}
	state, err := e.fetchPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.snapshot = state
	return state, nil
}

// PoolExists reports whether anything is locked at scriptAddress.
func (e *Engine) PoolExists(ctx context.Context, scriptAddress string) (bool, error) {
	utxos, err := e.provider.FetchAddressUTxOs(ctx, scriptAddress)
	if err != nil {
		return false, collaboratorErr("fetch pool utxos", err)
	}
	return len(utxos) > 0, nil
}

// fetchPool reads the script address fresh. Outputs whose inline datum
// describes this pool's token are candidates; exactly one must exist.
func (e *Engine) fetchPool(ctx context.Context, cfg model.PoolConfig) (*model.PoolState, error) {
	utxos, err := e.provider.FetchAddressUTxOs(ctx, cfg.ScriptAddress)
	if err != nil {
		return nil, collaboratorErr("fetch pool utxos", err)
	}
	if len(utxos) == 0 {
		return nil, fmt.Errorf("%w: %s", model.ErrPoolNotFound, cfg.ScriptAddress)
	}

	var (
		candidates []model.UTxO
		datums     []model.PoolDatum
		parseErr   error
	)
	for _, u := range utxos {
		if u.InlineDatum == "" {
			continue
		}
		d, err := pool.ParseDatumHex(u.InlineDatum)
		if err != nil {
			if parseErr == nil {
				parseErr = fmt.Errorf("utxo %s: %w", u.Input, err)
			}
			continue
		}
		if !strings.EqualFold(d.TokenPolicy, cfg.PolicyID) || d.TokenName != cfg.TokenName {
			continue
		}
		candidates = append(candidates, u)
		datums = append(datums, d)
	}

	switch {
	case len(candidates) == 0 && parseErr != nil:
		return nil, parseErr
	case len(candidates) == 0:
		return nil, fmt.Errorf("%w: no output at %s carries a datum for %s", model.ErrPoolNotFound, cfg.ScriptAddress, cfg.Unit())
	case len(candidates) > 1:
		refs := make([]string, 0, len(candidates))
		for _, c := range candidates {
			refs = append(refs, c.Input.String())
		}
		return nil, fmt.Errorf("%w: %s", model.ErrAmbiguousPool, strings.Join(refs, ", "))
	}

	return e.deriveState(cfg, candidates[0], datums[0])
}

func (e *Engine) deriveState(cfg model.PoolConfig, u model.UTxO, d model.PoolDatum) (*model.PoolState, error) {
	value, err := u.Value()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrProviderError, err)
	}
	reserve := value.Lovelace()
	tokens := value.Quantity(cfg.Unit())
	supply := d.CurrentSupply

	sold, err := curve.Cost(d.Slope, new(big.Int), supply)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedDatum, err)
	}
	expected := sold.Add(sold, lovelace(e.params.MinPoolLovelace))
	if reserve.Cmp(expected) != 0 {
		e.logger.Warn("pool reserve drifted from curve",
			zap.String("pool", u.Input.String()),
			zap.Stringer("reserve", reserve),
			zap.Stringer("expected", expected),
		)
	}
	if cfg.Slope != nil && cfg.Slope.Cmp(d.Slope) != 0 {
		e.logger.Warn("configured slope differs from datum",
			zap.Stringer("configured", cfg.Slope),
			zap.Stringer("datum", d.Slope),
		)
	}

	return &model.PoolState{
		Config:          cfg,
		UTxO:            u,
		Datum:           d,
		ReserveLovelace: reserve,
		TokenBalance:    tokens,
		TotalMinted:     new(big.Int).Add(tokens, supply),
		ExpectedReserve: expected,
		Price:           curve.Price(d.Slope, supply),
		MarketCap:       curve.MarketCap(d.Slope, supply),
		FetchedAt:       e.now().UTC(),
	}, nil
}
