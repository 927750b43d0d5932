package main

import (
	"fmt"
	"math/big"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pumpCurve/internal/chain"
	"pumpCurve/internal/config"
	"pumpCurve/internal/curve"
	"pumpCurve/internal/engine"
	"pumpCurve/internal/model"
)

var previewSteps = []int64{100, 1_000}

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query",
		Short: "Show live pool state, wallet holdings and price previews",
		RunE:  runQuery,
	}
}

func newCurveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Print the price curve for a slope",
		RunE:  runCurve,
	}
	cmd.Flags().String("curve-slope", engine.DefaultSlope.String(), "curve slope in lovelace per token squared")
	cmd.Flags().String("max-supply", "10000", "last supply level")
	cmd.Flags().String("step", "500", "supply step between rows")
	return cmd
}

func runQuery(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.session(true)
	if err != nil {
		return err
	}

	var (
		state    *model.PoolState
		holdings *big.Int
		tip      chain.Tip
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		state, err = a.engine.Query(gctx, s)
		return err
	})
	g.Go(func() error {
		var err error
		tip, err = a.chain.LatestBlock(gctx)
		return err
	})
	if a.wallet != nil {
		unit := s.Pool.Unit()
		g.Go(func() error {
			utxos, err := a.wallet.GetUtxos(gctx)
			if err != nil {
				// Holdings are informational; the pool view stands without them.
				a.logger.Warn("wallet holdings unavailable", zap.Error(err))
				return nil
			}
			total := new(big.Int)
			for _, u := range utxos {
				v, err := u.Value()
				if err != nil {
					continue
				}
				total.Add(total, v.Quantity(unit))
			}
			holdings = total
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	supply := state.Datum.CurrentSupply
	previews := make([]map[string]string, 0, len(previewSteps))
	for _, n := range previewSteps {
		at := new(big.Int).Add(supply, big.NewInt(n))
		cost, err := curve.BuyCost(state.Datum.Slope, supply, big.NewInt(n))
		if err != nil {
			return err
		}
		previews = append(previews, map[string]string{
			"supply":   at.String(),
			"price":    curve.FormatLovelace(curve.Price(state.Datum.Slope, at)),
			"buy_cost": curve.FormatLovelace(cost),
		})
	}

	out := map[string]any{
		"pool_utxo":        state.UTxO.Input.String(),
		"policy_id":        state.Config.PolicyID,
		"token_name":       state.Datum.TokenName,
		"creator":          state.Datum.Creator,
		"slope":            state.Datum.Slope.String(),
		"current_supply":   supply.String(),
		"pool_tokens":      state.TokenBalance.String(),
		"total_minted":     state.TotalMinted.String(),
		"reserve":          curve.FormatLovelace(state.ReserveLovelace),
		"expected_reserve": curve.FormatLovelace(state.ExpectedReserve),
		"price":            curve.FormatLovelace(state.Price),
		"market_cap":       curve.FormatLovelace(state.MarketCap),
		"previews":         previews,
		"tip_height":       tip.Height,
		"tip_slot":         tip.Slot,
	}
	if holdings != nil {
		out["wallet_tokens"] = holdings.String()
	}
	return printJSON(cmd, out)
}

func runCurve(cmd *cobra.Command, _ []string) error {
	_, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	parse := func(name string) (*big.Int, error) {
		raw, _ := cmd.Flags().GetString(name)
		v, err := config.ParseAmount(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return v, nil
	}
	slope, err := parse("curve-slope")
	if err != nil {
		return err
	}
	maxSupply, err := parse("max-supply")
	if err != nil {
		return err
	}
	step, err := parse("step")
	if err != nil {
		return err
	}

	points, err := curve.Sample(slope, maxSupply, step)
	if err != nil {
		return err
	}
	logger.Debug("curve sampled", zap.Int("points", len(points)), zap.Stringer("slope", slope))

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%12s  %20s  %24s\n", "supply", "price (ADA)", "cumulative cost (ADA)")
	for _, p := range points {
		fmt.Fprintf(w, "%12s  %20s  %24s\n", p.Supply, curve.FormatLovelace(p.Price), curve.FormatLovelace(p.Cost))
	}
	return nil
}
