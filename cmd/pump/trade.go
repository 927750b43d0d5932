package main

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pumpCurve/internal/config"
	"pumpCurve/internal/curve"
	"pumpCurve/internal/engine"
	"pumpCurve/internal/model"
)

func newBuyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buy AMOUNT",
		Short: "Buy tokens from the pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrade(cmd, model.TradeBuy, args[0])
		},
	}
	cmd.Flags().String("max-cost", "", "maximum lovelace to pay (default: quote plus slippage)")
	cmd.Flags().String("submit-via", "wallet", "submission path (wallet, blockfrost)")
	return cmd
}

func newSellCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sell AMOUNT",
		Short: "Sell tokens back to the pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrade(cmd, model.TradeSell, args[0])
		},
	}
	cmd.Flags().String("min-refund", "", "minimum lovelace to receive (default: quote minus slippage)")
	cmd.Flags().String("submit-via", "wallet", "submission path (wallet, blockfrost)")
	return cmd
}

func newQuoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quote buy|sell AMOUNT",
		Short: "Price a trade against the live pool",
		Args:  cobra.ExactArgs(2),
		RunE:  runQuote,
	}
}

func runTrade(cmd *cobra.Command, kind model.TradeKind, rawAmount string) error {
	amount, err := config.ParseAmount(rawAmount)
	if err != nil {
		return err
	}

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

	limitFlag := "max-cost"
	if kind == model.TradeSell {
		limitFlag = "min-refund"
	}
	limitRaw, _ := cmd.Flags().GetString(limitFlag)

	var limit *big.Int
	if limitRaw != "" {
		if limit, err = config.ParseAmount(limitRaw); err != nil {
			return fmt.Errorf("%s: %w", limitFlag, err)
		}
	} else {
		q, err := a.engine.Quote(ctx, s, kind, amount)
		if err != nil {
			return err
		}
		limit = q.SuggestedLimit
		a.logger.Info("using slippage limit",
			zap.String("kind", string(kind)),
			zap.Stringer("quote", q.Settlement),
			zap.Stringer("limit", limit),
			zap.Uint32("slippage_bps", q.SlippageBps),
		)
	}

	req := model.TradeRequest{Amount: amount, Limit: limit}
	var res *engine.TradeResult
	if kind == model.TradeBuy {
		res, err = a.engine.Buy(ctx, s, req)
	} else {
		res, err = a.engine.Sell(ctx, s, req)
	}
	if err != nil {
		return err
	}

	return printJSON(cmd, map[string]any{
		"kind":           res.Kind,
		"tx_hash":        res.TxHash,
		"amount":         res.Amount.String(),
		"settlement":     res.Settlement.String(),
		"settlement_ada": curve.FormatLovelace(res.Settlement),
		"limit":          res.Limit.String(),
		"supply_before":  res.SupplyBefore.String(),
		"supply_after":   res.SupplyAfter.String(),
		"new_price":      curve.FormatLovelace(res.NewPrice),
		"average_price":  curve.FormatRatLovelace(res.AveragePrice),
	})
}

func runQuote(cmd *cobra.Command, args []string) error {
	kind, err := model.ParseTradeKind(args[0])
	if err != nil {
		return err
	}
	amount, err := config.ParseAmount(args[1])
	if err != nil {
		return err
	}

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
	q, err := a.engine.Quote(ctx, s, kind, amount)
	if err != nil {
		return err
	}

	return printJSON(cmd, map[string]any{
		"kind":            q.Kind,
		"amount":          q.Amount.String(),
		"settlement":      q.Settlement.String(),
		"settlement_ada":  curve.FormatLovelace(q.Settlement),
		"suggested_limit": q.SuggestedLimit.String(),
		"slippage_bps":    q.SlippageBps,
		"supply_before":   q.SupplyBefore.String(),
		"supply_after":    q.SupplyAfter.String(),
		"price_before":    curve.FormatLovelace(q.PriceBefore),
		"price_after":     curve.FormatLovelace(q.PriceAfter),
		"average_price":   curve.FormatRatLovelace(q.AveragePrice),
	})
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
