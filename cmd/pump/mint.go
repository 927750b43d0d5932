package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pumpCurve/internal/config"
	"pumpCurve/internal/curve"
	"pumpCurve/internal/engine"
	"pumpCurve/internal/model"
)

func newMintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint a new token pool from a one-shot wallet output",
		RunE:  runMint,
	}
	cmd.Flags().String("name", engine.DefaultTokenName, "token name")
	cmd.Flags().String("curve-slope", engine.DefaultSlope.String(), "curve slope in lovelace per token squared")
	cmd.Flags().String("total-supply", engine.DefaultTotalSupply.String(), "tokens minted into the pool")
	cmd.Flags().String("submit-via", "wallet", "submission path (wallet, blockfrost)")
	return cmd
}

func runMint(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	name, _ := cmd.Flags().GetString("name")
	slopeRaw, _ := cmd.Flags().GetString("curve-slope")
	supplyRaw, _ := cmd.Flags().GetString("total-supply")
	slope, err := config.ParseAmount(slopeRaw)
	if err != nil {
		return fmt.Errorf("curve-slope: %w", err)
	}
	supply, err := config.ParseAmount(supplyRaw)
	if err != nil {
		return fmt.Errorf("total-supply: %w", err)
	}

	s, err := a.session(false)
	if err != nil {
		return err
	}
	res, err := a.engine.Mint(ctx, s, model.MintRequest{TokenName: name, Slope: slope, TotalSupply: supply})
	if err != nil {
		return err
	}

	a.logger.Info("pool minted",
		zap.String("tx_hash", res.TxHash),
		zap.String("policy_id", res.Config.PolicyID),
		zap.String("script_address", res.Config.ScriptAddress),
	)
	return printJSON(cmd, map[string]any{
		"tx_hash":      res.TxHash,
		"pool":         res.Config,
		"total_supply": res.TotalSupply.String(),
		"start_price":  curve.FormatLovelace(curve.Price(slope, supply)),
	})
}
