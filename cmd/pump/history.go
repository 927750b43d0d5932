package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"pumpCurve/internal/model"
	"pumpCurve/internal/storage"
	"pumpCurve/internal/storage/postgres"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled trades, newest last",
		RunE:  runHistory,
	}
	cmd.Flags().Int("limit", 50, "maximum receipts to show (0 means all)")
	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	limit, _ := cmd.Flags().GetInt("limit")

	ctx, stop := signalContext()
	defer stop()

	receipts, err := readHistory(ctx, cfg.PgDSN, cfg.Journal, cfg.PolicyID, limit)
	if err != nil {
		return err
	}
	return printJSON(cmd, receipts)
}

// readHistory prefers Postgres when a DSN is configured.
func readHistory(ctx context.Context, dsn, journal, policyID string, limit int) ([]model.TradeReceipt, error) {
	if dsn != "" {
		store, err := postgres.NewStore(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		return store.ListReceipts(ctx, policyID, limit)
	}
	if journal == "" {
		return nil, fmt.Errorf("no journal configured")
	}
	return storage.NewJsonlStorage(journal).ReadReceipts(policyID, limit)
}
