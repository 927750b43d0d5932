package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pumpCurve/internal/address"
	"pumpCurve/internal/blueprint"
	"pumpCurve/internal/chain"
	"pumpCurve/internal/config"
	"pumpCurve/internal/engine"
	"pumpCurve/internal/storage"
	"pumpCurve/internal/storage/postgres"
	"pumpCurve/internal/wallet"
)

func main() {
	root := &cobra.Command{
		Use:          "pump",
		Short:        "Bonding curve token pools on Cardano",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file path")
	pf.String("blockfrost-url", "https://cardano-preprod.blockfrost.io/api/v0", "Blockfrost API base URL")
	pf.String("project-id", "", "Blockfrost project id")
	pf.String("network", "preprod", "network (preprod, preview, mainnet)")
	pf.String("blueprint", "./plutus.json", "compiled validator blueprint")
	pf.String("wallet-url", "http://127.0.0.1:8090", "wallet bridge URL")
	pf.Uint("max-retries", 3, "maximum provider read attempts")
	pf.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	pf.Duration("http-timeout", 20*time.Second, "HTTP request timeout")
	pf.Uint32("slippage-bps", 500, "slippage tolerance in basis points")
	pf.Int64("fee-buffer", 2_000_000, "lovelace reserved for fees")
	pf.Int64("min-utxo", 1_500_000, "lovelace sent with bought tokens")
	pf.String("journal", "./data/trades.jsonl", "trade journal JSONL path (empty disables)")
	pf.String("pg-dsn", "", "Postgres DSN for the trade journal")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")

	pf.String("policy-id", "", "pool token policy id")
	pf.String("token-name", "PUMP", "pool token name")
	pf.String("script-address", "", "pool script address")
	pf.String("utxo-tx-hash", "", "one-shot output tx hash the pool was minted from")
	pf.Uint32("utxo-index", 0, "one-shot output index")
	pf.String("slope", "", "expected curve slope")

	root.AddCommand(newMintCmd(), newBuyCmd(), newSellCmd(), newQuoteCmd(), newQueryCmd(), newCurveCmd(), newHistoryCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// app is the wired runtime shared by every subcommand.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	chain   *chain.Client
	wallet  wallet.Wallet
	engine  *engine.Engine
	journal *storage.JsonlStorage
	store   *postgres.Store
}

func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project id is required")
	}
	network, err := address.ParseNetwork(cfg.Network)
	if err != nil {
		return nil, err
	}

	chainClient, err := chain.NewClient(chain.Config{
		BaseURL:      cfg.BlockfrostURL,
		ProjectID:    cfg.ProjectID,
		Timeout:      cfg.HTTPTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("blockfrost client: %w", err)
	}

	bp, err := blueprint.Load(cfg.Blueprint)
	if err != nil {
		return nil, err
	}
	scripts, err := blueprint.NewApplier(bp, 0)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, chain: chainClient}

	var sinks storage.Fanout
	if cfg.Journal != "" {
		a.journal = storage.NewJsonlStorage(cfg.Journal)
		sinks = append(sinks, a.journal)
	}
	if cfg.PgDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PgDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
		a.store = store
		sinks = append(sinks, store)
	}

	if cfg.WalletURL != "" {
		bridge, err := wallet.NewBridge(cfg.WalletURL, cfg.HTTPTimeout, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		submitVia, _ := cmd.Flags().GetString("submit-via")
		a.wallet = bridge
		if submitVia == "blockfrost" {
			a.wallet = wallet.WithSubmitter(bridge, chainClient)
		}
	}

	params := engine.DefaultParams()
	params.Network = network
	params.SlippageBps = cfg.SlippageBps
	params.FeeBuffer = cfg.FeeBuffer
	params.MinUtxoLovelace = cfg.MinUtxo

	var journal storage.Storage
	if len(sinks) > 0 {
		journal = sinks
	}
	eng, err := engine.New(chainClient, scripts, params, journal, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.engine = eng

	logger.Debug("runtime ready",
		zap.String("network", string(network)),
		zap.String("blockfrost", cfg.BlockfrostURL),
		zap.String("wallet", cfg.WalletURL),
		zap.String("blueprint", cfg.Blueprint),
		zap.String("pg_dsn", redactDSN(cfg.PgDSN)),
	)
	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
	_ = a.logger.Sync()
}

// session builds a session for the configured pool. requirePool controls
// whether missing pool keys are an error.
func (a *app) session(requirePool bool) (*engine.Session, error) {
	s := engine.NewSession(a.wallet, nil)
	if !requirePool {
		return s, nil
	}
	pc, err := a.cfg.PoolConfig()
	if err != nil {
		return nil, err
	}
	s.SelectPool(pc)
	return s, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
