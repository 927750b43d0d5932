package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"pumpCurve/internal/model"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	BlockfrostURL string
	ProjectID     string
	Network       string
	Blueprint     string
	WalletURL     string
	MaxRetries    uint
	RetryBackoff  time.Duration
	HTTPTimeout   time.Duration
	SlippageBps   uint32
	FeeBuffer     int64
	MinUtxo       int64
	Journal       string
	PgDSN         string
	LogLevel      string

	PolicyID      string
	TokenName     string
	ScriptAddress string
	UtxoTxHash    string
	UtxoIndex     uint32
	Slope         string
}

// LoadDotEnv reads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	if err := LoadDotEnv(""); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("PUMP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("blockfrost-url", "https://cardano-preprod.blockfrost.io/api/v0")
	v.SetDefault("network", "preprod")
	v.SetDefault("blueprint", "./plutus.json")
	v.SetDefault("wallet-url", "http://127.0.0.1:8090")
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("http-timeout", 20*time.Second)
	v.SetDefault("slippage-bps", 500)
	v.SetDefault("fee-buffer", int64(2_000_000))
	v.SetDefault("min-utxo", int64(1_500_000))
	v.SetDefault("journal", "./data/trades.jsonl")
	v.SetDefault("token-name", "PUMP")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("pump")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		BlockfrostURL: strings.TrimRight(v.GetString("blockfrost-url"), "/"),
		ProjectID:     v.GetString("project-id"),
		Network:       strings.ToLower(v.GetString("network")),
		Blueprint:     v.GetString("blueprint"),
		WalletURL:     v.GetString("wallet-url"),
		MaxRetries:    v.GetUint("max-retries"),
		RetryBackoff:  v.GetDuration("retry-backoff"),
		HTTPTimeout:   v.GetDuration("http-timeout"),
		SlippageBps:   v.GetUint32("slippage-bps"),
		FeeBuffer:     v.GetInt64("fee-buffer"),
		MinUtxo:       v.GetInt64("min-utxo"),
		Journal:       v.GetString("journal"),
		PgDSN:         v.GetString("pg-dsn"),
		LogLevel:      v.GetString("log-level"),

		PolicyID:      strings.ToLower(strings.TrimSpace(v.GetString("policy-id"))),
		TokenName:     v.GetString("token-name"),
		ScriptAddress: strings.TrimSpace(v.GetString("script-address")),
		UtxoTxHash:    strings.ToLower(strings.TrimSpace(v.GetString("utxo-tx-hash"))),
		UtxoIndex:     v.GetUint32("utxo-index"),
		Slope:         strings.TrimSpace(v.GetString("slope")),
	}

	return cfg, nil
}

// PoolConfig builds the pool reference from the pool keys.
func (c Config) PoolConfig() (model.PoolConfig, error) {
	pc := model.PoolConfig{
		PolicyID:        c.PolicyID,
		TokenName:       c.TokenName,
		ScriptAddress:   c.ScriptAddress,
		UtxoTxHash:      c.UtxoTxHash,
		UtxoOutputIndex: c.UtxoIndex,
	}
	if c.Slope != "" {
		slope, err := ParseAmount(c.Slope)
		if err != nil {
			return model.PoolConfig{}, fmt.Errorf("slope: %w", err)
		}
		pc.Slope = slope
	}
	if err := pc.Validate(); err != nil {
		return model.PoolConfig{}, fmt.Errorf("pool config: %w", err)
	}
	return pc, nil
}

// ParseAmount parses a non-negative base-10 integer of any size. Underscores
// are accepted as digit separators.
func ParseAmount(s string) (*big.Int, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	if s == "" {
		return nil, fmt.Errorf("amount is empty")
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("amount must be non-negative: %s", s)
	}
	return n, nil
}
