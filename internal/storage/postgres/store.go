package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pumpCurve/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS trade_receipts (
	tx_hash        TEXT PRIMARY KEY,
	kind           TEXT NOT NULL,
	policy_id      TEXT NOT NULL,
	token_name     TEXT NOT NULL,
	script_address TEXT NOT NULL,
	amount         NUMERIC NOT NULL,
	settlement     NUMERIC NOT NULL,
	limit_amount   NUMERIC NOT NULL,
	supply_before  NUMERIC NOT NULL,
	supply_after   NUMERIC NOT NULL,
	trader         TEXT NOT NULL,
	submitted_at   TIMESTAMPTZ NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS trade_receipts_policy_idx ON trade_receipts (policy_id, submitted_at DESC);
`

// Store provides Postgres persistence for the trade journal.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the journal table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PutReceipts inserts or updates receipts keyed by transaction hash.
func (s *Store) PutReceipts(ctx context.Context, receipts []model.TradeReceipt) error {
	if len(receipts) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range receipts {
		submitted, err := parseSubmittedAt(r.SubmittedAt)
		if err != nil {
			return fmt.Errorf("receipt %s: %w", r.TxHash, err)
		}
		batch.Queue(`
			INSERT INTO trade_receipts (
				tx_hash, kind, policy_id, token_name, script_address, amount, settlement,
				limit_amount, supply_before, supply_after, trader, submitted_at, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8::numeric, $9::numeric, $10::numeric, $11, $12, now(), now())
			ON CONFLICT (tx_hash)
			DO UPDATE SET
				kind = EXCLUDED.kind,
				amount = EXCLUDED.amount,
				settlement = EXCLUDED.settlement,
				limit_amount = EXCLUDED.limit_amount,
				supply_before = EXCLUDED.supply_before,
				supply_after = EXCLUDED.supply_after,
				updated_at = now()
		`,
			r.TxHash,
			string(r.Kind),
			r.PolicyID,
			r.TokenName,
			r.ScriptAddress,
			numeric(r.Amount),
			numeric(r.Settlement),
			numeric(r.Limit),
			numeric(r.SupplyBefore),
			numeric(r.SupplyAfter),
			r.Trader,
			submitted,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range receipts {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// ListReceipts returns the newest receipts first, optionally for one policy.
func (s *Store) ListReceipts(ctx context.Context, policyID string, limit int) ([]model.TradeReceipt, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT tx_hash, kind, policy_id, token_name, script_address,
			amount::text, settlement::text, limit_amount::text,
			supply_before::text, supply_after::text, trader, submitted_at
		FROM trade_receipts
		WHERE $1 = '' OR policy_id = $1
		ORDER BY submitted_at DESC
		LIMIT $2
	`, policyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TradeReceipt
	for rows.Next() {
		var (
			r         model.TradeReceipt
			kind      string
			submitted time.Time
		)
		if err := rows.Scan(
			&r.TxHash, &kind, &r.PolicyID, &r.TokenName, &r.ScriptAddress,
			&r.Amount, &r.Settlement, &r.Limit, &r.SupplyBefore, &r.SupplyAfter,
			&r.Trader, &submitted,
		); err != nil {
			return nil, err
		}
		r.Kind = model.TradeKind(kind)
		r.SubmittedAt = submitted.UTC().Format(time.RFC3339)
		out = append(out, r)
	}
	return out, rows.Err()
}

func numeric(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

func parseSubmittedAt(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	return time.Parse(time.RFC3339, s)
}
