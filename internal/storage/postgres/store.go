package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pegfee/internal/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS fee_quotes (
	id TEXT PRIMARY KEY,
	chain_id BIGINT NOT NULL,
	pool_address TEXT NOT NULL,
	block_number BIGINT NOT NULL,
	direction TEXT NOT NULL,
	block_ts BIGINT NOT NULL,
	oracle_address TEXT NOT NULL,
	fee_pips INTEGER NOT NULL,
	reason TEXT NOT NULL,
	pool_sqrt_price_x96 NUMERIC(78, 0) NOT NULL,
	reference_sqrt_price_x96 NUMERIC(78, 0),
	deviation NUMERIC(78, 0),
	oracle_rate NUMERIC(78, 0),
	oracle_updated_at BIGINT,
	quoted_at TIMESTAMPTZ NOT NULL,
	UNIQUE (chain_id, pool_address, block_number, direction)
);

CREATE TABLE IF NOT EXISTS scan_state (
	name TEXT PRIMARY KEY,
	last_processed_block BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`

// Store provides Postgres persistence for fee quotes.
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

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PutQuoteBatch upserts quotes keyed by chain, pool, block and direction.
func (s *Store) PutQuoteBatch(ctx context.Context, quotes []model.FeeQuote) error {
	if len(quotes) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, q := range quotes {
		quotedAt, err := time.Parse(time.RFC3339Nano, q.QuotedAt)
		if err != nil {
			return fmt.Errorf("quote %s quoted_at: %w", q.ID, err)
		}
		batch.Queue(`
			INSERT INTO fee_quotes (
				id, chain_id, pool_address, block_number, direction, block_ts, oracle_address,
				fee_pips, reason, pool_sqrt_price_x96, reference_sqrt_price_x96, deviation,
				oracle_rate, oracle_updated_at, quoted_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
			ON CONFLICT (chain_id, pool_address, block_number, direction)
			DO UPDATE SET
				block_ts = EXCLUDED.block_ts,
				oracle_address = EXCLUDED.oracle_address,
				fee_pips = EXCLUDED.fee_pips,
				reason = EXCLUDED.reason,
				pool_sqrt_price_x96 = EXCLUDED.pool_sqrt_price_x96,
				reference_sqrt_price_x96 = EXCLUDED.reference_sqrt_price_x96,
				deviation = EXCLUDED.deviation,
				oracle_rate = EXCLUDED.oracle_rate,
				oracle_updated_at = EXCLUDED.oracle_updated_at,
				quoted_at = EXCLUDED.quoted_at
		`,
			q.ID,
			int64(q.ChainID),
			q.PoolAddress,
			int64(q.BlockNumber),
			q.Direction,
			int64(q.Timestamp),
			q.OracleAddress,
			int32(q.FeePips),
			q.Reason,
			q.PoolSqrtPriceX96,
			nullableNumeric(q.ReferenceSqrtPriceX96),
			nullableNumeric(q.Deviation),
			nullableNumeric(q.OracleRate),
			nullableInt(q.OracleUpdatedAt),
			quotedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range quotes {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns last_processed_block for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var block int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_block FROM scan_state WHERE name=$1`, name)
	if err := row.Scan(&block); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(block), true, nil
}

// SaveState upserts last_processed_block for a name.
func (s *Store) SaveState(ctx context.Context, name string, block uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scan_state (name, last_processed_block, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_block = EXCLUDED.last_processed_block, updated_at = now()
	`, name, int64(block))
	return err
}

func nullableNumeric(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func nullableInt(value uint64) *int64 {
	if value == 0 {
		return nil
	}
	v := int64(value)
	return &v
}
