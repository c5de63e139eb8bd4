// Package redis keeps the latest fee quote per pool and direction in Redis.
package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"pegfee/internal/model"
)

// ClientConfig holds connection parameters for the Redis client.
type ClientConfig struct {
	Addr     string
	Password string
	DB       int
}

// QuoteCache stores each quote as a hash at "feequote:{pool}:{direction}".
type QuoteCache struct {
	rdb *redis.Client
}

// NewQuoteCache connects and pings Redis.
func NewQuoteCache(ctx context.Context, cfg ClientConfig) (*QuoteCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &QuoteCache{rdb: rdb}, nil
}

// Close releases the connection pool.
func (c *QuoteCache) Close() error {
	return c.rdb.Close()
}

func quoteKey(q model.FeeQuote) string {
	return "feequote:" + q.Key()
}

// PutQuoteBatch keeps only the newest quote for each key. Batches arrive in
// block order, so later entries overwrite earlier ones.
func (c *QuoteCache) PutQuoteBatch(ctx context.Context, quotes []model.FeeQuote) error {
	if len(quotes) == 0 {
		return nil
	}
	latest := make(map[string]model.FeeQuote, len(quotes))
	for _, q := range quotes {
		latest[quoteKey(q)] = q
	}

	pipe := c.rdb.Pipeline()
	for key, q := range latest {
		pipe.HSet(ctx, key, quoteFields(q))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: put quotes: %w", err)
	}
	return nil
}

// LatestQuote returns the cached quote, or false when none is stored.
func (c *QuoteCache) LatestQuote(ctx context.Context, pool, direction string) (model.FeeQuote, bool, error) {
	key := quoteKey(model.FeeQuote{PoolAddress: pool, Direction: direction})
	vals, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return model.FeeQuote{}, false, fmt.Errorf("redis: get quote %s: %w", key, err)
	}
	if len(vals) == 0 {
		return model.FeeQuote{}, false, nil
	}
	q, err := quoteFromFields(vals)
	if err != nil {
		return model.FeeQuote{}, false, err
	}
	return q, true, nil
}

func quoteFields(q model.FeeQuote) map[string]interface{} {
	return map[string]interface{}{
		"id":                       q.ID,
		"chain_id":                 strconv.FormatUint(q.ChainID, 10),
		"block_number":             strconv.FormatUint(q.BlockNumber, 10),
		"timestamp":                strconv.FormatUint(q.Timestamp, 10),
		"pool_address":             q.PoolAddress,
		"oracle_address":           q.OracleAddress,
		"direction":                q.Direction,
		"fee_pips":                 strconv.FormatUint(uint64(q.FeePips), 10),
		"reason":                   q.Reason,
		"pool_sqrt_price_x96":      q.PoolSqrtPriceX96,
		"reference_sqrt_price_x96": q.ReferenceSqrtPriceX96,
		"deviation":                q.Deviation,
		"oracle_rate":              q.OracleRate,
		"oracle_updated_at":        strconv.FormatUint(q.OracleUpdatedAt, 10),
		"quoted_at":                q.QuotedAt,
	}
}

func quoteFromFields(vals map[string]string) (model.FeeQuote, error) {
	parseUint := func(field string, bits int) (uint64, error) {
		v, err := strconv.ParseUint(vals[field], 10, bits)
		if err != nil {
			return 0, fmt.Errorf("redis: parse %s: %w", field, err)
		}
		return v, nil
	}

	chainID, err := parseUint("chain_id", 64)
	if err != nil {
		return model.FeeQuote{}, err
	}
	block, err := parseUint("block_number", 64)
	if err != nil {
		return model.FeeQuote{}, err
	}
	ts, err := parseUint("timestamp", 64)
	if err != nil {
		return model.FeeQuote{}, err
	}
	fee, err := parseUint("fee_pips", 32)
	if err != nil {
		return model.FeeQuote{}, err
	}
	oracleUpdatedAt, err := parseUint("oracle_updated_at", 64)
	if err != nil {
		return model.FeeQuote{}, err
	}

	return model.FeeQuote{
		ID:                    vals["id"],
		ChainID:               chainID,
		BlockNumber:           block,
		Timestamp:             ts,
		PoolAddress:           vals["pool_address"],
		OracleAddress:         vals["oracle_address"],
		Direction:             vals["direction"],
		FeePips:               uint32(fee),
		Reason:                vals["reason"],
		PoolSqrtPriceX96:      vals["pool_sqrt_price_x96"],
		ReferenceSqrtPriceX96: vals["reference_sqrt_price_x96"],
		Deviation:             vals["deviation"],
		OracleRate:            vals["oracle_rate"],
		OracleUpdatedAt:       oracleUpdatedAt,
		QuotedAt:              vals["quoted_at"],
	}, nil
}
