package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"pegfee/internal/model"
)

func sampleQuote() model.FeeQuote {
	return model.FeeQuote{
		ID:                    "id-1",
		ChainID:               1,
		BlockNumber:           19000000,
		Timestamp:             1700000000,
		PoolAddress:           "0x1111111111111111111111111111111111111111",
		OracleAddress:         "0x2222222222222222222222222222222222222222",
		Direction:             "away_from_peg",
		FeePips:               10000,
		Reason:                "deviation",
		PoolSqrtPriceX96:      "4000833247180209519099486617600",
		ReferenceSqrtPriceX96: "3961408125713216879677197516800",
		Deviation:             "20100000000000000",
		OracleRate:            "250000000000",
		OracleUpdatedAt:       1699999940,
		QuotedAt:              "2024-01-01T00:00:00Z",
	}
}

func newTestCache(t *testing.T) *QuoteCache {
	t.Helper()
	srv := miniredis.RunT(t)
	cache, err := NewQuoteCache(context.Background(), ClientConfig{Addr: srv.Addr()})
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestQuoteFieldsRoundTrip(t *testing.T) {
	q := sampleQuote()

	vals := make(map[string]string)
	for k, v := range quoteFields(q) {
		vals[k] = v.(string)
	}
	got, err := quoteFromFields(vals)
	if err != nil {
		t.Fatalf("parse fields: %v", err)
	}
	if got != q {
		t.Fatalf("mismatch: %+v != %+v", got, q)
	}
}

func TestQuoteFromFieldsRejectsGarbage(t *testing.T) {
	if _, err := quoteFromFields(map[string]string{"chain_id": "x"}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestQuoteKey(t *testing.T) {
	q := model.FeeQuote{PoolAddress: "0xpool", Direction: "away_from_peg"}
	if got := quoteKey(q); got != "feequote:0xpool:away_from_peg" {
		t.Fatalf("key mismatch: %s", got)
	}
}

func TestLatestQuoteKeepsNewestPerKey(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	older := sampleQuote()
	older.ID = "id-0"
	older.BlockNumber = 18999999
	newer := sampleQuote()
	toward := sampleQuote()
	toward.ID = "id-2"
	toward.Direction = "toward_peg"
	toward.FeePips = 100
	toward.Reason = "min_direction"
	toward.ReferenceSqrtPriceX96 = ""
	toward.Deviation = ""
	toward.OracleRate = ""
	toward.OracleUpdatedAt = 0

	if err := cache.PutQuoteBatch(ctx, []model.FeeQuote{older, toward, newer}); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := cache.LatestQuote(ctx, newer.PoolAddress, newer.Direction)
	if err != nil || !ok {
		t.Fatalf("latest away: ok=%v err=%v", ok, err)
	}
	if got != newer {
		t.Fatalf("away mismatch: %+v != %+v", got, newer)
	}

	got, ok, err = cache.LatestQuote(ctx, toward.PoolAddress, toward.Direction)
	if err != nil || !ok {
		t.Fatalf("latest toward: ok=%v err=%v", ok, err)
	}
	if got != toward {
		t.Fatalf("toward mismatch: %+v != %+v", got, toward)
	}
}

func TestLatestQuoteMissing(t *testing.T) {
	cache := newTestCache(t)
	_, ok, err := cache.LatestQuote(context.Background(), "0xnone", "toward_peg")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if ok {
		t.Fatalf("expected no quote")
	}
}
