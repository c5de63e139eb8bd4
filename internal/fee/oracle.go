package fee

import (
	"context"
	"errors"
	"math/big"
	"time"
)

// ErrInvalidReading reports an oracle answer that cannot be converted.
var ErrInvalidReading = errors.New("invalid oracle reading")

// Reading is one oracle answer.
type Reading struct {
	Rate      *big.Int
	UpdatedAt time.Time
}

// Stale reports whether the reading is older than the tolerated window at now.
// A reading exactly staleDuration old is still fresh.
func (r Reading) Stale(staleDuration time.Duration, now time.Time) bool {
	return r.UpdatedAt.Add(staleDuration).Before(now)
}

// LatestReading lets a pre-fetched Reading act as an Oracle.
func (r Reading) LatestReading(context.Context) (Reading, error) {
	return r, nil
}

// Oracle supplies the reference exchange rate.
type Oracle interface {
	LatestReading(ctx context.Context) (Reading, error)
}

// OracleFunc adapts a function to Oracle.
type OracleFunc func(ctx context.Context) (Reading, error)

func (f OracleFunc) LatestReading(ctx context.Context) (Reading, error) {
	return f(ctx)
}
