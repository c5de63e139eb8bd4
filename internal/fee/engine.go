package fee

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"pegfee/internal/pricemath"
)

// fractionPerPip converts an 18-decimal fraction into pips.
var fractionPerPip = uint256.NewInt(1_000_000_000_000)

// Reason names the branch that produced a fee.
type Reason string

const (
	ReasonDirection      Reason = "min_direction"
	ReasonStale          Reason = "stale"
	ReasonBelowReference Reason = "min_below_reference"
	ReasonDeviation      Reason = "deviation"
)

// Request carries the per-swap inputs.
type Request struct {
	Direction Direction
	// PoolPrice is the pool's current Q64.96 square-root price.
	PoolPrice *uint256.Int
	// Oracle is only consulted for AwayFromPeg swaps.
	Oracle Oracle
	Now    time.Time
}

// Decision is a fee together with the data that produced it.
type Decision struct {
	Fee    uint32
	Reason Reason
	// Reading is nil when the oracle was not consulted.
	Reading *Reading
	// ReferencePrice and Deviation are set once the reading is converted.
	ReferencePrice *uint256.Int
	Deviation      *uint256.Int
}

// Decide runs the fee schedule for one swap against cfg.
func Decide(ctx context.Context, cfg Config, req Request) (Decision, error) {
	bounds := cfg.Bounds
	if req.Direction == TowardPeg {
		return Decision{Fee: bounds.MinFee, Reason: ReasonDirection}, nil
	}

	if req.Oracle == nil {
		return Decision{}, fmt.Errorf("oracle is nil")
	}
	reading, err := req.Oracle.LatestReading(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("read oracle: %w", err)
	}

	if reading.Stale(cfg.StaleDuration, req.Now) {
		return Decision{Fee: bounds.StaleFee, Reason: ReasonStale, Reading: &reading}, nil
	}

	reference, err := ReferencePrice(reading, cfg.PriceFactor)
	if err != nil {
		return Decision{}, err
	}

	if req.PoolPrice == nil {
		return Decision{}, fmt.Errorf("%w: pool price is nil", pricemath.ErrDomain)
	}
	if req.PoolPrice.Gt(pricemath.MaxSqrtPrice) {
		return Decision{}, fmt.Errorf("%w: pool price %s exceeds 160 bits", pricemath.ErrDomain, req.PoolPrice.Dec())
	}
	if req.PoolPrice.Lt(reference) {
		return Decision{
			Fee:            bounds.MinFee,
			Reason:         ReasonBelowReference,
			Reading:        &reading,
			ReferencePrice: reference,
		}, nil
	}

	deviation, err := pricemath.AbsPercentageDifference(req.PoolPrice, reference)
	if err != nil {
		return Decision{}, fmt.Errorf("deviation from reference: %w", err)
	}

	return Decision{
		Fee:            feeFromDeviation(deviation, bounds),
		Reason:         ReasonDeviation,
		Reading:        &reading,
		ReferencePrice: reference,
		Deviation:      deviation,
	}, nil
}

// Compute returns only the fee from Decide.
func Compute(ctx context.Context, cfg Config, req Request) (uint32, error) {
	decision, err := Decide(ctx, cfg, req)
	if err != nil {
		return 0, err
	}
	return decision.Fee, nil
}

// ReferencePrice converts an oracle reading into a square-root price.
func ReferencePrice(reading Reading, priceFactor *uint256.Int) (*uint256.Int, error) {
	if reading.Rate == nil || reading.Rate.Sign() < 0 {
		return nil, fmt.Errorf("%w: %w: rate %v", pricemath.ErrDomain, ErrInvalidReading, reading.Rate)
	}
	rate, overflow := uint256.FromBig(reading.Rate)
	if overflow {
		return nil, fmt.Errorf("%w: oracle rate %s overflows 256 bits", pricemath.ErrDomain, reading.Rate)
	}
	scaled, err := pricemath.Mul(rate, priceFactor)
	if err != nil {
		return nil, fmt.Errorf("scale oracle rate: %w", err)
	}
	reference, err := pricemath.ExchangeRateToSqrtPrice(scaled)
	if err != nil {
		return nil, fmt.Errorf("reference price: %w", err)
	}
	return reference, nil
}

// feeFromDeviation truncates an 18-decimal fraction to pips and clamps it to
// [MinFee, MaxFee]. Truncation rounds toward zero, so 4.999999 pips is 4.
func feeFromDeviation(deviation *uint256.Int, bounds Bounds) uint32 {
	pips := new(uint256.Int).Div(deviation, fractionPerPip)
	if !pips.IsUint64() || pips.Uint64() > uint64(bounds.MaxFee) {
		return bounds.MaxFee
	}
	fee := uint32(pips.Uint64())
	if fee < bounds.MinFee {
		return bounds.MinFee
	}
	return fee
}

// Engine serves fee decisions against a configuration that can be replaced
// as a whole while calls are in flight.
type Engine struct {
	cfg    atomic.Pointer[Config]
	logger *zap.Logger
}

// NewEngine validates cfg and returns an Engine.
func NewEngine(cfg Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{logger: logger}
	if err := e.Update(cfg); err != nil {
		return nil, err
	}
	return e, nil
}

// Update validates cfg and swaps it in. A rejected config leaves the current
// one in place.
func (e *Engine) Update(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	snapshot := cfg
	snapshot.PriceFactor = cfg.PriceFactor.Clone()
	e.cfg.Store(&snapshot)

	e.logger.Info("fee config applied",
		zap.Uint32("min_fee", cfg.Bounds.MinFee),
		zap.Uint32("max_fee", cfg.Bounds.MaxFee),
		zap.Uint32("stale_fee", cfg.Bounds.StaleFee),
		zap.Duration("stale_duration", cfg.StaleDuration),
		zap.String("price_factor", cfg.PriceFactor.Dec()),
		zap.String("derivative", cfg.Derivative.Hex()),
	)
	return nil
}

// Config returns a copy of the active configuration, or the zero Config for
// an Engine not built with NewEngine.
func (e *Engine) Config() Config {
	current := e.cfg.Load()
	if current == nil {
		return Config{}
	}
	cfg := *current
	cfg.PriceFactor = cfg.PriceFactor.Clone()
	return cfg
}

// Quote decides the fee for req against a single configuration snapshot.
func (e *Engine) Quote(ctx context.Context, req Request) (Decision, error) {
	cfg := e.cfg.Load()
	if cfg == nil {
		return Decision{}, fmt.Errorf("%w: engine has no configuration", ErrConfiguration)
	}
	decision, err := Decide(ctx, *cfg, req)
	if err != nil {
		return Decision{}, err
	}
	e.logger.Debug("fee decided",
		zap.Stringer("direction", req.Direction),
		zap.String("reason", string(decision.Reason)),
		zap.Uint32("fee", decision.Fee),
	)
	return decision, nil
}

// ComputeFee returns the fee in pips for req.
func (e *Engine) ComputeFee(ctx context.Context, req Request) (uint32, error) {
	decision, err := e.Quote(ctx, req)
	if err != nil {
		return 0, err
	}
	return decision.Fee, nil
}
