package fee

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// PipsDenominator is 100% expressed in pips.
const PipsDenominator = 1_000_000

// ErrConfiguration is wrapped by every ConfigError.
var ErrConfiguration = errors.New("invalid fee configuration")

// ConfigError describes a rejected configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrConfiguration, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}

// Bounds holds the fee band in pips.
type Bounds struct {
	MinFee   uint32 `json:"min_fee"`
	MaxFee   uint32 `json:"max_fee"`
	StaleFee uint32 `json:"stale_fee"`
}

// Validate checks the band ordering.
func (b Bounds) Validate() error {
	if b.MaxFee > PipsDenominator {
		return &ConfigError{Field: "max_fee", Reason: fmt.Sprintf("%d exceeds %d pips", b.MaxFee, PipsDenominator)}
	}
	if b.MinFee > b.MaxFee {
		return &ConfigError{Field: "min_fee", Reason: fmt.Sprintf("%d is greater than max_fee %d", b.MinFee, b.MaxFee)}
	}
	if b.StaleFee > b.MaxFee {
		return &ConfigError{Field: "stale_fee", Reason: fmt.Sprintf("%d is greater than max_fee %d", b.StaleFee, b.MaxFee)}
	}
	return nil
}

// Config is the immutable input shared by every fee decision.
type Config struct {
	Bounds        Bounds
	StaleDuration time.Duration
	// PriceFactor aligns the oracle's decimals with 18 decimals.
	PriceFactor *uint256.Int
	// Derivative identifies the pegged asset of the pool.
	Derivative common.Address
}

// Validate reports the first invalid field as a *ConfigError.
func (c Config) Validate() error {
	if err := c.Bounds.Validate(); err != nil {
		return err
	}
	if c.StaleDuration <= 0 {
		return &ConfigError{Field: "stale_duration", Reason: "must be greater than zero"}
	}
	if c.PriceFactor == nil || c.PriceFactor.IsZero() {
		return &ConfigError{Field: "price_factor", Reason: "must be greater than zero"}
	}
	return nil
}

// PriceFactorForDecimals returns 10^(18-decimals), the factor that lifts an
// oracle answer with the given decimals to 18 decimals.
func PriceFactorForDecimals(decimals uint8) (*uint256.Int, error) {
	if decimals > 18 {
		return nil, &ConfigError{Field: "price_factor", Reason: fmt.Sprintf("oracle decimals %d exceed 18", decimals)}
	}
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(18-decimals))), nil
}
