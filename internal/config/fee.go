package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"pegfee/internal/fee"
)

// FeeSettings holds the raw fee schedule settings shared by every command.
type FeeSettings struct {
	MinFee        uint32
	MaxFee        uint32
	StaleFee      uint32
	StaleDuration time.Duration
	// PriceFactor is a decimal integer; empty means derive it from the
	// oracle's decimals.
	PriceFactor string
	Derivative  string
}

var feeKeys = []string{"min-fee", "max-fee", "stale-fee", "stale-duration", "price-factor", "derivative"}

func setFeeDefaults(v *viper.Viper) {
	v.SetDefault("min-fee", uint32(100))
	v.SetDefault("max-fee", uint32(10000))
	v.SetDefault("stale-fee", uint32(3000))
	v.SetDefault("stale-duration", time.Hour)
}

func loadFeeSettings(v *viper.Viper) FeeSettings {
	return FeeSettings{
		MinFee:        v.GetUint32("min-fee"),
		MaxFee:        v.GetUint32("max-fee"),
		StaleFee:      v.GetUint32("stale-fee"),
		StaleDuration: v.GetDuration("stale-duration"),
		PriceFactor:   strings.TrimSpace(v.GetString("price-factor")),
		Derivative:    strings.TrimSpace(v.GetString("derivative")),
	}
}

// ShadowedFeeKeys lists fee settings present in the config file that are
// also set explicitly on the command line. Flags take precedence, so file
// edits to these keys never take effect.
func ShadowedFeeKeys(v *viper.Viper, flags *pflag.FlagSet) []string {
	if flags == nil {
		return nil
	}
	var shadowed []string
	for _, key := range feeKeys {
		if flags.Changed(key) && v.InConfig(key) {
			shadowed = append(shadowed, key)
		}
	}
	return shadowed
}

// HasPriceFactor reports whether the price factor was set explicitly.
func (s FeeSettings) HasPriceFactor() bool {
	return s.PriceFactor != ""
}

// FeeConfig builds and validates a fee.Config. oracleDecimals is used only
// when no explicit price factor is set.
func (s FeeSettings) FeeConfig(oracleDecimals uint8) (fee.Config, error) {
	var (
		factor *uint256.Int
		err    error
	)
	if s.HasPriceFactor() {
		factor, err = uint256.FromDecimal(s.PriceFactor)
		if err != nil {
			return fee.Config{}, &fee.ConfigError{Field: "price_factor", Reason: fmt.Sprintf("%q is not a decimal integer", s.PriceFactor)}
		}
	} else {
		factor, err = fee.PriceFactorForDecimals(oracleDecimals)
		if err != nil {
			return fee.Config{}, err
		}
	}

	var derivative common.Address
	if s.Derivative != "" {
		if !common.IsHexAddress(s.Derivative) {
			return fee.Config{}, &fee.ConfigError{Field: "derivative", Reason: fmt.Sprintf("invalid address %q", s.Derivative)}
		}
		derivative = common.HexToAddress(s.Derivative)
	}

	cfg := fee.Config{
		Bounds: fee.Bounds{
			MinFee:   s.MinFee,
			MaxFee:   s.MaxFee,
			StaleFee: s.StaleFee,
		},
		StaleDuration: s.StaleDuration,
		PriceFactor:   factor,
		Derivative:    derivative,
	}
	if err := cfg.Validate(); err != nil {
		return fee.Config{}, err
	}
	return cfg, nil
}

// ParseAddress validates a hex address setting.
func ParseAddress(name, input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return common.Address{}, fmt.Errorf("%s address is required", name)
	}
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid %s address: %s", name, input)
	}
	return common.HexToAddress(input), nil
}
