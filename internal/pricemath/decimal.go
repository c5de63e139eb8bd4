package pricemath

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// ParseRate parses a human decimal such as "2500.5" into an integer scaled by
// 10^decimals. Digits beyond the scale are rejected rather than truncated.
func ParseRate(text string, decimals int32) (*uint256.Int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("rate is empty")
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", text, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("rate %q is negative", text)
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("rate %q has more than %d decimals", text, decimals)
	}
	out, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, fmt.Errorf("%w: rate %q overflows 256 bits", ErrDomain, text)
	}
	return out, nil
}

// ParseWad parses an 18-decimal rate.
func ParseWad(text string) (*uint256.Int, error) {
	return ParseRate(text, wadDecimals)
}

// FormatRate renders an integer scaled by 10^decimals as a decimal string.
func FormatRate(rate *uint256.Int, decimals int32) string {
	if rate == nil {
		return "0"
	}
	return decimal.NewFromBigInt(rate.ToBig(), -decimals).String()
}

// FormatPips renders a fee in pips as a percentage, e.g. 3000 -> "0.3%".
func FormatPips(pips uint32) string {
	return decimal.New(int64(pips), -4).String() + "%"
}
