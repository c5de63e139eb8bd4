package pricemath

import (
	"fmt"

	"github.com/holiman/uint256"
)

// ExchangeRateToSqrtPrice converts an 18-decimal exchange rate into the pool's
// Q64.96 square-root price: floor(sqrt(rate/1e18) * 2^96).
//
// The result is isqrt(floor(rate * 2^192 / 1e18)), which equals the floor of the
// real-valued square root because flooring before an integer square root does
// not change the result.
func ExchangeRateToSqrtPrice(rate *uint256.Int) (*uint256.Int, error) {
	if rate == nil || rate.IsZero() {
		return nil, fmt.Errorf("%w: exchange rate is zero", ErrDomain)
	}

	scaled, err := MulDiv(rate, Q192, WAD)
	if err != nil {
		return nil, fmt.Errorf("scale exchange rate %s: %w", rate.Dec(), err)
	}

	sqrtPrice := new(uint256.Int).Sqrt(scaled)
	if sqrtPrice.IsZero() {
		return nil, fmt.Errorf("%w: exchange rate %s is below the smallest sqrt price", ErrDomain, rate.Dec())
	}
	if sqrtPrice.Gt(MaxSqrtPrice) {
		return nil, fmt.Errorf("%w: sqrt price for rate %s exceeds 160 bits", ErrDomain, rate.Dec())
	}
	return sqrtPrice, nil
}

// SqrtPriceToExchangeRate is the inverse conversion: floor(sqrtPrice^2 * 1e18 / 2^192).
func SqrtPriceToExchangeRate(sqrtPrice *uint256.Int) (*uint256.Int, error) {
	if sqrtPrice == nil || sqrtPrice.IsZero() {
		return nil, fmt.Errorf("%w: sqrt price is zero", ErrDomain)
	}
	if sqrtPrice.Gt(MaxSqrtPrice) {
		return nil, fmt.Errorf("%w: sqrt price %s exceeds 160 bits", ErrDomain, sqrtPrice.Dec())
	}

	if sqrtPrice.BitLen() <= 128 {
		priceX192 := new(uint256.Int).Mul(sqrtPrice, sqrtPrice)
		return MulDiv(priceX192, WAD, Q192)
	}
	priceX96, err := MulDiv(sqrtPrice, sqrtPrice, Q96)
	if err != nil {
		return nil, err
	}
	return MulDiv(priceX96, WAD, Q96)
}

// AbsPercentageDifference returns |a^2 - b^2| / b^2 as an 18-decimal fraction,
// where a and b are square-root prices. 1e18 means 100%.
//
// It is evaluated as (|a-b| * (a+b) / b) * 1e18 / b so the squared prices are
// never materialised.
func AbsPercentageDifference(a, b *uint256.Int) (*uint256.Int, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("%w: nil sqrt price", ErrDomain)
	}
	if b.IsZero() {
		return nil, fmt.Errorf("%w: reference sqrt price is zero", ErrDomain)
	}

	var diff uint256.Int
	if a.Lt(b) {
		diff.Sub(b, a)
	} else {
		diff.Sub(a, b)
	}
	if diff.IsZero() {
		return new(uint256.Int), nil
	}

	sum, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, fmt.Errorf("%w: sqrt price sum overflows 256 bits", ErrDomain)
	}

	partial, err := MulDiv(&diff, sum, b)
	if err != nil {
		return nil, fmt.Errorf("price difference: %w", err)
	}
	fraction, err := MulDiv(partial, WAD, b)
	if err != nil {
		return nil, fmt.Errorf("price difference fraction: %w", err)
	}
	return fraction, nil
}
