package main

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"pegfee/internal/fee"
	"pegfee/internal/pricemath"
)

func runSqrtPrice(cmd *cobra.Command, _ []string) error {
	text, _ := cmd.Flags().GetString("rate")
	decimals, _ := cmd.Flags().GetInt32("decimals")
	raw, _ := cmd.Flags().GetBool("raw")

	rate, err := parseRateFlag(text, decimals, raw)
	if err != nil {
		return err
	}

	sqrtPrice, err := pricemath.ExchangeRateToSqrtPrice(rate)
	if err != nil {
		return fmt.Errorf("convert %s: %w", pricemath.FormatRate(rate, 18), err)
	}
	back, err := pricemath.SqrtPriceToExchangeRate(sqrtPrice)
	if err != nil {
		return fmt.Errorf("invert %s: %w", sqrtPrice.Dec(), err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "rate_wad: %s\n", rate.Dec())
	fmt.Fprintf(out, "sqrt_price_x96: %s\n", sqrtPrice.Dec())
	fmt.Fprintf(out, "round_trip_rate: %s\n", pricemath.FormatRate(back, 18))
	return nil
}

// parseRateFlag returns the rate scaled to 18 decimals.
func parseRateFlag(text string, decimals int32, raw bool) (*uint256.Int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("--rate is required")
	}
	if !raw {
		return pricemath.ParseWad(text)
	}

	if decimals < 0 || decimals > 18 {
		return nil, fmt.Errorf("decimals %d out of range [0, 18]", decimals)
	}
	value, err := uint256.FromDecimal(text)
	if err != nil {
		return nil, fmt.Errorf("invalid raw rate %q: %w", text, err)
	}
	factor, err := fee.PriceFactorForDecimals(uint8(decimals))
	if err != nil {
		return nil, err
	}
	return pricemath.Mul(value, factor)
}
