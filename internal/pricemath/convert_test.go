package pricemath

import (
	"errors"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
)

func wad(units uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(units), WAD)
}

func TestExchangeRateToSqrtPriceExactSquares(t *testing.T) {
	cases := []struct {
		name string
		rate *uint256.Int
		want *uint256.Int
	}{
		{"one", wad(1), Q96},
		{"four", wad(4), new(uint256.Int).Lsh(Q96, 1)},
		{"quarter", uint256.NewInt(250_000_000_000_000_000), new(uint256.Int).Rsh(Q96, 1)},
		{"2500", wad(2500), new(uint256.Int).Mul(Q96, uint256.NewInt(50))},
	}

	for _, tc := range cases {
		got, err := ExchangeRateToSqrtPrice(tc.rate)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if !got.Eq(tc.want) {
			t.Fatalf("%s: got %s want %s", tc.name, got.Dec(), tc.want.Dec())
		}
	}
}

func TestExchangeRateToSqrtPriceDomainErrors(t *testing.T) {
	if _, err := ExchangeRateToSqrtPrice(uint256.NewInt(0)); !errors.Is(err, ErrDomain) {
		t.Fatalf("expected domain error for zero rate, got %v", err)
	}
	if _, err := ExchangeRateToSqrtPrice(nil); !errors.Is(err, ErrDomain) {
		t.Fatalf("expected domain error for nil rate, got %v", err)
	}
	if _, err := ExchangeRateToSqrtPrice(new(uint256.Int).SetAllOne()); !errors.Is(err, ErrDomain) {
		t.Fatalf("expected domain error for overflowing rate, got %v", err)
	}
}

func TestExchangeRateToSqrtPriceIsFloorSqrt(t *testing.T) {
	q192 := new(big.Int).Lsh(big.NewInt(1), 192)
	wadBig := WAD.ToBig()

	rates := []string{
		"1",
		"999999999999999999",
		"1000000000000000001",
		"1234567890123456789",
		"3141592653589793238",
		"2500000000000000000123",
	}
	for _, text := range rates {
		rate := uint256.MustFromDecimal(text)
		got, err := ExchangeRateToSqrtPrice(rate)
		if err != nil {
			t.Fatalf("rate %s: unexpected error: %v", text, err)
		}

		scaled := new(big.Int).Mul(rate.ToBig(), q192)
		scaled.Quo(scaled, wadBig)
		s := got.ToBig()
		if new(big.Int).Mul(s, s).Cmp(scaled) > 0 {
			t.Fatalf("rate %s: sqrt %s squared exceeds target", text, s)
		}
		next := new(big.Int).Add(s, big.NewInt(1))
		if new(big.Int).Mul(next, next).Cmp(scaled) <= 0 {
			t.Fatalf("rate %s: sqrt %s is not the floor", text, s)
		}
	}
}

func TestSqrtPriceRoundTrip(t *testing.T) {
	start := uint256.NewInt(500_000_000_000_000_000)
	end := wad(10)
	step := uint256.MustFromDecimal("123456789012345679")
	one := uint256.NewInt(1)

	for rate := new(uint256.Int).Set(start); !rate.Gt(end); rate = new(uint256.Int).Add(rate, step) {
		sqrtPrice, err := ExchangeRateToSqrtPrice(rate)
		if err != nil {
			t.Fatalf("rate %s: unexpected error: %v", rate.Dec(), err)
		}
		back, err := SqrtPriceToExchangeRate(sqrtPrice)
		if err != nil {
			t.Fatalf("rate %s: inverse failed: %v", rate.Dec(), err)
		}
		if back.Gt(rate) {
			t.Fatalf("rate %s: round trip %s overshoots", rate.Dec(), back.Dec())
		}
		if new(uint256.Int).Sub(rate, back).Gt(one) {
			t.Fatalf("rate %s: round trip %s off by more than one unit", rate.Dec(), back.Dec())
		}
	}
}

func TestSqrtPriceToExchangeRateWide(t *testing.T) {
	sqrtPrice := new(uint256.Int).Lsh(Q96, 40)
	got, err := SqrtPriceToExchangeRate(sqrtPrice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := new(uint256.Int).Mul(new(uint256.Int).Lsh(uint256.NewInt(1), 80), WAD)
	if !got.Eq(want) {
		t.Fatalf("got %s want %s", got.Dec(), want.Dec())
	}

	if _, err := SqrtPriceToExchangeRate(new(uint256.Int).Lsh(uint256.NewInt(1), 160)); !errors.Is(err, ErrDomain) {
		t.Fatalf("expected domain error for 161-bit sqrt price, got %v", err)
	}
}

func TestAbsPercentageDifferenceExact(t *testing.T) {
	twoQ96 := new(uint256.Int).Lsh(Q96, 1)

	cases := []struct {
		name string
		a    *uint256.Int
		b    *uint256.Int
		want *uint256.Int
	}{
		{"equal", Q96, Q96, uint256.NewInt(0)},
		{"price four vs one", twoQ96, Q96, wad(3)},
		{"price one vs four", Q96, twoQ96, uint256.NewInt(750_000_000_000_000_000)},
	}

	for _, tc := range cases {
		got, err := AbsPercentageDifference(tc.a, tc.b)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if !got.Eq(tc.want) {
			t.Fatalf("%s: got %s want %s", tc.name, got.Dec(), tc.want.Dec())
		}
	}
}

func TestAbsPercentageDifferenceMatchesClosedForm(t *testing.T) {
	reference, err := ExchangeRateToSqrtPrice(wad(2500))
	if err != nil {
		t.Fatalf("reference: %v", err)
	}
	wadBig := WAD.ToBig()
	b := reference.ToBig()
	bb := new(big.Int).Mul(b, b)

	pools := []string{"2400", "2499.999", "2500.0001", "2525", "2550", "3000"}
	for _, text := range pools {
		rate, err := ParseWad(text)
		if err != nil {
			t.Fatalf("parse %s: %v", text, err)
		}
		pool, err := ExchangeRateToSqrtPrice(rate)
		if err != nil {
			t.Fatalf("pool %s: %v", text, err)
		}
		got, err := AbsPercentageDifference(pool, reference)
		if err != nil {
			t.Fatalf("pool %s: unexpected error: %v", text, err)
		}

		a := pool.ToBig()
		aa := new(big.Int).Mul(a, a)
		num := new(big.Int).Abs(new(big.Int).Sub(aa, bb))
		num.Mul(num, wadBig)
		want := num.Quo(num, bb)

		delta := new(big.Int).Abs(new(big.Int).Sub(got.ToBig(), want))
		if delta.Cmp(big.NewInt(1)) > 0 {
			t.Fatalf("pool %s: got %s want %s", text, got.Dec(), want)
		}
	}
}

func TestAbsPercentageDifferenceErrors(t *testing.T) {
	if _, err := AbsPercentageDifference(Q96, uint256.NewInt(0)); !errors.Is(err, ErrDomain) {
		t.Fatalf("expected domain error for zero reference, got %v", err)
	}
	if _, err := AbsPercentageDifference(new(uint256.Int).SetAllOne(), uint256.NewInt(1)); !errors.Is(err, ErrDomain) {
		t.Fatalf("expected domain error for overflowing sum, got %v", err)
	}
	huge := new(uint256.Int).Lsh(uint256.NewInt(1), 200)
	if _, err := AbsPercentageDifference(huge, uint256.NewInt(1)); !errors.Is(err, ErrDomain) {
		t.Fatalf("expected domain error for overflowing product, got %v", err)
	}
}
