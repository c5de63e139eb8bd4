package pricemath

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestParseRate(t *testing.T) {
	got, err := ParseRate("2500", 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Eq(uint256.NewInt(250_000_000_000)) {
		t.Fatalf("got %s", got.Dec())
	}

	got, err = ParseWad("1.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Eq(uint256.NewInt(1_500_000_000_000_000_000)) {
		t.Fatalf("got %s", got.Dec())
	}

	for _, bad := range []string{"", "abc", "-1", "1.123"} {
		if _, err := ParseRate(bad, 2); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestFormat(t *testing.T) {
	if got := FormatRate(wad(2500), 18); got != "2500" {
		t.Fatalf("format rate: %s", got)
	}
	if got := FormatRate(uint256.NewInt(1_500_000_000_000_000_000), 18); got != "1.5" {
		t.Fatalf("format rate: %s", got)
	}
	if got := FormatPips(3000); got != "0.3%" {
		t.Fatalf("format pips: %s", got)
	}
	if got := FormatPips(10000); got != "1%" {
		t.Fatalf("format pips: %s", got)
	}
}
