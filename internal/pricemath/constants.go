package pricemath

import "github.com/holiman/uint256"

var (
	// Q96 is 2^96, the fixed-point scale of a SqrtPrice.
	Q96 = new(uint256.Int).Lsh(uint256.NewInt(1), 96)
	// Q192 is 2^192, the scale of a squared SqrtPrice.
	Q192 = new(uint256.Int).Lsh(uint256.NewInt(1), 192)

	// WAD is 1e18, the scale of exchange rates and fractions.
	WAD = uint256.NewInt(1_000_000_000_000_000_000)

	// MaxSqrtPrice bounds a SqrtPrice to 160 bits.
	MaxSqrtPrice = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 160), uint256.NewInt(1))
)

const wadDecimals = 18
