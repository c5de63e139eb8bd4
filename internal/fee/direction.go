package fee

// Direction classifies a swap relative to the peg.
type Direction int

const (
	// TowardPeg swaps add the base asset to the pool.
	TowardPeg Direction = iota
	// AwayFromPeg swaps add the derivative to the pool.
	AwayFromPeg
)

func (d Direction) String() string {
	switch d {
	case TowardPeg:
		return "toward_peg"
	case AwayFromPeg:
		return "away_from_peg"
	default:
		return "unknown"
	}
}

// DirectionOf maps a pool swap to a Direction. zeroForOne means token0 is
// sold into the pool.
func DirectionOf(zeroForOne bool, derivativeIsToken0 bool) Direction {
	sellsDerivative := zeroForOne == derivativeIsToken0
	if sellsDerivative {
		return AwayFromPeg
	}
	return TowardPeg
}
