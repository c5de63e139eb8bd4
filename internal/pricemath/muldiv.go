package pricemath

import (
	"fmt"

	"github.com/holiman/uint256"
)

// MulDiv returns floor(x*y/d) using a 512-bit intermediate product.
func MulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if x == nil || y == nil || d == nil {
		return nil, fmt.Errorf("%w: nil operand", ErrDomain)
	}
	if d.IsZero() {
		return nil, fmt.Errorf("%w: division by zero", ErrDomain)
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, fmt.Errorf("%w: mulDiv(%s, %s, %s) overflows 256 bits", ErrDomain, x.Dec(), y.Dec(), d.Dec())
	}
	return z, nil
}

// Mul returns x*y, failing instead of wrapping.
func Mul(x, y *uint256.Int) (*uint256.Int, error) {
	if x == nil || y == nil {
		return nil, fmt.Errorf("%w: nil operand", ErrDomain)
	}
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, fmt.Errorf("%w: mul(%s, %s) overflows 256 bits", ErrDomain, x.Dec(), y.Dec())
	}
	return z, nil
}
