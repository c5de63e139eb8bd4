package pricemath

import "errors"

// ErrDomain reports a numeric precondition violated by the inputs.
var ErrDomain = errors.New("price math domain error")
