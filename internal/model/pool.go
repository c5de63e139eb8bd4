package model

import "github.com/ethereum/go-ethereum/common"

// PoolTokens is the ordered token pair of a pool.
type PoolTokens struct {
	Token0 common.Address
	Token1 common.Address
}
