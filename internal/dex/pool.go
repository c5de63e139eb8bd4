package dex

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"pegfee/internal/model"
	"pegfee/internal/pricemath"
)

// FetchPoolTokens loads token0 and token1 of a pool.
func FetchPoolTokens(ctx context.Context, caller ContractCaller, pool common.Address) (model.PoolTokens, error) {
	parsed, err := PoolABI()
	if err != nil {
		return model.PoolTokens{}, fmt.Errorf("parse pool abi: %w", err)
	}

	values, err := callMethod(ctx, caller, pool, parsed, "token0", nil)
	if err != nil {
		return model.PoolTokens{}, err
	}
	token0, err := asAddress(values[0])
	if err != nil {
		return model.PoolTokens{}, fmt.Errorf("token0: %w", err)
	}

	values, err = callMethod(ctx, caller, pool, parsed, "token1", nil)
	if err != nil {
		return model.PoolTokens{}, err
	}
	token1, err := asAddress(values[0])
	if err != nil {
		return model.PoolTokens{}, fmt.Errorf("token1: %w", err)
	}

	return model.PoolTokens{Token0: token0, Token1: token1}, nil
}

// DerivativeIsToken0 reports which side of the pair the derivative sits on.
func DerivativeIsToken0(tokens model.PoolTokens, derivative common.Address) (bool, error) {
	switch derivative {
	case tokens.Token0:
		return true, nil
	case tokens.Token1:
		return false, nil
	default:
		return false, fmt.Errorf("derivative %s is not in pool pair %s/%s", derivative.Hex(), tokens.Token0.Hex(), tokens.Token1.Hex())
	}
}

// FetchSqrtPrice reads slot0.sqrtPriceX96 at blockNumber (0 means latest).
func FetchSqrtPrice(ctx context.Context, caller ContractCaller, pool common.Address, blockNumber uint64) (*uint256.Int, error) {
	parsed, err := PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}

	values, err := callMethod(ctx, caller, pool, parsed, "slot0", blockArg(blockNumber))
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("slot0 returned no values")
	}
	raw, err := asBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("sqrtPriceX96: %w", err)
	}
	sqrtPrice, overflow := uint256.FromBig(raw)
	if overflow || sqrtPrice.Gt(pricemath.MaxSqrtPrice) {
		return nil, fmt.Errorf("%w: sqrtPriceX96 %s exceeds 160 bits", pricemath.ErrDomain, raw)
	}
	return sqrtPrice, nil
}
