package dex

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"pegfee/internal/fee"
)

// ChainlinkOracle reads latestRoundData from an aggregator, optionally pinned
// to a block so historical scans see the answer the pool saw.
type ChainlinkOracle struct {
	caller      ContractCaller
	aggregator  common.Address
	blockNumber uint64
	logger      *zap.Logger
}

var _ fee.Oracle = (*ChainlinkOracle)(nil)

// NewChainlinkOracle builds an oracle reader. blockNumber 0 reads latest.
func NewChainlinkOracle(caller ContractCaller, aggregator common.Address, blockNumber uint64, logger *zap.Logger) *ChainlinkOracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChainlinkOracle{
		caller:      caller,
		aggregator:  aggregator,
		blockNumber: blockNumber,
		logger:      logger,
	}
}

// AtBlock returns a copy pinned to blockNumber.
func (o *ChainlinkOracle) AtBlock(blockNumber uint64) *ChainlinkOracle {
	clone := *o
	clone.blockNumber = blockNumber
	return &clone
}

// LatestReading implements fee.Oracle.
func (o *ChainlinkOracle) LatestReading(ctx context.Context) (fee.Reading, error) {
	parsed, err := AggregatorABI()
	if err != nil {
		return fee.Reading{}, fmt.Errorf("parse aggregator abi: %w", err)
	}

	values, err := callMethod(ctx, o.caller, o.aggregator, parsed, "latestRoundData", blockArg(o.blockNumber))
	if err != nil {
		return fee.Reading{}, err
	}
	if len(values) != 5 {
		return fee.Reading{}, fmt.Errorf("latestRoundData return size %d", len(values))
	}

	answer, err := asBigInt(values[1])
	if err != nil {
		return fee.Reading{}, fmt.Errorf("answer: %w", err)
	}
	updatedAt, err := asBigInt(values[3])
	if err != nil {
		return fee.Reading{}, fmt.Errorf("updatedAt: %w", err)
	}
	if !updatedAt.IsInt64() {
		return fee.Reading{}, fmt.Errorf("updatedAt %s out of range", updatedAt)
	}

	o.logger.Debug("oracle reading",
		zap.String("aggregator", o.aggregator.Hex()),
		zap.Uint64("block_number", o.blockNumber),
		zap.String("answer", answer.String()),
		zap.Int64("updated_at", updatedAt.Int64()),
	)

	return fee.Reading{Rate: answer, UpdatedAt: time.Unix(updatedAt.Int64(), 0)}, nil
}

// FetchOracleDecimals reads the aggregator's answer decimals.
func FetchOracleDecimals(ctx context.Context, caller ContractCaller, aggregator common.Address) (uint8, error) {
	parsed, err := AggregatorABI()
	if err != nil {
		return 0, fmt.Errorf("parse aggregator abi: %w", err)
	}
	values, err := callMethod(ctx, caller, aggregator, parsed, "decimals", nil)
	if err != nil {
		return 0, err
	}
	return asUint8(values[0])
}
