package scanner

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"pegfee/internal/fee"
	"pegfee/internal/model"
)

// QuoteMeta identifies where a decision was taken.
type QuoteMeta struct {
	ChainID     uint64
	BlockNumber uint64
	Timestamp   uint64
	Pool        common.Address
	Oracle      common.Address
}

// BuildFeeQuote flattens a fee decision into a storable record.
func BuildFeeQuote(meta QuoteMeta, direction fee.Direction, poolPrice *uint256.Int, decision fee.Decision, quotedAt time.Time) model.FeeQuote {
	quote := model.FeeQuote{
		ID:               uuid.NewString(),
		ChainID:          meta.ChainID,
		BlockNumber:      meta.BlockNumber,
		Timestamp:        meta.Timestamp,
		PoolAddress:      meta.Pool.Hex(),
		OracleAddress:    meta.Oracle.Hex(),
		Direction:        direction.String(),
		FeePips:          decision.Fee,
		Reason:           string(decision.Reason),
		PoolSqrtPriceX96: poolPrice.Dec(),
		QuotedAt:         quotedAt.UTC().Format(time.RFC3339Nano),
	}
	if decision.ReferencePrice != nil {
		quote.ReferenceSqrtPriceX96 = decision.ReferencePrice.Dec()
	}
	if decision.Deviation != nil {
		quote.Deviation = decision.Deviation.Dec()
	}
	if decision.Reading != nil {
		if decision.Reading.Rate != nil {
			quote.OracleRate = decision.Reading.Rate.String()
		}
		if ts := decision.Reading.UpdatedAt.Unix(); ts > 0 {
			quote.OracleUpdatedAt = uint64(ts)
		}
	}
	return quote
}
