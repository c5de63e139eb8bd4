package model

// FeeQuote records the fee a pool would charge for one swap direction at a block.
type FeeQuote struct {
	ID                    string `json:"id"`
	ChainID               uint64 `json:"chain_id"`
	BlockNumber           uint64 `json:"block_number"`
	Timestamp             uint64 `json:"timestamp"`
	PoolAddress           string `json:"pool_address"`
	OracleAddress         string `json:"oracle_address"`
	Direction             string `json:"direction"`
	FeePips               uint32 `json:"fee_pips"`
	Reason                string `json:"reason"`
	PoolSqrtPriceX96      string `json:"pool_sqrt_price_x96"`
	ReferenceSqrtPriceX96 string `json:"reference_sqrt_price_x96,omitempty"`
	Deviation             string `json:"deviation,omitempty"`
	OracleRate            string `json:"oracle_rate,omitempty"`
	OracleUpdatedAt       uint64 `json:"oracle_updated_at,omitempty"`
	QuotedAt              string `json:"quoted_at"`
}

// Key identifies a quote independently of when it was produced.
func (q FeeQuote) Key() string {
	return q.PoolAddress + ":" + q.Direction
}
