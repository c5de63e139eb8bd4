package dex

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"pegfee/internal/model"
	"pegfee/internal/pricemath"
)

type fakeCaller struct {
	t       *testing.T
	parsed  abi.ABI
	outputs map[string][]interface{}
	blocks  []*big.Int
	calls   int
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.calls++
	f.blocks = append(f.blocks, blockNumber)
	method, err := f.parsed.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	values, ok := f.outputs[method.Name]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	out, err := method.Outputs.Pack(values...)
	if err != nil {
		f.t.Fatalf("pack %s: %v", method.Name, err)
	}
	return out, nil
}

func newPoolCaller(t *testing.T, outputs map[string][]interface{}) *fakeCaller {
	parsed, err := PoolABI()
	if err != nil {
		t.Fatalf("pool abi: %v", err)
	}
	return &fakeCaller{t: t, parsed: parsed, outputs: outputs}
}

func newAggregatorCaller(t *testing.T, outputs map[string][]interface{}) *fakeCaller {
	parsed, err := AggregatorABI()
	if err != nil {
		t.Fatalf("aggregator abi: %v", err)
	}
	return &fakeCaller{t: t, parsed: parsed, outputs: outputs}
}

func TestFetchSqrtPrice(t *testing.T) {
	sqrtPrice := new(big.Int).Mul(pricemath.Q96.ToBig(), big.NewInt(50))
	caller := newPoolCaller(t, map[string][]interface{}{
		"slot0": {sqrtPrice, big.NewInt(78244), uint16(1), uint16(1), uint16(1), uint8(0), true},
	})

	pool := common.HexToAddress("0x1111111111111111111111111111111111111111")
	got, err := FetchSqrtPrice(context.Background(), caller, pool, 19000000)
	if err != nil {
		t.Fatalf("fetch sqrt price: %v", err)
	}
	if got.ToBig().Cmp(sqrtPrice) != 0 {
		t.Fatalf("sqrt price mismatch: %s", got.Dec())
	}
	if caller.blocks[0] == nil || caller.blocks[0].Uint64() != 19000000 {
		t.Fatalf("call not pinned to block: %v", caller.blocks[0])
	}

	if _, err := FetchSqrtPrice(context.Background(), caller, pool, 0); err != nil {
		t.Fatalf("latest fetch: %v", err)
	}
	if caller.blocks[1] != nil {
		t.Fatalf("block 0 should read latest")
	}
}

func TestFetchPoolTokens(t *testing.T) {
	token0 := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	token1 := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	caller := newPoolCaller(t, map[string][]interface{}{
		"token0": {token0},
		"token1": {token1},
	})

	pool := common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokens, err := FetchPoolTokens(context.Background(), caller, pool)
	if err != nil {
		t.Fatalf("fetch tokens: %v", err)
	}
	if tokens.Token0 != token0 || tokens.Token1 != token1 {
		t.Fatalf("tokens mismatch: %+v", tokens)
	}
	if caller.calls != 2 {
		t.Fatalf("expected 2 chain calls, got %d", caller.calls)
	}
}

func TestDerivativeIsToken0(t *testing.T) {
	tokens := model.PoolTokens{
		Token0: common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		Token1: common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"),
	}
	if ok, err := DerivativeIsToken0(tokens, tokens.Token0); err != nil || !ok {
		t.Fatalf("token0: %v %v", ok, err)
	}
	if ok, err := DerivativeIsToken0(tokens, tokens.Token1); err != nil || ok {
		t.Fatalf("token1: %v %v", ok, err)
	}
	if _, err := DerivativeIsToken0(tokens, common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")); err == nil {
		t.Fatalf("expected error for foreign derivative")
	}
}

func TestChainlinkOracle(t *testing.T) {
	updatedAt := int64(1_700_000_000)
	caller := newAggregatorCaller(t, map[string][]interface{}{
		"latestRoundData": {
			big.NewInt(42),
			big.NewInt(250_000_000_000),
			big.NewInt(updatedAt - 10),
			big.NewInt(updatedAt),
			big.NewInt(42),
		},
		"decimals": {uint8(8)},
	})

	aggregator := common.HexToAddress("0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419")
	oracle := NewChainlinkOracle(caller, aggregator, 0, zap.NewNop()).AtBlock(123)

	reading, err := oracle.LatestReading(context.Background())
	if err != nil {
		t.Fatalf("latest reading: %v", err)
	}
	if reading.Rate.Cmp(big.NewInt(250_000_000_000)) != 0 {
		t.Fatalf("rate mismatch: %s", reading.Rate)
	}
	if !reading.UpdatedAt.Equal(time.Unix(updatedAt, 0)) {
		t.Fatalf("updatedAt mismatch: %s", reading.UpdatedAt)
	}
	if caller.blocks[0].Uint64() != 123 {
		t.Fatalf("oracle not pinned to block")
	}

	decimals, err := FetchOracleDecimals(context.Background(), caller, aggregator)
	if err != nil {
		t.Fatalf("decimals: %v", err)
	}
	if decimals != 8 {
		t.Fatalf("decimals = %d", decimals)
	}
}

func TestChainlinkOracleCallError(t *testing.T) {
	caller := newAggregatorCaller(t, map[string][]interface{}{})
	oracle := NewChainlinkOracle(caller, common.Address{}, 0, nil)
	if _, err := oracle.LatestReading(context.Background()); err == nil {
		t.Fatalf("expected error from reverted call")
	}
	if _, err := NewChainlinkOracle(nil, common.Address{}, 0, nil).LatestReading(context.Background()); err == nil {
		t.Fatalf("expected error for nil caller")
	}
}
