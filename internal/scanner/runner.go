package scanner

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pegfee/internal/dex"
	"pegfee/internal/fee"
	"pegfee/internal/model"
	"pegfee/internal/pricemath"
	"pegfee/internal/storage"
)

// ChainReader is the subset of *chain.Client the scanner needs.
type ChainReader interface {
	ChainID(ctx context.Context) (uint64, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// RunConfig holds runtime settings for a scan.
type RunConfig struct {
	FromBlock    uint64
	ToBlock      uint64
	Step         uint64
	BatchSize    uint64
	Pool         common.Address
	Oracle       common.Address
	MaxRetries   int
	RetryBackoff time.Duration
}

// Runner replays the fee schedule over a block range and stores the quotes.
type Runner struct {
	cfg        RunConfig
	chain      ChainReader
	engine     *fee.Engine
	storage    storage.Storage
	checkpoint Checkpointer
	logger     *zap.Logger
	oracle     *dex.ChainlinkOracle
}

// NewRunner builds a Runner with its dependencies. checkpoint may be nil.
func NewRunner(cfg RunConfig, chainReader ChainReader, engine *fee.Engine, sink storage.Storage, checkpoint Checkpointer, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		chain:      chainReader,
		engine:     engine,
		storage:    sink,
		checkpoint: checkpoint,
		logger:     logger,
		oracle:     dex.NewChainlinkOracle(chainReader, cfg.Oracle, 0, logger),
	}
}

// Run executes the scan loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.engine == nil {
		return fmt.Errorf("fee engine is nil")
	}
	if r.storage == nil {
		return fmt.Errorf("storage is nil")
	}
	if r.cfg.Step == 0 {
		return fmt.Errorf("step must be greater than zero")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}

	chainID, err := r.chain.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}

	tokens, err := dex.FetchPoolTokens(ctx, r.chain, r.cfg.Pool)
	if err != nil {
		return fmt.Errorf("pool tokens: %w", err)
	}
	derivative := r.engine.Config().Derivative
	derivativeIsToken0, err := dex.DerivativeIsToken0(tokens, derivative)
	if err != nil {
		return err
	}
	r.logger.Info("pool pair",
		zap.String("token0", tokens.Token0.Hex()),
		zap.String("token1", tokens.Token1.Hex()),
		zap.Bool("derivative_is_token0", derivativeIsToken0),
	)

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.chain.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	if r.checkpoint != nil {
		last, ok, err := r.checkpoint.Load(ctx)
		if err != nil {
			return err
		}
		if ok && last >= from {
			from = last + r.cfg.Step
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", last), zap.Uint64("from", from))
		}
	}

	if from > to {
		r.logger.Info("nothing to scan", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	blocks, err := SampleBlocks(BlockRange{From: from, To: to}, r.cfg.Step)
	if err != nil {
		return err
	}

	// Batches are ranges over sample indices, not block numbers.
	batches, err := SplitRange(0, uint64(len(blocks)-1), r.cfg.BatchSize)
	if err != nil {
		return err
	}

	var skipped int
	for _, span := range batches {
		batch := blocks[span.From : span.To+1]

		quotes := make([]model.FeeQuote, 0, 2*len(batch))
		for _, block := range batch {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			blockQuotes, blockSkipped, err := r.quoteBlock(ctx, chainID, block)
			if err != nil {
				return err
			}
			quotes = append(quotes, blockQuotes...)
			skipped += blockSkipped
		}

		if err := r.storage.PutQuoteBatch(ctx, quotes); err != nil {
			return fmt.Errorf("store quotes: %w", err)
		}

		last := batch[len(batch)-1]
		if r.checkpoint != nil {
			if err := r.checkpoint.Save(ctx, last); err != nil {
				return err
			}
		}

		r.logger.Info("batch complete",
			zap.Int("quotes", len(quotes)),
			zap.Uint64("from", batch[0]),
			zap.Uint64("to", last),
			zap.Int("skipped_total", skipped),
		)
	}

	return nil
}

func (r *Runner) quoteBlock(ctx context.Context, chainID uint64, block uint64) ([]model.FeeQuote, int, error) {
	var (
		poolPrice *uint256.Int
		ts        uint64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return withRetry(gctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
			var err error
			poolPrice, err = dex.FetchSqrtPrice(ctx, r.chain, r.cfg.Pool, block)
			if err != nil {
				r.logger.Warn("slot0 fetch failed", zap.Error(err), zap.Uint64("block_number", block))
			}
			return err
		})
	})
	g.Go(func() error {
		return withRetry(gctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
			var err error
			ts, err = r.chain.BlockTimestamp(ctx, block)
			if err != nil {
				r.logger.Warn("block timestamp fetch failed", zap.Error(err), zap.Uint64("block_number", block))
			}
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("block %d: %w", block, err)
	}

	oracle := r.retryingOracle(r.oracle.AtBlock(block))
	meta := QuoteMeta{
		ChainID:     chainID,
		BlockNumber: block,
		Timestamp:   ts,
		Pool:        r.cfg.Pool,
		Oracle:      r.cfg.Oracle,
	}

	quotes := make([]model.FeeQuote, 0, 2)
	skipped := 0
	for _, direction := range []fee.Direction{fee.TowardPeg, fee.AwayFromPeg} {
		decision, err := r.engine.Quote(ctx, fee.Request{
			Direction: direction,
			PoolPrice: poolPrice,
			Oracle:    oracle,
			Now:       time.Unix(int64(ts), 0),
		})
		if errors.Is(err, pricemath.ErrDomain) {
			// No fee is recorded for an unpriceable block.
			r.logger.Error("fee undefined at block",
				zap.Error(err),
				zap.Uint64("block_number", block),
				zap.Stringer("direction", direction),
			)
			skipped++
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("block %d %s: %w", block, direction, err)
		}
		quotes = append(quotes, BuildFeeQuote(meta, direction, poolPrice, decision, time.Now()))
	}
	return quotes, skipped, nil
}

func (r *Runner) retryingOracle(oracle fee.Oracle) fee.Oracle {
	return fee.OracleFunc(func(ctx context.Context) (fee.Reading, error) {
		var reading fee.Reading
		err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
			var err error
			reading, err = oracle.LatestReading(ctx)
			if err != nil {
				r.logger.Warn("oracle read failed", zap.Error(err))
			}
			return err
		})
		return reading, err
	})
}
