package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pegfee/internal/chain"
	"pegfee/internal/config"
	"pegfee/internal/dex"
	"pegfee/internal/fee"
	"pegfee/internal/pricemath"
)

type quoteInputs struct {
	poolPrice      *uint256.Int
	oracle         fee.Oracle
	oracleDecimals uint8
	now            time.Time

	// zeroForOne maps a direction to the swap flag when the token order is known.
	zeroForOne map[fee.Direction]bool
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	directions, err := parseDirections(cfg.Direction)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var inputs quoteInputs
	if cfg.Offline() {
		inputs, err = offlineInputs(cfg)
	} else {
		if cfg.RPCURL == "" {
			return fmt.Errorf("rpc url is required unless --pool-sqrt-price is set")
		}
		client, dialErr := chain.NewClient(ctx, cfg.RPCURL)
		if dialErr != nil {
			return fmt.Errorf("connect rpc: %w", dialErr)
		}
		defer client.Close()

		inputs, err = chainInputs(ctx, cfg, client, logger)
	}
	if err != nil {
		return err
	}

	feeCfg, err := cfg.Fee.FeeConfig(inputs.oracleDecimals)
	if err != nil {
		return err
	}
	engine, err := fee.NewEngine(feeCfg, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "pool_sqrt_price_x96: %s\n", inputs.poolPrice.Dec())
	if poolRate, err := pricemath.SqrtPriceToExchangeRate(inputs.poolPrice); err == nil {
		fmt.Fprintf(out, "pool_rate: %s\n", pricemath.FormatRate(poolRate, 18))
	}

	for _, direction := range directions {
		decision, err := engine.Quote(ctx, fee.Request{
			Direction: direction,
			PoolPrice: inputs.poolPrice,
			Oracle:    inputs.oracle,
			Now:       inputs.now,
		})
		if err != nil {
			return fmt.Errorf("quote %s: %w", direction, err)
		}
		printDecision(out, direction, decision, inputs)
	}
	return nil
}

func offlineInputs(cfg config.QuoteConfig) (quoteInputs, error) {
	poolPrice, err := uint256.FromDecimal(strings.TrimSpace(cfg.PoolSqrtPrice))
	if err != nil {
		return quoteInputs{}, fmt.Errorf("invalid pool sqrt price %q: %w", cfg.PoolSqrtPrice, err)
	}

	now := time.Now()
	if cfg.Now != "" {
		now, err = config.ParseTimestamp(cfg.Now)
		if err != nil {
			return quoteInputs{}, fmt.Errorf("invalid now: %w", err)
		}
	}

	inputs := quoteInputs{
		poolPrice:      poolPrice,
		oracleDecimals: cfg.OracleDecimals,
		now:            now,
	}
	if cfg.OracleRate == "" {
		// Toward-peg quotes never read the oracle.
		inputs.oracle = fee.OracleFunc(func(context.Context) (fee.Reading, error) {
			return fee.Reading{}, fmt.Errorf("oracle rate is required for away-from-peg quotes")
		})
		return inputs, nil
	}

	rate, err := pricemath.ParseRate(cfg.OracleRate, int32(cfg.OracleDecimals))
	if err != nil {
		return quoteInputs{}, err
	}
	updatedAt := now
	if cfg.OracleUpdatedAt != "" {
		updatedAt, err = config.ParseTimestamp(cfg.OracleUpdatedAt)
		if err != nil {
			return quoteInputs{}, fmt.Errorf("invalid oracle updated at: %w", err)
		}
	}
	inputs.oracle = fee.Reading{Rate: rate.ToBig(), UpdatedAt: updatedAt}
	return inputs, nil
}

func chainInputs(ctx context.Context, cfg config.QuoteConfig, client *chain.Client, logger *zap.Logger) (quoteInputs, error) {
	pool, err := config.ParseAddress("pool", cfg.Pool)
	if err != nil {
		return quoteInputs{}, err
	}
	aggregator, err := config.ParseAddress("oracle", cfg.Oracle)
	if err != nil {
		return quoteInputs{}, err
	}

	block := cfg.Block
	if block == 0 {
		block, err = client.LatestBlockNumber(ctx)
		if err != nil {
			return quoteInputs{}, fmt.Errorf("latest block: %w", err)
		}
	}
	ts, err := client.BlockTimestamp(ctx, block)
	if err != nil {
		return quoteInputs{}, fmt.Errorf("block %d timestamp: %w", block, err)
	}
	poolPrice, err := dex.FetchSqrtPrice(ctx, client, pool, block)
	if err != nil {
		return quoteInputs{}, fmt.Errorf("pool price: %w", err)
	}

	inputs := quoteInputs{
		poolPrice:      poolPrice,
		oracleDecimals: cfg.OracleDecimals,
		now:            time.Unix(int64(ts), 0),
	}
	if !cfg.Fee.HasPriceFactor() {
		inputs.oracleDecimals, err = dex.FetchOracleDecimals(ctx, client, aggregator)
		if err != nil {
			return quoteInputs{}, err
		}
	}

	inputs.oracle = dex.NewChainlinkOracle(client, aggregator, block, logger)

	if cfg.Fee.Derivative != "" {
		derivative, err := config.ParseAddress("derivative", cfg.Fee.Derivative)
		if err != nil {
			return quoteInputs{}, err
		}
		tokens, err := dex.FetchPoolTokens(ctx, client, pool)
		if err != nil {
			return quoteInputs{}, err
		}
		derivativeIsToken0, err := dex.DerivativeIsToken0(tokens, derivative)
		if err != nil {
			return quoteInputs{}, err
		}
		inputs.zeroForOne = map[fee.Direction]bool{
			fee.AwayFromPeg: derivativeIsToken0,
			fee.TowardPeg:   !derivativeIsToken0,
		}
	}

	logger.Debug("quote inputs",
		zap.String("pool", pool.Hex()),
		zap.String("oracle", aggregator.Hex()),
		zap.Uint64("block_number", block),
		zap.String("pool_sqrt_price_x96", poolPrice.Dec()),
	)
	return inputs, nil
}

func parseDirections(input string) ([]fee.Direction, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "toward", "toward_peg":
		return []fee.Direction{fee.TowardPeg}, nil
	case "away", "away_from_peg":
		return []fee.Direction{fee.AwayFromPeg}, nil
	case "", "both":
		return []fee.Direction{fee.TowardPeg, fee.AwayFromPeg}, nil
	default:
		return nil, fmt.Errorf("invalid direction %q (want toward, away or both)", input)
	}
}

func printDecision(out io.Writer, direction fee.Direction, decision fee.Decision, inputs quoteInputs) {
	fmt.Fprintf(out, "\n[%s]\n", direction)
	if zeroForOne, ok := inputs.zeroForOne[direction]; ok {
		fmt.Fprintf(out, "zero_for_one: %t\n", zeroForOne)
	}
	fmt.Fprintf(out, "fee_pips: %d (%s)\n", decision.Fee, pricemath.FormatPips(decision.Fee))
	fmt.Fprintf(out, "reason: %s\n", decision.Reason)
	if decision.Reading != nil {
		fmt.Fprintf(out, "oracle_rate: %s\n", decision.Reading.Rate.String())
		fmt.Fprintf(out, "oracle_updated_at: %s\n", decision.Reading.UpdatedAt.UTC().Format(time.RFC3339))
	}
	if decision.ReferencePrice != nil {
		fmt.Fprintf(out, "reference_sqrt_price_x96: %s\n", decision.ReferencePrice.Dec())
	}
	if decision.Deviation != nil {
		fmt.Fprintf(out, "deviation: %s\n", pricemath.FormatRate(decision.Deviation, 18))
	}
}
