package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "pegfee",
		Short:        "Dynamic fee tooling for pegged two-asset pools",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	sqrtPriceCmd := &cobra.Command{
		Use:   "sqrt-price",
		Short: "Convert an exchange rate into a Q64.96 sqrt price",
		RunE:  runSqrtPrice,
	}

	sqrtPriceCmd.Flags().String("rate", "", "exchange rate, e.g. 1.0523")
	sqrtPriceCmd.Flags().Int32("decimals", 18, "decimals of a --raw rate")
	sqrtPriceCmd.Flags().Bool("raw", false, "treat --rate as an integer scaled by --decimals")

	root.AddCommand(sqrtPriceCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Decide the fee for a swap from chain state or pushed-in values",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("rpc", "", "RPC URL")
	quoteCmd.Flags().String("pool", "", "pool address")
	quoteCmd.Flags().String("oracle", "", "Chainlink aggregator address")
	quoteCmd.Flags().Uint64("block", 0, "block to quote at, 0 means latest")
	quoteCmd.Flags().String("direction", "both", "swap direction (toward, away, both)")
	quoteCmd.Flags().String("pool-sqrt-price", "", "offline: pool sqrtPriceX96")
	quoteCmd.Flags().String("oracle-rate", "", "offline: oracle answer as a decimal, e.g. 1.0523")
	quoteCmd.Flags().String("oracle-updated-at", "", "offline: oracle update time (unix seconds or RFC3339)")
	quoteCmd.Flags().Uint8("oracle-decimals", 8, "oracle answer decimals")
	quoteCmd.Flags().String("now", "", "offline: current time (unix seconds or RFC3339), defaults to now")
	addFeeFlags(quoteCmd)
	addLogFlags(quoteCmd)

	root.AddCommand(quoteCmd)

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Replay the fee schedule over a block range",
		RunE:  runScan,
	}

	scanCmd.Flags().String("rpc", "", "RPC URL")
	scanCmd.Flags().String("pool", "", "pool address")
	scanCmd.Flags().String("oracle", "", "Chainlink aggregator address")
	scanCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	scanCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	scanCmd.Flags().Uint64("step", 1, "blocks between samples")
	scanCmd.Flags().Uint64("batch-size", 100, "sampled blocks per storage batch")
	scanCmd.Flags().String("out", "./data/fee_quotes.jsonl", "output JSONL path, empty disables")
	scanCmd.Flags().String("checkpoint", "./data/scan_checkpoint.json", "checkpoint file path")
	scanCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	scanCmd.Flags().String("pg-dsn", "", "Postgres DSN; also stores the checkpoint")
	scanCmd.Flags().String("state-name", "scan", "checkpoint name in Postgres")
	scanCmd.Flags().String("redis-addr", "", "Redis address for latest quotes")
	scanCmd.Flags().String("redis-password", "", "Redis password")
	scanCmd.Flags().Int("redis-db", 0, "Redis database")
	scanCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	scanCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	addFeeFlags(scanCmd)
	addLogFlags(scanCmd)

	root.AddCommand(scanCmd)

	return root
}

func addFeeFlags(cmd *cobra.Command) {
	cmd.Flags().Uint32("min-fee", 100, "minimum fee in pips")
	cmd.Flags().Uint32("max-fee", 10000, "maximum fee in pips")
	cmd.Flags().Uint32("stale-fee", 3000, "fee in pips when the oracle is stale")
	cmd.Flags().Duration("stale-duration", time.Hour, "oracle staleness tolerance")
	cmd.Flags().String("price-factor", "", "multiplier lifting oracle answers to 18 decimals, empty derives it from oracle decimals")
	cmd.Flags().String("derivative", "", "derivative token address")
}

func addLogFlags(cmd *cobra.Command) {
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().String("log-file", "", "also write JSON logs to this rotating file")
}

func newLogger(level string, file string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if file == "" {
		return logger, nil
	}

	rotating := zapcore.AddSync(&lumberjack.Logger{
		Filename:   file,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	})
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(cfg.EncoderConfig), rotating, cfg.Level)
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})), nil
}
