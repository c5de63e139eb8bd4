package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"pegfee/internal/chain"
	"pegfee/internal/config"
	"pegfee/internal/dex"
	"pegfee/internal/fee"
	"pegfee/internal/scanner"
	"pegfee/internal/storage"
	"pegfee/internal/storage/postgres"
	"pegfee/internal/storage/redis"
)

func runScan(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, v, err := config.LoadScan(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	pool, err := config.ParseAddress("pool", cfg.Pool)
	if err != nil {
		return err
	}
	aggregator, err := config.ParseAddress("oracle", cfg.Oracle)
	if err != nil {
		return err
	}
	if cfg.Fee.Derivative == "" {
		return fmt.Errorf("derivative address is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	// Fetched even with an explicit price factor so a reload can drop it.
	oracleDecimals, err := dex.FetchOracleDecimals(ctx, chainClient, aggregator)
	if err != nil {
		return err
	}
	feeCfg, err := cfg.Fee.FeeConfig(oracleDecimals)
	if err != nil {
		return err
	}
	engine, err := fee.NewEngine(feeCfg, logger)
	if err != nil {
		return err
	}

	var sinks storage.Multi
	var checkpoint scanner.Checkpointer = scanner.NewFileCheckpoint(cfg.Checkpoint, cfg.CheckpointEnabled)
	if cfg.Out != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.Out))
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		sinks = append(sinks, store)
		if cfg.CheckpointEnabled {
			checkpoint = store.Checkpoint(cfg.StateName)
		}
	}
	if cfg.RedisAddr != "" {
		cache, err := redis.NewQuoteCache(ctx, redis.ClientConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer cache.Close()
		sinks = append(sinks, cache)
	}
	if len(sinks) == 0 {
		return fmt.Errorf("no output configured (set --out, --pg-dsn or --redis-addr)")
	}

	watchFeeSettings(v, cmd.Flags(), engine, oracleDecimals, logger)

	runner := scanner.NewRunner(scanner.RunConfig{
		FromBlock:    cfg.FromBlock,
		ToBlock:      cfg.ToBlock,
		Step:         cfg.Step,
		BatchSize:    cfg.BatchSize,
		Pool:         pool,
		Oracle:       aggregator,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, chainClient, engine, sinks, checkpoint, logger)

	logger.Info("scan start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("pool", pool.Hex()),
		zap.String("oracle", aggregator.Hex()),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Uint64("step", cfg.Step),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("out", cfg.Out),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.Bool("redis", cfg.RedisAddr != ""),
		zap.Uint32("min_fee", feeCfg.Bounds.MinFee),
		zap.Uint32("max_fee", feeCfg.Bounds.MaxFee),
		zap.Uint32("stale_fee", feeCfg.Bounds.StaleFee),
		zap.Duration("stale_duration", feeCfg.StaleDuration),
	)

	return runner.Run(ctx)
}

// watchFeeSettings swaps the engine's fee schedule whenever the config file
// changes. Invalid edits are logged and the previous schedule stays active.
func watchFeeSettings(v *viper.Viper, flags *pflag.FlagSet, engine *fee.Engine, oracleDecimals uint8, logger *zap.Logger) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(event fsnotify.Event) {
		if err := applyFeeReload(v, flags, engine, oracleDecimals, logger); err != nil {
			logger.Error("fee settings reload rejected", zap.String("file", event.Name), zap.Error(err))
		}
	})
	v.WatchConfig()
}

// applyFeeReload validates the fee settings currently in v and hands them to
// the engine. The derivative is fixed for the lifetime of a scan.
func applyFeeReload(v *viper.Viper, flags *pflag.FlagSet, engine *fee.Engine, oracleDecimals uint8, logger *zap.Logger) error {
	for _, key := range config.ShadowedFeeKeys(v, flags) {
		logger.Warn("config file value ignored, command-line flag takes precedence", zap.String("key", key))
	}

	next, err := config.ReloadFee(v).FeeConfig(oracleDecimals)
	if err != nil {
		return err
	}
	if next.Derivative != engine.Config().Derivative {
		return fmt.Errorf("derivative cannot change during a scan")
	}
	return engine.Update(next)
}
