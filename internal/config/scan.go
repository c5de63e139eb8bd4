package config

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ScanConfig holds configuration for the scan command.
type ScanConfig struct {
	RPCURL            string
	Pool              string
	Oracle            string
	FromBlock         uint64
	ToBlock           uint64
	Step              uint64
	BatchSize         uint64
	Out               string
	Checkpoint        string
	CheckpointEnabled bool
	PGDSN             string
	StateName         string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	MaxRetries        int
	RetryBackoff      time.Duration
	Fee               FeeSettings
	LogLevel          string
	LogFile           string
}

// LoadScan merges config file, environment variables, and flags into
// ScanConfig. The returned viper instance lets the caller watch the config
// file for fee setting changes.
func LoadScan(cfgFile string, flags *pflag.FlagSet) (ScanConfig, *viper.Viper, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"step":               uint64(1),
		"batch-size":         uint64(100),
		"out":                "./data/fee_quotes.jsonl",
		"checkpoint":         "./data/scan_checkpoint.json",
		"checkpoint-enabled": true,
		"state-name":         "scan",
		"max-retries":        5,
		"retry-backoff":      500 * time.Millisecond,
	})
	if err != nil {
		return ScanConfig{}, nil, err
	}

	return scanConfigFrom(v), v, nil
}

// ReloadFee re-reads only the fee settings from v.
func ReloadFee(v *viper.Viper) FeeSettings {
	return loadFeeSettings(v)
}

func scanConfigFrom(v *viper.Viper) ScanConfig {
	return ScanConfig{
		RPCURL:            v.GetString("rpc"),
		Pool:              v.GetString("pool"),
		Oracle:            v.GetString("oracle"),
		FromBlock:         v.GetUint64("from"),
		ToBlock:           v.GetUint64("to"),
		Step:              v.GetUint64("step"),
		BatchSize:         v.GetUint64("batch-size"),
		Out:               v.GetString("out"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		PGDSN:             v.GetString("pg-dsn"),
		StateName:         v.GetString("state-name"),
		RedisAddr:         v.GetString("redis-addr"),
		RedisPassword:     v.GetString("redis-password"),
		RedisDB:           v.GetInt("redis-db"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		Fee:               loadFeeSettings(v),
		LogLevel:          v.GetString("log-level"),
		LogFile:           v.GetString("log-file"),
	}
}
