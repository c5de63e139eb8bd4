package config

import (
	"github.com/spf13/pflag"
)

// QuoteConfig holds configuration for the quote command.
type QuoteConfig struct {
	RPCURL          string
	Pool            string
	Oracle          string
	Block           uint64
	Direction       string
	PoolSqrtPrice   string
	OracleRate      string
	OracleUpdatedAt string
	OracleDecimals  uint8
	Now             string
	Fee             FeeSettings
	LogLevel        string
	LogFile         string
}

// Offline reports whether the quote uses pushed-in values instead of RPC.
func (c QuoteConfig) Offline() bool {
	return c.PoolSqrtPrice != ""
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"oracle-decimals": uint8(8),
		"direction":       "both",
	})
	if err != nil {
		return QuoteConfig{}, err
	}

	cfg := QuoteConfig{
		RPCURL:          v.GetString("rpc"),
		Pool:            v.GetString("pool"),
		Oracle:          v.GetString("oracle"),
		Block:           v.GetUint64("block"),
		Direction:       v.GetString("direction"),
		PoolSqrtPrice:   v.GetString("pool-sqrt-price"),
		OracleRate:      v.GetString("oracle-rate"),
		OracleUpdatedAt: v.GetString("oracle-updated-at"),
		OracleDecimals:  uint8(v.GetUint("oracle-decimals")),
		Now:             v.GetString("now"),
		Fee:             loadFeeSettings(v),
		LogLevel:        v.GetString("log-level"),
		LogFile:         v.GetString("log-file"),
	}

	return cfg, nil
}
