package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the process-level settings shared by the tools and the demo.
// Per-network settings live in Networks.
type Config struct {
	LogLevel  string
	LogFormat string

	// FeeRate is the protocol fee skimmed by spokes, out of 10000.
	FeeRate uint64
	// MaxOrderDeadline bounds order deadlines, in seconds from now.
	MaxOrderDeadline uint64
	// TimeBuffer is the post-deadline withdrawal grace period, in seconds.
	TimeBuffer uint64

	// Reference bridge fee model: base + perByte * len(payload), in wei.
	BridgeBaseFee    uint64
	BridgePerByteFee uint64
}

// LoadConfig reads configuration from the environment (and an optional
// settlement.yaml next to the binary), with sane defaults for everything.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("settlement")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("fee_rate", 500)
	v.SetDefault("max_order_deadline", 7*24*3600)
	v.SetDefault("time_buffer", 3600)
	v.SetDefault("bridge_base_fee", 10_000)
	v.SetDefault("bridge_per_byte_fee", 10)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// config file is optional, only env and defaults are required
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		LogLevel:         v.GetString("log_level"),
		LogFormat:        v.GetString("log_format"),
		FeeRate:          v.GetUint64("fee_rate"),
		MaxOrderDeadline: v.GetUint64("max_order_deadline"),
		TimeBuffer:       v.GetUint64("time_buffer"),
		BridgeBaseFee:    v.GetUint64("bridge_base_fee"),
		BridgePerByteFee: v.GetUint64("bridge_per_byte_fee"),
	}
	if cfg.FeeRate > 10_000 {
		return nil, fmt.Errorf("fee_rate %d exceeds resolution 10000", cfg.FeeRate)
	}
	return cfg, nil
}
