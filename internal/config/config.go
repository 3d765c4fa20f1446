// Package config defines the top-level configuration for marketpulse and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by MARKETPULSE_* environment
// variables.
type Config struct {
	Binance  BinanceConfig `toml:"binance"`
	Store    StoreConfig   `toml:"store"`
	Feed     FeedConfig    `toml:"feed"`
	Mock     MockConfig    `toml:"mock"`
	Redis    RedisConfig   `toml:"redis"`
	Server   ServerConfig  `toml:"server"`
	Mode     string        `toml:"mode"`
	LogLevel string        `toml:"log_level"`
}

// BinanceConfig holds the live feed endpoint and symbol.
type BinanceConfig struct {
	WsHost string `toml:"ws_host"`
	Symbol string `toml:"symbol"`
}

// StoreConfig holds the in-memory history bounds.
type StoreConfig struct {
	MaxMetrics int `toml:"max_metrics"`
	MaxTrades  int `toml:"max_trades"`
}

// FeedConfig holds worker tuning parameters.
type FeedConfig struct {
	TopLevels        int      `toml:"top_levels"`
	ReconnectBase    duration `toml:"reconnect_base"`
	ReconnectCeiling duration `toml:"reconnect_ceiling"`
}

// MockConfig holds the simulated feed parameters, used when mode = "mock".
type MockConfig struct {
	BasePrice        float64  `toml:"base_price"`
	TickInterval     duration `toml:"tick_interval"`
	TradeProbability float64  `toml:"trade_probability"`
}

// RedisConfig holds the optional snapshot-mirror parameters.
type RedisConfig struct {
	Enabled         bool     `toml:"enabled"`
	Addr            string   `toml:"addr"`
	Password        string   `toml:"password"`
	DB              int      `toml:"db"`
	PoolSize        int      `toml:"pool_size"`
	MaxRetries      int      `toml:"max_retries"`
	TLSEnabled      bool     `toml:"tls_enabled"`
	SnapshotKey     string   `toml:"snapshot_key"`
	PublishChannel  string   `toml:"publish_channel"`
	PublishInterval duration `toml:"publish_interval"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled           bool     `toml:"enabled"`
	Port              int      `toml:"port"`
	CORSOrigins       []string `toml:"cors_origins"`
	BroadcastInterval duration `toml:"broadcast_interval"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "500ms", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "500ms" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Binance: BinanceConfig{
			WsHost: "wss://stream.binance.com:9443",
			Symbol: "btcusdt",
		},
		Store: StoreConfig{
			MaxMetrics: 1000,
			MaxTrades:  20,
		},
		Feed: FeedConfig{
			TopLevels:        5,
			ReconnectBase:    duration{1 * time.Second},
			ReconnectCeiling: duration{30 * time.Second},
		},
		Mock: MockConfig{
			BasePrice:        96000.0,
			TickInterval:     duration{100 * time.Millisecond},
			TradeProbability: 0.3,
		},
		Redis: RedisConfig{
			Enabled:         false,
			Addr:            "localhost:6379",
			DB:              0,
			PoolSize:        10,
			MaxRetries:      3,
			SnapshotKey:     "market:snapshot",
			PublishChannel:  "market_data",
			PublishInterval: duration{500 * time.Millisecond},
		},
		Server: ServerConfig{
			Enabled:           true,
			Port:              8000,
			CORSOrigins:       []string{"http://localhost:3000", "http://localhost:5173"},
			BroadcastInterval: duration{500 * time.Millisecond},
		},
		Mode:     "live",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"live": true,
	"mock": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: live, mock)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if strings.ToLower(c.Mode) == "live" {
		if c.Binance.WsHost == "" {
			errs = append(errs, "binance: ws_host must not be empty in live mode")
		}
		if c.Binance.Symbol == "" {
			errs = append(errs, "binance: symbol must not be empty in live mode")
		}
	}

	if c.Store.MaxMetrics < 1 {
		errs = append(errs, "store: max_metrics must be >= 1")
	}
	if c.Store.MaxTrades < 1 {
		errs = append(errs, "store: max_trades must be >= 1")
	}

	if c.Feed.TopLevels < 1 {
		errs = append(errs, "feed: top_levels must be >= 1")
	}
	if c.Feed.ReconnectBase.Duration <= 0 {
		errs = append(errs, "feed: reconnect_base must be positive")
	}
	if c.Feed.ReconnectCeiling.Duration < c.Feed.ReconnectBase.Duration {
		errs = append(errs, "feed: reconnect_ceiling must not be below reconnect_base")
	}

	if strings.ToLower(c.Mode) == "mock" {
		if c.Mock.BasePrice <= 0 {
			errs = append(errs, "mock: base_price must be > 0")
		}
		if c.Mock.TickInterval.Duration <= 0 {
			errs = append(errs, "mock: tick_interval must be positive")
		}
		if c.Mock.TradeProbability < 0 || c.Mock.TradeProbability > 1 {
			errs = append(errs, "mock: trade_probability must be in [0, 1]")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.PublishInterval.Duration <= 0 {
			errs = append(errs, "redis: publish_interval must be positive")
		}
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.BroadcastInterval.Duration <= 0 {
			errs = append(errs, "server: broadcast_interval must be positive")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
