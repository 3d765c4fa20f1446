package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MARKETPULSE_* environment variable overrides,
// and returns the final Config. A missing file is not an error: defaults
// plus environment overrides apply. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MARKETPULSE_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators adjust deployments without touching the
// TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Binance ──
	setStr(&cfg.Binance.WsHost, "MARKETPULSE_BINANCE_WS_HOST")
	setStr(&cfg.Binance.Symbol, "MARKETPULSE_BINANCE_SYMBOL")

	// ── Store ──
	setInt(&cfg.Store.MaxMetrics, "MARKETPULSE_STORE_MAX_METRICS")
	setInt(&cfg.Store.MaxTrades, "MARKETPULSE_STORE_MAX_TRADES")

	// ── Feed ──
	setInt(&cfg.Feed.TopLevels, "MARKETPULSE_FEED_TOP_LEVELS")
	setDuration(&cfg.Feed.ReconnectBase, "MARKETPULSE_FEED_RECONNECT_BASE")
	setDuration(&cfg.Feed.ReconnectCeiling, "MARKETPULSE_FEED_RECONNECT_CEILING")

	// ── Mock ──
	setFloat64(&cfg.Mock.BasePrice, "MARKETPULSE_MOCK_BASE_PRICE")
	setDuration(&cfg.Mock.TickInterval, "MARKETPULSE_MOCK_TICK_INTERVAL")
	setFloat64(&cfg.Mock.TradeProbability, "MARKETPULSE_MOCK_TRADE_PROBABILITY")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "MARKETPULSE_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "MARKETPULSE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MARKETPULSE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MARKETPULSE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MARKETPULSE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MARKETPULSE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MARKETPULSE_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.SnapshotKey, "MARKETPULSE_REDIS_SNAPSHOT_KEY")
	setStr(&cfg.Redis.PublishChannel, "MARKETPULSE_REDIS_PUBLISH_CHANNEL")
	setDuration(&cfg.Redis.PublishInterval, "MARKETPULSE_REDIS_PUBLISH_INTERVAL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "MARKETPULSE_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "MARKETPULSE_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "MARKETPULSE_SERVER_CORS_ORIGINS")
	setDuration(&cfg.Server.BroadcastInterval, "MARKETPULSE_SERVER_BROADCAST_INTERVAL")

	// ── Top-level ──
	setStr(&cfg.Mode, "MARKETPULSE_MODE")
	setStr(&cfg.LogLevel, "MARKETPULSE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
