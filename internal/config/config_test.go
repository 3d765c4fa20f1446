package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Mode != "live" {
		t.Errorf("mode = %q, want live", cfg.Mode)
	}
	if cfg.Store.MaxMetrics != 1000 || cfg.Store.MaxTrades != 20 {
		t.Errorf("store bounds = %d/%d, want 1000/20", cfg.Store.MaxMetrics, cfg.Store.MaxTrades)
	}
	if cfg.Feed.TopLevels != 5 {
		t.Errorf("top_levels = %d, want 5", cfg.Feed.TopLevels)
	}
	if cfg.Feed.ReconnectBase.Duration != time.Second || cfg.Feed.ReconnectCeiling.Duration != 30*time.Second {
		t.Errorf("reconnect = %v/%v, want 1s/30s",
			cfg.Feed.ReconnectBase.Duration, cfg.Feed.ReconnectCeiling.Duration)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Binance.Symbol != "btcusdt" {
		t.Errorf("symbol = %q, want default btcusdt", cfg.Binance.Symbol)
	}
}

func TestLoadTOMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
mode = "mock"
log_level = "debug"

[binance]
symbol = "ethusdt"

[store]
max_metrics = 500

[feed]
reconnect_base = "2s"
reconnect_ceiling = "1m"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "mock" || cfg.LogLevel != "debug" {
		t.Errorf("mode/log_level = %q/%q", cfg.Mode, cfg.LogLevel)
	}
	if cfg.Binance.Symbol != "ethusdt" {
		t.Errorf("symbol = %q, want ethusdt", cfg.Binance.Symbol)
	}
	if cfg.Store.MaxMetrics != 500 {
		t.Errorf("max_metrics = %d, want 500", cfg.Store.MaxMetrics)
	}
	if cfg.Store.MaxTrades != 20 {
		t.Errorf("max_trades = %d, want default 20 to survive a partial file", cfg.Store.MaxTrades)
	}
	if cfg.Feed.ReconnectBase.Duration != 2*time.Second {
		t.Errorf("reconnect_base = %v, want 2s", cfg.Feed.ReconnectBase.Duration)
	}
	if cfg.Feed.ReconnectCeiling.Duration != time.Minute {
		t.Errorf("reconnect_ceiling = %v, want 1m", cfg.Feed.ReconnectCeiling.Duration)
	}
}

func TestEnvOverridesWinOverTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`[binance]`+"\n"+`symbol = "ethusdt"`), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("MARKETPULSE_BINANCE_SYMBOL", "solusdt")
	t.Setenv("MARKETPULSE_SERVER_PORT", "9100")
	t.Setenv("MARKETPULSE_REDIS_ENABLED", "true")
	t.Setenv("MARKETPULSE_FEED_RECONNECT_BASE", "250ms")
	t.Setenv("MARKETPULSE_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Binance.Symbol != "solusdt" {
		t.Errorf("symbol = %q, want env override solusdt", cfg.Binance.Symbol)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d, want 9100", cfg.Server.Port)
	}
	if !cfg.Redis.Enabled {
		t.Error("redis.enabled not overridden to true")
	}
	if cfg.Feed.ReconnectBase.Duration != 250*time.Millisecond {
		t.Errorf("reconnect_base = %v, want 250ms", cfg.Feed.ReconnectBase.Duration)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != want[0] || cfg.Server.CORSOrigins[1] != want[1] {
		t.Errorf("cors_origins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "replay"
	cfg.Store.MaxMetrics = 0
	cfg.Feed.ReconnectBase.Duration = 10 * time.Second
	cfg.Feed.ReconnectCeiling.Duration = time.Second
	cfg.Server.Port = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, frag := range []string{"unknown mode", "max_metrics", "reconnect_ceiling", "port"} {
		if !strings.Contains(err.Error(), frag) {
			t.Errorf("error missing %q:\n%v", frag, err)
		}
	}
}

func TestValidateMockMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "mock"
	cfg.Mock.TradeProbability = 1.5

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "trade_probability") {
		t.Errorf("err = %v, want trade_probability bounds error", err)
	}

	// Live-mode-only requirements must not fire in mock mode.
	cfg.Mock.TradeProbability = 0.5
	cfg.Binance.WsHost = ""
	cfg.Binance.Symbol = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("mock mode rejected empty binance settings: %v", err)
	}
}
