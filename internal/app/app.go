// Package app provides the top-level application lifecycle for marketpulse.
// It wires the store, the stream worker (live or simulated feed), the
// optional Redis snapshot mirror, and the HTTP/WebSocket API, and runs them
// until the context is cancelled.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	cacheredis "github.com/quantpulse/marketpulse/internal/cache/redis"
	"github.com/quantpulse/marketpulse/internal/config"
	"github.com/quantpulse/marketpulse/internal/domain"
	"github.com/quantpulse/marketpulse/internal/feed"
	"github.com/quantpulse/marketpulse/internal/platform/binance"
	"github.com/quantpulse/marketpulse/internal/server"
	"github.com/quantpulse/marketpulse/internal/server/handler"
	"github.com/quantpulse/marketpulse/internal/server/ws"
	"github.com/quantpulse/marketpulse/internal/store"
)

// shutdownGrace bounds the HTTP server drain on exit.
const shutdownGrace = 5 * time.Second

// App is the root application object. It owns the configuration, logger,
// and a list of cleanup functions that are called in reverse order on
// shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies and blocks until the context is cancelled or a
// component fails. The feed producer variant is selected exactly once here;
// everything downstream is variant-agnostic.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("symbol", a.cfg.Binance.Symbol),
	)

	st := store.New(a.cfg.Store.MaxMetrics, a.cfg.Store.MaxTrades)

	var dialer domain.FeedDialer
	switch strings.ToLower(a.cfg.Mode) {
	case "live":
		dialer = binance.NewDialer(a.cfg.Binance.WsHost, a.cfg.Binance.Symbol, a.logger)
	case "mock":
		a.logger.Warn("using simulated market data")
		dialer = feed.NewMockDialer(feed.MockConfig{
			Symbol:           a.cfg.Binance.Symbol,
			BasePrice:        a.cfg.Mock.BasePrice,
			TickInterval:     a.cfg.Mock.TickInterval.Duration,
			TradeProbability: a.cfg.Mock.TradeProbability,
		}, a.logger)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}

	worker := feed.NewWorker(dialer, st, feed.Config{
		TopLevels: a.cfg.Feed.TopLevels,
		Backoff: feed.Backoff{
			Base: a.cfg.Feed.ReconnectBase.Duration,
			Max:  a.cfg.Feed.ReconnectCeiling.Duration,
		},
	}, a.logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer worker.Stop()
		return worker.Run(ctx)
	})

	if a.cfg.Redis.Enabled {
		client, err := cacheredis.New(ctx, cacheredis.ClientConfig{
			Addr:       a.cfg.Redis.Addr,
			Password:   a.cfg.Redis.Password,
			DB:         a.cfg.Redis.DB,
			PoolSize:   a.cfg.Redis.PoolSize,
			MaxRetries: a.cfg.Redis.MaxRetries,
			TLSEnabled: a.cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fmt.Errorf("app: connect redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })

		publisher := cacheredis.NewSnapshotPublisher(
			client, st,
			a.cfg.Redis.SnapshotKey,
			a.cfg.Redis.PublishChannel,
			a.cfg.Redis.PublishInterval.Duration,
			a.logger,
		)
		g.Go(func() error {
			return publisher.Run(ctx)
		})
	}

	if a.cfg.Server.Enabled {
		hub := ws.NewHub(st, a.cfg.Server.BroadcastInterval.Duration, a.logger)
		g.Go(func() error {
			return hub.Run(ctx)
		})

		srv := server.NewServer(server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
		}, server.Handlers{
			Health:   handler.NewHealthHandler(st, func() string { return worker.State().String() }, a.logger),
			Snapshot: handler.NewSnapshotHandler(st, a.logger),
		}, hub, a.logger)

		g.Go(func() error {
			return srv.Start()
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
