// Package feed runs the stream worker: it owns the feed connection
// lifecycle, decodes raw messages into domain events, computes derived
// metrics, and writes results into the market store. Reconnection and
// backoff policy live here.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quantpulse/marketpulse/internal/domain"
	"github.com/quantpulse/marketpulse/internal/platform/binance"
	"github.com/quantpulse/marketpulse/internal/store"
)

// State is the worker's connection state, exposed for observability.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateBackoff
	StateShutdown
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateBackoff:
		return "backoff"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Config holds worker tuning knobs. Zero values fall back to defaults.
type Config struct {
	TopLevels int
	Backoff   Backoff
}

// Worker maintains a live connection to the combined depth+trade feed,
// translates messages into store writes, and recovers from disconnects
// with exponential backoff. It is the single writer of the store.
type Worker struct {
	dialer domain.FeedDialer
	store  *store.Store
	logger *slog.Logger
	cfg    Config

	state atomic.Int32

	// now is swappable for tests.
	now func() time.Time

	// Last-known mid/spread, retained when one book side goes empty.
	lastMid    float64
	lastSpread float64
	hasMid     bool

	closeOnce sync.Once
	done      chan struct{}
}

// NewWorker creates a Worker writing into st through the given dialer.
func NewWorker(dialer domain.FeedDialer, st *store.Store, cfg Config, logger *slog.Logger) *Worker {
	if cfg.TopLevels <= 0 {
		cfg.TopLevels = TopLevels
	}
	return &Worker{
		dialer: dialer,
		store:  st,
		logger: logger.With(slog.String("component", "stream_worker")),
		cfg:    cfg,
		now:    time.Now,
		done:   make(chan struct{}),
	}
}

// State returns the worker's current connection state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Stop requests shutdown. Safe to call concurrently with an in-flight
// message; it takes effect at the next suspension point (pending read or
// backoff wait) and no store mutation happens afterwards.
func (w *Worker) Stop() {
	w.closeOnce.Do(func() { close(w.done) })
}

// Run drives the connect/read/backoff loop until ctx is cancelled or Stop is
// called. There is no retry limit: transient network failures self-heal
// without operator intervention.
func (w *Worker) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	delay := w.cfg.Backoff.Next(0, true) // base delay
	defer w.state.Store(int32(StateShutdown))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		w.state.Store(int32(StateConnecting))
		conn, err := w.dialer.Dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Warn("connect failed",
				slog.String("error", err.Error()),
				slog.Duration("retry_in", delay),
			)
			w.state.Store(int32(StateBackoff))
			if err := w.wait(ctx, delay); err != nil {
				return err
			}
			delay = w.cfg.Backoff.Next(delay, false)
			continue
		}

		w.state.Store(int32(StateConnected))
		processed, readErr := w.readLoop(ctx, conn)
		_ = conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}

		// A connection that processed at least one message resets the
		// backoff; anything else counts as a consecutive failure.
		if processed > 0 {
			delay = w.cfg.Backoff.Next(delay, true)
		}
		w.logger.Warn("disconnected, reconnecting",
			slog.String("error", errString(readErr)),
			slog.Int64("messages_processed", processed),
			slog.Duration("retry_in", delay),
		)
		w.state.Store(int32(StateBackoff))
		if err := w.wait(ctx, delay); err != nil {
			return err
		}
		if processed == 0 {
			delay = w.cfg.Backoff.Next(delay, false)
		}
	}
}

// readLoop processes messages in strict arrival order until the connection
// fails or ctx is cancelled. It returns the number of messages that resulted
// in a store write.
func (w *Worker) readLoop(ctx context.Context, conn domain.FeedConn) (int64, error) {
	var processed int64
	for {
		raw, err := conn.ReadMessage(ctx)
		if err != nil {
			return processed, err
		}
		if ctx.Err() != nil {
			// Shutdown raced a delivered message: drop it, mutate nothing.
			return processed, ctx.Err()
		}
		if w.handleMessage(raw) {
			processed++
		}
	}
}

// handleMessage decodes and applies one raw message. It reports whether the
// message resulted in a store write. Malformed or unrecognized messages are
// dropped with a log line and never tear the connection down.
func (w *Worker) handleMessage(raw []byte) bool {
	event, err := binance.Decode(raw)
	if err != nil {
		if errors.Is(err, domain.ErrUnrecognized) {
			w.logger.Debug("dropping unrecognized message", slog.String("error", err.Error()))
		} else {
			w.logger.Warn("dropping malformed message", slog.String("error", err.Error()))
		}
		return false
	}

	switch ev := event.(type) {
	case binance.DepthEvent:
		return w.handleDepth(ev)
	case binance.TradeEvent:
		return w.handleTrade(ev)
	default:
		return false
	}
}

func (w *Worker) handleDepth(ev binance.DepthEvent) bool {
	m := ComputeBookMetrics(ev.Bids, ev.Asks, w.cfg.TopLevels)

	mid, spread := m.MidPrice, m.Spread
	if !m.HasBoth {
		// One or both sides empty: retain the last-known mid/spread. With no
		// book ever observed the metric is undefined, so skip entirely.
		if !w.hasMid {
			w.logger.Debug("skipping one-sided depth update before first full book")
			return false
		}
		mid, spread = w.lastMid, w.lastSpread
	}

	if spread < 0 {
		// Crossed books are a feed anomaly; record them as-is but flag it.
		w.logger.Warn("crossed book observed",
			slog.Float64("best_bid", deref(m.BestBid)),
			slog.Float64("best_ask", deref(m.BestAsk)),
			slog.Float64("spread", spread),
		)
	}

	u := domain.MetricUpdate{
		BestBid:   m.BestBid,
		BestAsk:   m.BestAsk,
		BidVolume: m.BidVolume,
		AskVolume: m.AskVolume,
		MidPrice:  mid,
		Spread:    spread,
		Imbalance: m.Imbalance,
		Bids:      m.Bids,
		Asks:      m.Asks,
		Timestamp: float64(w.now().UnixNano()) / 1e9,
	}
	if err := w.store.UpdateMetrics(u); err != nil {
		w.logger.Error("store rejected metric update", slog.String("error", err.Error()))
		return false
	}

	w.lastMid, w.lastSpread, w.hasMid = mid, spread, true
	return true
}

func (w *Worker) handleTrade(ev binance.TradeEvent) bool {
	if err := w.store.AppendTrade(ev.Trade); err != nil {
		w.logger.Error("store rejected trade", slog.String("error", err.Error()))
		return false
	}
	return true
}

// wait sleeps for d, cancellable by ctx.
func (w *Worker) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
