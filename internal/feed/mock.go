package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/quantpulse/marketpulse/internal/domain"
)

// MockConfig tunes the simulated feed. Zero values fall back to defaults.
type MockConfig struct {
	Symbol           string
	BasePrice        float64
	TickInterval     time.Duration
	TradeProbability float64
	Seed             int64
}

func (c MockConfig) withDefaults() MockConfig {
	if c.Symbol == "" {
		c.Symbol = "btcusdt"
	}
	if c.BasePrice <= 0 {
		c.BasePrice = 96000.0
	}
	if c.TickInterval <= 0 {
		c.TickInterval = 100 * time.Millisecond
	}
	if c.TradeProbability <= 0 {
		c.TradeProbability = 0.3
	}
	return c
}

// MockDialer produces simulated feed connections that emit random-walk
// market data in the exact wire format of the live combined stream. The
// worker decodes both through the same path; nothing downstream knows the
// difference.
type MockDialer struct {
	cfg    MockConfig
	logger *slog.Logger
}

// NewMockDialer creates a MockDialer.
func NewMockDialer(cfg MockConfig, logger *slog.Logger) *MockDialer {
	return &MockDialer{
		cfg:    cfg.withDefaults(),
		logger: logger.With(slog.String("component", "mock_feed")),
	}
}

// Dial returns a fresh simulated connection.
func (d *MockDialer) Dial(ctx context.Context) (domain.FeedConn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg := d.cfg
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	d.logger.Info("simulated feed connected", slog.String("symbol", cfg.Symbol))
	return &mockConn{
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(seed)),
		price:   cfg.BasePrice,
		done:    make(chan struct{}),
		pending: nil,
	}, nil
}

// mockConn generates one depth update per tick and, with the configured
// probability, a trade print delivered on the following read.
type mockConn struct {
	cfg     MockConfig
	rng     *rand.Rand
	price   float64
	pending [][]byte

	closeOnce sync.Once
	done      chan struct{}
}

// ReadMessage blocks for one tick interval and returns the next generated
// wire message.
func (c *mockConn) ReadMessage(ctx context.Context) ([]byte, error) {
	if len(c.pending) > 0 {
		msg := c.pending[0]
		c.pending = c.pending[1:]
		return msg, nil
	}

	timer := time.NewTimer(c.cfg.TickInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, domain.ErrFeedClosed
	case <-timer.C:
	}

	depth := c.generateDepth()
	if c.rng.Float64() < c.cfg.TradeProbability {
		c.pending = append(c.pending, c.generateTrade())
	}
	return depth, nil
}

// Close stops the generator.
func (c *mockConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// generateDepth random-walks the price and emits ten levels per side in
// Binance wire format (["price","qty"] string pairs).
func (c *mockConn) generateDepth() []byte {
	c.price += c.rng.Float64()*10 - 5

	bids := make([][]string, 0, 10)
	asks := make([][]string, 0, 10)
	for i := 0; i < 10; i++ {
		step := float64(i) * (0.5 + c.rng.Float64()*1.5)
		bids = append(bids, wireLevel(c.price-step, 0.1+c.rng.Float64()*4.9))
		asks = append(asks, wireLevel(c.price+step+0.01, 0.1+c.rng.Float64()*4.9))
	}

	payload := map[string]any{"bids": bids, "asks": asks}
	return c.envelope("depth@100ms", payload)
}

func (c *mockConn) generateTrade() []byte {
	isBuy := c.rng.Intn(2) == 0
	payload := map[string]any{
		"p": strconv.FormatFloat(c.price+c.rng.Float64()*4-2, 'f', 2, 64),
		"q": strconv.FormatFloat(0.01+c.rng.Float64()*0.99, 'f', 4, 64),
		"T": time.Now().UnixMilli(),
		"m": !isBuy,
	}
	return c.envelope("trade", payload)
}

func (c *mockConn) envelope(stream string, data map[string]any) []byte {
	msg, err := json.Marshal(map[string]any{
		"stream": fmt.Sprintf("%s@%s", c.cfg.Symbol, stream),
		"data":   data,
	})
	if err != nil {
		// Inputs are generated locally; marshaling cannot fail in practice.
		return nil
	}
	return msg
}

func wireLevel(price, qty float64) []string {
	return []string{
		strconv.FormatFloat(price, 'f', 2, 64),
		strconv.FormatFloat(qty, 'f', 4, 64),
	}
}

// Compile-time interface checks.
var (
	_ domain.FeedDialer = (*MockDialer)(nil)
	_ domain.FeedConn   = (*mockConn)(nil)
)
