// Package store holds the latest computed market state and bounded rolling
// history, and serves consistent point-in-time snapshots to any number of
// concurrent readers while a single writer continuously appends.
package store

import (
	"fmt"
	"math"
	"sync"

	"github.com/quantpulse/marketpulse/internal/domain"
)

const (
	// DefaultMaxMetrics bounds the metric history (mid, spread, imbalance,
	// timestamp series).
	DefaultMaxMetrics = 1000

	// DefaultMaxTrades bounds the recent-trades buffer.
	DefaultMaxTrades = 20
)

// current bundles the scalar metrics and book levels written by one
// UpdateMetrics call, so a snapshot can never pair scalars from one update
// with a book from another.
type current struct {
	bestBid   *float64
	bestAsk   *float64
	bidVolume float64
	askVolume float64
	mid       float64
	spread    float64
	imbalance float64
	bids      []domain.PriceLevel
	asks      []domain.PriceLevel
	timestamp float64
}

// Store is a thread-safe in-memory aggregation of live market data. All
// public methods are safe for concurrent use; mutations and snapshots are
// serialized under one mutex whose critical sections are bounded by the
// configured history caps.
type Store struct {
	mu sync.RWMutex

	maxMetrics int
	maxTrades  int

	mids       []float64
	spreads    []float64
	imbalances []float64
	timestamps []float64

	// trades is kept oldest-first internally; Snapshot reverses it.
	trades []domain.Trade

	cur        *current
	dataPoints int64
}

// New creates an empty Store with the given history bounds. Non-positive
// bounds fall back to the defaults.
func New(maxMetrics, maxTrades int) *Store {
	if maxMetrics <= 0 {
		maxMetrics = DefaultMaxMetrics
	}
	if maxTrades <= 0 {
		maxTrades = DefaultMaxTrades
	}
	return &Store{
		maxMetrics: maxMetrics,
		maxTrades:  maxTrades,
	}
}

// UpdateMetrics atomically replaces the current scalar metrics and book view,
// appends one point to the metric history (evicting the oldest beyond the
// cap), and advances the data-point counter. Any non-finite numeric input is
// rejected with domain.ErrInvalidMetric and the store is left untouched.
func (s *Store) UpdateMetrics(u domain.MetricUpdate) error {
	if err := validateUpdate(u); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cur = &current{
		bestBid:   copyFloat(u.BestBid),
		bestAsk:   copyFloat(u.BestAsk),
		bidVolume: u.BidVolume,
		askVolume: u.AskVolume,
		mid:       u.MidPrice,
		spread:    u.Spread,
		imbalance: u.Imbalance,
		bids:      copyLevels(u.Bids),
		asks:      copyLevels(u.Asks),
		timestamp: u.Timestamp,
	}

	s.mids = pushBounded(s.mids, u.MidPrice, s.maxMetrics)
	s.spreads = pushBounded(s.spreads, u.Spread, s.maxMetrics)
	s.imbalances = pushBounded(s.imbalances, u.Imbalance, s.maxMetrics)
	s.timestamps = pushBounded(s.timestamps, u.Timestamp, s.maxMetrics)

	s.dataPoints++
	return nil
}

// AppendTrade atomically records one trade, evicting the oldest beyond the
// cap. Trades are an independent stream; appending never touches the metric
// state. Non-finite numeric fields are rejected with domain.ErrInvalidMetric.
func (s *Store) AppendTrade(t domain.Trade) error {
	if !finite(t.Price) || !finite(t.Qty) || !finite(t.Time) {
		return fmt.Errorf("store: append trade: %w", domain.ErrInvalidMetric)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades = append(s.trades, t)
	if len(s.trades) > s.maxTrades {
		copy(s.trades, s.trades[1:])
		s.trades = s.trades[:s.maxTrades]
	}
	return nil
}

// Snapshot returns an immutable, fully independent copy of the current state.
// The scalar metrics and book levels in one snapshot always come from the
// same UpdateMetrics call. Cost is bounded by the history caps regardless of
// stream rate.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := domain.Snapshot{
		MidPrices:  copyFloats(s.mids),
		Spreads:    copyFloats(s.spreads),
		Imbalances: copyFloats(s.imbalances),
		Timestamps: copyFloats(s.timestamps),
		DataPoints: s.dataPoints,
	}

	// Most-recent-first.
	snap.RecentTrades = make([]domain.Trade, len(s.trades))
	for i, t := range s.trades {
		snap.RecentTrades[len(s.trades)-1-i] = t
	}

	if s.cur != nil {
		c := s.cur
		snap.BestBid = copyFloat(c.bestBid)
		snap.BestAsk = copyFloat(c.bestAsk)
		snap.BidVolume = ptr(c.bidVolume)
		snap.AskVolume = ptr(c.askVolume)
		snap.CurrentMid = ptr(c.mid)
		snap.CurrentSpread = ptr(c.spread)
		snap.CurrentImbalance = ptr(c.imbalance)
		snap.TopBids = copyLevels(c.bids)
		snap.TopAsks = copyLevels(c.asks)
		snap.LastUpdate = ptr(c.timestamp)
	} else {
		snap.TopBids = []domain.PriceLevel{}
		snap.TopAsks = []domain.PriceLevel{}
	}

	return snap
}

// Clear resets all state to initial empty values. Used by tests and explicit
// operator resets only; normal operation never calls it.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mids = nil
	s.spreads = nil
	s.imbalances = nil
	s.timestamps = nil
	s.trades = nil
	s.cur = nil
	s.dataPoints = 0
}

func validateUpdate(u domain.MetricUpdate) error {
	vals := []float64{u.BidVolume, u.AskVolume, u.MidPrice, u.Spread, u.Imbalance, u.Timestamp}
	if u.BestBid != nil {
		vals = append(vals, *u.BestBid)
	}
	if u.BestAsk != nil {
		vals = append(vals, *u.BestAsk)
	}
	for _, v := range vals {
		if !finite(v) {
			return fmt.Errorf("store: update metrics: %w", domain.ErrInvalidMetric)
		}
	}
	for _, lvl := range u.Bids {
		if !finite(lvl.Price) || !finite(lvl.Qty) {
			return fmt.Errorf("store: update metrics: bid level: %w", domain.ErrInvalidMetric)
		}
	}
	for _, lvl := range u.Asks {
		if !finite(lvl.Price) || !finite(lvl.Qty) {
			return fmt.Errorf("store: update metrics: ask level: %w", domain.ErrInvalidMetric)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// pushBounded appends v and evicts the oldest element once the buffer
// exceeds max, keeping a stable backing array.
func pushBounded(buf []float64, v float64, max int) []float64 {
	buf = append(buf, v)
	if len(buf) > max {
		copy(buf, buf[1:])
		buf = buf[:max]
	}
	return buf
}

func copyFloats(src []float64) []float64 {
	out := make([]float64, len(src))
	copy(out, src)
	return out
}

func copyLevels(src []domain.PriceLevel) []domain.PriceLevel {
	out := make([]domain.PriceLevel, len(src))
	copy(out, src)
	return out
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func ptr(v float64) *float64 { return &v }

// Compile-time interface check.
var _ domain.SnapshotSource = (*Store)(nil)
