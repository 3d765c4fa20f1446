package feed

import (
	"sort"

	"github.com/quantpulse/marketpulse/internal/domain"
)

// TopLevels is the number of levels tracked per book side.
const TopLevels = 5

// BookMetrics is everything computable from one depth observation. BestBid
// and BestAsk are nil when the corresponding side is empty; MidPrice and
// Spread are only meaningful when HasBoth is true (the worker substitutes
// last-known values otherwise).
type BookMetrics struct {
	BestBid   *float64
	BestAsk   *float64
	HasBoth   bool
	MidPrice  float64
	Spread    float64
	BidVolume float64
	AskVolume float64
	Imbalance float64
	Bids      []domain.PriceLevel
	Asks      []domain.PriceLevel
}

// ComputeBookMetrics sorts and truncates the sides to topN levels (bids
// descending, asks ascending) and derives best prices, mid, spread, per-side
// volumes, and imbalance. Imbalance is defined as 0 when both volumes are 0.
func ComputeBookMetrics(bids, asks []domain.PriceLevel, topN int) BookMetrics {
	if topN <= 0 {
		topN = TopLevels
	}

	b := append([]domain.PriceLevel(nil), bids...)
	a := append([]domain.PriceLevel(nil), asks...)

	sort.Slice(b, func(i, j int) bool { return b[i].Price > b[j].Price })
	sort.Slice(a, func(i, j int) bool { return a[i].Price < a[j].Price })

	if len(b) > topN {
		b = b[:topN]
	}
	if len(a) > topN {
		a = a[:topN]
	}

	m := BookMetrics{Bids: b, Asks: a}

	for _, lvl := range b {
		m.BidVolume += lvl.Qty
	}
	for _, lvl := range a {
		m.AskVolume += lvl.Qty
	}

	if total := m.BidVolume + m.AskVolume; total > 0 {
		m.Imbalance = (m.BidVolume - m.AskVolume) / total
	}

	if len(b) > 0 {
		best := b[0].Price
		m.BestBid = &best
	}
	if len(a) > 0 {
		best := a[0].Price
		m.BestAsk = &best
	}
	if m.BestBid != nil && m.BestAsk != nil {
		m.HasBoth = true
		m.MidPrice = (*m.BestBid + *m.BestAsk) / 2.0
		m.Spread = *m.BestAsk - *m.BestBid
	}

	return m
}
