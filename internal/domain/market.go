package domain

// PriceLevel is a single price+quantity entry in an order book.
type PriceLevel struct {
	Price float64 `json:"price"`
	Qty   float64 `json:"qty"`
}

// TradeSide classifies a trade from the taker's perspective.
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// SideFromBuyerMaker maps the exchange's buyer-maker flag to a TradeSide.
// When the buyer is the maker, the taker sold into the book, so the trade
// is classified SELL; otherwise BUY. This mapping is a wire contract.
func SideFromBuyerMaker(isBuyerMaker bool) TradeSide {
	if isBuyerMaker {
		return SideSell
	}
	return SideBuy
}

// Trade is one executed trade print. Immutable once created.
type Trade struct {
	Price        float64   `json:"price"`
	Qty          float64   `json:"qty"`
	Time         float64   `json:"time"` // seconds since epoch
	IsBuyerMaker bool      `json:"is_buyer_maker"`
	Side         TradeSide `json:"side"`
}

// DepthUpdate is one observation of the order book: bids sorted descending
// by price, asks ascending.
type DepthUpdate struct {
	Bids []PriceLevel
	Asks []PriceLevel
}

// MetricUpdate carries everything derived from a single depth observation.
// BestBid/BestAsk are nil when the corresponding side was empty.
type MetricUpdate struct {
	BestBid   *float64
	BestAsk   *float64
	BidVolume float64
	AskVolume float64
	MidPrice  float64
	Spread    float64
	Imbalance float64
	Bids      []PriceLevel
	Asks      []PriceLevel
	Timestamp float64 // seconds since epoch
}

// Snapshot is an immutable, fully copied view of the store's state. Field
// names mirror the JSON contract served to dashboard clients; pointer fields
// are null until the first depth update (and again after Clear).
type Snapshot struct {
	BestBid   *float64 `json:"best_bid"`
	BestAsk   *float64 `json:"best_ask"`
	BidVolume *float64 `json:"bid_volume"`
	AskVolume *float64 `json:"ask_volume"`

	CurrentMid       *float64 `json:"current_mid"`
	CurrentSpread    *float64 `json:"current_spread"`
	CurrentImbalance *float64 `json:"current_imbalance"`

	MidPrices  []float64 `json:"mid_prices"`
	Spreads    []float64 `json:"spreads"`
	Imbalances []float64 `json:"imbalances"`
	Timestamps []float64 `json:"timestamps"`

	TopBids []PriceLevel `json:"top_bids"`
	TopAsks []PriceLevel `json:"top_asks"`

	// RecentTrades is ordered most-recent-first.
	RecentTrades []Trade `json:"recent_trades"`

	DataPoints int64    `json:"data_points"`
	LastUpdate *float64 `json:"last_update"`
}

// SnapshotSource is anything that can produce a point-in-time Snapshot.
// Readers (HTTP handlers, the push hub, the Redis publisher) depend on this
// interface only, never on store internals.
type SnapshotSource interface {
	Snapshot() Snapshot
}
