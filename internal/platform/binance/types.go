// Package binance implements the live market-data feed client for the
// Binance combined WebSocket stream and the decoding of its wire messages
// into domain events.
package binance

import (
	"encoding/json"

	"github.com/quantpulse/marketpulse/internal/domain"
)

// streamEnvelope is the outer frame of every combined-stream message:
// {"stream": "<symbol>@<type>", "data": {...}}.
type streamEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// depthPayload is the order-book depth update. Levels arrive as
// ["price", "qty"] string pairs.
type depthPayload struct {
	Bids [][]string `json:"bids"`
	Asks [][]string `json:"asks"`
}

// tradePayload is one trade print. T is milliseconds since epoch; M ("m" on
// the wire) is the buyer-is-maker flag.
type tradePayload struct {
	Price        string `json:"p"`
	Qty          string `json:"q"`
	TradeTime    *int64 `json:"T"`
	IsBuyerMaker bool   `json:"m"`
}

// Event is the tagged variant produced by Decode. Exactly one concrete type
// is returned per recognized message.
type Event interface {
	feedEvent()
}

// DepthEvent is a decoded depth update, levels in wire order.
type DepthEvent struct {
	Bids []domain.PriceLevel
	Asks []domain.PriceLevel
}

func (DepthEvent) feedEvent() {}

// TradeEvent is a decoded trade print.
type TradeEvent struct {
	Trade domain.Trade
}

func (TradeEvent) feedEvent() {}
