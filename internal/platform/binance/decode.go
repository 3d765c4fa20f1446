package binance

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/quantpulse/marketpulse/internal/domain"
)

// Decode classifies a raw combined-stream message into a DepthEvent or
// TradeEvent before any field access. Messages that do not match a known
// shape return domain.ErrUnrecognized; messages of a known shape with
// missing or unparseable fields return a descriptive error. Callers drop
// the message either way and keep the connection up.
func Decode(raw []byte) (Event, error) {
	var env streamEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("binance: decode envelope: %w", err)
	}
	if env.Stream == "" || len(env.Data) == 0 {
		return nil, fmt.Errorf("binance: %w: missing stream or data", domain.ErrUnrecognized)
	}

	switch {
	case strings.Contains(env.Stream, "@depth"):
		return decodeDepth(env.Data)
	case strings.Contains(env.Stream, "@trade"):
		return decodeTrade(env.Data)
	default:
		return nil, fmt.Errorf("binance: %w: stream %q", domain.ErrUnrecognized, env.Stream)
	}
}

func decodeDepth(data []byte) (Event, error) {
	var p depthPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("binance: decode depth: %w", err)
	}

	bids, err := parseLevels(p.Bids)
	if err != nil {
		return nil, fmt.Errorf("binance: decode depth bids: %w", err)
	}
	asks, err := parseLevels(p.Asks)
	if err != nil {
		return nil, fmt.Errorf("binance: decode depth asks: %w", err)
	}

	return DepthEvent{Bids: bids, Asks: asks}, nil
}

func decodeTrade(data []byte) (Event, error) {
	var p tradePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("binance: decode trade: %w", err)
	}
	if p.Price == "" || p.Qty == "" || p.TradeTime == nil {
		return nil, fmt.Errorf("binance: decode trade: missing required field")
	}

	price, err := parsePrice(p.Price)
	if err != nil {
		return nil, fmt.Errorf("binance: decode trade price: %w", err)
	}
	qty, err := parsePrice(p.Qty)
	if err != nil {
		return nil, fmt.Errorf("binance: decode trade qty: %w", err)
	}

	return TradeEvent{Trade: domain.Trade{
		Price:        price,
		Qty:          qty,
		Time:         float64(*p.TradeTime) / 1000.0, // ms -> s
		IsBuyerMaker: p.IsBuyerMaker,
		Side:         domain.SideFromBuyerMaker(p.IsBuyerMaker),
	}}, nil
}

func parseLevels(raw [][]string) ([]domain.PriceLevel, error) {
	levels := make([]domain.PriceLevel, 0, len(raw))
	for _, pair := range raw {
		if len(pair) != 2 {
			return nil, fmt.Errorf("level has %d fields, want 2", len(pair))
		}
		price, err := parsePrice(pair[0])
		if err != nil {
			return nil, err
		}
		qty, err := parsePrice(pair[1])
		if err != nil {
			return nil, err
		}
		levels = append(levels, domain.PriceLevel{Price: price, Qty: qty})
	}
	return levels, nil
}

func parsePrice(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}
