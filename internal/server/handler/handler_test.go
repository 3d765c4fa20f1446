package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quantpulse/marketpulse/internal/domain"
)

type fakeSource struct {
	snap domain.Snapshot
}

func (f fakeSource) Snapshot() domain.Snapshot { return f.snap }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fptr(v float64) *float64 { return &v }

func TestGetSnapshot(t *testing.T) {
	src := fakeSource{snap: domain.Snapshot{
		BestBid:      fptr(50000),
		BestAsk:      fptr(50001),
		CurrentMid:   fptr(50000.5),
		MidPrices:    []float64{50000.5},
		TopBids:      []domain.PriceLevel{{Price: 50000, Qty: 1}},
		TopAsks:      []domain.PriceLevel{{Price: 50001, Qty: 2}},
		RecentTrades: []domain.Trade{{Price: 50000, Qty: 0.5, Time: 1, Side: domain.SideBuy}},
		DataPoints:   1,
		LastUpdate:   fptr(1),
	}}
	h := NewSnapshotHandler(src, discardLogger())

	rec := httptest.NewRecorder()
	h.GetSnapshot(rec, httptest.NewRequest(http.MethodGet, "/api/snapshot", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("content type = %q, want application/json", ct)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["best_bid"] != 50000.0 || body["best_ask"] != 50001.0 {
		t.Errorf("best bid/ask = %v/%v", body["best_bid"], body["best_ask"])
	}
	if body["data_points"] != 1.0 {
		t.Errorf("data_points = %v, want 1", body["data_points"])
	}
	trades, ok := body["recent_trades"].([]any)
	if !ok || len(trades) != 1 {
		t.Fatalf("recent_trades = %v", body["recent_trades"])
	}
	if side := trades[0].(map[string]any)["side"]; side != "BUY" {
		t.Errorf("trade side = %v, want BUY", side)
	}
}

func TestGetSnapshotEmptyStoreSerializesNulls(t *testing.T) {
	h := NewSnapshotHandler(fakeSource{snap: domain.Snapshot{
		MidPrices:    []float64{},
		Spreads:      []float64{},
		Imbalances:   []float64{},
		Timestamps:   []float64{},
		TopBids:      []domain.PriceLevel{},
		TopAsks:      []domain.PriceLevel{},
		RecentTrades: []domain.Trade{},
	}}, discardLogger())

	rec := httptest.NewRecorder()
	h.GetSnapshot(rec, httptest.NewRequest(http.MethodGet, "/api/snapshot", nil))

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	for _, key := range []string{"best_bid", "best_ask", "current_mid", "last_update"} {
		if body[key] != nil {
			t.Errorf("%s = %v, want null before first update", key, body[key])
		}
	}
	if _, ok := body["mid_prices"].([]any); !ok {
		t.Errorf("mid_prices = %v, want empty array not null", body["mid_prices"])
	}
}

func TestHealthCheck(t *testing.T) {
	src := fakeSource{snap: domain.Snapshot{
		DataPoints: 42,
		LastUpdate: fptr(1),
	}}
	h := NewHealthHandler(src, func() string { return "connected" }, discardLogger())

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" || body["worker_state"] != "connected" {
		t.Errorf("status/worker_state = %v/%v", body["status"], body["worker_state"])
	}
	if body["data_points"] != 42.0 {
		t.Errorf("data_points = %v, want 42", body["data_points"])
	}
	if body["staleness_seconds"] == nil {
		t.Error("staleness_seconds missing despite a recorded update")
	}
}

func TestHealthCheckBeforeFirstUpdate(t *testing.T) {
	h := NewHealthHandler(fakeSource{}, func() string { return "connecting" }, discardLogger())

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["staleness_seconds"] != nil {
		t.Errorf("staleness_seconds = %v, want null before first update", body["staleness_seconds"])
	}
	if body["last_update"] != nil {
		t.Errorf("last_update = %v, want null", body["last_update"])
	}
}
