package feed

import (
	"context"
	"testing"
	"time"

	"github.com/quantpulse/marketpulse/internal/platform/binance"
)

// Every message the simulated feed emits must decode through the same wire
// decoder as the live stream.
func TestMockFeedEmitsDecodableWireMessages(t *testing.T) {
	dialer := NewMockDialer(MockConfig{
		TickInterval:     time.Millisecond,
		TradeProbability: 1.0, // force a trade after every depth tick
		Seed:             42,
	}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, err := dialer.Dial(ctx)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	var depths, trades int
	for i := 0; i < 20; i++ {
		raw, err := conn.ReadMessage(ctx)
		if err != nil {
			t.Fatalf("ReadMessage(%d): %v", i, err)
		}
		event, err := binance.Decode(raw)
		if err != nil {
			t.Fatalf("message %d does not decode: %v\n%s", i, err, raw)
		}
		switch ev := event.(type) {
		case binance.DepthEvent:
			depths++
			if len(ev.Bids) != 10 || len(ev.Asks) != 10 {
				t.Errorf("depth %d: %d bids, %d asks, want 10 each", i, len(ev.Bids), len(ev.Asks))
			}
			m := ComputeBookMetrics(ev.Bids, ev.Asks, TopLevels)
			if !m.HasBoth {
				t.Errorf("depth %d missing a side", i)
			}
			if m.Spread < 0 {
				t.Errorf("depth %d generated a crossed book, spread %v", i, m.Spread)
			}
		case binance.TradeEvent:
			trades++
			if ev.Trade.Price <= 0 || ev.Trade.Qty <= 0 {
				t.Errorf("trade %d has non-positive price/qty: %+v", i, ev.Trade)
			}
		}
	}

	// With probability 1 the stream alternates depth, trade, depth, trade.
	if depths != 10 || trades != 10 {
		t.Errorf("got %d depths, %d trades, want 10 each", depths, trades)
	}
}

func TestMockConnCloseUnblocksRead(t *testing.T) {
	dialer := NewMockDialer(MockConfig{TickInterval: time.Hour, Seed: 1}, testLogger())
	conn, err := dialer.Dial(context.Background())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := conn.ReadMessage(context.Background())
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	_ = conn.Close()

	select {
	case err := <-errCh:
		if err == nil {
			t.Error("ReadMessage returned nil error after Close")
		}
	case <-time.After(time.Second):
		t.Fatal("ReadMessage did not unblock after Close")
	}
}
