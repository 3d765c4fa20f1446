package binance

import "testing"

func TestStreamURL(t *testing.T) {
	got := StreamURL("wss://stream.binance.com:9443", "BTCUSDT")
	want := "wss://stream.binance.com:9443/stream?streams=btcusdt@depth@100ms/btcusdt@trade"
	if got != want {
		t.Errorf("StreamURL = %q, want %q", got, want)
	}
}
