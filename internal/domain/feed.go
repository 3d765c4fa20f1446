package domain

import "context"

// FeedConn is a single established connection to a market-data feed. Raw
// messages come back in arrival order; ReadMessage blocks until a message is
// available, the connection fails, or ctx is cancelled.
type FeedConn interface {
	ReadMessage(ctx context.Context) ([]byte, error)
	Close() error
}

// FeedDialer produces feed connections. The live Binance client and the
// simulated generator both implement it; the stream worker is written against
// this interface only and carries no knowledge of which variant is attached.
type FeedDialer interface {
	Dial(ctx context.Context) (FeedConn, error)
}
