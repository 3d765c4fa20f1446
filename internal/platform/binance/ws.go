package binance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quantpulse/marketpulse/internal/domain"
)

const (
	// handshakeTimeout bounds the WebSocket dial.
	handshakeTimeout = 15 * time.Second

	// writeWait is the time allowed to write a control message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed between messages before the connection is
	// considered stale.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// DefaultWSHost is the public Binance combined-stream endpoint.
const DefaultWSHost = "wss://stream.binance.com:9443"

// StreamURL builds the combined depth+trade stream URL for a symbol.
// Symbols are lowercased per the Binance stream naming convention.
func StreamURL(wsHost, symbol string) string {
	sym := strings.ToLower(symbol)
	return fmt.Sprintf("%s/stream?streams=%s@depth@100ms/%s@trade", wsHost, sym, sym)
}

// Dialer dials the Binance combined stream and returns connections that
// satisfy domain.FeedConn.
type Dialer struct {
	url    string
	logger *slog.Logger
}

// NewDialer creates a Dialer for the given endpoint and symbol.
func NewDialer(wsHost, symbol string, logger *slog.Logger) *Dialer {
	return &Dialer{
		url:    StreamURL(wsHost, symbol),
		logger: logger.With(slog.String("component", "binance_ws")),
	}
}

// Dial opens one WebSocket connection. The returned connection is unblocked
// by cancelling the context passed to Dial or to ReadMessage: a watchdog
// goroutine closes the underlying socket, which fails any pending read.
func (d *Dialer) Dial(ctx context.Context) (domain.FeedConn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	ws, _, err := dialer.DialContext(ctx, d.url, nil)
	if err != nil {
		return nil, fmt.Errorf("binance: dial %s: %w", d.url, err)
	}

	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	c := &Conn{ws: ws, done: make(chan struct{})}

	go c.pingLoop()
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-c.done:
		}
	}()

	d.logger.Info("connected", slog.String("url", d.url))
	return c, nil
}

// Conn wraps a gorilla WebSocket connection as a domain.FeedConn.
type Conn struct {
	ws        *websocket.Conn
	done      chan struct{}
	closeOnce sync.Once
}

// ReadMessage returns the next raw message in arrival order. On context
// cancellation it returns ctx.Err(); on any connection-level failure it
// returns an error wrapping domain.ErrWSDisconnect.
func (c *Conn) ReadMessage(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	_, msg, err := c.ws.ReadMessage()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		select {
		case <-c.done:
			return nil, domain.ErrFeedClosed
		default:
		}
		return nil, fmt.Errorf("binance: read: %w: %w", domain.ErrWSDisconnect, err)
	}

	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	return msg, nil
}

// Close shuts the connection down. Safe to call multiple times and
// concurrently with a pending ReadMessage.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		err = c.ws.Close()
	})
	return err
}

// pingLoop keeps the connection alive; Binance drops peers that stay silent.
func (c *Conn) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// Compile-time interface checks.
var (
	_ domain.FeedDialer = (*Dialer)(nil)
	_ domain.FeedConn   = (*Conn)(nil)
)
