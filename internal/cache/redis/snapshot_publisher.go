package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quantpulse/marketpulse/internal/domain"
)

// SnapshotPublisher periodically serializes the store snapshot and mirrors
// it into Redis: SET of the latest value plus PUBLISH on a pub/sub channel.
// It is built strictly on top of Snapshot() and never touches store
// internals, so it is just another reader.
type SnapshotPublisher struct {
	rdb      *redis.Client
	source   domain.SnapshotSource
	key      string
	channel  string
	interval time.Duration
	logger   *slog.Logger
}

// NewSnapshotPublisher creates a publisher mirroring source into the given
// key and channel every interval.
func NewSnapshotPublisher(c *Client, source domain.SnapshotSource, key, channel string, interval time.Duration, logger *slog.Logger) *SnapshotPublisher {
	return &SnapshotPublisher{
		rdb:      c.Underlying(),
		source:   source,
		key:      key,
		channel:  channel,
		interval: interval,
		logger:   logger.With(slog.String("component", "snapshot_publisher")),
	}
}

// Run publishes until ctx is cancelled. Publish failures are logged and
// retried on the next tick; they never stop the loop.
func (p *SnapshotPublisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("publishing snapshots",
		slog.String("key", p.key),
		slog.String("channel", p.channel),
		slog.Duration("interval", p.interval),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.publishOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				p.logger.Warn("snapshot publish failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (p *SnapshotPublisher) publishOnce(ctx context.Context) error {
	snap := p.source.Snapshot()

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot: %w", err)
	}

	pipe := p.rdb.TxPipeline()
	pipe.Set(ctx, p.key, payload, 0)
	pipe.Publish(ctx, p.channel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: publish snapshot: %w", err)
	}
	return nil
}
