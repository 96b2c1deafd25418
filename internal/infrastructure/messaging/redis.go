// Package messaging delivers relayed outbox events to Redis streams.
package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cashpoint/internal/infrastructure/storage/postgres"
)

// NewRedis creates and validates a go-redis client connection.
func NewRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

var _ postgres.OutboxHandler = (*StreamPublisher)(nil)

// StreamPublisher appends outbox messages to a capped Redis stream.
// Consumers deduplicate on the "id" field, delivery is at least once.
type StreamPublisher struct {
	rdb    streamAdder
	stream string
	maxLen int64
}

// DefaultStreamMaxLen caps the stream approximately.
const DefaultStreamMaxLen = 100_000

// NewStreamPublisher creates a publisher for stream.
func NewStreamPublisher(rdb *redis.Client, stream string) *StreamPublisher {
	return &StreamPublisher{rdb: rdb, stream: stream, maxLen: DefaultStreamMaxLen}
}

// Handle implements postgres.OutboxHandler.
func (p *StreamPublisher) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: streamValues(msg),
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}

func streamValues(msg *postgres.OutboxMessage) map[string]any {
	return map[string]any{
		"id":             msg.ID.String(),
		"tenant_id":      msg.TenantID.String(),
		"aggregate_type": msg.AggregateType,
		"aggregate_id":   msg.AggregateID.String(),
		"event_type":     msg.EventType,
		"payload":        string(msg.Payload),
		"created_at":     msg.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
