// Package usage records billable usage events. Events are keyed by name and
// correlation ID; repeated events for the same pair are recorded once.
package usage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

// EventScan is emitted once per successfully processed receipt.
const EventScan = "scan"

// DefaultDedupeTTL bounds how long a correlation ID is remembered.
const DefaultDedupeTTL = 7 * 24 * time.Hour

// Event is a single usage occurrence attributed to an owner.
type Event struct {
	Name          string    `json:"name"`
	OwnerID       string    `json:"owner_id"`
	CorrelationID string    `json:"correlation_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Sink accepts usage events.
type Sink interface {
	Track(ctx context.Context, e Event) error
}

// RedisSink appends events to a Redis stream, deduplicating on
// name and correlation ID with SETNX.
type RedisSink struct {
	client *redis.Client
	stream string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisSink creates a sink writing to stream.
func NewRedisSink(client *redis.Client, stream string, ttl time.Duration, logger *slog.Logger) *RedisSink {
	if ttl <= 0 {
		ttl = DefaultDedupeTTL
	}
	return &RedisSink{
		client: client,
		stream: stream,
		ttl:    ttl,
		logger: logger.With("system", "usage"),
	}
}

func dedupeKey(e Event) string {
	return fmt.Sprintf("usage:%s:%s", e.Name, e.CorrelationID)
}

func (s *RedisSink) Track(ctx context.Context, e Event) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	key := dedupeKey(e)
	fresh, err := s.client.SetNX(ctx, key, e.OwnerID, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("usage dedupe %s: %w", key, err)
	}
	if !fresh {
		s.logger.DebugContext(ctx, "duplicate usage event skipped", "event", e.Name, "correlation_id", e.CorrelationID)
		return nil
	}

	_, err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"name":           e.Name,
			"owner_id":       e.OwnerID,
			"correlation_id": e.CorrelationID,
			"occurred_at":    e.OccurredAt.Format(time.RFC3339Nano),
		},
	}).Result()
	if err != nil {
		// release the key so a later attempt can record the event
		if delErr := s.client.Del(ctx, key).Err(); delErr != nil {
			s.logger.WarnContext(ctx, "usage dedupe release failed", "key", key, "error", delErr)
		}
		return fmt.Errorf("usage append %s: %w", s.stream, err)
	}

	s.logger.InfoContext(ctx, "usage event recorded", "event", e.Name, "owner_id", e.OwnerID, "correlation_id", e.CorrelationID)
	return nil
}

// LogSink writes events to the log. It does not deduplicate.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a log-only sink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With("system", "usage")}
}

func (s *LogSink) Track(ctx context.Context, e Event) error {
	s.logger.InfoContext(ctx, "usage event",
		"event", e.Name,
		"owner_id", e.OwnerID,
		"correlation_id", e.CorrelationID,
	)
	return nil
}
