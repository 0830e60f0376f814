// Package trigger starts pipeline runs. Runs are requested synchronously over
// HTTP or queued on a Redis stream and executed by a consumer group.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/JaimeStill/tally/internal/workflow"
)

// ErrInvalidEvent indicates a stream message without a document URL or
// correlation ID.
var ErrInvalidEvent = errors.New("invalid trigger event")

// Event requests one pipeline run.
type Event struct {
	DocumentURL   string `json:"document_url"`
	CorrelationID string `json:"correlation_id"`
}

// Validate checks that both fields are present.
func (e Event) Validate() error {
	if strings.TrimSpace(e.DocumentURL) == "" || strings.TrimSpace(e.CorrelationID) == "" {
		return fmt.Errorf("%w: document_url and correlation_id required", ErrInvalidEvent)
	}
	return nil
}

func (e Event) values() map[string]interface{} {
	return map[string]interface{}{
		"document_url":   e.DocumentURL,
		"correlation_id": e.CorrelationID,
	}
}

func eventFrom(msg redis.XMessage) Event {
	str := func(k string) string {
		s, _ := msg.Values[k].(string)
		return s
	}
	return Event{DocumentURL: str("document_url"), CorrelationID: str("correlation_id")}
}

// Runner executes one pipeline run.
type Runner func(ctx context.Context, documentURL, correlationID string) (*workflow.Result, error)

// WorkflowRunner binds workflow.Execute to rt.
func WorkflowRunner(rt *workflow.Runtime) Runner {
	return func(ctx context.Context, documentURL, correlationID string) (*workflow.Result, error) {
		return workflow.Execute(ctx, rt, documentURL, correlationID)
	}
}

// WithTimeout bounds every run of r to d.
func WithTimeout(r Runner, d time.Duration) Runner {
	return func(ctx context.Context, documentURL, correlationID string) (*workflow.Result, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return r(ctx, documentURL, correlationID)
	}
}

// Publisher appends trigger events to a Redis stream.
type Publisher struct {
	client *redis.Client
	stream string
}

// NewPublisher creates a publisher for stream.
func NewPublisher(client *redis.Client, stream string) *Publisher {
	return &Publisher{client: client, stream: stream}
}

// Publish queues e and returns the stream message ID.
func (p *Publisher) Publish(ctx context.Context, e Event) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: e.values(),
	}).Result()
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", p.stream, err)
	}
	return id, nil
}

// Dispatch queues a run for an uploaded document.
func (p *Publisher) Dispatch(ctx context.Context, documentURL, correlationID string) error {
	_, err := p.Publish(ctx, Event{DocumentURL: documentURL, CorrelationID: correlationID})
	return err
}
