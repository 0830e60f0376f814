// Package broker manages the Redis connection shared by usage tracking and
// the trigger stream.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/JaimeStill/tally/pkg/lifecycle"
)

// ErrNotReady indicates Redis did not answer a ping.
var ErrNotReady = errors.New("redis not ready")

// System owns a Redis client and its lifecycle.
type System interface {
	// Client returns the shared Redis client.
	Client() *redis.Client
	// Ping verifies Redis is reachable within the connection timeout.
	Ping(ctx context.Context) error
	// Start registers startup, readiness, and shutdown hooks.
	Start(lc *lifecycle.Coordinator) error
}

type broker struct {
	client      *redis.Client
	connTimeout time.Duration
	logger      *slog.Logger
}

// New creates a broker from cfg. No connection is made until first use.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}

	return &broker{
		client:      redis.NewClient(opts),
		connTimeout: cfg.ConnTimeoutDuration(),
		logger:      logger.With("system", "broker", "addr", opts.Addr),
	}, nil
}

func (b *broker) Client() *redis.Client {
	return b.client
}

func (b *broker) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, b.connTimeout)
	defer cancel()

	if err := b.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}
	return nil
}

func (b *broker) Start(lc *lifecycle.Coordinator) error {
	b.logger.Info("starting redis connection")

	lc.OnStartup(func() {
		if err := b.Ping(lc.Context()); err != nil {
			b.logger.Error("redis ping failed", "error", err)
			return
		}
		b.logger.Info("redis connection established")
	})

	lc.AddCheck("redis", b.Ping)

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		if err := b.client.Close(); err != nil {
			b.logger.Error("redis close failed", "error", err)
			return
		}
		b.logger.Info("redis connection closed")
	})

	return nil
}
