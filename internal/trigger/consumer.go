package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/tally/pkg/lifecycle"
)

// ConsumerConfig configures a stream consumer.
type ConsumerConfig struct {
	Stream      string
	Group       string
	Name        string
	Concurrency int
	RunTimeout  time.Duration
	Block       time.Duration
}

// Consumer reads trigger events from a Redis consumer group and runs them
// with bounded concurrency. Every delivered message is acknowledged after
// its run finishes, whatever the outcome: failed runs are logged, not
// redelivered.
type Consumer struct {
	client *redis.Client
	run    Runner
	cfg    ConsumerConfig
	logger *slog.Logger
}

// NewConsumer creates a consumer. Zero config values take defaults.
func NewConsumer(client *redis.Client, run Runner, cfg ConsumerConfig, logger *slog.Logger) *Consumer {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 2 * time.Minute
	}
	if cfg.Block <= 0 {
		cfg.Block = 2 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "tally"
	}

	return &Consumer{
		client: client,
		run:    run,
		cfg:    cfg,
		logger: logger.With("system", "trigger", "stream", cfg.Stream, "consumer", cfg.Name),
	}
}

// Start runs the consumer for the lifetime of the coordinator once startup
// hooks complete. Shutdown waits for in-flight runs to finish.
func (c *Consumer) Start(lc *lifecycle.Coordinator) error {
	c.logger.Info("starting trigger consumer")

	lc.OnShutdown(func() {
		lc.WaitForStartup()
		if lc.Context().Err() != nil {
			return
		}
		if err := c.Run(lc.Context()); err != nil {
			c.logger.Error("trigger consumer stopped", "error", err)
			return
		}
		c.logger.Info("trigger consumer stopped")
	})

	return nil
}

// EnsureGroup creates the stream and consumer group if missing.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group %s: %w", c.cfg.Group, err)
	}
	return nil
}

// Run consumes until ctx is cancelled, then waits for in-flight runs.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}

	var g errgroup.Group
	g.SetLimit(c.cfg.Concurrency)

	for ctx.Err() == nil {
		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.cfg.Group,
			Consumer: c.cfg.Name,
			Streams:  []string{c.cfg.Stream, ">"},
			Count:    int64(c.cfg.Concurrency),
			Block:    c.cfg.Block,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			c.logger.Error("read trigger stream failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				g.Go(func() error {
					c.handle(ctx, msg)
					return nil
				})
			}
		}
	}

	return g.Wait()
}

func (c *Consumer) handle(ctx context.Context, msg redis.XMessage) {
	defer c.ack(ctx, msg.ID)

	e := eventFrom(msg)
	logger := c.logger.With("message_id", msg.ID, "correlation_id", e.CorrelationID)

	if err := e.Validate(); err != nil {
		logger.Warn("dropping trigger event", "error", err)
		return
	}

	// runs started before shutdown finish within RunTimeout
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.RunTimeout)
	defer cancel()

	res, err := c.run(runCtx, e.DocumentURL, e.CorrelationID)
	if err != nil {
		logger.Warn("triggered run failed", "error", err)
		return
	}

	logger.Info("triggered run complete", "record_id", res.RecordID, "turns", res.Turns)
}

func (c *Consumer) ack(ctx context.Context, id string) {
	ackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := c.client.XAck(ackCtx, c.cfg.Stream, c.cfg.Group, id).Err(); err != nil {
		c.logger.Error("ack trigger event failed", "message_id", id, "error", err)
	}
}
