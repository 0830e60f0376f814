package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/JaimeStill/tally/pkg/formatting"
)

const (
	EnvPipelineMaxTurns        = "TALLY_PIPELINE_MAX_TURNS"
	EnvPipelineRunTimeout      = "TALLY_PIPELINE_RUN_TIMEOUT"
	EnvPipelineConcurrency     = "TALLY_PIPELINE_CONCURRENCY"
	EnvPipelineMaxDocumentSize = "TALLY_PIPELINE_MAX_DOCUMENT_SIZE"
	EnvPipelineTriggerStream   = "TALLY_PIPELINE_TRIGGER_STREAM"
	EnvPipelineConsumerGroup   = "TALLY_PIPELINE_CONSUMER_GROUP"
	EnvPipelineConsumerName    = "TALLY_PIPELINE_CONSUMER_NAME"
	EnvPipelineUsageStream     = "TALLY_PIPELINE_USAGE_STREAM"
	EnvPipelineUsageDedupeTTL  = "TALLY_PIPELINE_USAGE_DEDUPE_TTL"
	EnvPipelineAsyncDispatch   = "TALLY_PIPELINE_ASYNC_DISPATCH"
	EnvPipelineUsageSink       = "TALLY_PIPELINE_USAGE_SINK"
)

// Usage sinks. Redis appends deduplicated events to UsageStream; log only
// writes them to the service log.
const (
	UsageSinkRedis = "redis"
	UsageSinkLog   = "log"
)

// PipelineConfig bounds pipeline runs and names the Redis streams that feed
// and observe them.
type PipelineConfig struct {
	MaxTurns        int    `toml:"max_turns"`
	RunTimeout      string `toml:"run_timeout"`
	Concurrency     int    `toml:"concurrency"`
	MaxDocumentSize string `toml:"max_document_size"`
	TriggerStream   string `toml:"trigger_stream"`
	ConsumerGroup   string `toml:"consumer_group"`
	ConsumerName    string `toml:"consumer_name"`
	UsageStream     string `toml:"usage_stream"`
	UsageDedupeTTL  string `toml:"usage_dedupe_ttl"`
	UsageSink       string `toml:"usage_sink"`
	// AsyncDispatch queues a run for every upload.
	AsyncDispatch bool `toml:"async_dispatch"`
}

// RunTimeoutDuration returns RunTimeout as a time.Duration.
func (c *PipelineConfig) RunTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.RunTimeout)
	return d
}

// UsageDedupeTTLDuration returns UsageDedupeTTL as a time.Duration.
func (c *PipelineConfig) UsageDedupeTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.UsageDedupeTTL)
	return d
}

// MaxDocumentBytes returns MaxDocumentSize in bytes.
func (c *PipelineConfig) MaxDocumentBytes() int64 {
	n, _ := formatting.ParseBytes(c.MaxDocumentSize)
	return n
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *PipelineConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *PipelineConfig) Merge(overlay *PipelineConfig) {
	if overlay.MaxTurns != 0 {
		c.MaxTurns = overlay.MaxTurns
	}
	if overlay.RunTimeout != "" {
		c.RunTimeout = overlay.RunTimeout
	}
	if overlay.Concurrency != 0 {
		c.Concurrency = overlay.Concurrency
	}
	if overlay.MaxDocumentSize != "" {
		c.MaxDocumentSize = overlay.MaxDocumentSize
	}
	if overlay.TriggerStream != "" {
		c.TriggerStream = overlay.TriggerStream
	}
	if overlay.ConsumerGroup != "" {
		c.ConsumerGroup = overlay.ConsumerGroup
	}
	if overlay.ConsumerName != "" {
		c.ConsumerName = overlay.ConsumerName
	}
	if overlay.UsageStream != "" {
		c.UsageStream = overlay.UsageStream
	}
	if overlay.UsageDedupeTTL != "" {
		c.UsageDedupeTTL = overlay.UsageDedupeTTL
	}
	if overlay.UsageSink != "" {
		c.UsageSink = overlay.UsageSink
	}
	if overlay.AsyncDispatch {
		c.AsyncDispatch = true
	}
}

func (c *PipelineConfig) loadDefaults() {
	if c.MaxTurns == 0 {
		c.MaxTurns = 10
	}
	if c.RunTimeout == "" {
		c.RunTimeout = "2m"
	}
	if c.Concurrency == 0 {
		c.Concurrency = 4
	}
	if c.MaxDocumentSize == "" {
		c.MaxDocumentSize = "20MB"
	}
	if c.TriggerStream == "" {
		c.TriggerStream = "tally:triggers"
	}
	if c.ConsumerGroup == "" {
		c.ConsumerGroup = "tally-pipeline"
	}
	if c.ConsumerName == "" {
		if host, err := os.Hostname(); err == nil {
			c.ConsumerName = host
		} else {
			c.ConsumerName = "tally"
		}
	}
	if c.UsageStream == "" {
		c.UsageStream = "tally:usage"
	}
	if c.UsageDedupeTTL == "" {
		c.UsageDedupeTTL = "168h"
	}
	if c.UsageSink == "" {
		c.UsageSink = UsageSinkRedis
	}
}

func (c *PipelineConfig) loadEnv() {
	if v := os.Getenv(EnvPipelineMaxTurns); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxTurns = n
		}
	}
	if v := os.Getenv(EnvPipelineRunTimeout); v != "" {
		c.RunTimeout = v
	}
	if v := os.Getenv(EnvPipelineConcurrency); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Concurrency = n
		}
	}
	if v := os.Getenv(EnvPipelineMaxDocumentSize); v != "" {
		c.MaxDocumentSize = v
	}
	if v := os.Getenv(EnvPipelineTriggerStream); v != "" {
		c.TriggerStream = v
	}
	if v := os.Getenv(EnvPipelineConsumerGroup); v != "" {
		c.ConsumerGroup = v
	}
	if v := os.Getenv(EnvPipelineConsumerName); v != "" {
		c.ConsumerName = v
	}
	if v := os.Getenv(EnvPipelineUsageStream); v != "" {
		c.UsageStream = v
	}
	if v := os.Getenv(EnvPipelineUsageDedupeTTL); v != "" {
		c.UsageDedupeTTL = v
	}
	if v := os.Getenv(EnvPipelineUsageSink); v != "" {
		c.UsageSink = v
	}
	if v := os.Getenv(EnvPipelineAsyncDispatch); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.AsyncDispatch = b
		}
	}
}

func (c *PipelineConfig) validate() error {
	if c.MaxTurns < 1 {
		return fmt.Errorf("invalid max_turns: %d", c.MaxTurns)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("invalid concurrency: %d", c.Concurrency)
	}
	if d, err := time.ParseDuration(c.RunTimeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid run_timeout: %q", c.RunTimeout)
	}
	if d, err := time.ParseDuration(c.UsageDedupeTTL); err != nil || d <= 0 {
		return fmt.Errorf("invalid usage_dedupe_ttl: %q", c.UsageDedupeTTL)
	}
	if n, err := formatting.ParseBytes(c.MaxDocumentSize); err != nil || n <= 0 {
		return fmt.Errorf("invalid max_document_size: %q", c.MaxDocumentSize)
	}
	switch c.UsageSink {
	case UsageSinkRedis, UsageSinkLog:
	default:
		return fmt.Errorf("invalid usage_sink: %q", c.UsageSink)
	}
	if c.TriggerStream == "" || c.UsageStream == "" {
		return errors.New("trigger_stream and usage_stream required")
	}
	return nil
}
