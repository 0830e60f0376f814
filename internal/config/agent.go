package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

const (
	EnvAgentRegion      = "TALLY_AGENT_REGION"
	EnvAgentModel       = "TALLY_AGENT_MODEL"
	EnvAgentMaxTokens   = "TALLY_AGENT_MAX_TOKENS"
	EnvAgentTemperature = "TALLY_AGENT_TEMPERATURE"
)

// AgentConfig selects the Bedrock model used for document extraction. The
// region also scopes the S3 client used for s3:// document URLs.
type AgentConfig struct {
	Region      string  `toml:"region"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *AgentConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *AgentConfig) Merge(overlay *AgentConfig) {
	if overlay.Region != "" {
		c.Region = overlay.Region
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.MaxTokens != 0 {
		c.MaxTokens = overlay.MaxTokens
	}
	if overlay.Temperature != 0 {
		c.Temperature = overlay.Temperature
	}
}

func (c *AgentConfig) loadDefaults() {
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	if c.Model == "" {
		c.Model = "anthropic.claude-3-5-sonnet-20240620-v1:0"
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 4096
	}
}

func (c *AgentConfig) loadEnv() {
	if v := os.Getenv(EnvAgentRegion); v != "" {
		c.Region = v
	}
	if v := os.Getenv(EnvAgentModel); v != "" {
		c.Model = v
	}
	if v := os.Getenv(EnvAgentMaxTokens); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxTokens = n
		}
	}
	if v := os.Getenv(EnvAgentTemperature); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Temperature = f
		}
	}
}

func (c *AgentConfig) validate() error {
	if c.Model == "" {
		return errors.New("model required")
	}
	if c.MaxTokens < 1 {
		return fmt.Errorf("invalid max_tokens: %d", c.MaxTokens)
	}
	if c.Temperature < 0 || c.Temperature > 1 {
		return fmt.Errorf("invalid temperature: %v", c.Temperature)
	}
	return nil
}
