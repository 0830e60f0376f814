package openapi

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Config holds the API document metadata. PublicURL is the origin clients
// reach the service on when it sits behind a gateway; when empty the
// document advertises the base path alone, relative to wherever it was
// fetched from.
type Config struct {
	Title       string `toml:"title"`
	Description string `toml:"description"`
	PublicURL   string `toml:"public_url"`
}

// ConfigEnv maps config fields to environment variable names.
type ConfigEnv struct {
	Title       string
	Description string
	PublicURL   string
}

// Finalize applies defaults, environment overrides, and validation.
func (c *Config) Finalize(env *ConfigEnv) error {
	if c.Title == "" {
		c.Title = "Tally API"
	}
	if c.Description == "" {
		c.Description = "Expense receipt upload and structured data extraction."
	}

	if env != nil {
		for field, name := range map[*string]string{
			&c.Title:       env.Title,
			&c.Description: env.Description,
			&c.PublicURL:   env.PublicURL,
		} {
			if v := os.Getenv(name); name != "" && v != "" {
				*field = v
			}
		}
	}

	if c.PublicURL == "" {
		return nil
	}
	u, err := url.Parse(c.PublicURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid public_url %q: want http(s)://host", c.PublicURL)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Title != "" {
		c.Title = overlay.Title
	}
	if overlay.Description != "" {
		c.Description = overlay.Description
	}
	if overlay.PublicURL != "" {
		c.PublicURL = overlay.PublicURL
	}
}

// ServerURL is the server entry for an API mounted at basePath.
func (c *Config) ServerURL(basePath string) string {
	if c.PublicURL == "" {
		return basePath
	}
	return strings.TrimSuffix(c.PublicURL, "/") + basePath
}
