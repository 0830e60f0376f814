// Package pagination provides page requests and results for list endpoints.
package pagination

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Config bounds list requests. MaxOffset caps how deep a client can page,
// since the expense list is an OFFSET scan that grows with the page number.
type Config struct {
	DefaultPageSize int `toml:"default_page_size"`
	MaxPageSize     int `toml:"max_page_size"`
	MaxOffset       int `toml:"max_offset"`
}

// ConfigEnv maps environment variable names for pagination configuration.
type ConfigEnv struct {
	DefaultPageSize string
	MaxPageSize     string
	MaxOffset       string
}

// Finalize applies defaults, environment overrides, and validation. An
// environment value that is not an integer is an error, not ignored.
func (c *Config) Finalize(env *ConfigEnv) error {
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = 20
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = 100
	}
	if c.MaxOffset <= 0 {
		c.MaxOffset = 10000
	}

	if env != nil {
		if err := c.loadEnv(env); err != nil {
			return err
		}
	}
	return c.validate()
}

// Merge applies non-zero values from the overlay configuration.
func (c *Config) Merge(overlay *Config) {
	if overlay.DefaultPageSize != 0 {
		c.DefaultPageSize = overlay.DefaultPageSize
	}
	if overlay.MaxPageSize != 0 {
		c.MaxPageSize = overlay.MaxPageSize
	}
	if overlay.MaxOffset != 0 {
		c.MaxOffset = overlay.MaxOffset
	}
}

// MaxPage is the last page reachable at pageSize.
func (c Config) MaxPage(pageSize int) int {
	if c.MaxOffset <= 0 || pageSize <= 0 {
		return 0
	}
	return c.MaxOffset/pageSize + 1
}

func (c *Config) loadEnv(env *ConfigEnv) error {
	var errs []error
	for field, name := range map[*int]string{
		&c.DefaultPageSize: env.DefaultPageSize,
		&c.MaxPageSize:     env.MaxPageSize,
		&c.MaxOffset:       env.MaxOffset,
	} {
		if name == "" {
			continue
		}
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not an integer", name, v))
			continue
		}
		*field = n
	}
	return errors.Join(errs...)
}

func (c *Config) validate() error {
	switch {
	case c.DefaultPageSize < 1:
		return fmt.Errorf("default_page_size must be positive")
	case c.MaxPageSize < 1:
		return fmt.Errorf("max_page_size must be positive")
	case c.DefaultPageSize > c.MaxPageSize:
		return fmt.Errorf("default_page_size cannot exceed max_page_size")
	case c.MaxOffset < c.MaxPageSize:
		return fmt.Errorf("max_offset cannot be below max_page_size")
	}
	return nil
}
