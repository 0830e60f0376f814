// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/tally/internal/config"
	"github.com/JaimeStill/tally/internal/infrastructure"
	"github.com/JaimeStill/tally/pkg/lifecycle"
	"github.com/JaimeStill/tally/pkg/middleware"
	"github.com/JaimeStill/tally/pkg/module"
)

// API is the mounted HTTP module plus the background trigger consumer.
type API struct {
	Module *module.Module
	Domain *Domain
	Routes []string
}

// New creates the API module with all domain handlers and middleware.
func New(cfg *config.Config, infra *infrastructure.Infrastructure) (*API, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	patterns, err := registerRoutes(mux, domain, runtime, cfg)
	if err != nil {
		return nil, err
	}

	m, err := module.New(cfg.API.BasePath, mux)
	if err != nil {
		return nil, fmt.Errorf("api base path: %w", err)
	}
	m.Use(middleware.API(
		runtime.Logger,
		&cfg.API.CORS,
		middleware.NewHTTPMetrics("tally", runtime.Registry),
	)...)

	return &API{Module: m, Domain: domain, Routes: patterns}, nil
}

// Start runs the trigger consumer under lc.
func (a *API) Start(lc *lifecycle.Coordinator) error {
	return a.Domain.Consumer.Start(lc)
}
