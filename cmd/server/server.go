package main

import (
	"context"
	"fmt"
	"time"

	"github.com/JaimeStill/tally/internal/config"
	"github.com/JaimeStill/tally/internal/infrastructure"
)

// Server owns the process: infrastructure, the expenses API with its trigger
// consumer, and the HTTP listener.
type Server struct {
	cfg     *config.Config
	infra   *infrastructure.Infrastructure
	modules *Modules
	http    *httpServer
}

func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("infrastructure: %w", err)
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, fmt.Errorf("modules: %w", err)
	}

	router := buildRouter(infra)
	modules.Mount(router)

	infra.Logger.Info(
		"server initialized",
		"addr", cfg.Server.Addr(),
		"version", cfg.Version,
		"prefixes", router.Prefixes(),
		"routes", len(modules.API.Routes),
		"usage_sink", cfg.Pipeline.UsageSink,
	)

	return &Server{
		cfg:     cfg,
		infra:   infra,
		modules: modules,
		http:    newHTTPServer(cfg, router, infra.Logger),
	}, nil
}

// Start brings subsystems up in dependency order. Connections come first,
// then the consumer that reads from them, and the listener last so no
// request arrives before the pipeline can run. A failure releases whatever
// already started.
func (s *Server) Start() error {
	began := time.Now()
	s.infra.Logger.Info("starting service")

	steps := []struct {
		name  string
		start func() error
	}{
		{"infrastructure", s.infra.Start},
		{"trigger consumer", func() error { return s.modules.API.Start(s.infra.Lifecycle) }},
		{"http", func() error { return s.http.Start(s.infra.Lifecycle) }},
	}

	for _, step := range steps {
		if err := step.start(); err != nil {
			if stopErr := s.infra.Lifecycle.Shutdown(s.cfg.ShutdownTimeoutDuration()); stopErr != nil {
				s.infra.Logger.Error("release after failed start", "error", stopErr)
			}
			return fmt.Errorf("start %s: %w", step.name, err)
		}
	}

	go func() {
		s.infra.Lifecycle.WaitForStartup()
		s.infra.Logger.Info(
			"all subsystems ready",
			"addr", s.http.Addr().String(),
			"elapsed", time.Since(began),
		)
	}()

	return nil
}

func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown", "timeout", timeout)
	return s.infra.Lifecycle.Shutdown(timeout)
}
