package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/JaimeStill/tally/internal/config"
	"github.com/JaimeStill/tally/pkg/lifecycle"
)

const (
	readHeaderTimeout = 10 * time.Second
	// headroom for persisting and encoding after the pipeline deadline
	extractionSlack = 15 * time.Second
)

type httpServer struct {
	http            *http.Server
	logger          *slog.Logger
	shutdownTimeout time.Duration

	mu       sync.Mutex
	addr     net.Addr
	serveErr error
}

func newHTTPServer(cfg *config.Config, handler http.Handler, logger *slog.Logger) *httpServer {
	logger = logger.With("system", "http")

	return &httpServer{
		http: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
			ReadTimeout:       cfg.Server.ReadTimeoutDuration(),
			WriteTimeout:      writeTimeout(cfg, logger),
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		logger:          logger,
		shutdownTimeout: cfg.Server.ShutdownTimeoutDuration(),
	}
}

// writeTimeout keeps POST /extractions, which runs the pipeline inline, from
// being cut off by the server before the run deadline fires.
func writeTimeout(cfg *config.Config, logger *slog.Logger) time.Duration {
	write := cfg.Server.WriteTimeoutDuration()
	need := cfg.Pipeline.RunTimeoutDuration() + extractionSlack
	if write > 0 && write < need {
		logger.Warn(
			"write timeout shorter than pipeline run timeout, extending",
			"write_timeout", write,
			"run_timeout", cfg.Pipeline.RunTimeoutDuration(),
			"effective", need,
		)
		return need
	}
	return write
}

// Start binds the listen address before returning so a taken port fails
// startup, then serves until the lifecycle shuts down.
func (s *httpServer) Start(lc *lifecycle.Coordinator) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.http.Addr, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	lc.AddCheck("http", s.check)

	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", "error", err)
			s.mu.Lock()
			s.serveErr = err
			s.mu.Unlock()
		}
	}()

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		s.logger.Info("shutting down server")

		// in-flight extractions get the shutdown window to finish
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		if err := s.http.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("server shutdown error", "error", err)
		} else {
			s.logger.Info("server shutdown complete")
		}
	})

	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *httpServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *httpServer) check(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.serveErr != nil {
		return fmt.Errorf("http server stopped: %w", s.serveErr)
	}
	return nil
}
