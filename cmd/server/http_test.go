package main

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/tally/internal/config"
	"github.com/JaimeStill/tally/pkg/lifecycle"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func serverConfig(port int, write, run string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            port,
			ReadTimeout:     "1m",
			WriteTimeout:    write,
			ShutdownTimeout: "5s",
		},
		Pipeline: config.PipelineConfig{RunTimeout: run},
	}
}

func TestWriteTimeoutCoversPipelineRun(t *testing.T) {
	tests := []struct {
		name  string
		write string
		run   string
		want  time.Duration
	}{
		{"longer than run", "15m", "2m", 15 * time.Minute},
		{"extended to run", "30s", "2m", 2*time.Minute + extractionSlack},
		{"unlimited", "0s", "2m", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := writeTimeout(serverConfig(8080, tt.write, tt.run), discard)
			if got != tt.want {
				t.Errorf("write timeout = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHTTPServerServesUntilShutdown(t *testing.T) {
	lc := lifecycle.New()
	router := buildRouter(newTestInfra())

	srv := newHTTPServer(serverConfig(0, "15m", "2m"), router, discard)
	if err := srv.Start(lc); err != nil {
		t.Fatalf("start: %v", err)
	}
	lc.WaitForStartup()

	resp, err := http.Get("http://" + srv.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", resp.StatusCode)
	}

	if failed := lc.RunChecks(context.Background()); failed["http"] != nil {
		t.Errorf("http check failed while serving: %v", failed["http"])
	}

	if err := lc.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if _, err := http.Get("http://" + srv.Addr().String() + "/healthz"); err == nil {
		t.Error("server still accepting after shutdown")
	}
}

func TestHTTPServerPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	srv := newHTTPServer(serverConfig(port, "15m", "2m"), http.NotFoundHandler(), discard)

	err = srv.Start(lifecycle.New())
	if err == nil {
		t.Fatal("start succeeded on a bound port")
	}
	if want := "listen 127.0.0.1:" + strconv.Itoa(port); !strings.HasPrefix(err.Error(), want) {
		t.Errorf("err = %v, want prefix %q", err, want)
	}
}
