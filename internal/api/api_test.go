package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/JaimeStill/tally/internal/api"
	"github.com/JaimeStill/tally/internal/config"
	"github.com/JaimeStill/tally/internal/infrastructure"
	"github.com/JaimeStill/tally/internal/usage"
	"github.com/JaimeStill/tally/pkg/broker"
	"github.com/JaimeStill/tally/pkg/database"
	"github.com/JaimeStill/tally/pkg/middleware"
	"github.com/JaimeStill/tally/pkg/module"
	"github.com/JaimeStill/tally/pkg/pagination"
	"github.com/JaimeStill/tally/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=tallystore;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/tallystore;"

func validConfig() *config.Config {
	return &config.Config{
		Agent: config.AgentConfig{
			Region:    "us-east-1",
			Model:     "anthropic.claude-3-5-sonnet-20240620-v1:0",
			MaxTokens: 4096,
		},
		Pipeline: config.PipelineConfig{
			MaxTurns:        10,
			RunTimeout:      "2m",
			Concurrency:     4,
			MaxDocumentSize: "20MB",
			TriggerStream:   "tally:triggers",
			ConsumerGroup:   "tally-pipeline",
			ConsumerName:    "test",
			UsageStream:     "tally:usage",
			UsageDedupeTTL:  "168h",
			UsageSink:       config.UsageSinkRedis,
		},
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "tally",
			User:            "tally",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "5s",
		},
		Storage: storage.Config{
			ContainerName:    "receipts",
			ConnectionString: azuriteConnString,
		},
		Redis: broker.Config{
			URL:         "redis://localhost:6379/0",
			PoolSize:    10,
			ConnTimeout: "5s",
		},
		API: config.APIConfig{
			BasePath:      "/api",
			MaxUploadSize: "10MB",
			CORS:          middleware.CORSConfig{Enabled: false},
			Pagination: pagination.Config{
				DefaultPageSize: 20,
				MaxPageSize:     100,
			},
		},
	}
}

func setupInfra(t *testing.T, cfg *config.Config) *infrastructure.Infrastructure {
	t.Helper()
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	infra, err := infrastructure.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("infrastructure.New() error = %v", err)
	}
	t.Cleanup(func() {
		infra.Database.Connection().Close()
		infra.Broker.Client().Close()
	})
	return infra
}

func TestNew(t *testing.T) {
	cfg := validConfig()
	a, err := api.New(cfg, setupInfra(t, cfg))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if a.Module.Prefix() != "/api" {
		t.Errorf("prefix: got %s, want /api", a.Module.Prefix())
	}

	want := []string{
		"GET /expenses",
		"GET /expenses/{id}",
		"GET /expenses/{id}/document",
		"POST /expenses",
		"PUT /expenses/{id}/status",
		"DELETE /expenses/{id}",
		"POST /extractions",
		"GET /openapi.json",
	}
	for _, p := range want {
		if !slices.Contains(a.Routes, p) {
			t.Errorf("route %q not registered; got %v", p, a.Routes)
		}
	}
}

func TestModuleMiddleware(t *testing.T) {
	cfg := validConfig()
	infra := setupInfra(t, cfg)

	a, err := api.New(cfg, infra)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	router := module.NewRouter()
	router.Mount(a.Module)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/extractions", strings.NewReader(`{"document_url":""}`))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("request id header not set")
	}

	families, err := infra.Registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "tally_http_request_duration_seconds" {
			found = true
		}
	}
	if !found {
		t.Error("http metrics not registered")
	}
}

func TestNewRejectsNestedBasePath(t *testing.T) {
	cfg := validConfig()
	cfg.API.BasePath = "/api/v1"

	_, err := api.New(cfg, setupInfra(t, cfg))
	if !errors.Is(err, module.ErrInvalidPrefix) {
		t.Errorf("err = %v, want ErrInvalidPrefix", err)
	}
}

func TestCORSPreflightForStatusUpdate(t *testing.T) {
	cfg := validConfig()
	cfg.API.CORS = middleware.CORSConfig{Enabled: true, Origins: []string{"https://expenses.example.com"}}
	if err := cfg.API.CORS.Finalize(nil); err != nil {
		t.Fatalf("cors finalize: %v", err)
	}

	a, err := api.New(cfg, setupInfra(t, cfg))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	router := module.NewRouter()
	router.Mount(a.Module)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/expenses/rec_1/status", nil)
	req.Header.Set("Origin", "https://expenses.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "PUT") {
		t.Errorf("allow-methods = %q, want PUT", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, middleware.RequestIDHeader) {
		t.Errorf("allow-headers = %q, want %s", got, middleware.RequestIDHeader)
	}
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("request id header not set on preflight")
	}
}

func TestOpenAPIDocument(t *testing.T) {
	cfg := validConfig()
	cfg.Version = "0.1.0"
	cfg.API.OpenAPI.Title = "Tally API"

	a, err := api.New(cfg, setupInfra(t, cfg))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	router := module.NewRouter()
	router.Mount(a.Module)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var doc struct {
		Info struct {
			Title   string `json:"title"`
			Version string `json:"version"`
		} `json:"info"`
		Paths map[string]map[string]any `json:"paths"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&doc); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if doc.Info.Title != "Tally API" || doc.Info.Version != "0.1.0" {
		t.Errorf("info = %+v", doc.Info)
	}
	for path, method := range map[string]string{
		"/expenses":               "post",
		"/expenses/{id}/document": "get",
		"/expenses/{id}/status":   "put",
		"/extractions":            "post",
	} {
		if _, ok := doc.Paths[path][method]; !ok {
			t.Errorf("%s %s not documented", method, path)
		}
	}
}

func TestNewRuntime(t *testing.T) {
	cfg := validConfig()
	infra := setupInfra(t, cfg)

	runtime := api.NewRuntime(cfg, infra)

	if runtime.Pagination.DefaultPageSize != 20 {
		t.Errorf("pagination default page size: got %d, want 20", runtime.Pagination.DefaultPageSize)
	}
	if runtime.Pipeline.TriggerStream != "tally:triggers" {
		t.Errorf("trigger stream: got %s", runtime.Pipeline.TriggerStream)
	}
	if runtime.Logger == infra.Logger {
		t.Error("runtime logger is not module scoped")
	}
	if runtime.Database == nil || runtime.Storage == nil || runtime.Broker == nil || runtime.Lifecycle == nil {
		t.Error("runtime is missing infrastructure systems")
	}
}

func TestNewDomain(t *testing.T) {
	cfg := validConfig()
	runtime := api.NewRuntime(cfg, setupInfra(t, cfg))

	domain := api.NewDomain(runtime)
	if domain.Expenses == nil || domain.Publisher == nil || domain.Consumer == nil {
		t.Fatal("NewDomain() left a system nil")
	}
	if domain.Workflow.MaxTurns != 10 {
		t.Errorf("max turns: got %d, want 10", domain.Workflow.MaxTurns)
	}
	if domain.Workflow.Model != cfg.Agent.Model {
		t.Errorf("model: got %s", domain.Workflow.Model)
	}
	if domain.Workflow.Status == nil {
		t.Error("failed runs are not recorded on expense files")
	}
	if _, ok := domain.Workflow.Usage.(*usage.RedisSink); !ok {
		t.Errorf("usage sink: got %T, want *usage.RedisSink", domain.Workflow.Usage)
	}
}

func TestNewDomainLogUsageSink(t *testing.T) {
	cfg := validConfig()
	cfg.Pipeline.UsageSink = config.UsageSinkLog
	runtime := api.NewRuntime(cfg, setupInfra(t, cfg))

	domain := api.NewDomain(runtime)
	if _, ok := domain.Workflow.Usage.(*usage.LogSink); !ok {
		t.Errorf("usage sink: got %T, want *usage.LogSink", domain.Workflow.Usage)
	}
}
