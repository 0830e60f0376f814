package storage_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/JaimeStill/tally/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=tallystore;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/tallystore;"

func TestNewInvalidConnectionString(t *testing.T) {
	cfg := &storage.Config{
		ContainerName:    "receipts",
		ConnectionString: "not-a-connection-string",
	}

	if _, err := storage.New(cfg, slog.Default()); err == nil {
		t.Fatal("expected error for invalid connection string, got nil")
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"receipt key", "expenses/user_1/rec_1/receipt.png", nil},
		{"escaped name", "expenses/user%201/rec_1/my%20receipt%3B2.png", nil},
		{"escaped unicode", "expenses/user_1/rec_1/caf%C3%A9.png", nil},
		{"empty", "", storage.ErrEmptyKey},
		{"leading slash", "/expenses/rec_1/receipt.png", storage.ErrInvalidKey},
		{"empty segment", "expenses//receipt.png", storage.ErrInvalidKey},
		{"dot segment", "expenses/./receipt.png", storage.ErrInvalidKey},
		{"raw space", "expenses/user_1/rec_1/my receipt.png", storage.ErrInvalidKey},
		{"lowercase escape", "expenses/user_1/rec_1/caf%c3%a9.png", storage.ErrInvalidKey},
		{"bad escape", "expenses/user_1/rec_1/100%.png", storage.ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := storage.ValidateKey(tt.key)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateKey(%q) = %v", tt.key, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateKey(%q) = %v, want %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestKeyValidation(t *testing.T) {
	sys, err := storage.New(&storage.Config{
		ContainerName:    "receipts",
		ConnectionString: azuriteConnString,
	}, slog.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"empty key", "", storage.ErrEmptyKey},
		{"path traversal", "expenses/../secrets/key", storage.ErrInvalidKey},
		{"double dot in segment", "expenses/..hidden/receipt.pdf", storage.ErrInvalidKey},
	}

	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := sys.Upload(ctx, tt.key, bytes.NewReader(nil), "application/pdf"); !errors.Is(err, tt.wantErr) {
				t.Errorf("Upload() error = %v, want %v", err, tt.wantErr)
			}
			if _, err := sys.Download(ctx, tt.key); !errors.Is(err, tt.wantErr) {
				t.Errorf("Download() error = %v, want %v", err, tt.wantErr)
			}
			if err := sys.Delete(ctx, tt.key); !errors.Is(err, tt.wantErr) {
				t.Errorf("Delete() error = %v, want %v", err, tt.wantErr)
			}
			if _, err := sys.Exists(ctx, tt.key); !errors.Is(err, tt.wantErr) {
				t.Errorf("Exists() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFinalizeDefaults(t *testing.T) {
	cfg := storage.Config{ConnectionString: "test-connection"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.ContainerName != "receipts" {
		t.Errorf("container_name: got %s, want receipts", cfg.ContainerName)
	}
	if cfg.UsesCredential() {
		t.Error("connection string config should not use a credential")
	}
}

func TestFinalizeEnvOverrides(t *testing.T) {
	t.Setenv("TEST_CONTAINER", "uploads")
	t.Setenv("TEST_SERVICE_URL", "https://tally.blob.core.windows.net/")

	env := &storage.Env{
		ContainerName: "TEST_CONTAINER",
		ServiceURL:    "TEST_SERVICE_URL",
	}

	cfg := storage.Config{}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.ContainerName != "uploads" {
		t.Errorf("container_name: got %s, want uploads", cfg.ContainerName)
	}
	if !cfg.UsesCredential() {
		t.Error("service url without connection string should use a credential")
	}
}

func TestFinalizeValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     storage.Config
		wantErr string
	}{
		{"no endpoint", storage.Config{ContainerName: "docs"}, "connection_string or service_url required"},
		{"bad service url", storage.Config{ServiceURL: "ftp://nope"}, "invalid service_url"},
		{"connection string", storage.Config{ConnectionString: "conn"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := storage.Config{ContainerName: "receipts", ConnectionString: "base"}
	base.Merge(&storage.Config{ServiceURL: "https://tally.blob.core.windows.net/"})

	if base.ConnectionString != "base" {
		t.Errorf("connection_string overwritten by empty overlay: %s", base.ConnectionString)
	}
	if base.ServiceURL != "https://tally.blob.core.windows.net/" {
		t.Errorf("service_url: got %s", base.ServiceURL)
	}
}
