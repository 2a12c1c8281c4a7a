package config

import (
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pauljones0/korting/internal/storage"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"DATA_DIR", "STORE_BACKEND", "DEALS_FILE", "CACHE_TTL", "SOURCE_CONCURRENCY",
		"FETCH_RATE_PER_HOST", "USER_AGENT", "GEMINI_MODEL", "PORT", "LOG_LEVEL", "RETENTION_GRACE"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.Backend != storage.BackendJSON {
		t.Errorf("Expected json backend, got %s", cfg.Backend)
	}
	if cfg.DealsFile != filepath.Join("data", "deals.json") {
		t.Errorf("Expected data/deals.json, got %s", cfg.DealsFile)
	}
	if cfg.CacheDir != filepath.Join("data", "feeds") {
		t.Errorf("Expected data/feeds, got %s", cfg.CacheDir)
	}
	if cfg.CacheTTL != time.Hour {
		t.Errorf("Expected default 1h cache window, got %s", cfg.CacheTTL)
	}
	if cfg.RetentionGrace != 7*24*time.Hour {
		t.Errorf("Expected 7 day grace, got %s", cfg.RetentionGrace)
	}
	if cfg.SourceConcurrency != 4 || cfg.FetchRatePerHost != 2 || cfg.FetchRetries != 1 {
		t.Errorf("Unexpected fetch defaults: %+v", cfg)
	}
	if cfg.UserAgent != DefaultUserAgent || cfg.GeminiModel != DefaultGeminiModel || cfg.Port != "8080" {
		t.Errorf("Unexpected string defaults: %+v", cfg)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("Expected info level, got %s", cfg.LogLevel)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATA_DIR", "/var/lib/korting")
	t.Setenv("STORE_BACKEND", "SQLite")
	t.Setenv("CACHE_TTL", "15m")
	t.Setenv("SOURCE_CONCURRENCY", "8")
	t.Setenv("FETCH_RATE_PER_HOST", "0.5")
	t.Setenv("CHROME_RENDER", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DAISYCON_PUBLISHER_ID", "123")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.Backend != storage.BackendSQLite {
		t.Errorf("Expected sqlite backend, got %s", cfg.Backend)
	}
	if cfg.SQLitePath != "/var/lib/korting/deals.db" {
		t.Errorf("Expected SQLite path under DATA_DIR, got %s", cfg.SQLitePath)
	}
	if cfg.CacheTTL != 15*time.Minute || cfg.SourceConcurrency != 8 || cfg.FetchRatePerHost != 0.5 {
		t.Errorf("Overrides not applied: %+v", cfg)
	}
	if !cfg.ChromeRender || cfg.LogLevel != slog.LevelDebug {
		t.Errorf("Expected rendering and debug logging, got %+v", cfg)
	}

	opts := cfg.StoreOptions()
	if opts.Backend != storage.BackendSQLite || opts.SQLitePath != cfg.SQLitePath {
		t.Errorf("StoreOptions() = %+v", opts)
	}
	creds := cfg.Credentials()
	if creds["publisher_id"] != "123" || creds["api_key"] != "" {
		t.Errorf("Credentials() = %v", creds)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"Bad duration", "CACHE_TTL", "soon", "CACHE_TTL"},
		{"Negative grace", "RETENTION_GRACE", "-1h", "RETENTION_GRACE"},
		{"Bad integer", "FETCH_RETRIES", "many", "FETCH_RETRIES"},
		{"Zero concurrency", "SOURCE_CONCURRENCY", "0", "SOURCE_CONCURRENCY"},
		{"Bad rate", "FETCH_RATE_PER_HOST", "fast", "FETCH_RATE_PER_HOST"},
		{"Bad bool", "CHROME_RENDER", "maybe", "CHROME_RENDER"},
		{"Bad log level", "LOG_LEVEL", "loud", "LOG_LEVEL"},
		{"Unknown backend", "STORE_BACKEND", "mongo", "STORE_BACKEND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			if err == nil {
				t.Fatalf("Load() should return an error for %s=%q", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %s", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_BackendRequirements(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Error("Load() should require DATABASE_URL for postgres")
	}

	t.Setenv("STORE_BACKEND", "firestore")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")
	if _, err := Load(); err == nil {
		t.Error("Load() should require GOOGLE_CLOUD_PROJECT for firestore")
	}

	t.Setenv("GOOGLE_CLOUD_PROJECT", "test-project")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.StoreOptions().ProjectID != "test-project" {
		t.Errorf("Expected project id in store options, got %+v", cfg.StoreOptions())
	}
}
