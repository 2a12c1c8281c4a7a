package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/pauljones0/korting/internal/sources"
	"github.com/pauljones0/korting/internal/storage"
)

const (
	DefaultUserAgent   = "kort.ing/1.0 (Dutch Deal Aggregator)"
	DefaultGeminiModel = "gemini-2.5-flash"
)

type Config struct {
	DataDir     string
	Backend     storage.Backend
	DealsFile   string
	SQLitePath  string
	DatabaseURL string
	ProjectID   string

	CacheDir      string
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	FetchTimeout      time.Duration
	FetchRetries      int
	FetchRatePerHost  float64
	UserAgent         string
	SourceConcurrency int
	RetentionGrace    time.Duration
	SourcesConfigPath string
	ChromeRender      bool

	DaisyconPublisherID    string
	DaisyconAPIKey         string
	TradeTrackerCustomerID string
	TradeTrackerPassphrase string
	AmazonAffiliateTag     string

	GeminiAPIKey      string
	GeminiModel       string
	DiscordWebhookURL string
	Port              string
	LogLevel          slog.Level
}

// Load reads the environment, after an optional .env file in the working
// directory, and applies defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded environment from .env")
	}

	dataDir := envOr("DATA_DIR", "data")
	cfg := &Config{
		DataDir:     dataDir,
		Backend:     storage.Backend(strings.ToLower(envOr("STORE_BACKEND", string(storage.BackendJSON)))),
		DealsFile:   envOr("DEALS_FILE", filepath.Join(dataDir, "deals.json")),
		SQLitePath:  envOr("SQLITE_PATH", filepath.Join(dataDir, "deals.db")),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		ProjectID:   os.Getenv("GOOGLE_CLOUD_PROJECT"),

		CacheDir:      envOr("CACHE_DIR", filepath.Join(dataDir, "feeds")),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		UserAgent:         envOr("USER_AGENT", DefaultUserAgent),
		SourcesConfigPath: os.Getenv("SOURCES_CONFIG_PATH"),

		DaisyconPublisherID:    os.Getenv("DAISYCON_PUBLISHER_ID"),
		DaisyconAPIKey:         os.Getenv("DAISYCON_API_KEY"),
		TradeTrackerCustomerID: os.Getenv("TRADETRACKER_CUSTOMER_ID"),
		TradeTrackerPassphrase: os.Getenv("TRADETRACKER_PASSPHRASE"),
		AmazonAffiliateTag:     os.Getenv("AMAZON_AFFILIATE_TAG"),

		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       envOr("GEMINI_MODEL", DefaultGeminiModel),
		DiscordWebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),
		Port:              envOr("PORT", "8080"),
	}

	var err error
	if cfg.CacheTTL, err = durationEnv("CACHE_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = durationEnv("FETCH_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.RetentionGrace, err = durationEnv("RETENTION_GRACE", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = intEnv("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.FetchRetries, err = intEnv("FETCH_RETRIES", 1); err != nil {
		return nil, err
	}
	if cfg.SourceConcurrency, err = intEnv("SOURCE_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if cfg.SourceConcurrency < 1 {
		return nil, fmt.Errorf("invalid SOURCE_CONCURRENCY %d: must be at least 1", cfg.SourceConcurrency)
	}
	if v := os.Getenv("FETCH_RATE_PER_HOST"); v != "" {
		if cfg.FetchRatePerHost, err = strconv.ParseFloat(v, 64); err != nil || cfg.FetchRatePerHost < 0 {
			return nil, fmt.Errorf("invalid FETCH_RATE_PER_HOST %q", v)
		}
	} else {
		cfg.FetchRatePerHost = 2
	}
	if v := os.Getenv("CHROME_RENDER"); v != "" {
		if cfg.ChromeRender, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("invalid CHROME_RENDER %q: %w", v, err)
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", v, err)
		}
	}

	switch cfg.Backend {
	case storage.BackendJSON, storage.BackendSQLite:
	case storage.BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is required for the postgres backend")
		}
	case storage.BackendFirestore:
		if cfg.ProjectID == "" {
			return nil, fmt.Errorf("GOOGLE_CLOUD_PROJECT environment variable is required for the firestore backend")
		}
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND %q", cfg.Backend)
	}

	if cfg.DiscordWebhookURL == "" {
		slog.Info("DISCORD_WEBHOOK_URL not set, run summaries will be skipped")
	}
	return cfg, nil
}

// StoreOptions selects and configures the deal store.
func (c *Config) StoreOptions() storage.Options {
	return storage.Options{
		Backend:     c.Backend,
		DealsFile:   c.DealsFile,
		SQLitePath:  c.SQLitePath,
		DatabaseURL: c.DatabaseURL,
		ProjectID:   c.ProjectID,
	}
}

// Credentials fills the source URL placeholders. Unset values stay empty so
// the sources needing them are disabled.
func (c *Config) Credentials() sources.Credentials {
	return sources.Credentials{
		"publisher_id": c.DaisyconPublisherID,
		"api_key":      c.DaisyconAPIKey,
		"customer_id":  c.TradeTrackerCustomerID,
		"passphrase":   c.TradeTrackerPassphrase,
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", key, v)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", key, v)
	}
	return n, nil
}
