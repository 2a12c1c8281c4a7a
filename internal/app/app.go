// Package app wires configuration into a ready-to-run ingestion pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/pauljones0/korting/internal/ai"
	"github.com/pauljones0/korting/internal/category"
	"github.com/pauljones0/korting/internal/config"
	"github.com/pauljones0/korting/internal/fetcher"
	"github.com/pauljones0/korting/internal/lookup"
	"github.com/pauljones0/korting/internal/normalizer"
	"github.com/pauljones0/korting/internal/notifier"
	"github.com/pauljones0/korting/internal/processor"
	"github.com/pauljones0/korting/internal/sources"
	"github.com/pauljones0/korting/internal/storage"
	"github.com/pauljones0/korting/internal/validator"
)

// App holds the pipeline and the resources it owns.
type App struct {
	Pipeline *processor.Pipeline
	Store    storage.Store

	closers []func() error
}

// New builds the pipeline described by cfg. Optional integrations (redis
// cache, rendering, category hints, run notifications) are enabled only when
// configured.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	tables := lookup.Default()

	cat, err := sources.Load(cfg.SourcesConfigPath)
	if err != nil {
		return nil, err
	}
	srcs, err := sources.Build(cat.Resolve(cfg.Credentials()), tables)
	if err != nil {
		return nil, err
	}
	slog.Info("Configured sources", "enabled", len(srcs), "catalogue", len(cat.Sources))

	a := &App{}
	store, err := storage.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Backend, err)
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	caches := []fetcher.Cache{fetcher.NewDiskCache(cfg.CacheDir)}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			slog.Warn("Redis unreachable, using disk cache only", "addr", cfg.RedisAddr, "error", err)
			client.Close()
		} else {
			caches = append(caches, fetcher.NewRedisCache(client, cfg.CacheTTL))
			a.closers = append(a.closers, client.Close)
		}
	}

	f := fetcher.New(fetcher.Options{
		UserAgent:   cfg.UserAgent,
		Timeout:     cfg.FetchTimeout,
		Retries:     cfg.FetchRetries,
		RatePerHost: cfg.FetchRatePerHost,
	}, caches...)
	if cfg.ChromeRender {
		f.SetRenderer(&fetcher.ChromeRenderer{UserAgent: cfg.UserAgent, Timeout: cfg.FetchTimeout})
	}

	n := normalizer.New(tables, category.New(tables), validator.New(), cfg.AmazonAffiliateTag)
	a.Pipeline = processor.New(srcs, store, f, n, processor.Options{
		CacheWindow: cfg.CacheTTL,
		Concurrency: cfg.SourceConcurrency,
		Grace:       cfg.RetentionGrace,
	})

	hinter, err := ai.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		slog.Warn("Category hints disabled", "error", err)
	} else if hinter != nil {
		a.Pipeline.SetHinter(hinter)
	}
	if cfg.DiscordWebhookURL != "" {
		a.Pipeline.SetNotifier(notifier.New(cfg.DiscordWebhookURL))
	}
	return a, nil
}

// Close releases the store and any cache connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
