// Command ingest runs one deal ingestion pass and exits. Arguments select
// sources by id or category; none selects every enabled source.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pauljones0/korting/internal/app"
	"github.com/pauljones0/korting/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Critical error loading configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	// SIGINT/SIGTERM stop the run between sources; the partial merge is still saved.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("Critical error initializing pipeline", "error", err)
		os.Exit(1)
	}

	summary, err := a.Pipeline.Run(ctx, selector(os.Args[1:]))
	if closeErr := a.Close(); closeErr != nil {
		slog.Warn("Error closing resources", "error", closeErr)
	}
	if err != nil {
		slog.Error("Ingestion run failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Ingestion run complete",
		"run", summary.RunID,
		"added", summary.Added,
		"candidates", summary.Candidates(),
		"total", summary.Total,
		"cancelled", summary.Cancelled)
}

// selector accepts tokens as separate arguments or comma separated.
func selector(args []string) []string {
	var out []string
	for _, arg := range args {
		for _, tok := range strings.Split(arg, ",") {
			if tok = strings.TrimSpace(tok); tok != "" {
				out = append(out, tok)
			}
		}
	}
	return out
}
