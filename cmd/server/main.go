package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pauljones0/korting/internal/app"
	"github.com/pauljones0/korting/internal/config"
	"github.com/pauljones0/korting/internal/processor"
)

const runTimeout = 10 * time.Minute

type Server struct {
	processor processor.Processor
	baseCtx   context.Context
	running   atomic.Bool
	runs      sync.WaitGroup
	done      chan struct{} // receives after each background run; nil outside tests
}

func main() {
	slog.Info("Starting kort.ing ingestion server...")
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Critical error loading configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("Critical error initializing pipeline", "error", err)
		os.Exit(1)
	}

	srv := &Server{processor: a.Pipeline, baseCtx: ctx}
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT. The store stays open until the
	// in-flight run has persisted or the shutdown window is spent.
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		slog.Info("Received signal, shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
		if err := srv.Wait(shutdownCtx); err != nil {
			slog.Error("Ingestion run still in progress at shutdown", "error", err)
		}
	}()

	slog.Info("Listening on port", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Failed to listen and serve", "error", err)
		a.Close()
		os.Exit(1)
	}
	<-drained
	if err := a.Close(); err != nil {
		slog.Error("Error closing pipeline resources", "error", err)
	}
	slog.Info("Server stopped.")
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/process-deals", s.ProcessDealsHandler)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"status":"ok"}`)
	})
	return r
}

// ProcessDealsHandler starts a run in the background and answers 202, or 409
// while a run is already in progress.
func (s *Server) ProcessDealsHandler(w http.ResponseWriter, r *http.Request) {
	if !s.running.CompareAndSwap(false, true) {
		http.Error(w, "Deal processing already in progress.", http.StatusConflict)
		return
	}
	selector := selectorFromQuery(r)
	s.runs.Add(1)

	// Run processing asynchronously so the HTTP response isn't blocked
	// by fetching and storage operations that may exceed timeouts.
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("Panic in ingestion run", "panic", rec)
			}
			s.running.Store(false)
			if s.done != nil {
				s.done <- struct{}{}
			}
			s.runs.Done()
		}()
		ctx, cancel := context.WithTimeout(s.baseCtx, runTimeout)
		defer cancel()
		if _, err := s.processor.Run(ctx, selector); err != nil {
			slog.Error("Error processing deals", "error", err, "selector", selector)
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{"status": "started", "selector": selector})
}

// Wait blocks until the background run, if any, has returned or ctx ends.
func (s *Server) Wait(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		s.runs.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// selectorFromQuery reads ?sources=a,b and ?category=food into run selector
// tokens.
func selectorFromQuery(r *http.Request) []string {
	var out []string
	for _, key := range []string{"sources", "category"} {
		for _, v := range r.URL.Query()[key] {
			for _, tok := range strings.Split(v, ",") {
				if tok = strings.TrimSpace(tok); tok != "" {
					out = append(out, tok)
				}
			}
		}
	}
	return out
}
