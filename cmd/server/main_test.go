package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pauljones0/korting/internal/models"
)

type mockProcessor struct {
	release  chan struct{}
	selector chan []string
	err      error
}

func (m *mockProcessor) Run(ctx context.Context, selector []string) (*models.RunSummary, error) {
	m.selector <- selector
	if m.release != nil {
		<-m.release
	}
	return &models.RunSummary{}, m.err
}

func newTestServer(p *mockProcessor) *Server {
	return &Server{processor: p, baseCtx: context.Background(), done: make(chan struct{}, 1)}
}

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for background run")
	}
	var zero T
	return zero
}

func TestProcessDealsHandler(t *testing.T) {
	p := &mockProcessor{selector: make(chan []string, 1)}
	srv := newTestServer(p)

	req := httptest.NewRequest(http.MethodPost, "/process-deals?sources=pepper,coolblue&category=food", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", rec.Code)
	}
	got := waitFor(t, p.selector)
	if want := []string{"pepper", "coolblue", "food"}; !slices.Equal(got, want) {
		t.Errorf("selector = %q, want %q", got, want)
	}
	waitFor(t, srv.done)
	if srv.running.Load() {
		t.Error("running flag not cleared after run")
	}
}

func TestProcessDealsHandler_ConflictWhileRunning(t *testing.T) {
	p := &mockProcessor{selector: make(chan []string, 1), release: make(chan struct{})}
	srv := newTestServer(p)
	h := srv.Routes()

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/process-deals", nil))
	if first.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", first.Code)
	}
	if got := waitFor(t, p.selector); len(got) != 0 {
		t.Errorf("Expected empty selector, got %q", got)
	}

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/process-deals", nil))
	if second.Code != http.StatusConflict {
		t.Errorf("Expected 409 while running, got %d", second.Code)
	}

	close(p.release)
	waitFor(t, srv.done)

	third := httptest.NewRecorder()
	h.ServeHTTP(third, httptest.NewRequest(http.MethodPost, "/process-deals", nil))
	if third.Code != http.StatusAccepted {
		t.Errorf("Expected 202 after run finished, got %d", third.Code)
	}
	waitFor(t, p.selector)
	waitFor(t, srv.done)
}

func TestProcessDealsHandler_RunErrorClearsFlag(t *testing.T) {
	p := &mockProcessor{selector: make(chan []string, 1), err: errors.New("store down")}
	srv := newTestServer(p)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/process-deals", nil))
	waitFor(t, p.selector)
	waitFor(t, srv.done)
	if srv.running.Load() {
		t.Error("running flag not cleared after failed run")
	}
}

func TestRoutes(t *testing.T) {
	srv := newTestServer(&mockProcessor{selector: make(chan []string, 1)})
	h := srv.Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "{\"status\":\"ok\"}\n" {
		t.Errorf("GET /health = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/process-deals", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /process-deals = %d, want 405", rec.Code)
	}
}

// drainingProcessor keeps persisting for a moment after its context ends, the
// way the pipeline finishes writes on a detached context.
type drainingProcessor struct {
	started  chan struct{}
	inserted atomic.Bool
}

func (p *drainingProcessor) Run(ctx context.Context, selector []string) (*models.RunSummary, error) {
	p.started <- struct{}{}
	<-ctx.Done()
	time.Sleep(20 * time.Millisecond)
	p.inserted.Store(true)
	return &models.RunSummary{Added: 1, Cancelled: true}, ctx.Err()
}

func TestWait_InFlightRunFinishesBeforeClose(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := &drainingProcessor{started: make(chan struct{}, 1)}
	srv := &Server{processor: p, baseCtx: ctx}

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/process-deals", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", rec.Code)
	}
	waitFor(t, p.started)

	cancel()
	waitCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	if err := srv.Wait(waitCtx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if !p.inserted.Load() {
		t.Error("Wait returned before the run finished persisting")
	}
	if srv.running.Load() {
		t.Error("running flag not cleared after run")
	}
}

func TestWait_BoundedByContext(t *testing.T) {
	p := &mockProcessor{selector: make(chan []string, 1), release: make(chan struct{})}
	srv := newTestServer(p)

	srv.Routes().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/process-deals", nil))
	waitFor(t, p.selector)

	waitCtx, stop := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer stop()
	if err := srv.Wait(waitCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want deadline exceeded", err)
	}

	close(p.release)
	waitFor(t, srv.done)
	if err := srv.Wait(context.Background()); err != nil {
		t.Errorf("Wait() after run = %v", err)
	}
}

func TestWait_Idle(t *testing.T) {
	srv := newTestServer(&mockProcessor{selector: make(chan []string, 1)})
	if err := srv.Wait(context.Background()); err != nil {
		t.Errorf("Wait() with no run = %v", err)
	}
}
