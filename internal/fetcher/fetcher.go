// Package fetcher retrieves source documents over HTTP with a time-boxed
// cache, per-host rate limiting and retries for transient failures.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pauljones0/korting/internal/models"
	"github.com/pauljones0/korting/internal/util"
)

const (
	DefaultUserAgent    = "kort.ing/1.0 (Dutch Deal Aggregator)"
	DefaultTimeout      = 30 * time.Second
	DefaultMaxBodyBytes = 10 << 20
)

var errBodyTooLarge = errors.New("response body exceeds size limit")

// Options tune a Fetcher. Zero values select the defaults.
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	Retries      int
	RetryBase    time.Duration
	RatePerHost  float64 // requests per second; 0 disables limiting
	MaxBodyBytes int64
}

// Fetcher is safe for concurrent use.
type Fetcher struct {
	client   *http.Client
	caches   []Cache
	renderer Renderer
	opts     Options

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New builds a Fetcher. Caches are consulted in order and all receive writes.
func New(opts Options, caches ...Cache) *Fetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Fetcher{
		client:   &http.Client{Timeout: opts.Timeout},
		caches:   caches,
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

// SetRenderer enables FetchRendered. Without a renderer it behaves like Fetch.
func (f *Fetcher) SetRenderer(r Renderer) {
	f.renderer = r
}

// Fetch returns the body at rawURL, served from cache when a copy is at most
// window old. Failures are returned as *models.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, window time.Duration) ([]byte, error) {
	return f.cached(ctx, rawURL, window, f.get)
}

// FetchRendered is Fetch for pages that only carry their content after scripts run.
func (f *Fetcher) FetchRendered(ctx context.Context, rawURL string, window time.Duration) ([]byte, error) {
	if f.renderer == nil {
		return f.Fetch(ctx, rawURL, window)
	}
	return f.cached(ctx, rawURL, window, func(ctx context.Context, u string) ([]byte, error) {
		body, err := f.renderer.Render(ctx, u)
		if err != nil {
			return nil, &models.FetchError{URL: u, Err: err}
		}
		return body, nil
	})
}

func (f *Fetcher) cached(ctx context.Context, rawURL string, window time.Duration, load func(context.Context, string) ([]byte, error)) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		if err == nil {
			err = fmt.Errorf("invalid URL scheme %q: only http and https allowed", parsed.Scheme)
		}
		return nil, &models.FetchError{URL: rawURL, Err: err}
	}

	if window > 0 {
		for _, c := range f.caches {
			body, ok, err := c.Get(ctx, rawURL, window)
			if err != nil {
				slog.Warn("Cache read failed", "url", rawURL, "error", err)
				continue
			}
			if ok {
				slog.Debug("Serving from cache", "url", rawURL)
				return body, nil
			}
		}
	}

	if err := f.limiter(parsed.Hostname()).Wait(ctx); err != nil {
		return nil, &models.FetchError{URL: rawURL, Err: err}
	}

	body, err := load(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	for _, c := range f.caches {
		if err := c.Put(ctx, rawURL, body); err != nil {
			slog.Warn("Cache write failed", "url", rawURL, "error", err)
		}
	}
	return body, nil
}

// isClientError reports a 4xx status that a retry cannot fix. 429 is the
// server asking to slow down, so it is retried.
func isClientError(status int) bool {
	return status >= 400 && status < 500 && status != http.StatusTooManyRequests
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte
	err := util.Retry(ctx, f.opts.Retries, f.opts.RetryBase, func(attempt int) error {
		if attempt > 0 {
			slog.Info("Retrying fetch", "url", rawURL, "attempt", attempt)
		}
		b, err := f.do(ctx, rawURL)
		if err != nil {
			var fe *models.FetchError
			if errors.As(err, &fe) && isClientError(fe.StatusCode) {
				return util.Permanent(err)
			}
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		var fe *models.FetchError
		if errors.As(err, &fe) {
			return nil, fe
		}
		return nil, &models.FetchError{URL: rawURL, Err: err}
	}
	return body, nil
}

func (f *Fetcher) do(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &models.FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml,application/rss+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "nl-NL,nl;q=0.9,en;q=0.8")

	res, err := f.client.Do(req)
	if err != nil {
		return nil, &models.FetchError{URL: rawURL, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
		return nil, &models.FetchError{URL: rawURL, StatusCode: res.StatusCode, Err: errors.New(strings.ToLower(http.StatusText(res.StatusCode)))}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, f.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, &models.FetchError{URL: rawURL, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	if int64(len(body)) > f.opts.MaxBodyBytes {
		return nil, &models.FetchError{URL: rawURL, Err: errBodyTooLarge}
	}
	return body, nil
}

func (f *Fetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.limiters[host]
	if !ok {
		limit := rate.Inf
		if f.opts.RatePerHost > 0 {
			limit = rate.Limit(f.opts.RatePerHost)
		}
		l = rate.NewLimiter(limit, 1)
		f.limiters[host] = l
	}
	return l
}
