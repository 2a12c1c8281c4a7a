package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// Renderer loads a page in a browser and returns the rendered document.
type Renderer interface {
	Render(ctx context.Context, url string) ([]byte, error)
}

// ChromeRenderer renders pages with a headless Chrome started per call.
type ChromeRenderer struct {
	UserAgent string
	Timeout   time.Duration
}

func (r *ChromeRenderer) Render(ctx context.Context, url string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.UserAgent(r.UserAgent))
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		tabCtx, cancel = context.WithTimeout(tabCtx, r.Timeout)
		defer cancel()
	}

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", url, err)
	}
	return []byte(html), nil
}
