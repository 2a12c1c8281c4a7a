package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pauljones0/korting/internal/models"
	"github.com/pauljones0/korting/internal/price"
)

const (
	colorNoDeals   = 3092790  // #2F3136
	colorNewDeals  = 5763719  // #57F287
	colorCancelled = 16753920 // #FFA500

	maxAttempts   = 3
	retryBase     = 500 * time.Millisecond
	maxRetryAfter = 30 * time.Second
	topDeals      = 5
)

// Client posts run summaries to a Discord webhook.
type Client struct {
	webhookURL  string
	client      *http.Client
	rateLimiter *rate.Limiter
}

func New(webhookURL string) *Client {
	return &Client{
		webhookURL:  webhookURL,
		client:      &http.Client{Timeout: 10 * time.Second},
		rateLimiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
}

// NotifyRun posts one embed with the run totals and the best new deals.
// It is a no-op without a webhook URL.
func (c *Client) NotifyRun(ctx context.Context, s models.RunSummary, added []models.Deal) error {
	if c.webhookURL == "" {
		return nil
	}
	return c.post(ctx, formatRunEmbed(s, added))
}

// Internal structures
type discordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbedFooter struct {
	Text string `json:"text,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      discordEmbedFooter  `json:"footer,omitempty"`
}

func formatRunEmbed(s models.RunSummary, added []models.Deal) discordEmbed {
	color := colorNoDeals
	title := "Ingestion run finished"
	switch {
	case s.Cancelled:
		color = colorCancelled
		title = "Ingestion run cancelled"
	case s.Added > 0:
		color = colorNewDeals
	}

	var failures int
	for _, src := range s.Sources {
		failures += src.FetchFailures + src.ParseFailures
	}

	var timestamp string
	if !s.Finished.IsZero() {
		timestamp = s.Finished.Format(time.RFC3339)
	}

	return discordEmbed{
		Title:       title,
		Description: bestDeals(added, topDeals),
		Timestamp:   timestamp,
		Color:       color,
		Fields: []discordEmbedField{
			{Name: "New", Value: strconv.Itoa(s.Added), Inline: true},
			{Name: "Duplicates", Value: strconv.Itoa(s.Duplicates), Inline: true},
			{Name: "Skipped", Value: strconv.Itoa(s.Skipped), Inline: true},
			{Name: "Expired", Value: strconv.Itoa(s.Pruned), Inline: true},
			{Name: "Stored", Value: strconv.Itoa(s.Total), Inline: true},
			{Name: "Source errors", Value: strconv.Itoa(failures), Inline: true},
		},
		Footer: discordEmbedFooter{Text: fmt.Sprintf("run %s · %d sources", s.RunID, len(s.Sources))},
	}
}

// bestDeals lists up to n deals by descending discount, one per line.
func bestDeals(deals []models.Deal, n int) string {
	sorted := make([]models.Deal, len(deals))
	copy(sorted, deals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DiscountPercentage > sorted[j].DiscountPercentage
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}

	lines := make([]string, 0, len(sorted))
	for _, d := range sorted {
		lines = append(lines, fmt.Sprintf("**-%d%%** [%s](%s) %s bij %s",
			d.DiscountPercentage, d.Title, d.AffiliateURL, price.Format(d.SalePrice), d.Merchant))
	}
	return strings.Join(lines, "\n")
}

func (c *Client) post(ctx context.Context, embed discordEmbed) error {
	payloadBytes, err := json.Marshal(discordWebhookPayload{Embeds: []discordEmbed{embed}})
	if err != nil {
		return err
	}

	parsedURL, err := url.Parse(c.webhookURL)
	if err != nil {
		return err
	}
	q := parsedURL.Query()
	q.Set("wait", "true")
	parsedURL.RawQuery = q.Encode()

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, parsedURL.String(), bytes.NewReader(payloadBytes))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("discord status: %s, body: %s", resp.Status, string(bodyBytes))

		wait := retryBackoff(resp, attempt)
		if wait == 0 || attempt == maxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return lastErr
}

// retryBackoff returns how long to wait before retrying resp, or zero when
// the status is not retryable.
func retryBackoff(resp *http.Response, attempt int) time.Duration {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		if secs, err := strconv.ParseFloat(resp.Header.Get("Retry-After"), 64); err == nil && secs > 0 {
			d := time.Duration(secs * float64(time.Second))
			if d > maxRetryAfter {
				d = maxRetryAfter
			}
			return d
		}
		return retryBase * time.Duration(1<<attempt)
	case resp.StatusCode >= 500:
		return retryBase * time.Duration(1<<attempt)
	}
	return 0
}
