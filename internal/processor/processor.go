package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pauljones0/korting/internal/dedup"
	"github.com/pauljones0/korting/internal/models"
	"github.com/pauljones0/korting/internal/retention"
	"github.com/pauljones0/korting/internal/sources"
)

// maxHintsPerRun caps category-hint calls in a single run.
const maxHintsPerRun = 25

// Processor runs one ingestion pass over the selected sources.
type Processor interface {
	Run(ctx context.Context, selector []string) (*models.RunSummary, error)
}

// Options tunes a Pipeline.
type Options struct {
	CacheWindow time.Duration
	Concurrency int
	Grace       time.Duration
}

// Pipeline fetches, parses and normalizes every selected source, merges the
// result into the store and prunes expired deals.
type Pipeline struct {
	sources    []sources.Source
	store      DealStore
	fetcher    Fetcher
	normalizer Normalizer
	hinter     CategoryHinter
	notifier   RunNotifier
	opts       Options

	now      func() time.Time
	newRunID func() string
}

func New(srcs []sources.Source, store DealStore, f Fetcher, n Normalizer, opts Options) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Grace < 0 {
		opts.Grace = retention.DefaultGrace
	}
	return &Pipeline{
		sources:    srcs,
		store:      store,
		fetcher:    f,
		normalizer: n,
		opts:       opts,
		now:        time.Now,
		newRunID:   uuid.NewString,
	}
}

// SetHinter enables category hints for new deals left in other.
func (p *Pipeline) SetHinter(h CategoryHinter) {
	p.hinter = h
}

// SetNotifier enables the run summary notification.
func (p *Pipeline) SetNotifier(n RunNotifier) {
	p.notifier = n
}

// Run ingests the sources named by selector (all when empty). Source
// failures are logged and counted; only an unusable selector or a storage
// failure is returned as an error. A cancelled run still persists what was
// merged before cancellation.
func (p *Pipeline) Run(ctx context.Context, selector []string) (*models.RunSummary, error) {
	now := p.now()
	summary := &models.RunSummary{RunID: p.newRunID(), Started: now}
	log := slog.With("run", summary.RunID)

	selected, err := p.selectSources(selector)
	if err != nil {
		return nil, err
	}
	log.Info("Starting ingestion run", "sources", len(selected), "selector", selector)

	existing, err := p.store.List(ctx, models.Filter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load existing deals: %w", err)
	}

	batches := make([][]models.Deal, len(selected))
	stats := make([]models.SourceStats, len(selected))
	g := new(errgroup.Group)
	g.SetLimit(p.opts.Concurrency)
	for i, src := range selected {
		stats[i] = models.SourceStats{Source: src.ID, URLs: len(src.URLs)}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			batches[i], stats[i] = p.processSource(ctx, log, src, now)
			return nil
		})
	}
	_ = g.Wait()

	var incoming []models.Deal
	for i, batch := range batches {
		incoming = append(incoming, batch...)
		summary.Skipped += stats[i].Skipped
	}
	summary.Sources = stats

	merged := dedup.Merge(existing, incoming)
	summary.Duplicates = merged.Duplicates
	summary.Hinted = p.applyHints(ctx, log, merged.Added)

	kept, removed := retention.Prune(merged.Merged, now, p.opts.Grace)
	toInsert, toDelete := plan(merged.Added, removed)

	// Persist even when ctx was cancelled; the merged state is complete.
	persistCtx := context.WithoutCancel(ctx)
	added, err := p.store.InsertAll(persistCtx, toInsert)
	if err != nil {
		return nil, fmt.Errorf("failed to store new deals: %w", err)
	}
	pruned, err := p.store.Delete(persistCtx, toDelete...)
	if err != nil {
		return nil, fmt.Errorf("failed to delete expired deals: %w", err)
	}

	summary.Added = added
	summary.Pruned = pruned
	summary.Total = len(kept)
	summary.Cancelled = ctx.Err() != nil
	summary.Finished = p.now()

	log.Info("Finished processing",
		"added", summary.Added,
		"duplicates", summary.Duplicates,
		"skipped", summary.Skipped,
		"pruned", summary.Pruned,
		"total", summary.Total,
		"cancelled", summary.Cancelled)

	if p.notifier != nil {
		if err := p.notifier.NotifyRun(persistCtx, *summary, toInsert); err != nil {
			log.Warn("Run notification failed", "error", err)
		}
	}
	return summary, nil
}

func (p *Pipeline) selectSources(selector []string) ([]sources.Source, error) {
	profiles := make([]sources.Profile, len(p.sources))
	byID := make(map[string]sources.Source, len(p.sources))
	for i, s := range p.sources {
		profiles[i] = s.Profile
		byID[s.ID] = s
	}
	chosen, err := sources.Select(profiles, selector)
	if err != nil {
		return nil, err
	}
	out := make([]sources.Source, len(chosen))
	for i, prof := range chosen {
		out[i] = byID[prof.ID]
	}
	return out, nil
}

// processSource fetches, parses and normalizes every URL of one source.
// Candidate order is preserved.
func (p *Pipeline) processSource(ctx context.Context, log *slog.Logger, src sources.Source, now time.Time) ([]models.Deal, models.SourceStats) {
	stats := models.SourceStats{Source: src.ID, URLs: len(src.URLs)}
	var deals []models.Deal

	for _, u := range src.URLs {
		if ctx.Err() != nil {
			break
		}
		body, err := p.fetch(ctx, src, u)
		if err != nil {
			stats.FetchFailures++
			log.Warn("Failed to fetch source", "source", src.ID, "url", u, "error", err)
			continue
		}
		cands, err := src.Parser.Parse(body, u)
		if err != nil {
			stats.ParseFailures++
			log.Warn("Failed to parse source document", "source", src.ID, "url", u, "error", err)
			continue
		}
		stats.Candidates += len(cands)

		for _, c := range cands {
			d, err := p.normalizer.Normalize(c, src.Profile, now)
			if err != nil {
				stats.Skipped++
				logSkip(log, src.ID, c, err)
				continue
			}
			stats.Accepted++
			deals = append(deals, d)
		}
	}

	log.Info("Scraped source", "source", src.ID, "candidates", stats.Candidates, "accepted", stats.Accepted, "skipped", stats.Skipped)
	return deals, stats
}

func (p *Pipeline) fetch(ctx context.Context, src sources.Source, u string) ([]byte, error) {
	if src.Render {
		return p.fetcher.FetchRendered(ctx, u, p.opts.CacheWindow)
	}
	return p.fetcher.Fetch(ctx, u, p.opts.CacheWindow)
}

func logSkip(log *slog.Logger, source string, c models.Candidate, err error) {
	var fe *models.FieldError
	switch {
	case errors.As(err, &fe):
		log.Debug("Skipping candidate", "source", source, "title", c.Title, "field", fe.Field, "reason", fe.Reason)
	case errors.Is(err, models.ErrBelowMinDiscount):
		log.Debug("Skipping low discount", "source", source, "title", c.Title, "error", err)
	default:
		log.Warn("Skipping candidate", "source", source, "title", c.Title, "error", err)
	}
}

// applyHints asks the hinter about new deals in other and applies valid
// suggestions in place. It returns the number of deals recategorized.
func (p *Pipeline) applyHints(ctx context.Context, log *slog.Logger, added []models.Deal) int {
	if p.hinter == nil {
		return 0
	}
	calls, hinted := 0, 0
	for i := range added {
		if added[i].Category != models.CategoryOther {
			continue
		}
		if calls >= maxHintsPerRun || ctx.Err() != nil {
			break
		}
		calls++
		cat, err := p.hinter.SuggestCategory(ctx, added[i])
		if err != nil {
			log.Warn("Category hint failed", "id", added[i].ID, "error", err)
			continue
		}
		if cat.Valid() && cat != models.CategoryOther {
			added[i].Category = cat
			hinted++
		}
	}
	return hinted
}

// plan splits the run's changes into new deals to insert and existing ids to
// delete. New deals that were pruned immediately are never written.
func plan(added, removed []models.Deal) (toInsert []models.Deal, toDelete []string) {
	isNew := make(map[string]struct{}, len(added))
	for _, d := range added {
		isNew[d.ID] = struct{}{}
	}
	gone := make(map[string]struct{}, len(removed))
	for _, d := range removed {
		gone[d.ID] = struct{}{}
		if _, ok := isNew[d.ID]; !ok {
			toDelete = append(toDelete, d.ID)
		}
	}
	for _, d := range added {
		if _, ok := gone[d.ID]; !ok {
			toInsert = append(toInsert, d)
		}
	}
	return toInsert, toDelete
}
