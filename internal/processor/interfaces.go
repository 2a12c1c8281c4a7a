package processor

import (
	"context"
	"time"

	"github.com/pauljones0/korting/internal/models"
	"github.com/pauljones0/korting/internal/sources"
)

// DealStore abstracts the storage layer for deal data.
type DealStore interface {
	List(ctx context.Context, f models.Filter) ([]models.Deal, error)
	InsertAll(ctx context.Context, deals []models.Deal) (int, error)
	Delete(ctx context.Context, ids ...string) (int, error)
}

// Fetcher retrieves source documents, honoring a cache window.
type Fetcher interface {
	Fetch(ctx context.Context, url string, window time.Duration) ([]byte, error)
	FetchRendered(ctx context.Context, url string, window time.Duration) ([]byte, error)
}

// Normalizer turns a candidate into a canonical deal.
type Normalizer interface {
	Normalize(c models.Candidate, p sources.Profile, now time.Time) (models.Deal, error)
}

// CategoryHinter suggests a category for a deal the classifier left in other.
type CategoryHinter interface {
	SuggestCategory(ctx context.Context, d models.Deal) (models.Category, error)
}

// RunNotifier abstracts the notification layer.
type RunNotifier interface {
	NotifyRun(ctx context.Context, s models.RunSummary, added []models.Deal) error
}
