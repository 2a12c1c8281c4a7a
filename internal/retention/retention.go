// Package retention prunes deals whose validity ended long enough ago.
package retention

import (
	"time"

	"github.com/pauljones0/korting/internal/models"
)

// DefaultGrace is how long an expired deal is kept before hard deletion.
const DefaultGrace = 7 * 24 * time.Hour

// Prune keeps every deal whose valid_until is not before now-grace. Input
// order is preserved; removed holds the pruned deals.
func Prune(deals []models.Deal, now time.Time, grace time.Duration) (kept, removed []models.Deal) {
	cutoff := now.Add(-grace)
	kept = make([]models.Deal, 0, len(deals))
	for _, d := range deals {
		if d.ValidUntil.Before(cutoff) {
			removed = append(removed, d)
			continue
		}
		kept = append(kept, d)
	}
	return kept, removed
}
