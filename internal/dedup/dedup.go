// Package dedup reconciles newly normalized deals with the persisted set.
package dedup

import "github.com/pauljones0/korting/internal/models"

// Result is the outcome of a merge.
type Result struct {
	// Merged is existing followed by the accepted incoming deals.
	Merged []models.Deal
	// Added holds the accepted incoming deals in arrival order.
	Added []models.Deal
	// Duplicates counts incoming deals dropped because their id was taken.
	Duplicates int
}

// Merge appends every incoming deal whose id is not yet present. Existing
// deals are never overwritten, and within incoming the first occurrence of an
// id wins.
func Merge(existing []models.Deal, incoming []models.Deal) Result {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, d := range existing {
		seen[d.ID] = struct{}{}
	}

	res := Result{Merged: make([]models.Deal, 0, len(existing)+len(incoming))}
	res.Merged = append(res.Merged, existing...)
	for _, d := range incoming {
		if _, dup := seen[d.ID]; dup {
			res.Duplicates++
			continue
		}
		seen[d.ID] = struct{}{}
		res.Merged = append(res.Merged, d)
		res.Added = append(res.Added, d)
	}
	return res
}
