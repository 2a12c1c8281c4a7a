package storage

import (
	"sort"
	"strings"
	"time"

	"github.com/pauljones0/korting/internal/models"
)

// Matches reports whether d passes every predicate of f at now.
func Matches(d models.Deal, f models.Filter, now time.Time) bool {
	if f.HasCategory() && d.Category != f.Category {
		return false
	}
	if f.Merchant != "" && !strings.EqualFold(d.Merchant, f.Merchant) {
		return false
	}
	if f.ActiveOnly && (!d.IsActive || d.Expired(now)) {
		return false
	}
	if f.ApprovedOnly && d.Status != models.StatusApproved {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(d.Title), q) && !strings.Contains(strings.ToLower(d.Merchant), q) {
			return false
		}
	}
	return true
}

// Apply filters, sorts and pages deals in memory. The input is not modified.
func Apply(deals []models.Deal, f models.Filter, now time.Time) []models.Deal {
	out := make([]models.Deal, 0, len(deals))
	for _, d := range deals {
		if Matches(d, f, now) {
			out = append(out, d)
		}
	}
	Sort(out, f.Sort(), f.Descending)
	return page(out, f.Offset, f.Limit)
}

// Sort orders deals by field, breaking ties by id so results are stable
// across backends.
func Sort(deals []models.Deal, field models.SortField, desc bool) {
	sort.SliceStable(deals, func(i, j int) bool {
		c := compare(deals[i], deals[j], field)
		if c == 0 {
			return deals[i].ID < deals[j].ID
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compare(a, b models.Deal, field models.SortField) int {
	switch field {
	case models.SortDiscount:
		return a.DiscountPercentage - b.DiscountPercentage
	case models.SortValidity:
		return a.ValidUntil.Compare(b.ValidUntil)
	case models.SortPrice:
		return a.SalePrice.Cmp(b.SalePrice)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func page(deals []models.Deal, offset, limit int) []models.Deal {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(deals) {
		return []models.Deal{}
	}
	deals = deals[offset:]
	if limit > 0 && limit < len(deals) {
		deals = deals[:limit]
	}
	return deals
}
