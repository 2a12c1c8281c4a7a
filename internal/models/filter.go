package models

// SortField names the Deal fields a listing can be ordered by.
type SortField string

const (
	SortCreatedAt SortField = "created_at"
	SortDiscount  SortField = "discount_percentage"
	SortValidity  SortField = "valid_until"
	SortPrice     SortField = "sale_price"
)

// Filter selects Deals from a store.
type Filter struct {
	Category     Category
	Merchant     string
	Query        string // case-insensitive substring of title or merchant
	ActiveOnly   bool
	ApprovedOnly bool
	SortBy       SortField
	Descending   bool
	Limit        int // 0 means no limit
	Offset       int
}

// Sort returns the effective sort field, defaulting to created_at.
func (f Filter) Sort() SortField {
	switch f.SortBy {
	case SortCreatedAt, SortDiscount, SortValidity, SortPrice:
		return f.SortBy
	}
	return SortCreatedAt
}

// HasCategory reports whether the filter restricts by category.
func (f Filter) HasCategory() bool {
	return f.Category != "" && f.Category != CategoryAll
}
