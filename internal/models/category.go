package models

import "strings"

// Category is one of the fixed canonical category slugs.
type Category string

const (
	CategoryAll         Category = "all"
	CategoryElectronics Category = "electronics"
	CategoryFashion     Category = "fashion"
	CategoryHome        Category = "home"
	CategorySports      Category = "sports"
	CategoryBeauty      Category = "beauty"
	CategoryFood        Category = "food"
	CategoryTravel      Category = "travel"
	CategoryOther       Category = "other"
)

// Categories lists the canonical categories a Deal can carry, in display order.
// CategoryAll is a filter-only pseudo category and is not part of the list.
var Categories = []Category{
	CategoryElectronics,
	CategoryFashion,
	CategoryHome,
	CategorySports,
	CategoryBeauty,
	CategoryFood,
	CategoryTravel,
	CategoryOther,
}

// Valid reports whether c may be stored on a Deal.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory maps a slug to its Category. "all" is accepted for filtering.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c == CategoryAll || c.Valid() {
		return c, true
	}
	return "", false
}
