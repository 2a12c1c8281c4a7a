package storage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pauljones0/korting/internal/models"
)

// dealColumns is the column order used for inserts and selects.
var dealColumns = []string{
	"id", "title", "description", "merchant", "merchant_logo",
	"original_price", "sale_price", "original_price_estimated", "discount_percentage",
	"coupon_code", "affiliate_url", "source_url", "category", "image_url",
	"valid_from", "valid_until", "source", "status", "created_at", "is_active",
}

// updateColumns are the columns an edit may change; provenance is excluded.
var updateColumns = []string{
	"title", "description", "merchant", "merchant_logo",
	"original_price", "sale_price", "original_price_estimated", "discount_percentage",
	"coupon_code", "affiliate_url", "source_url", "category", "image_url",
	"valid_from", "valid_until", "status", "is_active",
}

// dialect holds the SQL differences between the relational backends.
type dialect struct {
	placeholder func(n int) string
	// selectPrice renders a price column for scanning into a string.
	selectPrice func(col string) string
	// sortPrice orders by the numeric value of sale_price.
	sortPrice string
	noLimit   string
}

var sqliteDialect = dialect{
	placeholder: func(int) string { return "?" },
	selectPrice: func(col string) string { return col },
	sortPrice:   "CAST(sale_price AS REAL)",
	noLimit:     "-1",
}

var postgresDialect = dialect{
	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	selectPrice: func(col string) string { return col + "::text" },
	sortPrice:   "sale_price",
	noLimit:     "ALL",
}

var sortColumns = map[models.SortField]string{
	models.SortCreatedAt: "created_at",
	models.SortDiscount:  "discount_percentage",
	models.SortValidity:  "valid_until",
}

func (d dialect) selectList() string {
	cols := make([]string, len(dealColumns))
	for i, c := range dealColumns {
		if c == "original_price" || c == "sale_price" {
			cols[i] = d.selectPrice(c)
			continue
		}
		cols[i] = c
	}
	return strings.Join(cols, ", ")
}

func (d dialect) placeholders(from, n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = d.placeholder(from + i)
	}
	return strings.Join(ph, ", ")
}

func (d dialect) insertSQL() string {
	return fmt.Sprintf("INSERT INTO deals (%s) VALUES (%s) ON CONFLICT (id) DO NOTHING",
		strings.Join(dealColumns, ", "), d.placeholders(1, len(dealColumns)))
}

func (d dialect) updateSQL() string {
	sets := make([]string, len(updateColumns))
	for i, c := range updateColumns {
		sets[i] = c + " = " + d.placeholder(i+1)
	}
	return fmt.Sprintf("UPDATE deals SET %s WHERE id = %s", strings.Join(sets, ", "), d.placeholder(len(updateColumns)+1))
}

// where renders f as a WHERE clause. now is the backend's encoding of the
// current time.
func (d dialect) where(f models.Filter, now any) (string, []any) {
	var conds []string
	var args []any
	next := func() string { return d.placeholder(len(args)) }

	if f.HasCategory() {
		args = append(args, string(f.Category))
		conds = append(conds, "category = "+next())
	}
	if f.Merchant != "" {
		args = append(args, f.Merchant)
		conds = append(conds, "LOWER(merchant) = LOWER("+next()+")")
	}
	if f.ActiveOnly {
		args = append(args, now)
		conds = append(conds, "is_active AND valid_until >= "+next())
	}
	if f.ApprovedOnly {
		args = append(args, string(models.StatusApproved))
		conds = append(conds, "status = "+next())
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		args = append(args, pattern)
		title := next()
		args = append(args, pattern)
		conds = append(conds, fmt.Sprintf(`(LOWER(title) LIKE %s ESCAPE '\' OR LOWER(merchant) LIKE %s ESCAPE '\')`, title, next()))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (d dialect) orderBy(f models.Filter) string {
	col, ok := sortColumns[f.Sort()]
	if f.Sort() == models.SortPrice {
		col, ok = d.sortPrice, true
	}
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if f.Descending {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id ASC", col, dir)
}

func (d dialect) limit(f models.Filter) string {
	var s string
	switch {
	case f.Limit > 0:
		s = " LIMIT " + strconv.Itoa(f.Limit)
	case f.Offset > 0:
		s = " LIMIT " + d.noLimit
	}
	if f.Offset > 0 {
		s += " OFFSET " + strconv.Itoa(f.Offset)
	}
	return s
}

func (d dialect) listSQL(f models.Filter, now any) (string, []any) {
	where, args := d.where(f, now)
	return "SELECT " + d.selectList() + " FROM deals" + where + d.orderBy(f) + d.limit(f), args
}

func (d dialect) countSQL(f models.Filter, now any) (string, []any) {
	where, args := d.where(f, now)
	return "SELECT COUNT(*) FROM deals" + where, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
