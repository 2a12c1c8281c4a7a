// Package price parses locale-formatted amounts and computes discounts.
package price

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalid is returned for text that is not a non-negative amount.
var ErrInvalid = errors.New("invalid price")

var hundred = decimal.NewFromInt(100)

var currencyReplacer = strings.NewReplacer(
	"€", "", "$", "", "euro", "", "eur", "",
	" ", "", "\u00a0", "", "\t", "",
)

// Parse reads amounts such as "29,99", "€ 1.299,-", "1.299,99" or "19.95".
// Commas are read as decimal separators; when more than one dot remains,
// every dot but the last is a group separator. A lone dot followed by exactly
// three digits is a thousands separator ("1.299" is 1299). The result is
// rounded to cents.
func Parse(s string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(s)
	cleaned := currencyReplacer.Replace(strings.ToLower(raw))
	cleaned = strings.TrimSuffix(cleaned, ",-")
	cleaned = strings.TrimSuffix(cleaned, ".-")
	cleaned = strings.TrimRight(cleaned, ".,")
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalid, raw)
	}
	if strings.HasPrefix(cleaned, "-") {
		return decimal.Zero, fmt.Errorf("%w: negative amount %q", ErrInvalid, raw)
	}

	hadComma := strings.Contains(cleaned, ",")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	switch dots := strings.Count(cleaned, "."); {
	case dots > 1:
		last := strings.LastIndex(cleaned, ".")
		cleaned = strings.ReplaceAll(cleaned[:last], ".", "") + cleaned[last:]
	case dots == 1 && !hadComma:
		if i := strings.Index(cleaned, "."); len(cleaned)-i-1 == 3 {
			cleaned = cleaned[:i] + cleaned[i+1:]
		}
	}

	for _, r := range cleaned {
		if (r < '0' || r > '9') && r != '.' {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalid, raw)
		}
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalid, raw)
	}
	return d.Round(2), nil
}

// Discount returns floor((original-sale)/original*100) clamped to [0, 100].
// It returns 0 when original is not positive.
func Discount(original, sale decimal.Decimal) int {
	if !original.IsPositive() {
		return 0
	}
	pct := original.Sub(sale).Div(original).Mul(hundred).Floor().IntPart()
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return int(pct)
}

// Estimate returns sale scaled by multiplier, rounded to cents.
func Estimate(sale, multiplier decimal.Decimal) decimal.Decimal {
	return sale.Mul(multiplier).Round(2)
}

// Format renders an amount the way Dutch shops do: "€ 1.299,99".
func Format(d decimal.Decimal) string {
	s := d.StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")
	neg := strings.HasPrefix(whole, "-")
	whole = strings.TrimPrefix(whole, "-")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return "€ -" + b.String() + "," + frac
	}
	return "€ " + b.String() + "," + frac
}
