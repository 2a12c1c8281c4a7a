// Package extract pulls prices, merchants, coupons and images out of
// human-written deal text, where the source provides no structured fields.
package extract

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/pauljones0/korting/internal/lookup"
	"github.com/pauljones0/korting/internal/price"
)

var (
	salePriceRegex     = regexp.MustCompile(`(?i)\bvoor\s*€?\s*(\d+(?:[.,]\d+)*)`)
	originalPriceRegex = regexp.MustCompile(`(?i)\b(?:was|i\.?\s?p\.?\s?v\.?|van)\s*€?\s*(\d+(?:[.,]\d+)*)`)
	anyPriceRegex      = regexp.MustCompile(`€\s*(\d+(?:[.,]\d+)*)`)
	freeRegex          = regexp.MustCompile(`(?i)\b(?:gratis|free|kost niets)\b`)

	merchantRegex = regexp.MustCompile(`(?:@|\b(?i:bij|via)\b)\s*([\p{Lu}\d][\p{L}\d.&'-]*)`)
	trailingAt    = regexp.MustCompile(`\s*@\s*[^@]*$`)

	couponRegex     = regexp.MustCompile(`\b(?i:kortingscode|code)\s*[:=]?\s*([A-Z0-9][A-Z0-9_-]{2,24})\b`)
	capsTokenRegex  = regexp.MustCompile(`\b[A-Z0-9]{5,20}\b`)
	whitespaceRegex = regexp.MustCompile(`\s+`)

	strictPolicy = bluemonday.StrictPolicy()
)

// Prices finds the sale and original price in free text. Layers, first hit wins:
// "voor €X" with "was|i.p.v.|van €Y"; the lowest "€X" anywhere (no original);
// a free offer ("0", no original). Returned values are raw price text.
func Prices(text string) (sale, original string, ok bool) {
	if m := salePriceRegex.FindStringSubmatch(text); m != nil {
		sale = m[1]
		if o := originalPriceRegex.FindStringSubmatch(text); o != nil {
			original = o[1]
		}
		return sale, original, true
	}

	var lowest string
	for _, m := range anyPriceRegex.FindAllStringSubmatch(text, -1) {
		v, err := price.Parse(m[1])
		if err != nil {
			continue
		}
		if lowest == "" {
			lowest = m[1]
			continue
		}
		if cur, _ := price.Parse(lowest); v.LessThan(cur) {
			lowest = m[1]
		}
	}
	if lowest != "" {
		return lowest, "", true
	}

	if freeRegex.MatchString(text) {
		return "0", "", true
	}
	return "", "", false
}

// Merchant recognizes the store behind a deal: a known merchant mentioned in
// the text, else the capitalized word after "@", "bij" or "via" in the title.
func Merchant(title, body string, tables *lookup.Tables) (string, bool) {
	if name, ok := tables.MerchantMentioned(title + " " + body); ok {
		return name, true
	}
	if m := merchantRegex.FindStringSubmatch(title); m != nil {
		name := strings.TrimRight(m[1], ".,;:!-")
		if name != "" {
			return name, true
		}
	}
	return "", false
}

// Coupon returns a discount code: an explicit "code: X", else a standalone
// upper-case token that mixes letters and digits.
func Coupon(text string) string {
	if m := couponRegex.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	for _, tok := range capsTokenRegex.FindAllString(text, -1) {
		if hasLetter(tok) && hasDigit(tok) {
			return tok
		}
	}
	return ""
}

// FirstImage returns the src of the first <img> in an HTML fragment.
func FirstImage(fragment string) string {
	if !strings.Contains(fragment, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return strings.TrimSpace(src)
}

// StripMarkup removes all tags and decodes entities, collapsing whitespace.
func StripMarkup(s string) string {
	return CollapseSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

// CleanTitle drops a trailing "@ Store" and collapses whitespace.
func CleanTitle(title string) string {
	title = CollapseSpace(StripMarkup(title))
	if cleaned := strings.TrimSpace(trailingAt.ReplaceAllString(title, "")); cleaned != "" {
		return cleaned
	}
	return title
}

// CleanDescription strips markup and caps the result at max runes.
func CleanDescription(s string, max int) string {
	return Truncate(StripMarkup(s), max)
}

// CollapseSpace trims s and folds runs of whitespace into single spaces.
func CollapseSpace(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// Truncate caps s at max runes. A non-positive max leaves s unchanged.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:max]))
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r >= 'A' && r <= 'Z' }) >= 0
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' }) >= 0
}
