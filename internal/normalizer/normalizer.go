// Package normalizer turns candidate records into canonical Deals.
package normalizer

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pauljones0/korting/internal/category"
	"github.com/pauljones0/korting/internal/extract"
	"github.com/pauljones0/korting/internal/lookup"
	"github.com/pauljones0/korting/internal/models"
	"github.com/pauljones0/korting/internal/price"
	"github.com/pauljones0/korting/internal/sources"
	"github.com/pauljones0/korting/internal/util"
	"github.com/pauljones0/korting/internal/validator"
)

const (
	idLength         = 12
	descriptionRunes = 500
	logoTemplate     = "https://logo.clearbit.com/%s.nl"
	dateOnlyLayout   = "2006-01-02"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]`)

// publishedLayouts are the timestamp formats seen in feed entries.
var publishedLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02T15:04:05",
	dateOnlyLayout,
}

// Normalizer converts candidates into Deals that satisfy every stored-Deal
// invariant. It holds only read-only state and is safe for concurrent use.
type Normalizer struct {
	tables     *lookup.Tables
	classifier *category.Classifier
	validate   *validator.Validator
	amazonTag  string
}

// New creates a Normalizer. amazonTag may be empty.
func New(tables *lookup.Tables, classifier *category.Classifier, v *validator.Validator, amazonTag string) *Normalizer {
	return &Normalizer{
		tables:     tables,
		classifier: classifier,
		validate:   v,
		amazonTag:  amazonTag,
	}
}

// Normalize builds a Deal from c using p's policies. A candidate that cannot
// produce a valid Deal yields a *models.FieldError; one dropped by the
// quality filter yields an error wrapping models.ErrBelowMinDiscount.
func (n *Normalizer) Normalize(c models.Candidate, p sources.Profile, now time.Time) (models.Deal, error) {
	title := extract.CollapseSpace(c.Title)
	if title == "" {
		return models.Deal{}, &models.FieldError{Field: "title", Reason: "missing"}
	}

	sale, original, estimated, err := prices(c, p.Multiplier())
	if err != nil {
		return models.Deal{}, err
	}
	discount := price.Discount(original, sale)
	if sale.IsZero() {
		discount = 100
	}
	if !p.ExemptFromMinDiscount() && discount < p.MinimumDiscount() {
		return models.Deal{}, fmt.Errorf("%w: %d%% < %d%%", models.ErrBelowMinDiscount, discount, p.MinimumDiscount())
	}

	link, err := n.affiliateURL(c)
	if err != nil {
		return models.Deal{}, err
	}

	merchant := n.merchant(c, p, link)
	if merchant == "" {
		return models.Deal{}, &models.FieldError{Field: "merchant", Reason: "missing"}
	}

	validFrom, validUntil := validity(c, p.Validity(), now)

	deal := models.Deal{
		ID:                     DealID(merchant, title, p.Tag, p.IdentityWithSource()),
		Title:                  title,
		Description:            extract.CleanDescription(c.Description, descriptionRunes),
		Merchant:               merchant,
		MerchantLogo:           n.merchantLogo(c, p, merchant),
		OriginalPrice:          original,
		SalePrice:              sale,
		OriginalPriceEstimated: estimated,
		DiscountPercentage:     discount,
		CouponCode:             strings.TrimSpace(c.CouponCode),
		AffiliateURL:           link,
		SourceURL:              strings.TrimSpace(c.SourceURL),
		Category:               n.category(c, p),
		ImageURL:               imageURL(c),
		ValidFrom:              validFrom,
		ValidUntil:             validUntil,
		Source:                 p.Tag,
		Status:                 p.Status,
		CreatedAt:              now,
		IsActive:               true,
	}

	if err := n.validate.ValidateStruct(deal); err != nil {
		return models.Deal{}, &models.FieldError{Field: "deal", Reason: "invalid", Err: err}
	}
	return deal, nil
}

// DealID derives the stable identity of an offer: the first 12 hex digits of
// md5("merchant:title[:source]").
func DealID(merchant, title, source string, withSource bool) string {
	content := merchant + ":" + title
	if withSource {
		content += ":" + source
	}
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])[:idLength]
}

// prices parses and repairs the price pair. A missing or unparsable original,
// or one not above the sale price, is estimated with the source multiplier.
// Free offers keep 0/0 and get a full discount.
func prices(c models.Candidate, multiplier decimal.Decimal) (sale, original decimal.Decimal, estimated bool, err error) {
	if strings.TrimSpace(c.Price) == "" {
		return sale, original, false, &models.FieldError{Field: "sale_price", Reason: "missing"}
	}
	sale, err = price.Parse(c.Price)
	if err != nil {
		return sale, original, false, &models.FieldError{Field: "sale_price", Reason: "unparsable", Err: err}
	}

	if strings.TrimSpace(c.OriginalPrice) != "" {
		if parsed, perr := price.Parse(c.OriginalPrice); perr == nil {
			original = parsed
		}
	}

	switch {
	case sale.IsZero():
		if original.IsNegative() {
			original = decimal.Zero
		}
	case original.LessThanOrEqual(sale):
		original = price.Estimate(sale, multiplier)
		estimated = true
	}
	return sale, original, estimated, nil
}

func (n *Normalizer) affiliateURL(c models.Candidate) (string, error) {
	link := util.ResolveURL(c.SourceURL, c.Link)
	if link == "" {
		link = strings.TrimSpace(c.SourceURL)
	}
	if link == "" {
		return "", &models.FieldError{Field: "affiliate_url", Reason: "missing"}
	}
	link, _ = util.CleanReferralLink(link, n.amazonTag)
	normalized, err := util.NormalizeURL(link)
	if err != nil {
		return "", &models.FieldError{Field: "affiliate_url", Reason: "not an absolute link", Err: err}
	}
	return normalized, nil
}

func (n *Normalizer) merchant(c models.Candidate, p sources.Profile, link string) string {
	if m := extract.CollapseSpace(c.Merchant); m != "" {
		return m
	}
	if p.Merchant != "" {
		return p.Merchant
	}
	return util.MerchantFromDomain(link)
}

// merchantLogo prefers the source's own logo, then the known-merchant table,
// then a logo URL templated from the merchant slug.
func (n *Normalizer) merchantLogo(c models.Candidate, p sources.Profile, merchant string) string {
	if logo := strings.TrimSpace(c.MerchantLogo); logo != "" {
		return logo
	}
	if logo, ok := n.tables.LogoFor(merchant); ok {
		return logo
	}
	if p.MerchantLogo != "" && strings.EqualFold(merchant, p.Merchant) {
		return p.MerchantLogo
	}
	return LogoURL(merchant)
}

// LogoURL templates a logo address from a merchant name.
func LogoURL(merchant string) string {
	slug := nonSlug.ReplaceAllString(strings.ToLower(merchant), "")
	if slug == "" {
		return ""
	}
	return fmt.Sprintf(logoTemplate, slug)
}

// category resolves the raw category text, then title keywords, then the
// source's primary category.
func (n *Normalizer) category(c models.Candidate, p sources.Profile) models.Category {
	if strings.TrimSpace(c.Category) != "" {
		if cat := n.classifier.Classify(c.Category); cat != models.CategoryOther {
			return cat
		}
	}
	if cat := n.classifier.Detect(c.Title, c.Description); cat != models.CategoryOther {
		return cat
	}
	if p.Category.Valid() {
		return p.Category
	}
	return models.CategoryOther
}

func imageURL(c models.Candidate) string {
	img := util.ResolveURL(c.SourceURL, c.ImageURL)
	if img == "" {
		return ""
	}
	normalized, err := util.NormalizeURL(img)
	if err != nil {
		return ""
	}
	return normalized
}

// validity returns the offer window. The start is the publish time when known,
// else now. Without an explicit end the window runs from that start. An
// inverted window starts now, and is clamped to its end when even now is too
// late.
func validity(c models.Candidate, window time.Duration, now time.Time) (from, until time.Time) {
	from, ok := parseTime(c.Published, publishedLayouts)
	if !ok {
		from = now
	}
	until, ok = parseValidUntil(c.ValidUntil)
	if !ok {
		until = from.Add(window)
	}
	if from.After(until) {
		from = now
	}
	if from.After(until) {
		from = until
	}
	return from, until
}

func parseValidUntil(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if len(s) >= len(dateOnlyLayout) {
		if t, err := time.Parse(dateOnlyLayout, s[:len(dateOnlyLayout)]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseTime(s string, layouts []string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
