// Package sources describes the configured deal sources and turns their
// fetched documents into candidate records.
package sources

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pauljones0/korting/internal/models"
)

// Kind selects the parser family for a source.
type Kind string

const (
	KindAffiliate   Kind = "affiliate"
	KindSyndication Kind = "syndication"
	KindScrape      Kind = "scrape"
)

// Selectors are optional CSS selectors for sites whose markup is known.
// Field selectors are evaluated inside each Item match.
type Selectors struct {
	Item     string `yaml:"item"`
	Title    string `yaml:"title"`
	Price    string `yaml:"price"`
	OldPrice string `yaml:"old_price"`
	Image    string `yaml:"image"`
	Link     string `yaml:"link"`
}

// Profile is one entry of the source catalogue.
type Profile struct {
	ID           string          `yaml:"id"`
	Kind         Kind            `yaml:"kind"`
	Tag          string          `yaml:"tag"`
	URLs         []string        `yaml:"urls"`
	Merchant     string          `yaml:"merchant"`
	MerchantLogo string          `yaml:"merchant_logo"`
	Category     models.Category `yaml:"category"`

	// Network names the affiliate field mapping: daisycon, tradetracker or generic.
	Network     string `yaml:"network"`
	ItemElement string `yaml:"item_element"`

	Status                 models.Status `yaml:"status"`
	ValidityDays           int           `yaml:"validity_days"`
	PriceMultiplier        float64       `yaml:"price_multiplier"`
	MinDiscount            *int          `yaml:"min_discount"`
	MaxItems               int           `yaml:"max_items"`
	IdentityIncludesSource *bool         `yaml:"identity_includes_source"`

	Render    bool       `yaml:"render"`
	Selectors *Selectors `yaml:"selectors"`
}

type kindDefaults struct {
	status     models.Status
	validity   int
	multiplier float64
	minDisc    int
	maxItems   int
}

var defaultsByKind = map[Kind]kindDefaults{
	KindAffiliate:   {status: models.StatusApproved, validity: 30, multiplier: 1.2, minDisc: 0, maxItems: 30},
	KindSyndication: {status: models.StatusPending, validity: 7, multiplier: 1.25, minDisc: 0, maxItems: 30},
	KindScrape:      {status: models.StatusApproved, validity: 7, multiplier: 1.2, minDisc: 5, maxItems: 30},
}

// applyDefaults fills unset policy fields from the kind's defaults.
func (p *Profile) applyDefaults() {
	d := defaultsByKind[p.Kind]
	if p.Tag == "" {
		p.Tag = p.ID
	}
	if p.Status == "" {
		p.Status = d.status
	}
	if p.ValidityDays <= 0 {
		p.ValidityDays = d.validity
	}
	if p.PriceMultiplier <= 1 {
		p.PriceMultiplier = d.multiplier
	}
	if p.MinDiscount == nil {
		v := d.minDisc
		p.MinDiscount = &v
	}
	if p.MaxItems <= 0 {
		p.MaxItems = d.maxItems
	}
	if p.Kind == KindAffiliate && p.ItemElement == "" {
		p.ItemElement = "product"
	}
	if p.IdentityIncludesSource == nil {
		v := true
		p.IdentityIncludesSource = &v
	}
}

// Validity is the default offer window for deals without an expiry.
func (p Profile) Validity() time.Duration {
	return time.Duration(p.ValidityDays) * 24 * time.Hour
}

// Multiplier is the factor used to estimate a missing original price.
func (p Profile) Multiplier() decimal.Decimal {
	return decimal.NewFromFloat(p.PriceMultiplier)
}

// IdentityWithSource reports whether the source tag is part of deal identity.
func (p Profile) IdentityWithSource() bool {
	return p.IdentityIncludesSource == nil || *p.IdentityIncludesSource
}

// MinimumDiscount is the lowest discount percentage the quality filter keeps.
// An explicit 0 disables the filter.
func (p Profile) MinimumDiscount() int {
	if p.MinDiscount == nil || *p.MinDiscount < 0 {
		return 0
	}
	return *p.MinDiscount
}

// ExemptFromMinDiscount reports whether the quality filter is skipped.
// Affiliate feeds are curated upstream and are always exempt.
func (p Profile) ExemptFromMinDiscount() bool {
	return p.Kind == KindAffiliate || p.MinimumDiscount() == 0
}
