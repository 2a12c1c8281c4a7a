package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Deal is a canonical, normalized discount offer.
type Deal struct {
	ID                     string          `json:"id" validate:"required"`
	Title                  string          `json:"title" validate:"required"`
	Description            string          `json:"description"`
	Merchant               string          `json:"merchant" validate:"required"`
	MerchantLogo           string          `json:"merchant_logo"`
	OriginalPrice          decimal.Decimal `json:"original_price"`
	SalePrice              decimal.Decimal `json:"sale_price"`
	OriginalPriceEstimated bool            `json:"original_price_estimated"`
	DiscountPercentage     int             `json:"discount_percentage" validate:"gte=0,lte=100"`
	CouponCode             string          `json:"coupon_code,omitempty"`
	AffiliateURL           string          `json:"affiliate_url" validate:"required,url"`
	SourceURL              string          `json:"source_url" validate:"omitempty,url"`
	Category               Category        `json:"category" validate:"required,category"`
	ImageURL               string          `json:"image_url" validate:"omitempty,url"`
	ValidFrom              time.Time       `json:"valid_from" validate:"required"`
	ValidUntil             time.Time       `json:"valid_until" validate:"required"`
	Source                 string          `json:"source" validate:"required"`
	Status                 Status          `json:"status" validate:"required,oneof=pending approved rejected"`
	CreatedAt              time.Time       `json:"created_at" validate:"required"`
	IsActive               bool            `json:"is_active"`
}

// Expired reports whether the offer's validity window ended before now.
func (d Deal) Expired(now time.Time) bool {
	return d.ValidUntil.Before(now)
}

// Visible reports whether end users should see the deal at now.
func (d Deal) Visible(now time.Time) bool {
	return d.IsActive && d.Status == StatusApproved && !d.Expired(now)
}

// Replace returns next with the provenance of d (id, source, created_at) kept.
// Explicit edits go through Replace; ingestion never does.
func (d Deal) Replace(next Deal) Deal {
	next.ID = d.ID
	next.Source = d.Source
	next.CreatedAt = d.CreatedAt
	return next
}
