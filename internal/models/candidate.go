package models

// Candidate is an unvalidated record extracted by a source parser.
// Every field holds raw source text; the normalizer owns interpretation.
type Candidate struct {
	Title         string
	Description   string
	Merchant      string
	MerchantLogo  string
	Price         string
	OriginalPrice string
	Link          string
	SourceURL     string
	Category      string
	ImageURL      string
	CouponCode    string
	ValidUntil    string
	Published     string
}
