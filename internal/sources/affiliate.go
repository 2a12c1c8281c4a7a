package sources

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/pauljones0/korting/internal/models"
)

// fieldMap lists, per candidate field, the element names to try in order.
type fieldMap struct {
	Title, Description, Price, OldPrice, Link, Merchant, Logo, Image, Coupon, ValidUntil, Category []string
}

var networkFields = map[string]fieldMap{
	"daisycon": {
		Title:       []string{"name", "title"},
		Description: []string{"description"},
		Price:       []string{"price"},
		OldPrice:    []string{"price_old"},
		Link:        []string{"link"},
		Merchant:    []string{"merchant_name"},
		Logo:        []string{"merchant_logo"},
		Image:       []string{"image_url"},
		Coupon:      []string{"coupon_code"},
		ValidUntil:  []string{"valid_until"},
		Category:    []string{"category"},
	},
	"tradetracker": {
		Title:       []string{"title", "name"},
		Description: []string{"description"},
		Price:       []string{"price"},
		OldPrice:    []string{"fromprice", "price_old"},
		Link:        []string{"producturl", "link"},
		Merchant:    []string{"programname", "merchant"},
		Logo:        []string{"programlogo"},
		Image:       []string{"imageurl", "image_url"},
		Coupon:      []string{"code", "coupon_code"},
		ValidUntil:  []string{"validto", "valid_until"},
		Category:    []string{"category"},
	},
	"generic": {
		Title:       []string{"name", "title", "productname"},
		Description: []string{"description"},
		Price:       []string{"price", "saleprice"},
		OldPrice:    []string{"price_old", "fromprice", "oldprice", "originalprice"},
		Link:        []string{"link", "producturl", "url", "deeplink"},
		Merchant:    []string{"merchant_name", "programname", "merchant", "brand"},
		Logo:        []string{"merchant_logo", "programlogo"},
		Image:       []string{"image_url", "imageurl", "image"},
		Coupon:      []string{"coupon_code", "code"},
		ValidUntil:  []string{"valid_until", "validto"},
		Category:    []string{"category", "categorypath"},
	},
}

// Affiliate parses tag-based product feeds from affiliate networks.
type Affiliate struct {
	item   string
	fields fieldMap
	max    int
}

func NewAffiliate(network, itemElement string, max int) *Affiliate {
	fields, ok := networkFields[strings.ToLower(network)]
	if !ok {
		fields = networkFields["generic"]
	}
	if itemElement == "" {
		itemElement = "product"
	}
	return &Affiliate{item: itemElement, fields: fields, max: max}
}

type feedField struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type feedItem struct {
	Fields []feedField `xml:",any"`
}

// Parse streams the document, decoding one item element at a time. Any
// syntax error invalidates the whole document.
func (a *Affiliate) Parse(body []byte, pageURL string) ([]models.Candidate, error) {
	dec := newXMLDecoder(body)

	var out []models.Candidate
	sawRoot := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &models.ParseError{Source: pageURL, Err: err}
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawRoot = true
		if !strings.EqualFold(se.Name.Local, a.item) {
			continue
		}
		var it feedItem
		if err := dec.DecodeElement(&it, &se); err != nil {
			return nil, &models.ParseError{Source: pageURL, Err: err}
		}
		out = append(out, a.candidate(it.bag(), pageURL))
	}
	if !sawRoot {
		return nil, &models.ParseError{Source: pageURL, Err: errEmptyDocument}
	}
	return limit(out, a.max), nil
}

func (it feedItem) bag() map[string]string {
	bag := make(map[string]string, len(it.Fields))
	for _, f := range it.Fields {
		key := strings.ToLower(f.XMLName.Local)
		if v := strings.TrimSpace(f.Value); v != "" {
			if _, exists := bag[key]; !exists {
				bag[key] = v
			}
		}
	}
	return bag
}

func (a *Affiliate) candidate(bag map[string]string, pageURL string) models.Candidate {
	pick := func(names []string) string {
		for _, n := range names {
			if v := bag[n]; v != "" {
				return v
			}
		}
		return ""
	}
	return models.Candidate{
		Title:         pick(a.fields.Title),
		Description:   pick(a.fields.Description),
		Merchant:      pick(a.fields.Merchant),
		MerchantLogo:  pick(a.fields.Logo),
		Price:         pick(a.fields.Price),
		OriginalPrice: pick(a.fields.OldPrice),
		Link:          pick(a.fields.Link),
		SourceURL:     pageURL,
		Category:      pick(a.fields.Category),
		ImageURL:      pick(a.fields.Image),
		CouponCode:    pick(a.fields.Coupon),
		ValidUntil:    pick(a.fields.ValidUntil),
	}
}
