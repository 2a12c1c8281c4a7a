package sources

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/pauljones0/korting/internal/extract"
	"github.com/pauljones0/korting/internal/models"
	"github.com/pauljones0/korting/internal/price"
	"github.com/pauljones0/korting/internal/util"
)

const (
	markupMaxMatches = 15
	markupTitleRunes = 100
)

var (
	euroPriceRegex = regexp.MustCompile(`€\s*(\d+(?:[.,]\d+)*)`)
	minMarkupPrice = decimal.NewFromInt(1)
)

// cardSelector finds the product tile that owns an image.
const cardSelector = `article, li, [class*="product"], [class*="card"], [class*="tile"]`

// markupStrategy pattern-matches visible markup as a last resort: data
// attributes first, then images whose card shows a euro price.
type markupStrategy struct{}

func (markupStrategy) Name() string { return "markup" }

func (m markupStrategy) Extract(doc *goquery.Document, pageURL string) []models.Candidate {
	if out := m.dataAttributes(doc, pageURL); len(out) > 0 {
		return out
	}
	return m.imageCards(doc, pageURL)
}

func (markupStrategy) dataAttributes(doc *goquery.Document, pageURL string) []models.Candidate {
	var out []models.Candidate
	doc.Find("[data-product-name]").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		name, _ := el.Attr("data-product-name")
		p, _ := el.Attr("data-product-price")
		c := models.Candidate{
			Title:     extract.Truncate(extract.CollapseSpace(name), markupTitleRunes),
			Price:     strings.TrimSpace(p),
			SourceURL: pageURL,
			ImageURL:  util.ResolveURL(pageURL, imageSource(el.Find("img").First())),
			Link:      util.ResolveURL(pageURL, cardLink(el)),
		}
		for _, attr := range []string{"data-product-old-price", "data-product-original-price", "data-product-list-price"} {
			if v, ok := el.Attr(attr); ok && strings.TrimSpace(v) != "" {
				c.OriginalPrice = strings.TrimSpace(v)
				break
			}
		}
		if aboveMinimum(c.Price) {
			out = append(out, c)
		}
		return len(out) < markupMaxMatches
	})
	return out
}

func (markupStrategy) imageCards(doc *goquery.Document, pageURL string) []models.Candidate {
	var out []models.Candidate
	doc.Find("img[alt]").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		alt, _ := img.Attr("alt")
		title := extract.Truncate(extract.CollapseSpace(alt), markupTitleRunes)
		if title == "" {
			return true
		}
		card := img.Closest(cardSelector)
		if card.Length() == 0 {
			card = img.Parent().Parent()
		}
		m := euroPriceRegex.FindStringSubmatch(card.Text())
		if m == nil || !aboveMinimum(m[1]) {
			return true
		}
		link := cardLink(card)
		if link == "" {
			link, _ = img.Closest("a[href]").Attr("href")
		}
		out = append(out, models.Candidate{
			Title:     title,
			Price:     m[1],
			SourceURL: pageURL,
			ImageURL:  util.ResolveURL(pageURL, imageSource(img)),
			Link:      util.ResolveURL(pageURL, link),
		})
		return len(out) < markupMaxMatches
	})
	return out
}

func cardLink(sel *goquery.Selection) string {
	if href, ok := sel.Attr("href"); ok {
		return strings.TrimSpace(href)
	}
	href, _ := sel.Find("a[href]").First().Attr("href")
	return strings.TrimSpace(href)
}

func aboveMinimum(text string) bool {
	v, err := price.Parse(text)
	return err == nil && v.GreaterThanOrEqual(minMarkupPrice)
}
