package sources

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/pauljones0/korting/internal/extract"
	"github.com/pauljones0/korting/internal/models"
	"github.com/pauljones0/korting/internal/util"
)

const minTitleRunes = 5

// energyLabelRegex matches bare EU energy grades that product tiles expose
// as image alt text.
var energyLabelRegex = regexp.MustCompile(`^[A-Ga-g]\+{0,3}$`)

// Strategy is one way of reading products out of a retailer page.
type Strategy interface {
	Name() string
	Extract(doc *goquery.Document, pageURL string) []models.Candidate
}

// Scrape reads retailer pages by trying its strategies in order and keeping
// the first non-empty result.
type Scrape struct {
	strategies []Strategy
	max        int
}

// NewScrape builds the default strategy order: embedded structured data,
// then configured selectors when present, then generic markup patterns.
func NewScrape(sel *Selectors, max int) *Scrape {
	strategies := []Strategy{jsonLDStrategy{}}
	if sel != nil && sel.Item != "" {
		strategies = append(strategies, selectorStrategy{sel: *sel})
	}
	strategies = append(strategies, markupStrategy{})
	return &Scrape{strategies: strategies, max: max}
}

func (s *Scrape) Parse(body []byte, pageURL string) ([]models.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(utf8Reader(body))
	if err != nil {
		return nil, &models.ParseError{Source: pageURL, Err: err}
	}
	for _, strategy := range s.strategies {
		cands := keepPlausible(strategy.Extract(doc, pageURL))
		if len(cands) > 0 {
			slog.Debug("Extracted candidates", "url", pageURL, "strategy", strategy.Name(), "count", len(cands))
			return limit(cands, s.max), nil
		}
	}
	return nil, nil
}

// keepPlausible drops items whose title is missing, too short or an energy
// label, and repeats of an already-seen title on the same page.
func keepPlausible(cands []models.Candidate) []models.Candidate {
	out := cands[:0]
	seen := make(map[string]bool, len(cands))
	for _, c := range cands {
		c.Title = extract.CollapseSpace(c.Title)
		if utf8.RuneCountInString(c.Title) < minTitleRunes || energyLabelRegex.MatchString(c.Title) {
			continue
		}
		key := strings.ToLower(c.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// selectorStrategy reads items with site-specific CSS selectors.
type selectorStrategy struct {
	sel Selectors
}

func (selectorStrategy) Name() string { return "selectors" }

func (s selectorStrategy) Extract(doc *goquery.Document, pageURL string) []models.Candidate {
	var out []models.Candidate
	doc.Find(s.sel.Item).Each(func(_ int, item *goquery.Selection) {
		c := models.Candidate{SourceURL: pageURL}
		if s.sel.Title != "" {
			c.Title = strings.TrimSpace(item.Find(s.sel.Title).First().Text())
		}
		if s.sel.Price != "" {
			c.Price = strings.TrimSpace(item.Find(s.sel.Price).First().Text())
		}
		if s.sel.OldPrice != "" {
			c.OriginalPrice = strings.TrimSpace(item.Find(s.sel.OldPrice).First().Text())
		}
		if s.sel.Image != "" {
			c.ImageURL = util.ResolveURL(pageURL, imageSource(item.Find(s.sel.Image).First()))
		}
		if s.sel.Link != "" {
			link := item.Find(s.sel.Link).First()
			if href, ok := link.Attr("href"); ok {
				c.Link = util.ResolveURL(pageURL, href)
			}
		}
		if c.Link == "" {
			if href, ok := item.Attr("href"); ok {
				c.Link = util.ResolveURL(pageURL, href)
			}
		}
		if c.Title == "" {
			alt, _ := item.Find("img[alt]").First().Attr("alt")
			c.Title = strings.TrimSpace(alt)
		}
		out = append(out, c)
	})
	return out
}

// imageSource prefers lazy-loading attributes over a placeholder src.
func imageSource(img *goquery.Selection) string {
	for _, attr := range []string{"data-src", "data-lazy-src", "src"} {
		if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" && !strings.HasPrefix(v, "data:") {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
