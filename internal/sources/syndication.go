package sources

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/pauljones0/korting/internal/extract"
	"github.com/pauljones0/korting/internal/lookup"
	"github.com/pauljones0/korting/internal/models"
)

// Syndication parses RSS 2.0 and Atom 1.0 feeds of community-posted deals.
// Prices, merchant and coupon are recovered from the entry text. An entry
// without any amount is taken as a free offer.
type Syndication struct {
	tables *lookup.Tables
	max    int
}

func NewSyndication(tables *lookup.Tables, max int) *Syndication {
	return &Syndication{tables: tables, max: max}
}

type entry struct {
	Title     string
	Link      string
	Body      string
	Published string
	Category  string
	Image     string
}

type rssRoot struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Items []rssItem `xml:"item"`
}

type mediaContent struct {
	URL    string `xml:"url,attr"`
	Medium string `xml:"medium,attr"`
	Type   string `xml:"type,attr"`
}

type rssEnclosure struct {
	URL  string `xml:"url,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string         `xml:"title"`
	Link        string         `xml:"link"`
	Description string         `xml:"description"`
	Content     string         `xml:"http://purl.org/rss/1.0/modules/content/ encoded"`
	PubDate     string         `xml:"pubDate"`
	Categories  []string       `xml:"category"`
	Media       []mediaContent `xml:"http://search.yahoo.com/mrss/ content"`
	Thumbnails  []mediaContent `xml:"http://search.yahoo.com/mrss/ thumbnail"`
	Enclosures  []rssEnclosure `xml:"enclosure"`
}

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type atomCategory struct {
	Term  string `xml:"term,attr"`
	Label string `xml:"label,attr"`
}

// Media precedes Content: an un-namespaced field would also claim media:content.
type atomEntry struct {
	Title      string         `xml:"title"`
	Links      []atomLink     `xml:"link"`
	Summary    string         `xml:"summary"`
	Media      []mediaContent `xml:"http://search.yahoo.com/mrss/ content"`
	Content    string         `xml:"content"`
	Published  string         `xml:"published"`
	Updated    string         `xml:"updated"`
	Categories []atomCategory `xml:"category"`
}

func (s *Syndication) Parse(body []byte, pageURL string) ([]models.Candidate, error) {
	entries, err := decodeFeed(body)
	if err != nil {
		return nil, &models.ParseError{Source: pageURL, Err: err}
	}

	out := make([]models.Candidate, 0, len(entries))
	for _, e := range entries {
		out = append(out, s.candidate(e, pageURL))
	}
	return limit(out, s.max), nil
}

func (s *Syndication) candidate(e entry, pageURL string) models.Candidate {
	title := extract.StripMarkup(e.Title)
	text := extract.StripMarkup(e.Body)

	sale, original, ok := extract.Prices(title)
	if !ok {
		sale, original, ok = extract.Prices(text)
	}
	if !ok {
		// Coupon and percentage deals carry no amount.
		sale, original = "0", ""
	}
	merchant, _ := extract.Merchant(title, text, s.tables)

	image := e.Image
	if image == "" {
		image = extract.FirstImage(e.Body)
	}

	return models.Candidate{
		Title:         extract.CleanTitle(title),
		Description:   text,
		Merchant:      merchant,
		Price:         sale,
		OriginalPrice: original,
		Link:          strings.TrimSpace(e.Link),
		SourceURL:     pageURL,
		Category:      e.Category,
		ImageURL:      image,
		CouponCode:    extract.Coupon(title + " " + text),
		Published:     e.Published,
	}
}

func decodeFeed(body []byte) ([]entry, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errEmptyDocument
	}
	switch detectFormat(trimmed) {
	case "rss":
		return decodeRSS(trimmed)
	case "atom":
		return decodeAtom(trimmed)
	}
	return nil, fmt.Errorf("unknown feed format (expected <rss> or <feed>)")
}

func newXMLDecoder(data []byte) *xml.Decoder {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.CharsetReader = charset.NewReaderLabel
	d.Entity = xml.HTMLEntity
	return d
}

func detectFormat(data []byte) string {
	d := newXMLDecoder(data)
	for {
		tok, err := d.Token()
		if err != nil {
			return ""
		}
		if se, ok := tok.(xml.StartElement); ok {
			switch strings.ToLower(se.Name.Local) {
			case "rss":
				return "rss"
			case "feed":
				return "atom"
			}
			return ""
		}
	}
}

func decodeRSS(data []byte) ([]entry, error) {
	var root rssRoot
	if err := newXMLDecoder(data).Decode(&root); err != nil {
		return nil, fmt.Errorf("parse rss: %w", err)
	}
	out := make([]entry, 0, len(root.Channel.Items))
	for _, item := range root.Channel.Items {
		body := item.Content
		if strings.TrimSpace(body) == "" {
			body = item.Description
		}
		e := entry{
			Title:     strings.TrimSpace(item.Title),
			Link:      strings.TrimSpace(item.Link),
			Body:      body,
			Published: strings.TrimSpace(item.PubDate),
			Image:     mediaImage(append(item.Media, item.Thumbnails...)),
		}
		if len(item.Categories) > 0 {
			e.Category = strings.TrimSpace(item.Categories[0])
		}
		if e.Image == "" {
			for _, enc := range item.Enclosures {
				if strings.HasPrefix(enc.Type, "image/") {
					e.Image = strings.TrimSpace(enc.URL)
					break
				}
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func decodeAtom(data []byte) ([]entry, error) {
	var root atomFeed
	if err := newXMLDecoder(data).Decode(&root); err != nil {
		return nil, fmt.Errorf("parse atom: %w", err)
	}
	out := make([]entry, 0, len(root.Entries))
	for _, ae := range root.Entries {
		body := ae.Content
		if strings.TrimSpace(body) == "" {
			body = ae.Summary
		}
		published := strings.TrimSpace(ae.Published)
		if published == "" {
			published = strings.TrimSpace(ae.Updated)
		}
		e := entry{
			Title:     strings.TrimSpace(ae.Title),
			Link:      atomEntryLink(ae.Links),
			Body:      body,
			Published: published,
			Image:     mediaImage(ae.Media),
		}
		if len(ae.Categories) > 0 {
			e.Category = ae.Categories[0].Label
			if e.Category == "" {
				e.Category = ae.Categories[0].Term
			}
		}
		if e.Image == "" {
			for _, l := range ae.Links {
				if l.Rel == "enclosure" && strings.HasPrefix(l.Type, "image/") {
					e.Image = strings.TrimSpace(l.Href)
					break
				}
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func atomEntryLink(links []atomLink) string {
	for _, l := range links {
		if l.Rel == "" || l.Rel == "alternate" {
			return strings.TrimSpace(l.Href)
		}
	}
	if len(links) > 0 {
		return strings.TrimSpace(links[0].Href)
	}
	return ""
}

func mediaImage(media []mediaContent) string {
	for _, m := range media {
		if m.URL == "" {
			continue
		}
		if m.Medium == "" || m.Medium == "image" || strings.HasPrefix(m.Type, "image/") {
			return strings.TrimSpace(m.URL)
		}
	}
	return ""
}
