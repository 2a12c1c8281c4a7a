package sources

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pauljones0/korting/internal/models"
	"github.com/pauljones0/korting/internal/util"
)

// containerKeys are the JSON-LD properties that may nest products, walked in
// this order so extraction is deterministic.
var containerKeys = []string{"@graph", "mainEntity", "itemListElement", "item", "hasOfferCatalog", "offers"}

// jsonLDStrategy reads schema.org Product and Offer annotations.
type jsonLDStrategy struct{}

func (jsonLDStrategy) Name() string { return "jsonld" }

func (jsonLDStrategy) Extract(doc *goquery.Document, pageURL string) []models.Candidate {
	var out []models.Candidate
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			slog.Debug("Skipping malformed JSON-LD block", "url", pageURL, "error", err)
			return
		}
		walkJSONLD(v, func(node map[string]any) {
			out = append(out, productCandidate(node, pageURL))
		})
	})
	return out
}

func walkJSONLD(v any, emit func(map[string]any)) {
	switch n := v.(type) {
	case []any:
		for _, child := range n {
			walkJSONLD(child, emit)
		}
	case map[string]any:
		if hasType(n, "Product") {
			emit(n)
			return
		}
		if hasType(n, "Offer") {
			if item, ok := n["itemOffered"].(map[string]any); ok {
				merged := make(map[string]any, len(item)+1)
				for k, val := range item {
					merged[k] = val
				}
				offer := make(map[string]any, len(n))
				for k, val := range n {
					if k != "itemOffered" {
						offer[k] = val
					}
				}
				merged["offers"] = offer
				emit(merged)
				return
			}
			if str(n["name"]) != "" {
				emit(n)
				return
			}
		}
		for _, key := range containerKeys {
			if child, ok := n[key]; ok {
				walkJSONLD(child, emit)
			}
		}
	}
}

// hasType matches "@type" given as a string or an array of strings.
func hasType(n map[string]any, want string) bool {
	switch t := n["@type"].(type) {
	case string:
		return strings.EqualFold(t, want)
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok && strings.EqualFold(s, want) {
				return true
			}
		}
	}
	return false
}

func productCandidate(node map[string]any, pageURL string) models.Candidate {
	c := models.Candidate{
		Title:       str(node["name"]),
		Description: str(node["description"]),
		Category:    str(node["category"]),
		SourceURL:   pageURL,
		ImageURL:    util.ResolveURL(pageURL, imageURL(node["image"])),
		Link:        util.ResolveURL(pageURL, str(node["url"])),
	}

	offer := firstOffer(node)
	if offer == nil && hasType(node, "Offer") {
		offer = node
	}
	if offer != nil {
		c.Price = amount(offer["price"])
		if c.Price == "" {
			c.Price = amount(offer["lowPrice"])
		}
		for _, key := range []string{"highPrice", "priceBeforeDiscount", "listPrice"} {
			if c.OriginalPrice = amount(offer[key]); c.OriginalPrice != "" {
				break
			}
		}
		if c.OriginalPrice == "" {
			c.OriginalPrice = specPrice(offer["priceSpecification"])
		}
		c.ValidUntil = str(offer["priceValidUntil"])
		if seller, ok := offer["seller"].(map[string]any); ok {
			c.Merchant = str(seller["name"])
		}
		if c.Link == "" {
			c.Link = util.ResolveURL(pageURL, str(offer["url"]))
		}
	}
	return c
}

func firstOffer(node map[string]any) map[string]any {
	switch o := node["offers"].(type) {
	case map[string]any:
		return o
	case []any:
		for _, v := range o {
			if m, ok := v.(map[string]any); ok {
				return m
			}
		}
	}
	return nil
}

// specPrice reads a list price from a priceSpecification array, as used for
// strike-through prices.
func specPrice(v any) string {
	specs, ok := v.([]any)
	if !ok {
		if m, isMap := v.(map[string]any); isMap {
			specs = []any{m}
		}
	}
	for _, s := range specs {
		m, ok := s.(map[string]any)
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(str(m["priceType"])), "listprice") || strings.Contains(strings.ToLower(str(m["priceType"])), "strikethrough") {
			return amount(m["price"])
		}
	}
	return ""
}

// amount renders a JSON price as text. Numbers are written with two
// decimals so a value such as 12.345 is not read as a thousands group.
func amount(v any) string {
	switch p := v.(type) {
	case float64:
		return strconv.FormatFloat(p, 'f', 2, 64)
	case string:
		return strings.TrimSpace(p)
	case map[string]any:
		return amount(p["value"])
	}
	return ""
}

func str(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case map[string]any:
		if name, ok := s["name"].(string); ok {
			return strings.TrimSpace(name)
		}
	case []any:
		if len(s) > 0 {
			return str(s[0])
		}
	}
	return ""
}

func imageURL(v any) string {
	switch img := v.(type) {
	case string:
		return strings.TrimSpace(img)
	case []any:
		if len(img) > 0 {
			return imageURL(img[0])
		}
	case map[string]any:
		if u, ok := img["url"].(string); ok {
			return strings.TrimSpace(u)
		}
		if u, ok := img["contentUrl"].(string); ok {
			return strings.TrimSpace(u)
		}
	}
	return ""
}
