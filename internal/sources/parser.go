package sources

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/net/html/charset"

	"github.com/pauljones0/korting/internal/lookup"
	"github.com/pauljones0/korting/internal/models"
)

var errEmptyDocument = errors.New("document has no root element")

// Parser turns one fetched document into candidate records. pageURL is the
// address the document was fetched from; relative links resolve against it.
// A document-level failure is a *models.ParseError; individual bad items are
// skipped.
type Parser interface {
	Parse(body []byte, pageURL string) ([]models.Candidate, error)
}

// Source pairs a profile with the parser for its kind.
type Source struct {
	Profile
	Parser Parser
}

// NewParser returns the parser for p's kind.
func NewParser(p Profile, tables *lookup.Tables) (Parser, error) {
	switch p.Kind {
	case KindAffiliate:
		return NewAffiliate(p.Network, p.ItemElement, p.MaxItems), nil
	case KindSyndication:
		return NewSyndication(tables, p.MaxItems), nil
	case KindScrape:
		return NewScrape(p.Selectors, p.MaxItems), nil
	}
	return nil, fmt.Errorf("no parser for source kind %q", p.Kind)
}

// Build attaches parsers to profiles, keeping their order.
func Build(profiles []Profile, tables *lookup.Tables) ([]Source, error) {
	out := make([]Source, 0, len(profiles))
	for _, p := range profiles {
		parser, err := NewParser(p, tables)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", p.ID, err)
		}
		out = append(out, Source{Profile: p, Parser: parser})
	}
	return out, nil
}

// utf8Reader converts an HTML document to UTF-8. Valid UTF-8 is passed
// through; anything else is decoded per its BOM or meta tag.
func utf8Reader(body []byte) io.Reader {
	if utf8.Valid(body) {
		return bytes.NewReader(body)
	}
	r, err := charset.NewReader(bytes.NewReader(body), "")
	if err != nil {
		return bytes.NewReader(body)
	}
	return r
}

func limit(cands []models.Candidate, max int) []models.Candidate {
	if max > 0 && len(cands) > max {
		return cands[:max]
	}
	return cands
}
