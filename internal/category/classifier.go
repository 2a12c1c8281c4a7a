// Package category maps free-text category signals onto the canonical set.
package category

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pauljones0/korting/internal/lookup"
	"github.com/pauljones0/korting/internal/models"
)

// minReverseMatch is the shortest input that may match as a substring of a
// synonym. Shorter fragments ("a", "de") would otherwise hit almost anything.
const minReverseMatch = 3

// Classifier resolves category text against the lookup tables. It is safe for
// concurrent use; it never mutates the tables it was built from.
type Classifier struct {
	entries []lookup.CategoryEntry
}

func New(t *lookup.Tables) *Classifier {
	return &Classifier{entries: t.Categories}
}

// Classify maps raw category text to a canonical category. Exact synonym
// matches win; otherwise the first entry whose synonym contains, or is
// contained in, the text. Anything unresolved is CategoryOther.
func (c *Classifier) Classify(text string) models.Category {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return models.CategoryOther
	}

	for _, entry := range c.entries {
		for _, syn := range entry.Synonyms {
			if normalized == syn {
				return entry.Category
			}
		}
	}

	reverseOK := utf8.RuneCountInString(normalized) >= minReverseMatch
	for _, entry := range c.entries {
		for _, syn := range entry.Synonyms {
			if strings.Contains(normalized, syn) || (reverseOK && strings.Contains(syn, normalized)) {
				return entry.Category
			}
		}
	}
	return models.CategoryOther
}

// Detect infers a category from titles and descriptions by keyword. A keyword
// matches a word that starts with it, so "fiets" covers "fietsen".
func (c *Classifier) Detect(texts ...string) models.Category {
	words := tokenize(strings.Join(texts, " "))
	if len(words) == 0 {
		return models.CategoryOther
	}
	for _, entry := range c.entries {
		for _, kw := range entry.Keywords {
			for _, w := range words {
				if strings.HasPrefix(w, kw) {
					return entry.Category
				}
			}
		}
	}
	return models.CategoryOther
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
