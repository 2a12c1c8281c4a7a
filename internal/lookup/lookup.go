// Package lookup holds the read-only tables shared by the classifier and the
// normalizer: category synonyms and keywords, and the known-merchant table.
// Tables are loaded once at startup and never mutated afterwards.
package lookup

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/pauljones0/korting/internal/models"
)

//go:embed lookup.yaml
var embeddedTables []byte

// CategoryEntry maps localized signals onto one canonical category.
type CategoryEntry struct {
	Category models.Category `yaml:"category"`
	Synonyms []string        `yaml:"synonyms"`
	Keywords []string        `yaml:"keywords"`
}

// Merchant is a known retailer.
type Merchant struct {
	Name     string   `yaml:"name"`
	Logo     string   `yaml:"logo"`
	Aliases  []string `yaml:"aliases"`
	Mentions []string `yaml:"mentions"`
}

// Tables is the process-wide lookup configuration. Entries keep file order,
// which makes every lookup deterministic.
type Tables struct {
	Categories []CategoryEntry `yaml:"categories"`
	Merchants  []Merchant      `yaml:"merchants"`
}

var (
	defaultOnce   sync.Once
	defaultTables *Tables
)

// Default returns the embedded tables. The embedded document is covered by
// tests, so a parse failure here is a build defect.
func Default() *Tables {
	defaultOnce.Do(func() {
		t, err := Parse(embeddedTables)
		if err != nil {
			panic(fmt.Sprintf("lookup: embedded tables: %v", err))
		}
		defaultTables = t
	})
	return defaultTables
}

// LoadFile reads tables from a YAML file.
func LoadFile(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lookup tables: %w", err)
	}
	return Parse(data)
}

// Parse decodes and normalizes a YAML tables document.
func Parse(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse lookup tables: %w", err)
	}
	for i := range t.Categories {
		entry := &t.Categories[i]
		if !entry.Category.Valid() {
			return nil, fmt.Errorf("lookup tables: unknown category %q", entry.Category)
		}
		entry.Synonyms = lowerAll(entry.Synonyms)
		entry.Keywords = lowerAll(entry.Keywords)
	}
	for i := range t.Merchants {
		m := &t.Merchants[i]
		if m.Name == "" {
			return nil, fmt.Errorf("lookup tables: merchant %d has no name", i)
		}
		m.Aliases = lowerAll(m.Aliases)
		m.Mentions = lowerAll(m.Mentions)
	}
	return &t, nil
}

// LogoFor returns the logo of the first merchant whose alias occurs in name.
func (t *Tables) LogoFor(name string) (string, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", false
	}
	for _, m := range t.Merchants {
		for _, alias := range m.Aliases {
			if strings.Contains(n, alias) {
				return m.Logo, m.Logo != ""
			}
		}
	}
	return "", false
}

// MerchantMentioned returns the display name of the first known merchant
// mentioned anywhere in text.
func (t *Tables) MerchantMentioned(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, m := range t.Merchants {
		for _, mention := range m.Mentions {
			if strings.Contains(lower, mention) {
				return m.Name, true
			}
		}
	}
	return "", false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
