package sources

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pauljones0/korting/internal/models"
)

//go:embed sources.yaml
var embeddedCatalogue []byte

// Catalogue is the ordered list of configured sources. Order is significant:
// it is the batch concatenation order and decides which of two colliding
// candidates in one run wins.
type Catalogue struct {
	Sources []Profile `yaml:"sources"`
}

// Credentials fill URL placeholders such as {publisher_id}.
type Credentials map[string]string

var placeholderRegex = regexp.MustCompile(`\{([a-z_]+)\}`)

// Load reads the catalogue from path when set; otherwise the embedded
// catalogue is used, falling back to Defaults if it cannot be parsed.
func Load(path string) (*Catalogue, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read source catalogue: %w", err)
		}
		cat, err := Parse(data)
		if err != nil {
			return nil, err
		}
		slog.Info("Loaded source catalogue from file", "path", path, "sources", len(cat.Sources))
		return cat, nil
	}

	cat, err := Parse(embeddedCatalogue)
	if err == nil {
		return cat, nil
	}
	slog.Warn("Embedded source catalogue failed to parse, using defaults", "error", err)
	return Defaults(), nil
}

// Parse decodes and validates a catalogue document and applies defaults.
func Parse(data []byte) (*Catalogue, error) {
	var cat Catalogue
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse source catalogue: %w", err)
	}
	if err := cat.validate(); err != nil {
		return nil, err
	}
	for i := range cat.Sources {
		cat.Sources[i].applyDefaults()
	}
	return &cat, nil
}

func (c *Catalogue) validate() error {
	seen := make(map[string]bool, len(c.Sources))
	for i, p := range c.Sources {
		switch {
		case p.ID == "":
			return fmt.Errorf("source catalogue: entry %d has no id", i)
		case seen[p.ID]:
			return fmt.Errorf("source catalogue: duplicate id %q", p.ID)
		case len(p.URLs) == 0:
			return fmt.Errorf("source catalogue: source %q has no urls", p.ID)
		}
		seen[p.ID] = true

		if _, ok := defaultsByKind[p.Kind]; !ok {
			return fmt.Errorf("source catalogue: source %q has unknown kind %q", p.ID, p.Kind)
		}
		if p.Category != "" && !p.Category.Valid() {
			return fmt.Errorf("source catalogue: source %q has unknown category %q", p.ID, p.Category)
		}
		if p.Status != "" && p.Status != models.StatusApproved && p.Status != models.StatusPending {
			return fmt.Errorf("source catalogue: source %q has invalid status %q", p.ID, p.Status)
		}
		if p.Kind == KindScrape && p.Selectors != nil && p.Selectors.Item == "" {
			return fmt.Errorf("source catalogue: source %q selectors need an item selector", p.ID)
		}
	}
	return nil
}

// Defaults is the built-in catalogue used when no document can be loaded.
func Defaults() *Catalogue {
	cat := &Catalogue{Sources: []Profile{
		{
			ID:       "pepper",
			Kind:     KindSyndication,
			Merchant: "Diverse",
			URLs:     []string{"https://nl.pepper.com/rss/hot", "https://nl.pepper.com/rss/nieuw"},
		},
		{
			ID:           "coolblue",
			Kind:         KindScrape,
			Merchant:     "Coolblue",
			MerchantLogo: "https://logo.clearbit.com/coolblue.nl",
			Category:     models.CategoryElectronics,
			URLs:         []string{"https://www.coolblue.nl/acties"},
		},
	}}
	for i := range cat.Sources {
		cat.Sources[i].applyDefaults()
	}
	return cat
}

// Resolve returns the enabled sources with URL placeholders filled in.
// A source with a placeholder that has no credential value is skipped.
func (c *Catalogue) Resolve(creds Credentials) []Profile {
	out := make([]Profile, 0, len(c.Sources))
	for _, p := range c.Sources {
		urls := make([]string, 0, len(p.URLs))
		var missing []string
		for _, u := range p.URLs {
			filled := placeholderRegex.ReplaceAllStringFunc(u, func(m string) string {
				key := m[1 : len(m)-1]
				if v := creds[key]; v != "" {
					return v
				}
				missing = append(missing, key)
				return m
			})
			urls = append(urls, filled)
		}
		if len(missing) > 0 {
			slog.Info("Source disabled: credentials not configured", "source", p.ID, "missing", strings.Join(missing, ","))
			continue
		}
		p.URLs = urls
		out = append(out, p)
	}
	return out
}

// Select narrows profiles by a run selector. Each token is a source id or a
// canonical category ("all" matches every source). An empty selector selects
// everything. Unknown tokens are logged; they are an error only when nothing
// else was selected.
func Select(profiles []Profile, selector []string) ([]Profile, error) {
	if len(selector) == 0 {
		return profiles, nil
	}

	want := make(map[string]bool, len(profiles))
	var unknown []string
	for _, raw := range selector {
		token := strings.ToLower(strings.TrimSpace(raw))
		if token == "" {
			continue
		}
		matched := false
		for _, p := range profiles {
			if p.ID == token {
				want[p.ID] = true
				matched = true
			}
		}
		if cat, ok := models.ParseCategory(token); ok {
			for _, p := range profiles {
				if cat == models.CategoryAll || p.Category == cat {
					want[p.ID] = true
				}
			}
			matched = true
		}
		if !matched {
			unknown = append(unknown, raw)
		}
	}

	selected := make([]Profile, 0, len(want))
	for _, p := range profiles {
		if want[p.ID] {
			selected = append(selected, p)
		}
	}
	if len(unknown) > 0 {
		if len(selected) == 0 {
			return nil, fmt.Errorf("%w: %s", models.ErrUnknownSelector, strings.Join(unknown, ", "))
		}
		slog.Warn("Ignoring unknown source selectors", "selectors", strings.Join(unknown, ","))
	}
	return selected, nil
}
