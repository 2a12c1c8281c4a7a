package sources

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pauljones0/korting/internal/models"
)

func embedded(t *testing.T) *Catalogue {
	t.Helper()
	cat, err := Parse(embeddedCatalogue)
	if err != nil {
		t.Fatalf("embedded catalogue failed to parse: %v", err)
	}
	return cat
}

func find(t *testing.T, profiles []Profile, id string) Profile {
	t.Helper()
	for _, p := range profiles {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("source %q not found", id)
	return Profile{}
}

func TestEmbeddedCatalogue_Defaults(t *testing.T) {
	cat := embedded(t)

	tests := []struct {
		id           string
		kind         Kind
		status       models.Status
		validityDays int
		multiplier   float64
		minDiscount  int
	}{
		{"daisycon", KindAffiliate, models.StatusApproved, 30, 1.2, 0},
		{"pepper", KindSyndication, models.StatusPending, 7, 1.25, 0},
		{"bol", KindScrape, models.StatusPending, 3, 1.25, 5},
		{"amazon", KindScrape, models.StatusApproved, 3, 1.25, 5},
		{"coolblue", KindScrape, models.StatusApproved, 7, 1.2, 5},
		{"ikea", KindScrape, models.StatusApproved, 7, 1.2, 5},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			p := find(t, cat.Sources, tt.id)
			if p.Kind != tt.kind || p.Status != tt.status || p.ValidityDays != tt.validityDays ||
				p.PriceMultiplier != tt.multiplier || p.MinimumDiscount() != tt.minDiscount {
				t.Errorf("unexpected profile %+v", p)
			}
			if p.Tag != tt.id {
				t.Errorf("Tag = %q, want %q", p.Tag, tt.id)
			}
			if !p.IdentityWithSource() {
				t.Error("identity should include the source by default")
			}
		})
	}
}

func TestParse_MinDiscount(t *testing.T) {
	doc := `sources:
  - {id: strict, kind: scrape, category: home, urls: [https://a.nl]}
  - {id: loose, kind: scrape, category: home, min_discount: 0, urls: [https://b.nl]}
  - {id: picky, kind: scrape, category: home, min_discount: 20, urls: [https://c.nl]}
`
	cat, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	tests := []struct {
		id     string
		want   int
		exempt bool
	}{
		{"strict", 5, false},
		{"loose", 0, true},
		{"picky", 20, false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			p := find(t, cat.Sources, tt.id)
			if got := p.MinimumDiscount(); got != tt.want {
				t.Errorf("MinimumDiscount() = %d, want %d", got, tt.want)
			}
			if got := p.ExemptFromMinDiscount(); got != tt.exempt {
				t.Errorf("ExemptFromMinDiscount() = %v, want %v", got, tt.exempt)
			}
		})
	}
}

func TestEmbeddedCatalogue_ScrapeSourcesHaveCategory(t *testing.T) {
	for _, p := range embedded(t).Sources {
		if p.Kind == KindScrape && !p.Category.Valid() {
			t.Errorf("scrape source %q has no primary category", p.ID)
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"duplicate id":    "sources:\n  - {id: a, kind: scrape, urls: [https://a.nl]}\n  - {id: a, kind: scrape, urls: [https://b.nl]}\n",
		"unknown kind":    "sources:\n  - {id: a, kind: api, urls: [https://a.nl]}\n",
		"no urls":         "sources:\n  - {id: a, kind: scrape}\n",
		"bad category":    "sources:\n  - {id: a, kind: scrape, category: toys, urls: [https://a.nl]}\n",
		"no item select":  "sources:\n  - id: a\n    kind: scrape\n    urls: [https://a.nl]\n    selectors: {title: h2}\n",
		"rejected status": "sources:\n  - {id: a, kind: scrape, status: rejected, urls: [https://a.nl]}\n",
		"not yaml":        "sources: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	cat, err := Load("")
	if err != nil || len(cat.Sources) == 0 {
		t.Fatalf("Load(\"\") = %v, %v", cat, err)
	}

	path := filepath.Join(t.TempDir(), "sources.yaml")
	doc := "sources:\n  - {id: only, kind: syndication, urls: [https://feeds.example.com/rss]}\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cat, err = Load(path)
	if err != nil {
		t.Fatalf("Load(file) failed: %v", err)
	}
	if len(cat.Sources) != 1 || cat.Sources[0].ID != "only" {
		t.Errorf("unexpected catalogue %+v", cat.Sources)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing override file")
	}
}

func TestDefaults(t *testing.T) {
	cat := Defaults()
	if len(cat.Sources) == 0 {
		t.Fatal("expected built-in sources")
	}
	for _, p := range cat.Sources {
		if p.Status == "" || p.ValidityDays == 0 || p.MaxItems == 0 {
			t.Errorf("defaults not applied to %q: %+v", p.ID, p)
		}
	}
}

func TestResolve(t *testing.T) {
	cat := embedded(t)

	without := cat.Resolve(nil)
	for _, p := range without {
		if p.ID == "daisycon" || p.ID == "tradetracker" {
			t.Errorf("source %q should be disabled without credentials", p.ID)
		}
	}

	with := cat.Resolve(Credentials{"publisher_id": "12345", "api_key": "secret"})
	d := find(t, with, "daisycon")
	want := "https://datafeed.daisycon.com/feeds/12345/products.xml?api_key=secret"
	if d.URLs[0] != want {
		t.Errorf("URL = %q, want %q", d.URLs[0], want)
	}
	for _, p := range with {
		if p.ID == "tradetracker" {
			t.Error("tradetracker needs its own credentials")
		}
	}
	if cat.Sources[0].URLs[0] == want {
		t.Error("Resolve must not mutate the catalogue")
	}
}

func TestSelect(t *testing.T) {
	profiles := []Profile{
		{ID: "pepper", Category: ""},
		{ID: "coolblue", Category: models.CategoryElectronics},
		{ID: "ah", Category: models.CategoryFood},
		{ID: "jumbo", Category: models.CategoryFood},
	}
	ids := func(ps []Profile) []string {
		out := make([]string, len(ps))
		for i, p := range ps {
			out[i] = p.ID
		}
		return out
	}

	tests := []struct {
		name     string
		selector []string
		want     []string
		wantErr  bool
	}{
		{name: "Empty selects all", selector: nil, want: []string{"pepper", "coolblue", "ah", "jumbo"}},
		{name: "By id", selector: []string{"ah"}, want: []string{"ah"}},
		{name: "By category", selector: []string{"food"}, want: []string{"ah", "jumbo"}},
		{name: "All category", selector: []string{"all"}, want: []string{"pepper", "coolblue", "ah", "jumbo"}},
		{name: "Catalogue order kept", selector: []string{"jumbo", "pepper"}, want: []string{"pepper", "jumbo"}},
		{name: "No duplicates", selector: []string{"ah", "food"}, want: []string{"ah", "jumbo"}},
		{name: "Unknown ignored with other work", selector: []string{"bogus", "ah"}, want: []string{"ah"}},
		{name: "Category with no sources", selector: []string{"travel"}, want: []string{}},
		{name: "Only unknown", selector: []string{"bogus"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(profiles, tt.selector)
			if tt.wantErr {
				if !errors.Is(err, models.ErrUnknownSelector) {
					t.Fatalf("error = %v, want ErrUnknownSelector", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			gotIDs := ids(got)
			if len(gotIDs) != len(tt.want) {
				t.Fatalf("Select() = %v, want %v", gotIDs, tt.want)
			}
			for i := range gotIDs {
				if gotIDs[i] != tt.want[i] {
					t.Fatalf("Select() = %v, want %v", gotIDs, tt.want)
				}
			}
		})
	}
}

func TestBuild(t *testing.T) {
	cat := embedded(t)
	srcs, err := Build(cat.Resolve(nil), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for _, s := range srcs {
		if s.Parser == nil {
			t.Errorf("source %q has no parser", s.ID)
		}
	}
	if _, err := NewParser(Profile{ID: "x", Kind: "api"}, nil); err == nil {
		t.Error("expected error for unknown kind")
	}
}
