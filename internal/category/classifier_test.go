package category

import (
	"testing"

	"github.com/pauljones0/korting/internal/lookup"
	"github.com/pauljones0/korting/internal/models"
)

func TestClassify(t *testing.T) {
	c := New(lookup.Default())

	tests := []struct {
		name string
		in   string
		want models.Category
	}{
		{name: "Exact synonym", in: "Elektronica", want: models.CategoryElectronics},
		{name: "Trimmed and lowered", in: "  KLEDING ", want: models.CategoryFashion},
		{name: "Synonym contained in text", in: "Tuin & Terras", want: models.CategoryHome},
		{name: "Text contained in synonym", in: "vlucht", want: models.CategoryTravel},
		{name: "Localized travel", in: "Vakantie", want: models.CategoryTravel},
		{name: "Unknown", in: "Dierenbenodigdheden", want: models.CategoryOther},
		{name: "Empty", in: "", want: models.CategoryOther},
		{name: "Short fragment does not reverse match", in: "io", want: models.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.in); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestClassify_AlwaysCanonical(t *testing.T) {
	c := New(lookup.Default())
	inputs := []string{"", " ", "x", "???", "tv", "Sport & Spel", "Parfum 50ml", "日本語", "a very long category name with no meaning"}
	for _, in := range inputs {
		got := c.Classify(in)
		if !got.Valid() {
			t.Errorf("Classify(%q) = %q, not a canonical category", in, got)
		}
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := New(lookup.Default())
	first := c.Classify("audio en video")
	for i := 0; i < 50; i++ {
		if got := c.Classify("audio en video"); got != first {
			t.Fatalf("Classify is not deterministic: %q then %q", first, got)
		}
	}
}

func TestDetect(t *testing.T) {
	c := New(lookup.Default())

	tests := []struct {
		name  string
		texts []string
		want  models.Category
	}{
		{name: "Title keyword", texts: []string{"Samsung 55 inch QLED TV"}, want: models.CategoryElectronics},
		{name: "Plural via prefix", texts: []string{"Elektrische fietsen uitverkoop"}, want: models.CategorySports},
		{name: "Description keyword", texts: []string{"Weekaanbieding", "Nieuwe matras met 40% korting"}, want: models.CategoryHome},
		{name: "No keyword", texts: []string{"Cadeaukaart"}, want: models.CategoryOther},
		{name: "Keyword inside word does not match", texts: []string{"Spaarbank"}, want: models.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Detect(tt.texts...); got != tt.want {
				t.Errorf("Detect(%v) = %q, want %q", tt.texts, got, tt.want)
			}
		})
	}
}
