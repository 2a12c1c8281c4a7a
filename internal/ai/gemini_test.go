package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pauljones0/korting/internal/models"
)

func TestNewClient_NoKey(t *testing.T) {
	c, err := NewClient(context.Background(), "", "gemini-2.5-flash")
	if err != nil || c != nil {
		t.Fatalf("NewClient() = %v, %v; want nil client", c, err)
	}
	cat, err := c.SuggestCategory(context.Background(), models.Deal{Title: "Fiets"})
	if err != nil || cat != models.CategoryOther {
		t.Errorf("nil client SuggestCategory() = %s, %v", cat, err)
	}
}

func TestSuggestCategory(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		err     error
		want    models.Category
		wantErr bool
	}{
		{"Plain JSON", `{"category":"sports"}`, nil, models.CategorySports, false},
		{"Fenced JSON", "```json\n{\"category\": \"Beauty\"}\n```", nil, models.CategoryBeauty, false},
		{"Unknown category", `{"category":"garden"}`, nil, models.CategoryOther, false},
		{"Filter-only category", `{"category":"all"}`, nil, models.CategoryOther, false},
		{"Not JSON", "sports", nil, "", true},
		{"API error", "", errors.New("quota exceeded"), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var prompt string
			c := &Client{generate: func(_ context.Context, p string) (string, error) {
				prompt = p
				return tt.reply, tt.err
			}}

			got, err := c.SuggestCategory(context.Background(), models.Deal{Title: "Hardloopschoenen", Merchant: "Decathlon"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("SuggestCategory() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("SuggestCategory() = %q, want %q", got, tt.want)
			}
			if !strings.Contains(prompt, "Hardloopschoenen") || !strings.Contains(prompt, "Decathlon") {
				t.Errorf("prompt missing deal details: %s", prompt)
			}
		})
	}
}
