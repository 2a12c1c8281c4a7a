package models

import (
	"errors"
	"testing"
	"time"
)

func TestDeal_Visible(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	base := Deal{IsActive: true, Status: StatusApproved, ValidUntil: now.Add(time.Hour)}

	tests := []struct {
		name   string
		mutate func(*Deal)
		want   bool
	}{
		{"Approved active unexpired", func(d *Deal) {}, true},
		{"Pending", func(d *Deal) { d.Status = StatusPending }, false},
		{"Inactive", func(d *Deal) { d.IsActive = false }, false},
		{"Expired", func(d *Deal) { d.ValidUntil = now.Add(-time.Second) }, false},
		{"Ends exactly now", func(d *Deal) { d.ValidUntil = now }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := base
			tt.mutate(&d)
			if got := d.Visible(now); got != tt.want {
				t.Errorf("Visible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeal_ReplaceKeepsProvenance(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	old := Deal{ID: "abc123def456", Source: "pepper", CreatedAt: created, Title: "Old"}
	next := Deal{ID: "other", Source: "bol", CreatedAt: time.Now(), Title: "New", Status: StatusApproved}

	got := old.Replace(next)
	if got.ID != old.ID || got.Source != old.Source || !got.CreatedAt.Equal(created) {
		t.Errorf("provenance not preserved: %+v", got)
	}
	if got.Title != "New" || got.Status != StatusApproved {
		t.Errorf("edited fields not applied: %+v", got)
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in     string
		want   Category
		wantOK bool
	}{
		{"electronics", CategoryElectronics, true},
		{" Travel ", CategoryTravel, true},
		{"all", CategoryAll, true},
		{"toys", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseCategory(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseCategory(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
	if CategoryAll.Valid() {
		t.Error("CategoryAll must not be storable")
	}
}

func TestFilter_Sort(t *testing.T) {
	if got := (Filter{}).Sort(); got != SortCreatedAt {
		t.Errorf("default sort = %q", got)
	}
	if got := (Filter{SortBy: "bogus"}).Sort(); got != SortCreatedAt {
		t.Errorf("unknown sort = %q", got)
	}
	if got := (Filter{SortBy: SortDiscount}).Sort(); got != SortDiscount {
		t.Errorf("sort = %q", got)
	}
	if (Filter{Category: CategoryAll}).HasCategory() {
		t.Error("all should not restrict")
	}
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("boom")
	if !errors.Is(&FetchError{URL: "u", Err: cause}, cause) {
		t.Error("FetchError does not unwrap")
	}
	if !errors.Is(&ParseError{Source: "s", Err: cause}, cause) {
		t.Error("ParseError does not unwrap")
	}
	var fe *FieldError
	if !errors.As(error(&FieldError{Field: "title", Reason: "missing"}), &fe) || fe.Field != "title" {
		t.Error("FieldError not matched by errors.As")
	}
	if got := (&FetchError{URL: "http://x", StatusCode: 503}).Error(); got != "fetch http://x: status 503" {
		t.Errorf("Error() = %q", got)
	}
}
