package retention

import (
	"testing"
	"time"

	"github.com/pauljones0/korting/internal/models"
)

func TestPrune_Boundary(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	tests := []struct {
		name     string
		until    time.Time
		wantKept bool
	}{
		{"Grace plus one day", now.Add(-DefaultGrace - day), false},
		{"Grace minus one day", now.Add(-DefaultGrace + day), true},
		{"Exactly at cutoff", now.Add(-DefaultGrace), true},
		{"Just past cutoff", now.Add(-DefaultGrace - time.Nanosecond), false},
		{"Still valid", now.Add(day), true},
		{"Expired yesterday", now.Add(-day), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kept, removed := Prune([]models.Deal{{ID: "x", ValidUntil: tt.until}}, now, DefaultGrace)
			if (len(kept) == 1) != tt.wantKept || len(kept)+len(removed) != 1 {
				t.Errorf("kept = %d removed = %d, want kept %v", len(kept), len(removed), tt.wantKept)
			}
		})
	}
}

func TestPrune_PreservesOrder(t *testing.T) {
	now := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -30)
	deals := []models.Deal{
		{ID: "a", ValidUntil: now},
		{ID: "b", ValidUntil: old},
		{ID: "c", ValidUntil: now},
		{ID: "d", ValidUntil: old},
	}
	kept, removed := Prune(deals, now, DefaultGrace)
	if len(kept) != 2 || kept[0].ID != "a" || kept[1].ID != "c" {
		t.Errorf("kept = %+v", kept)
	}
	if len(removed) != 2 || removed[0].ID != "b" || removed[1].ID != "d" {
		t.Errorf("removed = %+v", removed)
	}
}

func TestPrune_ZeroGrace(t *testing.T) {
	now := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	kept, _ := Prune([]models.Deal{{ID: "a", ValidUntil: now.Add(-time.Second)}}, now, 0)
	if len(kept) != 0 {
		t.Error("deal expired before now should be pruned with zero grace")
	}
}

func TestPrune_IgnoresStatus(t *testing.T) {
	now := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	deals := []models.Deal{{ID: "a", ValidUntil: now, IsActive: false, Status: models.StatusRejected}}
	kept, _ := Prune(deals, now, DefaultGrace)
	if len(kept) != 1 {
		t.Error("retention depends only on valid_until")
	}
}
