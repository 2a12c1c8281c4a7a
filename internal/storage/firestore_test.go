package storage

import (
	"testing"
	"time"

	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/shopspring/decimal"
)

func TestAggregateCount(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		wantInt  int64
		wantFail bool
	}{
		{
			name:    "int64 direct",
			value:   int64(42),
			wantInt: 42,
		},
		{
			name: "firestorepb.Value integer",
			value: &firestorepb.Value{
				ValueType: &firestorepb.Value_IntegerValue{IntegerValue: 100},
			},
			wantInt: 100,
		},
		{
			name:     "unexpected type",
			value:    "not a number",
			wantFail: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := aggregateCount(tt.value)
			if (err != nil) != tt.wantFail {
				t.Errorf("err = %v, wantFail = %v", err, tt.wantFail)
			}
			if !tt.wantFail && result != tt.wantInt {
				t.Errorf("result = %d, want %d", result, tt.wantInt)
			}
		})
	}
}

func TestDealDocRoundTrip(t *testing.T) {
	d := sampleDeal("abc123def456", time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))
	d.SalePrice = decimal.RequireFromString("19.9")

	doc := toDoc(d)
	if doc.SalePrice != "19.90" {
		t.Errorf("SalePrice = %q, want two decimals", doc.SalePrice)
	}
	got, err := fromDoc(d.ID, doc)
	if err != nil {
		t.Fatalf("fromDoc() error = %v", err)
	}
	if !got.SalePrice.Equal(d.SalePrice) || got.Title != d.Title || got.Category != d.Category || !got.ValidUntil.Equal(d.ValidUntil) {
		t.Errorf("round trip = %+v", got)
	}

	doc.OriginalPrice = "abc"
	if _, err := fromDoc(d.ID, doc); err == nil {
		t.Error("expected error for corrupt price")
	}
}

func TestEditUpdates_SkipProvenance(t *testing.T) {
	for _, u := range editUpdates(sampleDeal("x", time.Now())) {
		switch u.Path {
		case "source", "createdAt", "id":
			t.Errorf("edit must not touch %q", u.Path)
		}
	}
}
