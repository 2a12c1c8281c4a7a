package util

import (
	"testing"
)

func TestCleanReferralLink(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		tag      string
		expected string
		changed  bool
	}{
		{
			name:     "No change",
			input:    "https://example.com/product",
			tag:      "korting-21",
			expected: "https://example.com/product",
			changed:  false,
		},
		{
			name:     "Amazon replace tag",
			input:    "https://www.amazon.nl/dp/12345?tag=old-tag",
			tag:      "korting-21",
			expected: "https://www.amazon.nl/dp/12345?tag=korting-21",
			changed:  true,
		},
		{
			name:     "Amazon add tag",
			input:    "https://www.amazon.nl/dp/12345",
			tag:      "korting-21",
			expected: "https://www.amazon.nl/dp/12345?tag=korting-21",
			changed:  true,
		},
		{
			name:     "Amazon tag already set",
			input:    "https://www.amazon.nl/dp/12345?tag=korting-21",
			tag:      "korting-21",
			expected: "https://www.amazon.nl/dp/12345?tag=korting-21",
			changed:  false,
		},
		{
			name:     "Amazon without configured tag",
			input:    "https://www.amazon.nl/dp/12345?tag=old-tag",
			expected: "https://www.amazon.nl/dp/12345?tag=old-tag",
			changed:  false,
		},
		{
			name:     "Redirector unwrapped",
			input:    "https://go.redirectingat.com/?id=1&url=https%3A%2F%2Fwww.coolblue.nl%2Fproduct%2F1",
			expected: "https://www.coolblue.nl/product/1",
			changed:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := CleanReferralLink(tt.input, tt.tag)
			if got != tt.expected {
				t.Errorf("CleanReferralLink() got = %v, want %v", got, tt.expected)
			}
			if changed != tt.changed {
				t.Errorf("CleanReferralLink() changed = %v, want %v", changed, tt.changed)
			}
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "Plain URL",
			input: "https://www.bol.com/nl/p/product/123/",
			want:  "https://www.bol.com/nl/p/product/123/",
		},
		{
			name:  "Remove UTM params",
			input: "https://www.coolblue.nl/deal?utm_source=foo&utm_medium=bar",
			want:  "https://www.coolblue.nl/deal",
		},
		{
			name:  "Keep other params",
			input: "https://www.coolblue.nl/deal?id=7&gclid=abc",
			want:  "https://www.coolblue.nl/deal?id=7",
		},
		{
			name:  "Drop fragment and lower host",
			input: "https://WWW.Bol.com/deal#reviews",
			want:  "https://www.bol.com/deal",
		},
		{
			name:    "Relative",
			input:   "/deal/1",
			want:    "/deal/1",
			wantErr: true,
		},
		{
			name:    "Not http",
			input:   "mailto:deals@example.com",
			want:    "mailto:deals@example.com",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("NormalizeURL() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("NormalizeURL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		base, ref, want string
	}{
		{"https://www.coolblue.nl/aanbiedingen", "/product/1", "https://www.coolblue.nl/product/1"},
		{"https://www.coolblue.nl/aanbiedingen", "//img.coolblue.nl/a.jpg", "https://img.coolblue.nl/a.jpg"},
		{"https://www.coolblue.nl/aanbiedingen", "https://other.nl/x", "https://other.nl/x"},
		{"https://www.coolblue.nl/aanbiedingen", "", ""},
		{"", "/product/1", ""},
	}
	for _, tt := range tests {
		if got := ResolveURL(tt.base, tt.ref); got != tt.want {
			t.Errorf("ResolveURL(%q, %q) = %q, want %q", tt.base, tt.ref, got, tt.want)
		}
	}
}

func TestGetDomain(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "Standard domain",
			input: "https://amazon.nl/dp/12345",
			want:  "amazon.nl",
		},
		{
			name:  "Subdomain",
			input: "https://sub.amazon.nl/dp/12345",
			want:  "amazon.nl",
		},
		{
			name:  "Two-part TLD",
			input: "https://example.co.uk/product",
			want:  "example.co.uk",
		},
		{
			name:  "Subdomain with two-part TLD",
			input: "https://sub.example.co.uk/product",
			want:  "example.co.uk",
		},
		{
			name:  "No www",
			input: "https://www.coolblue.nl",
			want:  "coolblue.nl",
		},
		{
			name:  "No host",
			input: "not a url",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetDomain(tt.input)
			if got != tt.want {
				t.Errorf("GetDomain() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMerchantFromDomain(t *testing.T) {
	if got := MerchantFromDomain("https://www.coolblue.nl/x"); got != "Coolblue" {
		t.Errorf("MerchantFromDomain() = %q", got)
	}
	if got := MerchantFromDomain(""); got != "" {
		t.Errorf("MerchantFromDomain(\"\") = %q", got)
	}
}
