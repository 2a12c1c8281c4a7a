package main

import (
	"slices"
	"testing"
)

func TestSelector(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"No arguments", nil, nil},
		{"Separate arguments", []string{"pepper", "food"}, []string{"pepper", "food"}},
		{"Comma separated", []string{"pepper, coolblue,"}, []string{"pepper", "coolblue"}},
		{"Blank", []string{" ", ","}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := selector(tt.args); !slices.Equal(got, tt.want) {
				t.Errorf("selector(%q) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}
