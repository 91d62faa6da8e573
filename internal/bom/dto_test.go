package bom

import (
	"slices"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"chair", "Chair"},
		{"  çelik raf ", "Çelik raf"},
		{"Already", "Already"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeName(tt.in); got != tt.want {
			t.Errorf("normalizeName(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}

	got := normalizeProcesses([]string{"CUTTING", "pAINT shop", "  ", "assembly"})
	want := []string{"Cutting", "Paint shop", "Assembly"}
	if !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestNegativeRawTotal(t *testing.T) {
	lines := []RawMaterialInput{{Quantity: 5}, {Quantity: -0.1}, {Quantity: -0.2}}
	if got := negativeRawTotal(lines); got != 0.3 {
		t.Errorf("expected 0.3, got %v", got)
	}
}
