package inventory

import (
	"testing"

	"mfg-erp-backend/internal/testutil"
)

func TestCapitalizeWords(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"mild steel sheet", "Mild Steel Sheet"},
		{" m6 bolt-nut ", "M6 Bolt-Nut"},
		{"ALREADY Upper", "ALREADY Upper"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := capitalizeWords(tt.in); got != tt.want {
			t.Errorf("capitalizeWords(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestNextProductCode(t *testing.T) {
	db := testutil.NewTestDB(t)

	want := []struct{ category, code string }{
		{"raw material", "RAW001"},
		{"Raw", "RAW002"},
		{"finished goods", "FIN001"},
		{"", "PRD001"},
		{"42", "PRD002"},
	}
	for _, w := range want {
		got, err := NextProductCode(db, w.category)
		if err != nil {
			t.Fatalf("NextProductCode(%q): %v", w.category, err)
		}
		if got != w.code {
			t.Errorf("NextProductCode(%q): expected %s, got %s", w.category, w.code, got)
		}
	}
}
