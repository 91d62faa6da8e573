package quantity

import "testing"

func TestSplitEven(t *testing.T) {
	tests := []struct {
		name  string
		total float64
		n     int
		want  []float64
	}{
		{"single", 25, 1, []float64{25}},
		{"even", 30, 3, []float64{10, 10, 10}},
		{"remainder to last", 25, 3, []float64{8.33, 8.33, 8.34}},
		{"fractional", 0.5, 2, []float64{0.25, 0.25}},
		{"none", 10, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitEven(tt.total, tt.n)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("expected %v, got %v", tt.want, got)
				}
			}
			if tt.n > 0 && Sum(got...) != tt.total {
				t.Errorf("expected shares to sum to %v, got %v", tt.total, Sum(got...))
			}
		})
	}
}

func TestRescale(t *testing.T) {
	if got := Rescale(100, 10, 25); got != 250 {
		t.Errorf("expected 250, got %v", got)
	}
	if got := Rescale(1, 3, 1); got != 0.33 {
		t.Errorf("expected 0.33, got %v", got)
	}
}

func TestArithmetic(t *testing.T) {
	if got := Add(0.1, 0.2); got != 0.3 {
		t.Errorf("expected 0.3, got %v", got)
	}
	if got := ClampZero(5, 8); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
	if got := ClampZero(20, 10); got != 10 {
		t.Errorf("expected 10, got %v", got)
	}
	if got := Round2(2.345); got != 2.35 {
		t.Errorf("expected 2.35, got %v", got)
	}
	if got := UnitPrice(50, 0); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
	if got := WeightedAverage(10, 100, 10, 200); got != 150 {
		t.Errorf("expected 150, got %v", got)
	}
}
