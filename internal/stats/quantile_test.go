package stats

import (
	"math"
	"testing"
)

func TestQuantileEmpty(t *testing.T) {
	if _, err := Quantile(nil, 0.5); err != ErrEmptyColumn {
		t.Fatalf("expected ErrEmptyColumn, got %v", err)
	}
}

func TestQuantileOutOfRange(t *testing.T) {
	if _, err := Quantile([]float64{1, 2}, 1.5); err == nil {
		t.Fatal("expected error for quantile > 1")
	}
	if _, err := Quantile([]float64{1, 2}, -0.1); err == nil {
		t.Fatal("expected error for quantile < 0")
	}
}

func TestQuantileInterpolation(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		q      float64
		want   float64
	}{
		{"median of pair interpolates", []float64{10, 20}, 0.5, 15},
		{"min", []float64{3, 1, 2}, 0, 1},
		{"max", []float64{3, 1, 2}, 1, 3},
		{"p75 of 1..4", []float64{1, 2, 3, 4}, 0.75, 3.25},
		{"p80 of 1..5", []float64{5, 4, 3, 2, 1}, 0.80, 4.2},
		{"single value", []float64{42}, 0.99, 42},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Quantile(tc.values, tc.q)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("Quantile(%v, %v) = %v, want %v", tc.values, tc.q, got, tc.want)
			}
		})
	}
}

func TestQuantileOrderingIndependent(t *testing.T) {
	a := []float64{9, 1, 5, 3, 7}
	b := []float64{1, 3, 5, 7, 9}

	va, _ := Quantile(a, 0.95)
	vb, _ := Quantile(b, 0.95)
	if va != vb {
		t.Errorf("quantile depends on input ordering: %v vs %v", va, vb)
	}

	// Input must not be reordered in place.
	if a[0] != 9 || a[4] != 7 {
		t.Error("Quantile mutated its input")
	}
}

func TestQuantileFloor(t *testing.T) {
	got, err := QuantileFloor([]float64{1, 1, 1, 1}, 0.995, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 5 {
		t.Errorf("expected floor 5 to win, got %v", got)
	}

	got, _ = QuantileFloor([]float64{20, 20, 20, 20}, 0.99, 10)
	if got != 20 {
		t.Errorf("expected empirical 20 to win, got %v", got)
	}
}

func TestMean(t *testing.T) {
	if _, err := Mean(nil); err != ErrEmptyColumn {
		t.Fatal("expected ErrEmptyColumn for empty mean")
	}
	got, _ := Mean([]float64{2, 4, 6})
	if got != 4 {
		t.Errorf("Mean = %v, want 4", got)
	}
}
