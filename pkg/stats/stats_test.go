package stats

import (
	"math"
	"testing"
)

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty input", nil, 0},
		{"single value", []float64{5}, 5},
		{"odd length", []float64{3, 1, 2}, 2},
		{"even length averages middle pair", []float64{1, 2, 3, 4}, 2.5},
		{"unsorted even", []float64{4, 1, 3, 2}, 2.5},
		{"duplicates", []float64{2, 2, 2, 2}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Median(tt.values)
			if got != tt.want {
				t.Errorf("Median(%v) = %.4f, want %.4f", tt.values, got, tt.want)
			}
		})
	}
}

func TestMedianDoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Median(values)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("input mutated: %v", values)
	}
}

func TestPercentile(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	tests := []struct {
		name string
		p    float64
		want float64
	}{
		{"p0 is minimum", 0, 1},
		{"p25 interpolates", 25, 2},
		{"p50 is median", 50, 3},
		{"p75 interpolates", 75, 4},
		{"p100 is maximum", 100, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(values, tt.p)
			if !almostEqual(got, tt.want, 1e-9) {
				t.Errorf("Percentile(%v, %.0f) = %.4f, want %.4f", values, tt.p, got, tt.want)
			}
		})
	}
}

func TestPercentileInterpolation(t *testing.T) {
	// p25 of [1,2,3,4] sits at rank 0.75 → 1 + 0.75*(2-1) = 1.75
	got := Percentile([]float64{1, 2, 3, 4}, 25)
	if !almostEqual(got, 1.75, 1e-9) {
		t.Errorf("Percentile = %.4f, want 1.75", got)
	}
}

func TestMean(t *testing.T) {
	if got := Mean(nil); got != 0 {
		t.Errorf("Mean(nil) = %.4f, want 0", got)
	}
	if got := Mean([]float64{1, 2, 3}); got != 2 {
		t.Errorf("Mean = %.4f, want 2", got)
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1.2345, 1.23},
		{0, 0},
		{1.5, 1.5},
		{2.679, 2.68},
		{0.666666, 0.67},
	}

	for _, tt := range tests {
		if got := Round2(tt.in); !almostEqual(got, tt.want, 1e-9) {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
