package analysis

import (
	"errors"
	"math"
	"testing"
)

func TestReduce_DropsExtremeOutlier(t *testing.T) {
	r, err := Reduce([]float64{20, 22, 21, 23, 19, 500})
	if err != nil {
		t.Fatalf("Reduce() error = %v", err)
	}

	if r.Central < 20 || r.Central > 23 {
		t.Errorf("central price %.2f skewed by outlier", r.Central)
	}
	if r.Dropped != 1 {
		t.Errorf("expected 1 dropped price, got %d", r.Dropped)
	}
	if r.SampleSize != 5 {
		t.Errorf("expected sample size 5, got %d", r.SampleSize)
	}
}

func TestReduce_Median(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   float64
	}{
		{"odd sample", []float64{45, 50, 48, 52, 47}, 48},
		{"even sample", []float64{10, 12, 14, 16}, 13},
		{"three prices", []float64{10, 12, 11}, 11},
		{"identical prices", []float64{30, 30, 30, 30}, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Reduce(tt.prices)
			if err != nil {
				t.Fatalf("Reduce() error = %v", err)
			}
			if math.Abs(r.Central-tt.want) > 0.0001 {
				t.Errorf("Central = %.2f, want %.2f", r.Central, tt.want)
			}
		})
	}
}

func TestReduce_InsufficientData(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
	}{
		{"empty", nil},
		{"one price", []float64{10}},
		{"two prices", []float64{10, 11}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reduce(tt.prices)
			if !errors.Is(err, ErrInsufficientData) {
				t.Errorf("expected ErrInsufficientData, got %v", err)
			}
		})
	}
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	prices := []float64{5, 3, 4, 1, 2}
	if _, err := Reduce(prices); err != nil {
		t.Fatalf("Reduce() error = %v", err)
	}
	if prices[0] != 5 || prices[4] != 2 {
		t.Errorf("input was reordered: %v", prices)
	}
}

func TestReduce_Deterministic(t *testing.T) {
	prices := []float64{18.5, 22, 19.75, 400, 21, 20.25, 23, 1.5}
	first, err := Reduce(prices)
	if err != nil {
		t.Fatalf("Reduce() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		again, _ := Reduce(prices)
		if again != first {
			t.Fatalf("run %d differs: %+v vs %+v", i, again, first)
		}
	}
}

func TestQuantile(t *testing.T) {
	sorted := []float64{19, 20, 21, 22, 23, 500}
	if q := quantile(sorted, 0.25); math.Abs(q-20.25) > 1e-9 {
		t.Errorf("Q1 = %.4f, want 20.25", q)
	}
	if q := quantile(sorted, 0.75); math.Abs(q-22.75) > 1e-9 {
		t.Errorf("Q3 = %.4f, want 22.75", q)
	}
}

func TestMedian(t *testing.T) {
	if got := Median(nil); got != 0 {
		t.Errorf("Median(nil) = %.2f, want 0", got)
	}
	if got := Median([]float64{7, 1, 3}); got != 3 {
		t.Errorf("Median = %.2f, want 3", got)
	}
}

func TestReduction_Keeps(t *testing.T) {
	r, err := Reduce([]float64{20, 22, 21, 23, 19, 500})
	if err != nil {
		t.Fatalf("Reduce() error = %v", err)
	}
	if math.Abs(r.Lower-16.5) > 1e-9 || math.Abs(r.Upper-26.5) > 1e-9 {
		t.Errorf("fences = [%.2f, %.2f], want [16.50, 26.50]", r.Lower, r.Upper)
	}

	for _, p := range []float64{16.5, 19, 23, 26.5} {
		if !r.Keeps(p) {
			t.Errorf("Keeps(%.2f) = false, want true", p)
		}
	}
	for _, p := range []float64{16.49, 26.51, 500} {
		if r.Keeps(p) {
			t.Errorf("Keeps(%.2f) = true, want false", p)
		}
	}
}
