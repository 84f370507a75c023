package analysis

import (
	"errors"
	"math"
	"sort"
)

// MinSamples is the smallest filtered sample a live estimate is built from.
const MinSamples = 3

// ErrInsufficientData signals that too few prices survived outlier removal.
// Callers fall back to the static knowledge base.
var ErrInsufficientData = errors.New("insufficient price data")

// Reduction is the robust summary of a listing price sample.
type Reduction struct {
	Central    float64 `json:"central"`
	SampleSize int     `json:"sampleSize"`
	Q1         float64 `json:"q1"`
	Q3         float64 `json:"q3"`
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"`
	Dropped    int     `json:"dropped"`
}

// Keeps reports whether price lies inside the IQR fences the sample was
// trimmed with.
func (r Reduction) Keeps(price float64) bool {
	return price >= r.Lower && price <= r.Upper
}

// Reduce removes IQR outliers from prices and returns the median of what is
// left. The input slice is not modified.
func Reduce(prices []float64) (Reduction, error) {
	if len(prices) < MinSamples {
		return Reduction{SampleSize: len(prices)}, ErrInsufficientData
	}

	sorted := make([]float64, len(prices))
	copy(sorted, prices)
	sort.Float64s(sorted)

	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)
	iqr := q3 - q1

	r := Reduction{
		Q1:    q1,
		Q3:    q3,
		Lower: q1 - 1.5*iqr,
		Upper: q3 + 1.5*iqr,
	}

	kept := make([]float64, 0, len(sorted))
	for _, p := range sorted {
		if r.Keeps(p) {
			kept = append(kept, p)
		}
	}
	r.SampleSize = len(kept)
	r.Dropped = len(sorted) - len(kept)
	if len(kept) < MinSamples {
		return r, ErrInsufficientData
	}

	r.Central = median(kept)
	return r, nil
}

// quantile interpolates linearly between closest ranks. sorted must be
// ascending and non-empty.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// Median returns the median of values without modifying them. Returns 0
// for an empty slice.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return median(sorted)
}
