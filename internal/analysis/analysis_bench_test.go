package analysis

import (
	"math/rand"
	"testing"
)

func BenchmarkReduce(b *testing.B) {
	// Typical Finding API page
	prices := generateTestPrices(50, 1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Reduce(prices)
	}
}

func BenchmarkReduceLarge(b *testing.B) {
	prices := generateTestPrices(1000, 2)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Reduce(prices)
	}
}

func BenchmarkSanitizePrices(b *testing.B) {
	prices := generateTestPrices(200, 3)
	config := DefaultSanitizeConfig()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = SanitizePrices(prices, "Titleist Golf Hat", config)
	}
}

// Benchmark the full live path: sanitize then reduce
func BenchmarkSanitizeAndReduce(b *testing.B) {
	prices := generateTestPrices(50, 4)
	config := DefaultSanitizeConfig()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		clean := SanitizePrices(prices, "Nike Shoes", config)
		_, _ = Reduce(clean)
	}
}

// generateTestPrices returns prices around $40 with a few junk values and
// outliers mixed in.
func generateTestPrices(count int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	prices := make([]float64, count)
	for i := range prices {
		switch {
		case i%25 == 0:
			prices[i] = 0
		case i%17 == 0:
			prices[i] = 400 + rng.Float64()*200
		default:
			prices[i] = 30 + rng.Float64()*20
		}
	}
	return prices
}
