package analysis

import (
	"math"
	"strings"
)

// PriceCaps defines the maximum believable resale price by category keyword.
var PriceCaps = map[string]float64{
	"hat":         300.00,
	"cap":         300.00,
	"football":    500.00,
	"basketball":  500.00,
	"baseball":    750.00,
	"shirt":       400.00,
	"jacket":      1500.00,
	"sneakers":    1500.00,
	"smartphone":  2500.00,
	"camera":      2500.00,
	"electronics": 2500.00,
	"default":     1000.00,
}

// capOrder fixes the keyword precedence used by getCapForCategory.
var capOrder = []string{
	"smartphone", "camera", "electronics", "jacket", "sneakers",
	"baseball", "football", "basketball", "shirt", "hat", "cap",
}

// SanitizeConfig holds configuration for listing price sanitization
type SanitizeConfig struct {
	MinPriceUSD float64            // Minimum price threshold (default 1.00)
	CustomCaps  map[string]float64 // Override default category caps
}

// DefaultSanitizeConfig returns default sanitization settings
func DefaultSanitizeConfig() *SanitizeConfig {
	return &SanitizeConfig{
		MinPriceUSD: 1.00,
	}
}

// SanitizePrice validates a single listing price, returning 0 when the
// price should be discarded.
func SanitizePrice(price float64, category string, config *SanitizeConfig) float64 {
	if config == nil {
		config = DefaultSanitizeConfig()
	}

	if isInvalidPrice(price) {
		return 0
	}

	if price < config.MinPriceUSD {
		return 0
	}

	// Return 0 for outliers rather than capping
	if price > getCapForCategory(category, config) {
		return 0
	}

	return price
}

// SanitizePrices is the first-stage filter applied to raw marketplace prices
// before Reduce runs its IQR pass.
func SanitizePrices(prices []float64, category string, config *SanitizeConfig) []float64 {
	clean := make([]float64, 0, len(prices))
	for _, p := range prices {
		if v := SanitizePrice(p, category, config); v > 0 {
			clean = append(clean, v)
		}
	}
	return clean
}

func isInvalidPrice(price float64) bool {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return true
	}
	return price <= 0
}

func getCapForCategory(category string, config *SanitizeConfig) float64 {
	c := strings.ToLower(category)

	if config.CustomCaps != nil {
		if limit, ok := config.CustomCaps[c]; ok {
			return limit
		}
	}

	for _, keyword := range capOrder {
		if strings.Contains(c, keyword) {
			return PriceCaps[keyword]
		}
	}
	if strings.Contains(c, "phone") {
		return PriceCaps["smartphone"]
	}
	if strings.Contains(c, "shoe") {
		return PriceCaps["sneakers"]
	}
	return PriceCaps["default"]
}
