// Package pricing holds the static resale knowledge base used when no live
// marketplace data is available.
package pricing

import (
	"strings"

	"github.com/guarzo/thriftflip/internal/model"
)

// DefaultSeasonality is reported when nothing more specific is known.
const DefaultSeasonality = "Year-round"

// DefaultRule is the global fallback entry.
var DefaultRule = model.PricingRule{
	Category:        "default",
	BasePrice:       30,
	SellThroughHint: 45,
	ListingDaysHint: 18,
	Seasonality:     DefaultSeasonality,
}

// DefaultRules are exact entries keyed by lower-cased category and brand key.
// An entry with an empty Brand matches any brand of that category.
var DefaultRules = []model.PricingRule{
	{Category: "titleist golf hat", Brand: "titleist", BasePrice: 24, SellThroughHint: 60, ListingDaysHint: 12, Seasonality: "Spring/Summer peak"},
	{Category: "golf hat", BasePrice: 20, SellThroughHint: 52, ListingDaysHint: 15, Seasonality: "Spring/Summer peak"},
	{Category: "wilson football", Brand: "wilson", BasePrice: 28, SellThroughHint: 65, ListingDaysHint: 10, Seasonality: "Fall peak"},
	{Category: "football", BasePrice: 25, SellThroughHint: 60, ListingDaysHint: 12, Seasonality: "Fall peak"},
	{Category: "nike basketball", Brand: "nike", BasePrice: 30, SellThroughHint: 62, ListingDaysHint: 11, Seasonality: "Winter peak"},
	{Category: "basketball", BasePrice: 25, SellThroughHint: 55, ListingDaysHint: 14, Seasonality: "Winter peak"},
	{Category: "baseball cap", BasePrice: 22, SellThroughHint: 55, ListingDaysHint: 14, Seasonality: DefaultSeasonality},
	{Category: "baseball equipment", BasePrice: 35, SellThroughHint: 58, ListingDaysHint: 14, Seasonality: "Spring/Summer peak"},
	{Category: "hat", BasePrice: 18, SellThroughHint: 50, ListingDaysHint: 16, Seasonality: DefaultSeasonality},
}

// Fallback matches by keyword when no exact entry exists. Every group in
// Keywords must have at least one of its words present.
type Fallback struct {
	Keywords [][]string
	Rule     model.PricingRule
}

// DefaultFallbacks is checked in order; the first match wins.
var DefaultFallbacks = []Fallback{
	{
		Keywords: [][]string{{"wilson"}, {"football"}},
		Rule:     model.PricingRule{BasePrice: 28, SellThroughHint: 65, ListingDaysHint: 10, Seasonality: "Fall peak"},
	},
	{
		Keywords: [][]string{{"football"}},
		Rule:     model.PricingRule{BasePrice: 25, SellThroughHint: 60, ListingDaysHint: 12, Seasonality: "Fall peak"},
	},
	{
		Keywords: [][]string{{"baseball"}, {"cap", "hat"}},
		Rule:     model.PricingRule{BasePrice: 22, SellThroughHint: 55, ListingDaysHint: 14, Seasonality: DefaultSeasonality},
	},
	{
		Keywords: [][]string{{"hat", "cap"}},
		Rule:     model.PricingRule{BasePrice: 18, SellThroughHint: 50, ListingDaysHint: 16, Seasonality: DefaultSeasonality},
	},
	{
		Keywords: [][]string{{"baseball"}},
		Rule:     model.PricingRule{BasePrice: 35, SellThroughHint: 58, ListingDaysHint: 14, Seasonality: "Spring/Summer peak"},
	},
	{
		Keywords: [][]string{{"basketball"}},
		Rule:     model.PricingRule{BasePrice: 25, SellThroughHint: 55, ListingDaysHint: 14, Seasonality: "Winter peak"},
	},
	{
		Keywords: [][]string{{"sneakers", "shoes", "shoe"}},
		Rule:     model.PricingRule{BasePrice: 55, SellThroughHint: 60, ListingDaysHint: 12, Seasonality: DefaultSeasonality},
	},
	{
		Keywords: [][]string{{"jacket", "coat"}},
		Rule:     model.PricingRule{BasePrice: 45, SellThroughHint: 50, ListingDaysHint: 18, Seasonality: "Fall/Winter peak"},
	},
	{
		Keywords: [][]string{{"electronics", "camera", "phone"}},
		Rule:     model.PricingRule{BasePrice: 80, SellThroughHint: 55, ListingDaysHint: 14, Seasonality: "Holiday peak"},
	},
	{
		Keywords: [][]string{{"vintage", "antique"}},
		Rule:     model.PricingRule{BasePrice: 35, SellThroughHint: 35, ListingDaysHint: 25, Seasonality: DefaultSeasonality},
	},
}

// KnowledgeBase answers static market estimates. It is read-only after
// construction and safe for concurrent use.
type KnowledgeBase struct {
	rules     []model.PricingRule
	fallbacks []Fallback
	def       model.PricingRule
}

// New returns a KnowledgeBase over the default tables.
func New() *KnowledgeBase {
	return NewWithRules(DefaultRules, DefaultFallbacks, DefaultRule)
}

// NewWithRules returns a KnowledgeBase over caller supplied tables.
func NewWithRules(rules []model.PricingRule, fallbacks []Fallback, def model.PricingRule) *KnowledgeBase {
	return &KnowledgeBase{rules: rules, fallbacks: fallbacks, def: def}
}

// Lookup returns the static estimate for a category and brand. Lookup order
// is exact (category, brand), category alone, keyword fallback, then the
// global default. It never fails.
func (kb *KnowledgeBase) Lookup(category, brand string) model.MarketEstimate {
	return toEstimate(kb.find(category, brand))
}

// Seasonality returns the seasonal pattern the knowledge base associates
// with a category.
func (kb *KnowledgeBase) Seasonality(category, brand string) string {
	if s := kb.find(category, brand).Seasonality; s != "" {
		return s
	}
	return DefaultSeasonality
}

// Default returns the global default estimate.
func (kb *KnowledgeBase) Default() model.MarketEstimate {
	return toEstimate(kb.def)
}

func (kb *KnowledgeBase) find(category, brand string) model.PricingRule {
	cat := normalize(category)
	b := normalize(brand)

	if b != "" {
		for _, r := range kb.rules {
			if normalize(r.Category) == cat && normalize(r.Brand) == b {
				return r
			}
		}
	}
	for _, r := range kb.rules {
		if r.Brand == "" && normalize(r.Category) == cat {
			return r
		}
	}

	text := strings.TrimSpace(cat + " " + b)
	for _, f := range kb.fallbacks {
		if matchesKeywords(text, f.Keywords) {
			return f.Rule
		}
	}
	return kb.def
}

func matchesKeywords(text string, groups [][]string) bool {
	if len(groups) == 0 {
		return false
	}
	for _, group := range groups {
		hit := false
		for _, word := range group {
			if strings.Contains(text, word) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func toEstimate(r model.PricingRule) model.MarketEstimate {
	seasonality := r.Seasonality
	if seasonality == "" {
		seasonality = DefaultSeasonality
	}
	return model.MarketEstimate{
		AvgPrice:        r.BasePrice,
		SellThroughRate: r.SellThroughHint,
		AvgListingDays:  r.ListingDaysHint,
		DemandLevel:     model.DemandFor(r.SellThroughHint),
		Seasonality:     seasonality,
		Source:          model.SourceStatic,
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
