// Package demand turns observed listing counts into a sell-through rate,
// an expected listing duration, and a demand level.
package demand

import (
	"math"
	"regexp"

	"github.com/guarzo/thriftflip/internal/analysis"
	"github.com/guarzo/thriftflip/internal/model"
)

const (
	MinSellThrough = 25
	MaxSellThrough = 90

	MinListingDays = 3.0
	MaxListingDays = 45.0

	smallSampleRate = 35.0
	baseRateFloor   = 40.0
	baseRateCap     = 85.0
	smallSampleSize = 10

	recencyWeight    = 25.0
	veryRecentWeight = 5.0
	recencyFloor     = 5
)

// Signals are the inputs to Estimate.
type Signals struct {
	SampleSize   int
	Recent       int
	VeryRecent   int
	ActiveCount  int       // currently listed, 0 if unknown
	ObservedDays []float64 // days on market of sold listings, if known
	Category     string
	Brand        string
}

// Result is the estimator output.
type Result struct {
	SellThroughRate int
	AvgListingDays  float64
	DemandLevel     model.DemandLevel
}

// Adjustment adds Points to the rate when Pattern matches the category or
// brand. Unless is checked against the same text and cancels the adjustment.
type Adjustment struct {
	Name    string
	Pattern *regexp.Regexp
	Unless  *regexp.Regexp
	Points  float64
}

// Adjustments is applied in order; every matching entry contributes.
var Adjustments = []Adjustment{
	{Name: "jordan", Pattern: regexp.MustCompile(`(?i)\bjordan\b`), Points: 10},
	{Name: "supreme", Pattern: regexp.MustCompile(`(?i)\bsupreme\b`), Points: 10},
	{Name: "nike", Pattern: regexp.MustCompile(`(?i)\bnike\b`), Points: 8},
	{Name: "gucci", Pattern: regexp.MustCompile(`(?i)\bgucci\b`), Points: 8},
	{Name: "louis vuitton", Pattern: regexp.MustCompile(`(?i)\blouis\s+vuitton\b`), Points: 8},
	{Name: "apple", Pattern: regexp.MustCompile(`(?i)\bapple\b`), Points: 8},
	{Name: "nintendo", Pattern: regexp.MustCompile(`(?i)\bnintendo\b`), Points: 7},
	{Name: "patagonia", Pattern: regexp.MustCompile(`(?i)\bpatagonia\b`), Points: 6},
	{Name: "adidas", Pattern: regexp.MustCompile(`(?i)\badidas\b`), Points: 5},
	{Name: "the north face", Pattern: regexp.MustCompile(`(?i)\bnorth\s+face\b`), Points: 5},
	{Name: "titleist", Pattern: regexp.MustCompile(`(?i)\btitleist\b`), Points: 5},
	{Name: "sony", Pattern: regexp.MustCompile(`(?i)\bsony\b`), Points: 4},
	{Name: "wilson", Pattern: regexp.MustCompile(`(?i)\bwilson\b`), Points: 3},
	{
		Name:    "generic vintage",
		Pattern: regexp.MustCompile(`(?i)\bvintage\b`),
		Unless:  regexp.MustCompile(`(?i)\b(collectible|collectable|antique|signed|rare|first\s+edition)\b`),
		Points:  -5,
	},
}

// BaseRate is the sample-size driven starting rate. It never decreases as
// sampleSize grows.
func BaseRate(sampleSize int) float64 {
	if sampleSize < smallSampleSize {
		return smallSampleRate
	}
	return math.Min(baseRateCap, baseRateFloor+float64(sampleSize-smallSampleSize))
}

// RecencyBonus rewards the share of the sample that sold recently. Samples
// smaller than five are measured against five, so a couple of fresh sales
// cannot earn the full bonus. With the recent share held fixed a larger
// sample never lowers the rate.
func RecencyBonus(sampleSize, recent, veryRecent int) float64 {
	if sampleSize <= 0 {
		return 0
	}
	all := float64(clampInt(recent+veryRecent, 0, sampleSize))
	day := float64(clampInt(veryRecent, 0, sampleSize))
	denom := float64(max(sampleSize, recencyFloor))
	return recencyWeight*all/denom + veryRecentWeight*day/denom
}

// Estimate computes sell-through, listing days and demand. It never fails.
func Estimate(s Signals) Result {
	rate := BaseRate(s.SampleSize) + RecencyBonus(s.SampleSize, s.Recent, s.VeryRecent)

	// Blend in the observed sold/(sold+active) ratio when active supply is known.
	if s.ActiveCount > 0 {
		observed := 100 * float64(s.SampleSize) / float64(s.SampleSize+s.ActiveCount)
		rate = 0.5*rate + 0.5*observed
	}

	rate += adjustmentFor(s.Category + " " + s.Brand)

	sellThrough := clampInt(int(math.Round(rate)), MinSellThrough, MaxSellThrough)

	days := ListingDaysFor(sellThrough)
	if len(s.ObservedDays) > 0 {
		if observed := analysis.Median(s.ObservedDays); observed > 0 {
			days = (days + observed) / 2
		}
	}
	days = math.Round(clampFloat(days, MinListingDays, MaxListingDays)*10) / 10

	return Result{
		SellThroughRate: sellThrough,
		AvgListingDays:  days,
		DemandLevel:     model.DemandFor(sellThrough),
	}
}

// ListingDaysFor maps a sell-through rate linearly onto expected days to
// sell: 25% takes 45 days, 90% takes 3.
func ListingDaysFor(sellThrough int) float64 {
	span := float64(MaxSellThrough - MinSellThrough)
	days := MaxListingDays - float64(sellThrough-MinSellThrough)*(MaxListingDays-MinListingDays)/span
	return clampFloat(days, MinListingDays, MaxListingDays)
}

func adjustmentFor(text string) float64 {
	var points float64
	for _, a := range Adjustments {
		if !a.Pattern.MatchString(text) {
			continue
		}
		if a.Unless != nil && a.Unless.MatchString(text) {
			continue
		}
		points += a.Points
	}
	return points
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
