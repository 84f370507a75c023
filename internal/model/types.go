package model

import (
	"sort"
	"strings"
	"time"
)

// DetectionKind identifies which vision partition a detection came from.
type DetectionKind string

const (
	KindObject DetectionKind = "object"
	KindLabel  DetectionKind = "label"
	KindLogo   DetectionKind = "logo"
)

// Detection is a single scored signal returned by the vision collaborator.
type Detection struct {
	Kind        DetectionKind `json:"type"`
	Description string        `json:"description"`
	Score       float64       `json:"score"`
}

// DetectionBag holds everything detected in one image. Scores are per-source
// confidences and are never renormalised across partitions.
type DetectionBag struct {
	Objects []Detection `json:"objects"`
	Labels  []Detection `json:"labels"`
	Logos   []Detection `json:"logos"`
	Text    string      `json:"text"`
}

// Empty reports whether the bag carries no usable signal at all.
func (b DetectionBag) Empty() bool {
	return len(b.Objects) == 0 && len(b.Labels) == 0 && len(b.Logos) == 0 &&
		strings.TrimSpace(b.Text) == ""
}

// All returns every scored detection ordered by score, highest first.
// Ties keep object, label, logo order.
func (b DetectionBag) All() []Detection {
	all := make([]Detection, 0, len(b.Objects)+len(b.Labels)+len(b.Logos))
	all = append(all, b.Objects...)
	all = append(all, b.Labels...)
	all = append(all, b.Logos...)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Score > all[j].Score
	})
	return all
}

// Top returns the highest scoring detection, if any.
func (b DetectionBag) Top() (Detection, bool) {
	all := b.All()
	if len(all) == 0 {
		return Detection{}, false
	}
	return all[0], true
}

// LogoNames returns the logo descriptions in detection order.
func (b DetectionBag) LogoNames() []string {
	names := make([]string, 0, len(b.Logos))
	for _, l := range b.Logos {
		names = append(names, l.Description)
	}
	return names
}

// Recency buckets how long ago a sold listing closed.
type Recency string

const (
	RecencyUnknown    Recency = "unknown"
	RecencyVeryRecent Recency = "very_recent" // within a day
	RecencyRecent     Recency = "recent"      // within a week
	RecencyOlder      Recency = "older"
)

// RecencyFor buckets the age of a sale relative to now.
func RecencyFor(ended, now time.Time) Recency {
	if ended.IsZero() {
		return RecencyUnknown
	}
	age := now.Sub(ended)
	switch {
	case age <= 24*time.Hour:
		return RecencyVeryRecent
	case age <= 7*24*time.Hour:
		return RecencyRecent
	default:
		return RecencyOlder
	}
}

// Listing is one observed marketplace sale. Prices are USD.
type Listing struct {
	Title       string    `json:"title"`
	Price       float64   `json:"price"`
	Recency     Recency   `json:"recency"`
	Condition   string    `json:"condition,omitempty"`
	ListingDays float64   `json:"listingDays,omitempty"`
	EndTime     time.Time `json:"endTime,omitempty"`
}

// ListingSet is a marketplace answer for one search term.
type ListingSet struct {
	Term        string    `json:"term"`
	Provider    string    `json:"provider"`
	Listings    []Listing `json:"listings"`
	ActiveCount int       `json:"activeCount"`
}

// Prices returns the listing prices in order.
func (s *ListingSet) Prices() []float64 {
	prices := make([]float64, 0, len(s.Listings))
	for _, l := range s.Listings {
		prices = append(prices, l.Price)
	}
	return prices
}

// RecencyCounts returns how many listings sold within a week and within a day.
func (s *ListingSet) RecencyCounts() (recent, veryRecent int) {
	for _, l := range s.Listings {
		switch l.Recency {
		case RecencyRecent:
			recent++
		case RecencyVeryRecent:
			veryRecent++
		}
	}
	return recent, veryRecent
}

// CategoryResult is the classifier output for one request.
type CategoryResult struct {
	Category        string  `json:"category"`
	Brand           string  `json:"brand,omitempty"`
	MatchConfidence float64 `json:"matchConfidence"`
}

// DemandLevel is the five step demand scale.
type DemandLevel string

const (
	DemandVeryLow  DemandLevel = "Very Low"
	DemandLow      DemandLevel = "Low"
	DemandMedium   DemandLevel = "Medium"
	DemandHigh     DemandLevel = "High"
	DemandVeryHigh DemandLevel = "Very High"
)

// DemandFor maps a sell-through percentage onto the demand scale.
func DemandFor(sellThrough int) DemandLevel {
	switch {
	case sellThrough >= 75:
		return DemandVeryHigh
	case sellThrough >= 60:
		return DemandHigh
	case sellThrough >= 45:
		return DemandMedium
	case sellThrough >= 30:
		return DemandLow
	default:
		return DemandVeryLow
	}
}

// Source says where a market estimate came from.
type Source string

const (
	SourceLive   Source = "Live"
	SourceStatic Source = "Static"
)

// MarketEstimate is the resale estimate returned for an item.
type MarketEstimate struct {
	AvgPrice        float64     `json:"avgSoldPrice"`
	SellThroughRate int         `json:"sellThroughRate"`
	AvgListingDays  float64     `json:"avgListingTime"`
	DemandLevel     DemandLevel `json:"demandLevel"`
	Seasonality     string      `json:"seasonality"`
	Source          Source      `json:"dataSource"`
	SampleSize      int         `json:"soldListingsCount"`
	ActiveListings  int         `json:"activeListingsCount"`
}

// PricingRule is one static knowledge base entry. An empty Brand matches
// the category alone.
type PricingRule struct {
	Category        string
	Brand           string
	BasePrice       float64
	SellThroughHint int
	ListingDaysHint float64
	Seasonality     string
}

// Analysis is the caller-facing result of one image analysis.
type Analysis struct {
	Category   string      `json:"category"`
	Brand      string      `json:"brand,omitempty"`
	Confidence int         `json:"confidence"`
	Detections []Detection `json:"detections"`
	Brands     []string    `json:"brands"`
	Text       string      `json:"text"`
	MarketEstimate
}
