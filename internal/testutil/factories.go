package testutil

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/guarzo/thriftflip/internal/model"
)

var itemNames = []string{"Test Hat", "Test Football", "Test Jacket", "Test Sneakers", "Test Camera"}

// TestDataFactory provides methods for generating dynamic test data
type TestDataFactory struct {
	rand *rand.Rand
}

// NewTestDataFactory creates a new test data factory with a seeded random generator
func NewTestDataFactory(seed int64) *TestDataFactory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &TestDataFactory{
		rand: rand.New(rand.NewSource(seed)),
	}
}

// GenerateTestListings generates n sold listings around basePrice, closing
// within the given window before now.
func (f *TestDataFactory) GenerateTestListings(n int, basePrice float64, window time.Duration, now time.Time) []model.Listing {
	listings := make([]model.Listing, 0, n)
	for i := 0; i < n; i++ {
		variance := 0.85 + 0.3*f.rand.Float64()
		name := itemNames[f.rand.Intn(len(itemNames))]
		ended := now.Add(-time.Duration(f.rand.Int63n(int64(window) + 1)))
		listings = append(listings, model.Listing{
			Title:       fmt.Sprintf("%s #%d", name, i+1),
			Price:       float64(int(basePrice*variance*100)) / 100,
			Recency:     model.RecencyFor(ended, now),
			Condition:   "Pre-owned",
			ListingDays: float64(1 + f.rand.Intn(20)),
			EndTime:     ended,
		})
	}
	return listings
}

// GenerateTestDetectionBag generates a bag with one object, up to three
// labels and optionally a logo.
func (f *TestDataFactory) GenerateTestDetectionBag(withLogo bool) model.DetectionBag {
	objects := []string{"Hat", "Shoe", "Jacket", "Camera", "Football"}
	labels := []string{"Fashion accessory", "Sports equipment", "Outerwear", "Electronic device", "Headgear"}
	logos := []string{"Nike", "Adidas", "Wilson", "Titleist", "Sony"}

	bag := model.DetectionBag{
		Objects: []model.Detection{{
			Kind:        model.KindObject,
			Description: objects[f.rand.Intn(len(objects))],
			Score:       0.6 + 0.4*f.rand.Float64(),
		}},
	}
	for i := 0; i < 1+f.rand.Intn(3); i++ {
		bag.Labels = append(bag.Labels, model.Detection{
			Kind:        model.KindLabel,
			Description: labels[f.rand.Intn(len(labels))],
			Score:       0.5 + 0.5*f.rand.Float64(),
		})
	}
	if withLogo {
		name := logos[f.rand.Intn(len(logos))]
		bag.Logos = []model.Detection{{Kind: model.KindLogo, Description: name, Score: 0.5 + 0.5*f.rand.Float64()}}
		bag.Text = name
	}
	return bag
}
