package marketplace

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/guarzo/thriftflip/internal/model"
)

// MockProvider returns deterministic listings derived from the search term.
// It is used in development when no marketplace credentials are configured
// and by tests.
type MockProvider struct {
	mu        sync.Mutex
	listings  []model.Listing
	active    int
	err       error
	available bool
	calls     []string
	now       func() time.Time
}

// Ensure MockProvider implements Provider
var _ Provider = (*MockProvider)(nil)

// NewMockProvider creates an available mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{available: true, active: -1, now: time.Now}
}

// Name identifies the provider.
func (m *MockProvider) Name() string {
	return "mock"
}

// Available reports whether the mock should be queried.
func (m *MockProvider) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// Search returns the configured listings, or generated ones.
func (m *MockProvider) Search(ctx context.Context, term string) (*model.ListingSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, term)
	if m.err != nil {
		return nil, m.err
	}

	set := &model.ListingSet{Term: term, Provider: m.Name()}
	if m.listings != nil {
		set.Listings = append([]model.Listing(nil), m.listings...)
	} else {
		set.Listings = m.generateListings(term)
	}
	if m.active >= 0 {
		set.ActiveCount = m.active
	} else {
		set.ActiveCount = len(set.Listings) * 2
	}
	return set, nil
}

// SetTestListings fixes the listings returned for every term. An empty,
// non-nil slice makes every search come back empty.
func (m *MockProvider) SetTestListings(listings []model.Listing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings = listings
}

// SetTestActiveCount fixes the active listing count.
func (m *MockProvider) SetTestActiveCount(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = n
}

// SetTestError makes every search fail with err.
func (m *MockProvider) SetTestError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetAvailable toggles availability.
func (m *MockProvider) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
}

// SetClock replaces the time source used for generated end times.
func (m *MockProvider) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Calls returns the terms searched so far.
func (m *MockProvider) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

var mockBasePrices = []struct {
	keyword string
	price   float64
}{
	{"football", 26},
	{"basketball", 27},
	{"golf", 22},
	{"cap", 20},
	{"hat", 18},
	{"jacket", 48},
	{"sneakers", 62},
	{"camera", 85},
	{"phone", 120},
}

func (m *MockProvider) generateListings(term string) []model.Listing {
	lower := strings.ToLower(term)
	base := 30.0
	for _, bp := range mockBasePrices {
		if strings.Contains(lower, bp.keyword) {
			base = bp.price
			break
		}
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(lower))
	seed := h.Sum32()

	variations := []float64{0.9, 1.0, 1.1, 0.95, 1.05, 1.15, 0.85}
	conditions := []string{"Pre-owned", "New with tags", "Pre-owned", "New without tags", "Pre-owned"}
	now := m.now()

	count := 5 + int(seed%3)
	listings := make([]model.Listing, 0, count)
	for i := 0; i < count; i++ {
		ended := now.Add(-time.Duration(12+i*30) * time.Hour)
		price := base * variations[(int(seed)+i)%len(variations)]
		listings = append(listings, model.Listing{
			Title:       fmt.Sprintf("%s #%d", term, i+1),
			Price:       float64(int(price*100)) / 100,
			Recency:     model.RecencyFor(ended, now),
			Condition:   conditions[i%len(conditions)],
			ListingDays: float64(3 + (int(seed)+i*4)%15),
			EndTime:     ended,
		})
	}
	return listings
}
