package estimate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/guarzo/thriftflip/internal/marketplace"
	"github.com/guarzo/thriftflip/internal/metrics"
	"github.com/guarzo/thriftflip/internal/model"
	"github.com/guarzo/thriftflip/internal/testutil"
)

type fakeAnnotator struct {
	bag   model.DetectionBag
	err   error
	calls int
}

func (f *fakeAnnotator) Annotate(ctx context.Context, image []byte) (model.DetectionBag, error) {
	f.calls++
	return f.bag, f.err
}

func listings(recency model.Recency, prices ...float64) []model.Listing {
	out := make([]model.Listing, 0, len(prices))
	for _, p := range prices {
		out = append(out, model.Listing{Title: "item", Price: p, Recency: recency})
	}
	return out
}

func newTestService(annotator *fakeAnnotator, provider *marketplace.MockProvider) *Service {
	searcher := marketplace.NewSearcher([]marketplace.Provider{provider})
	rec := metrics.NewWithRegistry(prometheus.NewRegistry())
	if annotator == nil {
		return NewService(Config{}, nil, nil, searcher, nil, WithMetrics(rec))
	}
	return NewService(Config{}, annotator, nil, searcher, nil, WithMetrics(rec))
}

func mockWith(l []model.Listing, active int) *marketplace.MockProvider {
	p := marketplace.NewMockProvider()
	p.SetTestListings(l)
	p.SetTestActiveCount(active)
	return p
}

func TestAnalyze_NoImage(t *testing.T) {
	svc := newTestService(&fakeAnnotator{}, marketplace.NewMockProvider())

	if _, err := svc.Analyze(context.Background(), nil, "image/jpeg"); !errors.Is(err, ErrNoImage) {
		t.Errorf("expected ErrNoImage, got %v", err)
	}
}

func TestAnalyze_TitleistHatLive(t *testing.T) {
	annotator := &fakeAnnotator{bag: model.DetectionBag{
		Logos:   []model.Detection{{Kind: model.KindLogo, Description: "Titleist", Score: 0.91}},
		Objects: []model.Detection{{Kind: model.KindObject, Description: "Hat", Score: 0.88}},
		Labels:  []model.Detection{{Kind: model.KindLabel, Description: "Cap", Score: 0.84}},
		Text:    "TITLEIST",
	}}
	provider := mockWith(listings(model.RecencyRecent, 22, 24, 25, 23, 26), 0)

	got, err := newTestService(annotator, provider).Analyze(context.Background(), []byte("jpeg"), "image/jpeg")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if got.Category != "Titleist Golf Hat" || got.Brand != "titleist" {
		t.Errorf("category = %q brand = %q", got.Category, got.Brand)
	}
	if got.Confidence != 91 {
		t.Errorf("Confidence = %d, want 91", got.Confidence)
	}
	if got.Source != model.SourceLive || got.AvgPrice != 24 || got.SampleSize != 5 {
		t.Errorf("unexpected market estimate: %+v", got.MarketEstimate)
	}
	if got.Seasonality != "Spring/Summer peak" {
		t.Errorf("Seasonality = %q", got.Seasonality)
	}
	if len(got.Detections) != 3 || got.Detections[0].Description != "Titleist" {
		t.Errorf("detections not ordered by score: %+v", got.Detections)
	}
	if len(got.Brands) != 1 || got.Text != "TITLEIST" {
		t.Errorf("brands = %v text = %q", got.Brands, got.Text)
	}
	if calls := provider.Calls(); len(calls) != 1 || calls[0] != "Titleist Golf Hat" {
		t.Errorf("provider calls = %v", calls)
	}
}

func TestAnalyze_VisionFailureDegrades(t *testing.T) {
	annotator := &fakeAnnotator{err: errors.New("vision API status 503")}
	provider := marketplace.NewMockProvider()

	got, err := newTestService(annotator, provider).Analyze(context.Background(), []byte("jpeg"), "image/png")
	if err != nil {
		t.Fatalf("vision failure must not surface: %v", err)
	}
	if got.Category != "Unknown Item" || got.Source != model.SourceStatic {
		t.Errorf("unexpected analysis: %+v", got)
	}
	if got.Detections == nil || got.Brands == nil {
		t.Error("detections and brands should serialise as empty arrays")
	}
}

func TestEstimate_EmptyBagUsesDefault(t *testing.T) {
	provider := marketplace.NewMockProvider()
	got := newTestService(nil, provider).EstimateFromDetections(context.Background(), model.DetectionBag{})

	if got.Category != "Unknown Item" || got.Confidence != 0 {
		t.Errorf("category = %q confidence = %d", got.Category, got.Confidence)
	}
	want := model.MarketEstimate{
		AvgPrice:        30,
		SellThroughRate: 45,
		AvgListingDays:  18,
		DemandLevel:     model.DemandMedium,
		Seasonality:     "Year-round",
		Source:          model.SourceStatic,
	}
	if got.MarketEstimate != want {
		t.Errorf("MarketEstimate = %+v, want %+v", got.MarketEstimate, want)
	}
	if len(provider.Calls()) != 0 {
		t.Errorf("marketplace searched for an unknown item: %v", provider.Calls())
	}
}

func TestMarketFor_FullRecencyIsHighDemand(t *testing.T) {
	provider := mockWith(listings(model.RecencyRecent, 45, 50, 48, 52, 47), 0)

	got := newTestService(nil, provider).MarketFor(context.Background(), "Football", "")

	if got.Source != model.SourceLive {
		t.Fatalf("Source = %s, want Live", got.Source)
	}
	if got.AvgPrice != 48 {
		t.Errorf("AvgPrice = %.2f, want 48", got.AvgPrice)
	}
	if got.SellThroughRate <= 35 {
		t.Errorf("SellThroughRate = %d, want above the small-sample baseline", got.SellThroughRate)
	}
	if got.DemandLevel != model.DemandHigh && got.DemandLevel != model.DemandVeryHigh {
		t.Errorf("DemandLevel = %s, want High or above", got.DemandLevel)
	}
	if got.Seasonality != "Fall peak" {
		t.Errorf("Seasonality = %q", got.Seasonality)
	}
}

func TestMarketFor_StaleVintageIsLowDemand(t *testing.T) {
	provider := mockWith(listings(model.RecencyOlder, 10, 12, 11), 0)

	got := newTestService(nil, provider).MarketFor(context.Background(), "vintage collectible", "")

	if got.Source != model.SourceLive {
		t.Fatalf("Source = %s, want Live", got.Source)
	}
	if got.AvgPrice != 11 {
		t.Errorf("AvgPrice = %.2f, want 11", got.AvgPrice)
	}
	if got.SellThroughRate < 30 || got.SellThroughRate > 45 {
		t.Errorf("SellThroughRate = %d, want 30..45", got.SellThroughRate)
	}
	if got.DemandLevel != model.DemandLow && got.DemandLevel != model.DemandMedium {
		t.Errorf("DemandLevel = %s", got.DemandLevel)
	}
}

func TestMarketFor_FallsBackToStatic(t *testing.T) {
	tests := []struct {
		name     string
		provider func() *marketplace.MockProvider
	}{
		{"two prices", func() *marketplace.MockProvider {
			return mockWith(listings(model.RecencyRecent, 20, 22), 4)
		}},
		{"prices filtered below three", func() *marketplace.MockProvider {
			return mockWith(listings(model.RecencyRecent, 20, 0.5, -3, 4000), 4)
		}},
		{"no listings", func() *marketplace.MockProvider {
			return mockWith([]model.Listing{}, 0)
		}},
		{"provider error", func() *marketplace.MockProvider {
			p := marketplace.NewMockProvider()
			p.SetTestError(errors.New("ebay down"))
			return p
		}},
		{"provider unavailable", func() *marketplace.MockProvider {
			p := marketplace.NewMockProvider()
			p.SetAvailable(false)
			return p
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newTestService(nil, tt.provider()).MarketFor(context.Background(), "Hat", "")
			if got.Source != model.SourceStatic {
				t.Fatalf("Source = %s, want Static", got.Source)
			}
			if got.AvgPrice != 18 || got.SellThroughRate != 50 {
				t.Errorf("unexpected static estimate: %+v", got)
			}
		})
	}
}

func TestMarketFor_NoSearcher(t *testing.T) {
	svc := NewService(Config{}, nil, nil, nil, nil)
	if got := svc.MarketFor(context.Background(), "Jacket", "patagonia"); got.Source != model.SourceStatic || got.AvgPrice != 45 {
		t.Errorf("unexpected estimate: %+v", got)
	}
}

func TestMarketFor_OutputsAlwaysClamped(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	factory := testutil.NewTestDataFactory(7)

	cases := []struct {
		category string
		brand    string
		list     []model.Listing
		active   int
	}{
		{"Jordan Athletic Sneakers", "jordan", factory.GenerateTestListings(80, 150, 24*time.Hour, now), 0},
		{"Supreme T-Shirt", "supreme", listings(model.RecencyVeryRecent, 40, 41, 42, 43, 44, 45, 46, 47), 0},
		{"Vintage Typewriter", "", listings(model.RecencyOlder, 5, 6, 5, 7, 5000), 500},
		{"Hat", "", listings(model.RecencyUnknown, 1.01, 1.02, 1.03), 1_000_000},
		{"Camera", "canon", factory.GenerateTestListings(3, 90, 90*24*time.Hour, now), 2},
	}

	for _, c := range cases {
		got := newTestService(nil, mockWith(c.list, c.active)).MarketFor(context.Background(), c.category, c.brand)
		if got.SellThroughRate < 25 || got.SellThroughRate > 90 {
			t.Errorf("%s: SellThroughRate = %d out of range", c.category, got.SellThroughRate)
		}
		if got.AvgListingDays < 3 || got.AvgListingDays > 45 {
			t.Errorf("%s: AvgListingDays = %.1f out of range", c.category, got.AvgListingDays)
		}
		if got.AvgPrice <= 0 {
			t.Errorf("%s: AvgPrice = %.2f not positive", c.category, got.AvgPrice)
		}
	}
}

func TestMarketFor_ContextCancelledStillAnswers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := newTestService(nil, marketplace.NewMockProvider()).MarketFor(ctx, "Basketball", "")
	if got.AvgPrice <= 0 {
		t.Errorf("expected a usable estimate, got %+v", got)
	}
}

func TestMarketFor_RecencyIgnoresDiscardedListings(t *testing.T) {
	kept := listings(model.RecencyOlder, 20, 21, 22)
	want := newTestService(nil, mockWith(kept, 0)).MarketFor(context.Background(), "Hat", "")
	if want.Source != model.SourceLive || want.DemandLevel != model.DemandLow {
		t.Fatalf("baseline = %s/%s, want Live/Low", want.Source, want.DemandLevel)
	}

	tests := []struct {
		name      string
		discarded []model.Listing
	}{
		// Above the hat price cap.
		{"sanitized", listings(model.RecencyVeryRecent, 900, 900, 900, 900, 900, 900, 900)},
		// Under the cap but outside the IQR fences.
		{"outlier", listings(model.RecencyVeryRecent, 200)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			all := append(append([]model.Listing(nil), kept...), tt.discarded...)
			got := newTestService(nil, mockWith(all, 0)).MarketFor(context.Background(), "Hat", "")

			if got.SampleSize != 3 || got.AvgPrice != 21 {
				t.Fatalf("sample = %d @ %.2f, want 3 @ 21", got.SampleSize, got.AvgPrice)
			}
			if got.SellThroughRate != want.SellThroughRate || got.DemandLevel != want.DemandLevel {
				t.Errorf("got %d/%s, want %d/%s", got.SellThroughRate, got.DemandLevel, want.SellThroughRate, want.DemandLevel)
			}
		})
	}
}

func TestEstimateFromDetections_GeneratedBags(t *testing.T) {
	factory := testutil.NewTestDataFactory(11)
	provider := mockWith(listings(model.RecencyRecent, 30, 32, 31, 29, 33), 0)
	svc := newTestService(nil, provider)

	for i := 0; i < 25; i++ {
		bag := factory.GenerateTestDetectionBag(i%2 == 0)
		got := svc.EstimateFromDetections(context.Background(), bag)

		if got.Category == "" {
			t.Errorf("bag %d: empty category for %+v", i, bag)
		}
		if got.Confidence < 50 || got.Confidence > 100 {
			t.Errorf("bag %d: Confidence = %d, want 50..100", i, got.Confidence)
		}
		if got.AvgPrice <= 0 || got.SellThroughRate < 25 || got.SellThroughRate > 90 {
			t.Errorf("bag %d: unusable estimate %+v", i, got.MarketEstimate)
		}
		if len(got.Detections) != len(bag.All()) {
			t.Errorf("bag %d: %d detections, want %d", i, len(got.Detections), len(bag.All()))
		}
	}
}

func TestNewService_DefaultTimeouts(t *testing.T) {
	svc := NewService(Config{}, nil, nil, nil, nil)

	if svc.cfg.SearchTimeout != 30*time.Second || svc.cfg.VisionTimeout != 30*time.Second {
		t.Errorf("timeouts = %v/%v, want 30s/30s", svc.cfg.SearchTimeout, svc.cfg.VisionTimeout)
	}
}
