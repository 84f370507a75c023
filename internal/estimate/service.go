// Package estimate ties the collaborators together: vision detections are
// classified, the marketplace is searched for the category, and the sold
// prices are reduced into a market estimate. Whenever live data is missing
// or too thin the static knowledge base answers instead.
package estimate

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/guarzo/thriftflip/internal/analysis"
	"github.com/guarzo/thriftflip/internal/classify"
	"github.com/guarzo/thriftflip/internal/demand"
	"github.com/guarzo/thriftflip/internal/marketplace"
	"github.com/guarzo/thriftflip/internal/metrics"
	"github.com/guarzo/thriftflip/internal/model"
	"github.com/guarzo/thriftflip/internal/pricing"
	"github.com/guarzo/thriftflip/internal/vision"
)

// ErrNoImage is returned by Analyze when no image bytes were supplied.
var ErrNoImage = errors.New("no image provided")

// Fallback reasons recorded in metrics and logs.
const (
	reasonUnknownItem      = "unknown_item"
	reasonNoResults        = "no_results"
	reasonSearchFailed     = "search_failed"
	reasonInsufficientData = "insufficient_data"
)

// MarketSearcher finds sold listings for an item name.
type MarketSearcher interface {
	Search(ctx context.Context, itemName string) (*model.ListingSet, error)
}

// Config holds per-collaborator timeouts.
type Config struct {
	VisionTimeout time.Duration
	SearchTimeout time.Duration
	Sanitize      *analysis.SanitizeConfig
}

// Service produces market estimates. It is safe for concurrent use; the
// only shared mutable state lives in the collaborators.
type Service struct {
	cfg        Config
	annotator  vision.Annotator
	classifier *classify.Classifier
	searcher   MarketSearcher
	kb         *pricing.KnowledgeBase
	metrics    *metrics.Recorder
	logger     zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics attaches a metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service. A nil annotator yields empty detections and
// a nil searcher always falls back to the knowledge base.
func NewService(cfg Config, annotator vision.Annotator, classifier *classify.Classifier, searcher MarketSearcher, kb *pricing.KnowledgeBase, opts ...Option) *Service {
	if cfg.VisionTimeout <= 0 {
		cfg.VisionTimeout = 30 * time.Second
	}
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = 30 * time.Second
	}
	if cfg.Sanitize == nil {
		cfg.Sanitize = analysis.DefaultSanitizeConfig()
	}
	if classifier == nil {
		classifier = classify.New()
	}
	if kb == nil {
		kb = pricing.New()
	}

	s := &Service{
		cfg:        cfg,
		annotator:  annotator,
		classifier: classifier,
		searcher:   searcher,
		kb:         kb,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze runs the full pipeline on an uploaded image. The only failure is
// an empty image; a failing vision call degrades to an empty detection bag.
func (s *Service) Analyze(ctx context.Context, image []byte, mime string) (*model.Analysis, error) {
	if len(image) == 0 {
		return nil, ErrNoImage
	}
	defer s.metrics.ObserveDuration("analyze", time.Now())

	s.logger.Info().Int("bytes", len(image)).Str("mime", mime).Msg("analyzing image")

	bag := s.annotate(ctx, image)
	return s.EstimateFromDetections(ctx, bag), nil
}

// EstimateFromDetections classifies bag and attaches a market estimate.
func (s *Service) EstimateFromDetections(ctx context.Context, bag model.DetectionBag) *model.Analysis {
	result := s.classifier.Classify(bag)

	confidence := 0
	if top, ok := bag.Top(); ok {
		confidence = int(math.Round(clamp(top.Score, 0, 1) * 100))
	}

	var market model.MarketEstimate
	if result.Category == classify.UnknownCategory {
		market = s.static(result.Category, result.Brand, reasonUnknownItem)
	} else {
		market = s.MarketFor(ctx, result.Category, result.Brand)
	}

	s.logger.Info().
		Str("category", result.Category).
		Str("brand", result.Brand).
		Int("confidence", confidence).
		Str("source", string(market.Source)).
		Float64("avg_price", market.AvgPrice).
		Msg("analysis complete")

	return &model.Analysis{
		Category:       result.Category,
		Brand:          result.Brand,
		Confidence:     confidence,
		Detections:     bag.All(),
		Brands:         bag.LogoNames(),
		Text:           bag.Text,
		MarketEstimate: market,
	}
}

// MarketFor estimates the resale market of a category. Live marketplace data
// is used when at least three prices survive outlier removal; otherwise the
// static knowledge base answers. It never fails.
func (s *Service) MarketFor(ctx context.Context, category, brand string) model.MarketEstimate {
	defer s.metrics.ObserveDuration("market", time.Now())

	if s.searcher == nil {
		return s.static(category, brand, reasonNoResults)
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.cfg.SearchTimeout)
	defer cancel()

	set, err := s.searcher.Search(searchCtx, category)
	if err != nil {
		reason := reasonSearchFailed
		if errors.Is(err, marketplace.ErrNoResults) {
			reason = reasonNoResults
		}
		s.logger.Debug().Err(err).Str("category", category).Msg("no live market data")
		return s.static(category, brand, reason)
	}

	est, ok := s.live(category, brand, set)
	if !ok {
		return s.static(category, brand, reasonInsufficientData)
	}
	s.metrics.RecordAnalysis(string(model.SourceLive))
	return est
}

func (s *Service) annotate(ctx context.Context, image []byte) model.DetectionBag {
	if s.annotator == nil {
		return model.DetectionBag{}
	}

	visionCtx, cancel := context.WithTimeout(ctx, s.cfg.VisionTimeout)
	defer cancel()

	bag, err := s.annotator.Annotate(visionCtx, image)
	if err != nil {
		s.metrics.RecordUpstreamError("vision")
		s.logger.Warn().Err(err).Msg("vision annotate failed, continuing without detections")
		return model.DetectionBag{}
	}
	return bag
}

func (s *Service) live(category, brand string, set *model.ListingSet) (model.MarketEstimate, bool) {
	prices := analysis.SanitizePrices(set.Prices(), category, s.cfg.Sanitize)
	reduced, err := analysis.Reduce(prices)
	if err != nil || reduced.Central <= 0 {
		s.logger.Debug().
			Str("category", category).
			Int("prices", len(prices)).
			Msg("too few usable prices for a live estimate")
		return model.MarketEstimate{}, false
	}

	// Demand signals only count listings that made it into the price sample.
	kept := model.ListingSet{Listings: make([]model.Listing, 0, len(set.Listings))}
	for _, l := range set.Listings {
		if analysis.SanitizePrice(l.Price, category, s.cfg.Sanitize) > 0 && reduced.Keeps(l.Price) {
			kept.Listings = append(kept.Listings, l)
		}
	}

	recent, veryRecent := kept.RecencyCounts()
	observed := make([]float64, 0, len(kept.Listings))
	for _, l := range kept.Listings {
		if l.ListingDays > 0 {
			observed = append(observed, l.ListingDays)
		}
	}

	res := demand.Estimate(demand.Signals{
		SampleSize:   reduced.SampleSize,
		Recent:       recent,
		VeryRecent:   veryRecent,
		ActiveCount:  set.ActiveCount,
		ObservedDays: observed,
		Category:     category,
		Brand:        brand,
	})

	return model.MarketEstimate{
		AvgPrice:        math.Round(reduced.Central*100) / 100,
		SellThroughRate: res.SellThroughRate,
		AvgListingDays:  res.AvgListingDays,
		DemandLevel:     res.DemandLevel,
		Seasonality:     s.kb.Seasonality(category, brand),
		Source:          model.SourceLive,
		SampleSize:      reduced.SampleSize,
		ActiveListings:  set.ActiveCount,
	}, true
}

func (s *Service) static(category, brand, reason string) model.MarketEstimate {
	est := s.kb.Lookup(category, brand)
	if est.AvgPrice <= 0 {
		est = s.kb.Default()
	}
	s.metrics.RecordFallback(reason)
	s.metrics.RecordAnalysis(string(model.SourceStatic))
	return est
}

func clamp(v, lo, hi float64) float64 {
	if v < lo || math.IsNaN(v) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
