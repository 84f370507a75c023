package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/guarzo/thriftflip/internal/cache"
	"github.com/guarzo/thriftflip/internal/metrics"
	"github.com/guarzo/thriftflip/internal/model"
)

// Searcher tries each available provider in order and, for each provider,
// each search term in order. The first non-empty answer wins.
type Searcher struct {
	providers []Provider
	store     cache.Store
	ttl       time.Duration
	metrics   *metrics.Recorder
	logger    zerolog.Logger
}

// SearcherOption configures a Searcher.
type SearcherOption func(*Searcher)

// WithCache caches non-empty answers for ttl. A zero ttl disables caching.
func WithCache(store cache.Store, ttl time.Duration) SearcherOption {
	return func(s *Searcher) {
		s.store = store
		s.ttl = ttl
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m *metrics.Recorder) SearcherOption {
	return func(s *Searcher) {
		s.metrics = m
	}
}

// WithLogger sets the searcher's logger.
func WithLogger(l zerolog.Logger) SearcherOption {
	return func(s *Searcher) {
		s.logger = l
	}
}

// NewSearcher creates a Searcher over providers.
func NewSearcher(providers []Provider, opts ...SearcherOption) *Searcher {
	s := &Searcher{providers: providers, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether at least one provider can be queried.
func (s *Searcher) Available() bool {
	for _, p := range s.providers {
		if p != nil && p.Available() {
			return true
		}
	}
	return false
}

// Providers returns the names of the available providers.
func (s *Searcher) Providers() []string {
	var names []string
	for _, p := range s.providers {
		if p != nil && p.Available() {
			names = append(names, p.Name())
		}
	}
	return names
}

// Search finds sold listings for itemName. It returns ErrNoResults when no
// provider answered with listings for any term. Provider failures move on
// to the next provider; only context cancellation is returned as is.
func (s *Searcher) Search(ctx context.Context, itemName string) (*model.ListingSet, error) {
	terms := SearchTerms(itemName)
	if len(terms) == 0 {
		return nil, ErrNoResults
	}

	for _, p := range s.providers {
		if p == nil || !p.Available() {
			continue
		}

		set, err := s.searchProvider(ctx, p, terms)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.metrics.RecordUpstreamError(p.Name())
			s.logger.Warn().Err(err).Str("provider", p.Name()).Str("item", itemName).Msg("marketplace search failed")
			continue
		}
		if set != nil {
			return set, nil
		}
	}

	return nil, ErrNoResults
}

// SearchTerm queries the first available provider for a single term,
// bypassing term expansion and the cache.
func (s *Searcher) SearchTerm(ctx context.Context, term string) (*model.ListingSet, error) {
	for _, p := range s.providers {
		if p != nil && p.Available() {
			return p.Search(ctx, term)
		}
	}
	return nil, ErrNoResults
}

func (s *Searcher) searchProvider(ctx context.Context, p Provider, terms []string) (*model.ListingSet, error) {
	for _, term := range terms {
		if cached, ok := s.lookup(ctx, p.Name(), term); ok {
			return cached, nil
		}

		set, err := p.Search(ctx, term)
		if err != nil {
			return nil, fmt.Errorf("%s search %q: %w", p.Name(), term, err)
		}
		if set == nil || len(set.Listings) == 0 {
			s.logger.Debug().Str("provider", p.Name()).Str("term", term).Msg("no listings")
			continue
		}

		s.logger.Info().Str("provider", p.Name()).Str("term", term).Int("sold", len(set.Listings)).
			Int("active", set.ActiveCount).Msg("found listings")
		s.save(ctx, p.Name(), term, set)
		return set, nil
	}
	return nil, nil
}

func (s *Searcher) lookup(ctx context.Context, provider, term string) (*model.ListingSet, bool) {
	if s.store == nil || s.ttl <= 0 {
		return nil, false
	}

	var set model.ListingSet
	err := s.store.Get(ctx, cacheKey(provider, term), &set)
	switch {
	case err == nil:
		s.metrics.RecordCacheLookup(true)
		return &set, true
	case errors.Is(err, cache.ErrCacheMiss):
		s.metrics.RecordCacheLookup(false)
	default:
		s.logger.Warn().Err(err).Msg("search cache read failed")
	}
	return nil, false
}

func (s *Searcher) save(ctx context.Context, provider, term string, set *model.ListingSet) {
	if s.store == nil || s.ttl <= 0 {
		return
	}
	if err := s.store.Set(ctx, cacheKey(provider, term), set, s.ttl); err != nil {
		s.logger.Warn().Err(err).Msg("search cache write failed")
	}
}

func cacheKey(provider, term string) string {
	return "search:" + provider + ":" + strings.ToLower(strings.Join(strings.Fields(term), " "))
}
