package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/guarzo/thriftflip/internal/app"
	"github.com/guarzo/thriftflip/internal/cache"
	"github.com/guarzo/thriftflip/internal/classify"
	"github.com/guarzo/thriftflip/internal/config"
	"github.com/guarzo/thriftflip/internal/ebay"
	"github.com/guarzo/thriftflip/internal/estimate"
	"github.com/guarzo/thriftflip/internal/httpapi"
	"github.com/guarzo/thriftflip/internal/logger"
	"github.com/guarzo/thriftflip/internal/marketplace"
	"github.com/guarzo/thriftflip/internal/metrics"
	"github.com/guarzo/thriftflip/internal/pricing"
	"github.com/guarzo/thriftflip/internal/scheduler"
	"github.com/guarzo/thriftflip/internal/scrape"
	"github.com/guarzo/thriftflip/internal/vision"
)

// ProvideLogger creates the root logger.
func ProvideLogger(cfg *config.Config) (zerolog.Logger, error) {
	l, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("logger: %w", err)
	}
	return l.With().Str("env", cfg.Environment).Logger(), nil
}

// ProvideMetrics creates the Prometheus recorder, nil when metrics are off.
func ProvideMetrics(cfg *config.Config) *metrics.Recorder {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return metrics.New()
}

// ProvideCache creates the search result cache. The cleanup closes a Redis
// connection pool.
func ProvideCache(cfg *config.Config, l zerolog.Logger) (cache.Store, func(), error) {
	store, err := cache.New(cache.Config{
		Backend:    cfg.Cache.Backend,
		MaxEntries: cfg.Cache.MaxEntries,
		DefaultTTL: cfg.Cache.TTL,
		Redis: []cache.RedisOption{
			cache.WithRedisAddr(cfg.Cache.Redis.Addr),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("cache: %w", err)
	}

	cleanup := func() {}
	if rs, ok := store.(*cache.RedisStore); ok {
		cleanup = func() {
			if err := rs.Close(); err != nil {
				l.Warn().Err(err).Msg("closing redis")
			}
		}
	}
	l.Info().Str("backend", cfg.Cache.Backend).Dur("ttl", cfg.Cache.TTL).Msg("cache ready")
	return store, cleanup, nil
}

// ProvideEbayClient creates the eBay API client.
func ProvideEbayClient(cfg *config.Config, l zerolog.Logger) *ebay.Client {
	return ebay.NewClient(ebay.Config{
		AppID: cfg.Ebay.AppID,
		OAuth: ebay.OAuthConfig{
			ClientID:     cfg.Ebay.ClientID,
			ClientSecret: cfg.Ebay.ClientSecret,
		},
		Sandbox:        cfg.Ebay.Sandbox,
		MaxPrice:       cfg.Ebay.MaxPrice,
		EntriesPerPage: cfg.Ebay.EntriesPerPage,
		MinInterval:    cfg.Ebay.MinInterval,
		Timeout:        cfg.Ebay.Timeout,
	}, l)
}

// ProvideScraper creates the sold page scraper.
func ProvideScraper(cfg *config.Config, l zerolog.Logger) *scrape.Scraper {
	return scrape.New(scrape.Config{
		Enabled:     cfg.Scraper.Enabled,
		BaseURL:     cfg.Scraper.BaseURL,
		MaxPrice:    cfg.Ebay.MaxPrice,
		MaxResults:  cfg.Scraper.MaxResults,
		MinInterval: cfg.Scraper.MinInterval,
		Timeout:     cfg.Scraper.Timeout,
	}, l)
}

// ProvideSearcher orders the providers: the API first, the scraper second.
// The mock replaces both when enabled.
func ProvideSearcher(cfg *config.Config, client *ebay.Client, scraper *scrape.Scraper, store cache.Store, rec *metrics.Recorder, l zerolog.Logger) *marketplace.Searcher {
	providers := []marketplace.Provider{client, scraper}
	if cfg.Marketplace.Mock {
		l.Warn().Msg("using mock marketplace provider")
		providers = []marketplace.Provider{marketplace.NewMockProvider()}
	}

	s := marketplace.NewSearcher(providers,
		marketplace.WithCache(store, cfg.Cache.TTL),
		marketplace.WithMetrics(rec),
		marketplace.WithLogger(l.With().Str("component", "marketplace").Logger()),
	)
	if !s.Available() {
		l.Warn().Msg("no marketplace provider configured, estimates will use the knowledge base")
	}
	return s
}

// ProvideAnnotator creates the vision client, nil without an API key.
func ProvideAnnotator(cfg *config.Config, l zerolog.Logger) vision.Annotator {
	c := vision.NewClient(vision.Config{
		APIKey:   cfg.Vision.APIKey,
		Endpoint: cfg.Vision.Endpoint,
		Timeout:  cfg.Vision.Timeout,
	}, l)
	if !c.Available() {
		l.Warn().Msg("vision API key not set, images will not be annotated")
		return nil
	}
	return c
}

// ProvideService creates the estimation pipeline.
func ProvideService(cfg *config.Config, annotator vision.Annotator, searcher *marketplace.Searcher, rec *metrics.Recorder, l zerolog.Logger) *estimate.Service {
	return estimate.NewService(estimate.Config{
		VisionTimeout: cfg.Vision.Timeout,
		SearchTimeout: cfg.Marketplace.SearchTimeout,
	}, annotator, classify.New(), searcher, pricing.New(),
		estimate.WithMetrics(rec),
		estimate.WithLogger(l.With().Str("component", "estimate").Logger()),
	)
}

// ProvideHandler creates the API handler. The raw debug mode needs the
// Finding API, so it is only wired when the client has an app id.
func ProvideHandler(cfg *config.Config, svc *estimate.Service, searcher *marketplace.Searcher, client *ebay.Client, annotator vision.Annotator, l zerolog.Logger) *httpapi.Handler {
	var raw httpapi.RawSearcher
	if client.Available() {
		raw = client
	}

	return httpapi.NewHandler(svc, searcher, raw, httpapi.Integrations{
		Vision:      annotator != nil,
		Marketplace: searcher.Available(),
		Providers:   searcher.Providers(),
		Cache:       cfg.Cache.Backend,
	}, cfg.MaxUploadBytes(), l)
}

// ProvideServer creates the HTTP server.
func ProvideServer(cfg *config.Config, h *httpapi.Handler, rec *metrics.Recorder, l zerolog.Logger) *httpapi.Server {
	metricsPath := ""
	if rec != nil {
		metricsPath = cfg.Metrics.Path
	}
	return httpapi.NewServer(httpapi.ServerConfig{
		Addr:            cfg.Addr(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MetricsPath:     metricsPath,
	}, h, rec, l)
}

// ProvideScheduler registers the maintenance jobs that apply to the
// configured collaborators. It returns nil when scheduling is off.
func ProvideScheduler(cfg *config.Config, client *ebay.Client, store cache.Store, l zerolog.Logger) (*scheduler.Scheduler, error) {
	if !cfg.Scheduler.Enabled {
		return nil, nil
	}

	s := scheduler.New(l.With().Str("component", "scheduler").Logger())
	if tokens := client.Tokens(); tokens != nil {
		if err := s.Add(scheduler.TokenJob(cfg.Scheduler.TokenRefresh, tokens)); err != nil {
			return nil, err
		}
	}
	if sweeper, ok := store.(cache.Sweeper); ok {
		if err := s.Add(scheduler.SweepJob(cfg.Scheduler.CacheSweep, sweeper)); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ProvideApp assembles the application.
func ProvideApp(cfg *config.Config, server *httpapi.Server, sched *scheduler.Scheduler, l zerolog.Logger) *app.App {
	return app.New(server, sched, cfg.Server.ShutdownTimeout, l)
}
