// Package scrape reads sold listings from the public eBay search results
// page. It is the fallback marketplace provider when no API credentials are
// configured.
package scrape

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/guarzo/thriftflip/internal/marketplace"
	"github.com/guarzo/thriftflip/internal/model"
)

var _ marketplace.Provider = (*Scraper)(nil)

const (
	providerName   = "ebay-scrape"
	defaultBaseURL = "https://www.ebay.com/sch/i.html"
	soldDateLayout = "Jan 2, 2006"
)

// Config configures a Scraper.
type Config struct {
	Enabled     bool
	BaseURL     string
	UserAgent   string
	MaxPrice    float64
	MaxResults  int
	MinInterval time.Duration
	Timeout     time.Duration
}

// Scraper implements marketplace.Provider over the sold search page.
type Scraper struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
	now     func() time.Time
}

// New creates a Scraper.
func New(cfg Config, logger zerolog.Logger) *Scraper {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	if cfg.MaxPrice <= 0 {
		cfg.MaxPrice = 1000
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 50
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 2 * time.Second
	}

	// Page fetches: a burst of two, then one every MinInterval.
	return &Scraper{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(cfg.MinInterval), 2),
		logger:  logger.With().Str("component", providerName).Logger(),
		now:     time.Now,
	}
}

// Name identifies the provider.
func (s *Scraper) Name() string {
	return providerName
}

// Available reports whether scraping is switched on.
func (s *Scraper) Available() bool {
	return s.cfg.Enabled
}

// Search fetches and parses sold listings for term. The page carries no
// active listing count, so ActiveCount is always 0.
func (s *Scraper) Search(ctx context.Context, term string) (*model.ListingSet, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := s.fetch(ctx, s.searchURL(term))
	if err != nil {
		return nil, err
	}
	defer body.Close()

	listings, err := s.parse(body)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Str("term", term).Int("listings", len(listings)).Msg("scraped sold listings")
	return &model.ListingSet{Term: term, Provider: providerName, Listings: listings}, nil
}

func (s *Scraper) searchURL(term string) string {
	params := url.Values{}
	params.Set("_nkw", term)
	params.Set("LH_Sold", "1")
	params.Set("LH_Complete", "1")
	params.Set("_sop", "13") // ended recently first
	params.Set("_ipg", fmt.Sprintf("%d", s.cfg.MaxResults))
	return s.cfg.BaseURL + "?" + params.Encode()
}

func (s *Scraper) fetch(ctx context.Context, target string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	s.setBrowserHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	reader, err := decodeBody(resp)
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	return reader, nil
}

func (s *Scraper) setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, br")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r readCloser) Close() error { return r.close() }

// decodeBody unwraps gzip and brotli bodies. Anything else is read as is.
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		return readCloser{Reader: gz, close: func() error {
			gz.Close()
			return resp.Body.Close()
		}}, nil
	case "br":
		return readCloser{Reader: brotli.NewReader(resp.Body), close: resp.Body.Close}, nil
	default:
		return resp.Body, nil
	}
}

var soldDatePattern = regexp.MustCompile(`(?i)sold\s+([A-Z][a-z]{2}\s+\d{1,2},\s+\d{4})`)

func (s *Scraper) parse(r io.Reader) ([]model.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	now := s.now()
	var listings []model.Listing
	doc.Find("li.s-item").Each(func(i int, item *goquery.Selection) {
		if len(listings) >= s.cfg.MaxResults {
			return
		}

		title := strings.TrimSpace(item.Find(".s-item__title").First().Text())
		// The first tile is a hidden template titled "Shop on eBay".
		if title == "" || strings.EqualFold(title, "Shop on eBay") {
			return
		}

		price, ok := parsePrice(item.Find(".s-item__price").First().Text())
		if !ok || price >= s.cfg.MaxPrice {
			return
		}

		listing := model.Listing{
			Title:     title,
			Price:     price,
			Recency:   model.RecencyUnknown,
			Condition: strings.TrimSpace(item.Find(".SECONDARY_INFO").First().Text()),
		}
		if listing.Condition == "" {
			listing.Condition = "Unknown"
		}
		if ended, ok := parseSoldDate(item.Text()); ok {
			listing.EndTime = ended
			listing.Recency = model.RecencyFor(ended, now)
		}
		listings = append(listings, listing)
	})

	return listings, nil
}

var pricePattern = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// parsePrice reads the first amount of a price cell such as "$25.00" or
// "$20.00 to $30.00", rounded to cents. Non-positive amounts are rejected.
func parsePrice(text string) (float64, bool) {
	raw := pricePattern.FindString(text)
	if raw == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil || !d.IsPositive() {
		return 0, false
	}
	f, _ := d.Round(2).Float64()
	return f, true
}

func parseSoldDate(text string) (time.Time, bool) {
	m := soldDatePattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	fields := strings.Fields(m[1])
	t, err := time.Parse(soldDateLayout, strings.Join(fields, " "))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
