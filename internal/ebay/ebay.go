package ebay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/guarzo/thriftflip/internal/model"
)

// ErrNotConfigured is returned when the client has no credentials.
var ErrNotConfigured = errors.New("ebay: credentials not configured")

const (
	productionFindingURL = "https://svcs.ebay.com/services/search/FindingService/v1"
	sandboxFindingURL    = "https://svcs.sandbox.ebay.com/services/search/FindingService/v1"
	productionBrowseURL  = "https://api.ebay.com/buy/browse/v1/item_summary/search"
	sandboxBrowseURL     = "https://api.sandbox.ebay.com/buy/browse/v1/item_summary/search"

	findingVersion = "1.13.0"
	marketplaceID  = "EBAY_US"
	providerName   = "ebay"
)

// Config configures a Client.
type Config struct {
	AppID          string
	OAuth          OAuthConfig
	Sandbox        bool
	MaxPrice       float64       // sold prices at or above this are dropped
	EntriesPerPage int           // sold listings requested per search
	MinInterval    time.Duration // minimum spacing between API calls
	Timeout        time.Duration

	FindingURL string // endpoint overrides, mostly for tests
	BrowseURL  string
}

// Client talks to the eBay Finding and Browse APIs.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	tokens     *TokenCache
	logger     zerolog.Logger
	now        func() time.Time
}

// NewClient creates an eBay client. The Browse API is only used when OAuth
// credentials are present; otherwise active listings are counted through the
// Finding API.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.MaxPrice <= 0 {
		cfg.MaxPrice = 1000
	}
	if cfg.EntriesPerPage <= 0 {
		cfg.EntriesPerPage = 50
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.OAuth.Sandbox = cfg.OAuth.Sandbox || cfg.Sandbox

	httpClient := &http.Client{Timeout: cfg.Timeout}
	c := &Client{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		logger:     logger.With().Str("component", providerName).Logger(),
		now:        time.Now,
	}

	oauth := NewOAuthClient(cfg.OAuth, httpClient)
	if oauth.Configured() {
		c.tokens = NewTokenCache(oauth)
	}
	return c
}

// Name identifies the provider.
func (c *Client) Name() string {
	return providerName
}

// Available reports whether the Finding API can be called.
func (c *Client) Available() bool {
	return c.cfg.AppID != ""
}

// Tokens returns the application token cache, nil without OAuth credentials.
func (c *Client) Tokens() *TokenCache {
	return c.tokens
}

// Search returns recently sold listings for term together with the number
// of active listings. A failed active count is logged and reported as 0.
func (c *Client) Search(ctx context.Context, term string) (*model.ListingSet, error) {
	sold, err := c.SearchSold(ctx, term)
	if err != nil {
		return nil, err
	}

	set := &model.ListingSet{Term: term, Provider: providerName, Listings: sold}
	if len(sold) == 0 {
		return set, nil
	}

	active, err := c.ActiveCount(ctx, term)
	if err != nil {
		c.logger.Warn().Err(err).Str("term", term).Msg("active listing count failed")
	} else {
		set.ActiveCount = active
	}
	return set, nil
}

// SearchSold queries findCompletedItems for sold fixed-price listings.
func (c *Client) SearchSold(ctx context.Context, term string) ([]model.Listing, error) {
	if !c.Available() {
		return nil, ErrNotConfigured
	}

	params := c.findingParams("findCompletedItems", term)
	params.Set("itemFilter(0).name", "SoldItemsOnly")
	params.Set("itemFilter(0).value", "true")
	params.Set("itemFilter(1).name", "ListingType")
	params.Set("itemFilter(1).value(0)", "AuctionWithBIN")
	params.Set("itemFilter(1).value(1)", "FixedPrice")
	params.Set("itemFilter(2).name", "MinPrice")
	params.Set("itemFilter(2).value", "1")
	params.Set("itemFilter(2).paramName", "Currency")
	params.Set("itemFilter(2).paramValue", "USD")
	params.Set("sortOrder", "EndTimeSoonest")
	params.Set("paginationInput.entriesPerPage", strconv.Itoa(c.cfg.EntriesPerPage))

	var resp completedResponse
	if err := c.getFinding(ctx, "findCompletedItems", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.FindCompletedItemsResponse) == 0 {
		return nil, nil
	}

	result := resp.FindCompletedItemsResponse[0]
	if err := result.err(); err != nil {
		return nil, err
	}

	now := c.now()
	var listings []model.Listing
	for _, item := range result.items() {
		listing, ok := c.parseItem(item, now)
		if !ok {
			continue
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

// ActiveCount returns how many listings are currently live for term, capped
// at EntriesPerPage so it is on the same scale as the sold sample.
func (c *Client) ActiveCount(ctx context.Context, term string) (int, error) {
	var (
		total int
		err   error
	)
	if c.tokens != nil {
		total, err = c.browseTotal(ctx, term)
	} else {
		total, err = c.findingActiveCount(ctx, term)
	}
	if err != nil {
		return 0, err
	}
	return min(total, c.cfg.EntriesPerPage), nil
}

// Raw runs a small sold search and returns the request URL with the app id
// redacted along with the undecoded response body.
func (c *Client) Raw(ctx context.Context, term string) (string, json.RawMessage, error) {
	if !c.Available() {
		return "", nil, ErrNotConfigured
	}

	params := c.findingParams("findCompletedItems", term)
	params.Set("itemFilter(0).name", "SoldItemsOnly")
	params.Set("itemFilter(0).value", "true")
	params.Set("paginationInput.entriesPerPage", "10")

	body, err := c.doFinding(ctx, "findCompletedItems", params)
	if err != nil {
		return "", nil, err
	}

	params.Set("SECURITY-APPNAME", "REDACTED")
	return c.findingURL() + "?" + params.Encode(), json.RawMessage(body), nil
}

func (c *Client) findingActiveCount(ctx context.Context, term string) (int, error) {
	if !c.Available() {
		return 0, ErrNotConfigured
	}

	params := c.findingParams("findItemsByKeywords", term)
	params.Set("itemFilter(0).name", "ListingType")
	params.Set("itemFilter(0).value(0)", "AuctionWithBIN")
	params.Set("itemFilter(0).value(1)", "FixedPrice")
	params.Set("itemFilter(1).name", "MinPrice")
	params.Set("itemFilter(1).value", "1")
	params.Set("paginationInput.entriesPerPage", strconv.Itoa(c.cfg.EntriesPerPage))

	var resp keywordsResponse
	if err := c.getFinding(ctx, "findItemsByKeywords", params, &resp); err != nil {
		return 0, err
	}
	if len(resp.FindItemsByKeywordsResponse) == 0 {
		return 0, nil
	}

	result := resp.FindItemsByKeywordsResponse[0]
	if err := result.err(); err != nil {
		return 0, err
	}
	if total := result.totalEntries(); total > 0 {
		return total, nil
	}
	return len(result.items()), nil
}

type browseResponse struct {
	Total int `json:"total"`
}

func (c *Client) browseTotal(ctx context.Context, term string) (int, error) {
	token, err := c.tokens.Get(ctx)
	if err != nil {
		return 0, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("q", term)
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.browseURL()+"?"+params.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-EBAY-C-MARKETPLACE-ID", marketplaceID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("browse request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("browse API returned status %d: %s", resp.StatusCode, string(body))
	}

	var br browseResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return 0, fmt.Errorf("parse browse response: %w", err)
	}
	return br.Total, nil
}

func (c *Client) findingParams(operation, term string) url.Values {
	params := url.Values{}
	params.Set("OPERATION-NAME", operation)
	params.Set("SERVICE-VERSION", findingVersion)
	params.Set("SECURITY-APPNAME", c.cfg.AppID)
	params.Set("RESPONSE-DATA-FORMAT", "JSON")
	params.Set("keywords", term)
	return params
}

func (c *Client) getFinding(ctx context.Context, operation string, params url.Values, out interface{}) error {
	body, err := c.doFinding(ctx, operation, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse eBay response: %w", err)
	}
	return nil
}

func (c *Client) doFinding(ctx context.Context, operation string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.findingURL()+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("X-EBAY-SOA-SERVICE-NAME", "FindingService")
	req.Header.Set("X-EBAY-SOA-OPERATION-NAME", operation)
	req.Header.Set("X-EBAY-SOA-SERVICE-VERSION", findingVersion)
	req.Header.Set("X-EBAY-SOA-SECURITY-APPNAME", c.cfg.AppID)
	req.Header.Set("X-EBAY-SOA-RESPONSE-DATA-FORMAT", "JSON")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eBay API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp struct {
			ErrorMessage []findingErrorMessage `json:"errorMessage"`
		}
		if err := json.Unmarshal(body, &errorResp); err == nil {
			if msg := firstErrorMessage(errorResp.ErrorMessage); msg != "" {
				return nil, classifyFindingError(msg)
			}
		}
		return nil, fmt.Errorf("eBay API returned status %d", resp.StatusCode)
	}
	return body, nil
}

func (c *Client) findingURL() string {
	switch {
	case c.cfg.FindingURL != "":
		return c.cfg.FindingURL
	case c.cfg.Sandbox:
		return sandboxFindingURL
	default:
		return productionFindingURL
	}
}

func (c *Client) browseURL() string {
	switch {
	case c.cfg.BrowseURL != "":
		return c.cfg.BrowseURL
	case c.cfg.Sandbox:
		return sandboxBrowseURL
	default:
		return productionBrowseURL
	}
}

// parseItem converts one Finding API item. Items without a usable price
// or priced at or above the configured cap are rejected.
func (c *Client) parseItem(item findingItem, now time.Time) (model.Listing, bool) {
	listing := model.Listing{Condition: "Unknown"}

	if len(item.Title) > 0 {
		listing.Title = item.Title[0]
	}
	if len(item.Condition) > 0 && len(item.Condition[0].ConditionDisplayName) > 0 {
		listing.Condition = item.Condition[0].ConditionDisplayName[0]
	}

	if len(item.SellingStatus) == 0 || len(item.SellingStatus[0].CurrentPrice) == 0 ||
		len(item.SellingStatus[0].CurrentPrice[0].Value) == 0 {
		return listing, false
	}
	price, err := parsePrice(item.SellingStatus[0].CurrentPrice[0].Value[0])
	if err != nil || price <= 0 || price >= c.cfg.MaxPrice {
		return listing, false
	}
	listing.Price = price

	if len(item.ListingInfo) > 0 {
		info := item.ListingInfo[0]
		var start time.Time
		if len(info.EndTime) > 0 {
			if t, err := time.Parse(time.RFC3339, info.EndTime[0]); err == nil {
				listing.EndTime = t
			}
		}
		if len(info.StartTime) > 0 {
			if t, err := time.Parse(time.RFC3339, info.StartTime[0]); err == nil {
				start = t
			}
		}
		if !start.IsZero() && listing.EndTime.After(start) {
			listing.ListingDays = math.Ceil(listing.EndTime.Sub(start).Hours() / 24)
		}
	}
	listing.Recency = model.RecencyFor(listing.EndTime, now)

	return listing, true
}

// parsePrice reads a decimal price string and rounds it to cents.
func parsePrice(value string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", value, err)
	}
	return d.Round(2).InexactFloat64(), nil
}

func classifyFindingError(msg string) error {
	if strings.Contains(msg, "exceeded the number of times") {
		return fmt.Errorf("eBay API rate limit exceeded: %s", msg)
	}
	return fmt.Errorf("eBay API error: %s", msg)
}
