package ebay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	productionTokenURL = "https://api.ebay.com/identity/v1/oauth2/token"
	sandboxTokenURL    = "https://api.sandbox.ebay.com/identity/v1/oauth2/token"

	// DefaultScope is the public application scope needed by the Browse API.
	DefaultScope = "https://api.ebay.com/oauth/api_scope"

	// DefaultRefreshMargin renews a token this long before it expires.
	DefaultRefreshMargin = 60 * time.Second
)

// OAuthConfig holds eBay application credentials.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	Sandbox      bool
	TokenURL     string // overrides the production/sandbox endpoint
}

// OAuthToken is an application access token.
type OAuthToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int       `json:"expires_in"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"-"`
}

// TokenSource issues new application tokens.
type TokenSource interface {
	ClientCredentials(ctx context.Context) (*OAuthToken, error)
}

// OAuthClient performs the client-credentials grant.
type OAuthClient struct {
	config     OAuthConfig
	httpClient *http.Client
	now        func() time.Time
}

// NewOAuthClient creates an OAuth client for the given credentials.
func NewOAuthClient(config OAuthConfig, httpClient *http.Client) *OAuthClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &OAuthClient{config: config, httpClient: httpClient, now: time.Now}
}

// Configured reports whether both client id and secret are present.
func (c *OAuthClient) Configured() bool {
	return c.config.ClientID != "" && c.config.ClientSecret != ""
}

func (c *OAuthClient) tokenURL() string {
	if c.config.TokenURL != "" {
		return c.config.TokenURL
	}
	if c.config.Sandbox {
		return sandboxTokenURL
	}
	return productionTokenURL
}

// ClientCredentials requests a new application token.
func (c *OAuthClient) ClientCredentials(ctx context.Context) (*OAuthToken, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	scopes := c.config.Scopes
	if len(scopes) == 0 {
		scopes = []string{DefaultScope}
	}

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("scope", strings.Join(scopes, " "))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL(), strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	auth := base64.StdEncoding.EncodeToString([]byte(c.config.ClientID + ":" + c.config.ClientSecret))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token request failed (status %d): %s", resp.StatusCode, string(body))
	}

	var token OAuthToken
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("parsing token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}

	token.ExpiresAt = c.now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return &token, nil
}

// TokenCache holds one process-wide application token. Refreshes are
// serialised, so concurrent callers never trigger duplicate grants.
type TokenCache struct {
	source TokenSource
	margin time.Duration
	now    func() time.Time

	mu    sync.Mutex
	token *OAuthToken
}

// NewTokenCache creates a cache over source.
func NewTokenCache(source TokenSource) *TokenCache {
	return &TokenCache{
		source: source,
		margin: DefaultRefreshMargin,
		now:    time.Now,
	}
}

// WithClock replaces the cache's time source.
func (c *TokenCache) WithClock(now func() time.Time) *TokenCache {
	c.now = now
	return c
}

// WithMargin sets how early a token is renewed.
func (c *TokenCache) WithMargin(margin time.Duration) *TokenCache {
	c.margin = margin
	return c
}

// Get returns a valid access token, fetching a new one when none is held or
// the current one expires within the refresh margin.
func (c *TokenCache) Get(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid() {
		return c.token.AccessToken, nil
	}
	if err := c.refreshLocked(ctx); err != nil {
		return "", err
	}
	return c.token.AccessToken, nil
}

// Refresh unconditionally replaces the held token.
func (c *TokenCache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshLocked(ctx)
}

// ExpiresAt reports the current token's expiry, zero when none is held.
func (c *TokenCache) ExpiresAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil {
		return time.Time{}
	}
	return c.token.ExpiresAt
}

func (c *TokenCache) valid() bool {
	return c.token != nil && c.now().Add(c.margin).Before(c.token.ExpiresAt)
}

func (c *TokenCache) refreshLocked(ctx context.Context) error {
	token, err := c.source.ClientCredentials(ctx)
	if err != nil {
		return fmt.Errorf("refreshing token: %w", err)
	}
	c.token = token
	return nil
}
