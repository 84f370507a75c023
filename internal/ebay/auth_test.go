package ebay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type fakeSource struct {
	mu    sync.Mutex
	calls int
	ttl   time.Duration
	now   func() time.Time
	err   error
}

func (f *fakeSource) ClientCredentials(ctx context.Context) (*OAuthToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.calls++
	return &OAuthToken{
		AccessToken: fmt.Sprintf("token-%d", f.calls),
		ExpiresAt:   f.now().Add(f.ttl),
	}, nil
}

func TestTokenCache_ReusesUntilMargin(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	src := &fakeSource{ttl: 2 * time.Hour, now: clock}
	cache := NewTokenCache(src).WithClock(clock)

	ctx := context.Background()
	first, err := cache.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	now = now.Add(time.Hour)
	if again, _ := cache.Get(ctx); again != first {
		t.Errorf("token should be reused, got %s then %s", first, again)
	}

	// 30s before expiry is inside the 60s margin.
	now = now.Add(time.Hour - 30*time.Second)
	refreshed, err := cache.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if refreshed == first {
		t.Error("token inside refresh margin should be replaced")
	}
	if src.calls != 2 {
		t.Errorf("expected 2 grants, got %d", src.calls)
	}
}

func TestTokenCache_ConcurrentGetSingleGrant(t *testing.T) {
	src := &fakeSource{ttl: time.Hour, now: time.Now}
	cache := NewTokenCache(src)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Get(context.Background()); err != nil {
				t.Errorf("Get() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if src.calls != 1 {
		t.Errorf("expected a single grant, got %d", src.calls)
	}
}

func TestTokenCache_RefreshAndErrors(t *testing.T) {
	src := &fakeSource{ttl: time.Hour, now: time.Now}
	cache := NewTokenCache(src)

	if !cache.ExpiresAt().IsZero() {
		t.Error("empty cache should report zero expiry")
	}
	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if cache.ExpiresAt().IsZero() {
		t.Error("expiry should be set after refresh")
	}

	src.err = errors.New("boom")
	if err := cache.Refresh(context.Background()); err == nil {
		t.Error("expected refresh error")
	}
}

func TestOAuthClient_ClientCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "id" || pass != "secret" {
			t.Errorf("unexpected basic auth %q/%q", user, pass)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.Form.Get("scope") != DefaultScope {
			t.Errorf("scope = %q", r.Form.Get("scope"))
		}
		fmt.Fprint(w, `{"access_token":"abc","expires_in":7200,"token_type":"Application Access Token"}`)
	}))
	defer srv.Close()

	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	client := NewOAuthClient(OAuthConfig{ClientID: "id", ClientSecret: "secret", TokenURL: srv.URL}, nil)
	client.now = func() time.Time { return fixed }

	token, err := client.ClientCredentials(context.Background())
	if err != nil {
		t.Fatalf("ClientCredentials() error = %v", err)
	}
	if token.AccessToken != "abc" {
		t.Errorf("AccessToken = %q", token.AccessToken)
	}
	if want := fixed.Add(2 * time.Hour); !token.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", token.ExpiresAt, want)
	}
}

func TestOAuthClient_Errors(t *testing.T) {
	if _, err := NewOAuthClient(OAuthConfig{}, nil).ClientCredentials(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewOAuthClient(OAuthConfig{ClientID: "id", ClientSecret: "bad", TokenURL: srv.URL}, nil)
	if _, err := client.ClientCredentials(context.Background()); err == nil {
		t.Error("expected error for 401 response")
	}
}
