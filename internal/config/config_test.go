package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if c.Server.Port != 3001 || c.Addr() != ":3001" {
		t.Errorf("port = %d", c.Server.Port)
	}
	if c.MaxUploadBytes() != 10<<20 {
		t.Errorf("MaxUploadBytes = %d", c.MaxUploadBytes())
	}
	if c.Ebay.MaxPrice != 1000 || c.Ebay.EntriesPerPage != 50 || c.Ebay.Timeout != 15*time.Second {
		t.Errorf("ebay defaults = %+v", c.Ebay)
	}
	if c.Cache.Backend != "memory" || c.Cache.TTL != 10*time.Minute {
		t.Errorf("cache defaults = %+v", c.Cache)
	}
	if !c.Metrics.Enabled || c.Scheduler.TokenRefresh != "@every 30m" {
		t.Errorf("metrics/scheduler defaults = %+v %+v", c.Metrics, c.Scheduler)
	}
	if c.Scraper.Enabled {
		t.Error("scraper should be off by default")
	}
	if c.Marketplace.SearchTimeout != 30*time.Second {
		t.Errorf("search timeout = %v, want 30s", c.Marketplace.SearchTimeout)
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: production
server:
  port: 8080
log:
  format: console
ebay:
  app_id: yaml-app
  timeout: 5s
cache:
  backend: none
metrics:
  enabled: false
`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Environment != "production" || c.Server.Port != 8080 || c.Log.Format != "console" {
		t.Errorf("yaml values not applied: %+v", c)
	}
	if c.Ebay.AppID != "yaml-app" || c.Ebay.Timeout != 5*time.Second {
		t.Errorf("ebay = %+v", c.Ebay)
	}
	if c.Cache.Backend != "none" || c.Metrics.Enabled {
		t.Errorf("cache = %s metrics = %v", c.Cache.Backend, c.Metrics.Enabled)
	}
	if c.Ebay.EntriesPerPage != 50 {
		t.Error("unset fields should keep defaults")
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8080\nebay:\n  app_id: yaml-app\n")

	t.Setenv("PORT", "9090")
	t.Setenv("EBAY_APP_ID", "env-app")
	t.Setenv("EBAY_CLIENT_ID", "client")
	t.Setenv("EBAY_CLIENT_SECRET", "secret")
	t.Setenv("EBAY_SANDBOX", "true")
	t.Setenv("GOOGLE_VISION_API_KEY", "vision-key")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("SCRAPER_ENABLED", "1")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Server.Port != 9090 || c.Ebay.AppID != "env-app" || !c.Ebay.Sandbox {
		t.Errorf("env not applied: port=%d app=%s sandbox=%v", c.Server.Port, c.Ebay.AppID, c.Ebay.Sandbox)
	}
	if c.Ebay.ClientID != "client" || c.Ebay.ClientSecret != "secret" || c.Vision.APIKey != "vision-key" {
		t.Error("credentials not applied")
	}
	if c.Cache.Backend != "redis" || c.Cache.Redis.Addr != "redis:6379" {
		t.Errorf("cache = %+v", c.Cache)
	}
	if c.Log.Level != "debug" || !c.Scraper.Enabled {
		t.Errorf("log level = %s scraper = %v", c.Log.Level, c.Scraper.Enabled)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
		want string
	}{
		{name: "bad port env", env: map[string]string{"PORT": "abc"}, want: "invalid PORT"},
		{name: "bad bool env", env: map[string]string{"SCRAPER_ENABLED": "maybe"}, want: "invalid SCRAPER_ENABLED"},
		{name: "unknown backend", yaml: "cache:\n  backend: memcached\n", want: "Backend"},
		{name: "port out of range", yaml: "server:\n  port: 70000\n", want: "Port"},
		{name: "bad log level", env: map[string]string{"LOG_LEVEL": "verbose"}, want: "Level"},
		{name: "malformed yaml", yaml: "server: [", want: "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = writeConfig(t, tt.yaml)
			}

			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
