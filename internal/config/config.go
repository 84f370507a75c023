// Package config loads service configuration from an optional YAML file,
// a .env file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"oneof=development production test"`

	Server struct {
		Port            int           `yaml:"port" default:"3001" validate:"min=1,max=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"90s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		MaxUploadMB     int           `yaml:"max_upload_mb" default:"10" validate:"min=1,max=50"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`

	Vision struct {
		APIKey   string        `yaml:"api_key"`
		Endpoint string        `yaml:"endpoint"`
		Timeout  time.Duration `yaml:"timeout" default:"30s"`
	} `yaml:"vision"`

	Ebay struct {
		AppID          string        `yaml:"app_id"`
		ClientID       string        `yaml:"client_id"`
		ClientSecret   string        `yaml:"client_secret"`
		Sandbox        bool          `yaml:"sandbox"`
		MaxPrice       float64       `yaml:"max_price" default:"1000" validate:"gt=0"`
		EntriesPerPage int           `yaml:"entries_per_page" default:"50" validate:"min=1,max=100"`
		MinInterval    time.Duration `yaml:"min_interval" default:"1s"`
		Timeout        time.Duration `yaml:"timeout" default:"15s"`
	} `yaml:"ebay"`

	Scraper struct {
		Enabled     bool          `yaml:"enabled"`
		BaseURL     string        `yaml:"base_url"`
		MaxResults  int           `yaml:"max_results" default:"50" validate:"min=1,max=200"`
		MinInterval time.Duration `yaml:"min_interval" default:"2s"`
		Timeout     time.Duration `yaml:"timeout" default:"20s"`
	} `yaml:"scraper"`

	Marketplace struct {
		Mock          bool          `yaml:"mock"`
		SearchTimeout time.Duration `yaml:"search_timeout" default:"30s"`
	} `yaml:"marketplace"`

	Cache struct {
		Backend    string        `yaml:"backend" default:"memory" validate:"oneof=memory redis none"`
		TTL        time.Duration `yaml:"ttl" default:"10m"`
		MaxEntries int           `yaml:"max_entries" default:"1000" validate:"min=1"`
		Redis      struct {
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db" validate:"min=0"`
			Prefix   string `yaml:"prefix" default:"thriftflip"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics" validate:"startswith=/"`
	} `yaml:"metrics"`

	Scheduler struct {
		Enabled      bool   `yaml:"enabled" default:"true"`
		TokenRefresh string `yaml:"token_refresh" default:"@every 30m"`
		CacheSweep   string `yaml:"cache_sweep" default:"@every 5m"`
	} `yaml:"scheduler"`
}

var validate = validator.New()

// Load builds the configuration. A missing .env file is fine; a path that
// was given but cannot be read is not.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		}
		return errors.New(strings.Join(msgs, "; "))
	}
	return err
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("GOOGLE_VISION_API_KEY"); v != "" {
		c.Vision.APIKey = v
	}
	if v := os.Getenv("EBAY_APP_ID"); v != "" {
		c.Ebay.AppID = v
	}
	if v := os.Getenv("EBAY_CLIENT_ID"); v != "" {
		c.Ebay.ClientID = v
	}
	if v := os.Getenv("EBAY_CLIENT_SECRET"); v != "" {
		c.Ebay.ClientSecret = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = strings.ToLower(v)
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"EBAY_SANDBOX", &c.Ebay.Sandbox},
		{"SCRAPER_ENABLED", &c.Scraper.Enabled},
		{"MOCK_MARKETPLACE", &c.Marketplace.Mock},
	}
	for _, b := range bools {
		v := os.Getenv(b.name)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", b.name, v, err)
		}
		*b.dst = parsed
	}
	return nil
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// MaxUploadBytes is the largest accepted image upload.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}
