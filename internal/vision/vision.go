// Package vision calls the Google Cloud Vision annotate endpoint and turns
// its response into a detection bag.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/guarzo/thriftflip/internal/model"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("vision: API key not configured")

const (
	defaultEndpoint = "https://vision.googleapis.com/v1/images:annotate"
	maxResults      = 10
)

// Features requested for every image.
var Features = []string{"OBJECT_LOCALIZATION", "LABEL_DETECTION", "TEXT_DETECTION", "LOGO_DETECTION"}

// Annotator produces detections for an image.
type Annotator interface {
	Annotate(ctx context.Context, image []byte) (model.DetectionBag, error)
}

// Config configures a Client.
type Config struct {
	APIKey   string
	Endpoint string
	Timeout  time.Duration
}

// Client is a Vision API client.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     zerolog.Logger
}

var _ Annotator = (*Client)(nil)

// NewClient creates a Vision client.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With().Str("component", "vision").Logger(),
	}
}

// Available reports whether an API key is configured.
func (c *Client) Available() bool {
	return c.cfg.APIKey != ""
}

type feature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults"`
}

type annotateRequest struct {
	Requests []imageRequest `json:"requests"`
}

type imageRequest struct {
	Image struct {
		Content string `json:"content"`
	} `json:"image"`
	Features []feature `json:"features"`
}

type entity struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type imageResponse struct {
	Objects            []entity  `json:"localizedObjectAnnotations"`
	Labels             []entity  `json:"labelAnnotations"`
	Text               []entity  `json:"textAnnotations"`
	Logos              []entity  `json:"logoAnnotations"`
	FullTextAnnotation *struct {
		Text string `json:"text"`
	} `json:"fullTextAnnotation"`
	Error *apiError `json:"error"`
}

type annotateResponse struct {
	Responses []imageResponse `json:"responses"`
	Error     *apiError       `json:"error"`
}

// Annotate sends image to the Vision API. Any API error object or non-200
// status is returned as an error; the caller decides how to degrade.
func (c *Client) Annotate(ctx context.Context, image []byte) (model.DetectionBag, error) {
	if !c.Available() {
		return model.DetectionBag{}, ErrNotConfigured
	}

	payload, err := json.Marshal(buildRequest(image))
	if err != nil {
		return model.DetectionBag{}, fmt.Errorf("encoding request: %w", err)
	}

	endpoint := c.cfg.Endpoint + "?key=" + url.QueryEscape(c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return model.DetectionBag{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.DetectionBag{}, fmt.Errorf("vision request: %w", redact(err, c.cfg.APIKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.DetectionBag{}, fmt.Errorf("reading response: %w", err)
	}

	var decoded annotateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		if resp.StatusCode != http.StatusOK {
			return model.DetectionBag{}, fmt.Errorf("vision API status %d", resp.StatusCode)
		}
		return model.DetectionBag{}, fmt.Errorf("parsing response: %w", err)
	}
	if decoded.Error != nil {
		return model.DetectionBag{}, fmt.Errorf("vision API error %d: %s", decoded.Error.Code, decoded.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return model.DetectionBag{}, fmt.Errorf("vision API status %d", resp.StatusCode)
	}
	if len(decoded.Responses) == 0 {
		return model.DetectionBag{}, nil
	}

	first := decoded.Responses[0]
	if first.Error != nil {
		return model.DetectionBag{}, fmt.Errorf("vision API error %d: %s", first.Error.Code, first.Error.Message)
	}

	bag := toBag(first)
	c.logger.Debug().
		Int("objects", len(bag.Objects)).
		Int("labels", len(bag.Labels)).
		Strs("logos", bag.LogoNames()).
		Msg("image annotated")
	return bag, nil
}

func buildRequest(image []byte) annotateRequest {
	var r imageRequest
	r.Image.Content = base64.StdEncoding.EncodeToString(image)
	for _, f := range Features {
		r.Features = append(r.Features, feature{Type: f, MaxResults: maxResults})
	}
	return annotateRequest{Requests: []imageRequest{r}}
}

func toBag(r imageResponse) model.DetectionBag {
	bag := model.DetectionBag{
		Objects: make([]model.Detection, 0, len(r.Objects)),
		Labels:  make([]model.Detection, 0, len(r.Labels)),
		Logos:   make([]model.Detection, 0, len(r.Logos)),
	}
	for _, o := range r.Objects {
		bag.Objects = append(bag.Objects, model.Detection{Kind: model.KindObject, Description: o.Name, Score: o.Score})
	}
	for _, l := range r.Labels {
		bag.Labels = append(bag.Labels, model.Detection{Kind: model.KindLabel, Description: l.Description, Score: l.Score})
	}
	for _, l := range r.Logos {
		bag.Logos = append(bag.Logos, model.Detection{Kind: model.KindLogo, Description: l.Description, Score: l.Score})
	}

	if r.FullTextAnnotation != nil && strings.TrimSpace(r.FullTextAnnotation.Text) != "" {
		bag.Text = strings.TrimSpace(r.FullTextAnnotation.Text)
		return bag
	}
	parts := make([]string, 0, len(r.Text))
	for _, t := range r.Text {
		parts = append(parts, t.Description)
	}
	bag.Text = strings.TrimSpace(strings.Join(parts, " "))
	return bag
}

// redact strips the API key from transport errors, which echo the URL.
// Context errors stay matchable with errors.Is.
func redact(err error, key string) error {
	msg := strings.ReplaceAll(err.Error(), url.QueryEscape(key), "REDACTED")
	switch {
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", msg, context.Canceled)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", msg, context.DeadlineExceeded)
	}
	return errors.New(msg)
}
