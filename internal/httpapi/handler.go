package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/guarzo/thriftflip/internal/estimate"
	"github.com/guarzo/thriftflip/internal/marketplace"
	"github.com/guarzo/thriftflip/internal/model"
)

// Estimator is the pipeline behind the API.
type Estimator interface {
	Analyze(ctx context.Context, image []byte, mime string) (*model.Analysis, error)
	EstimateFromDetections(ctx context.Context, bag model.DetectionBag) *model.Analysis
	MarketFor(ctx context.Context, category, brand string) model.MarketEstimate
}

// TermSearcher answers a single search term without expansion.
type TermSearcher interface {
	SearchTerm(ctx context.Context, term string) (*model.ListingSet, error)
}

// RawSearcher returns an upstream marketplace response untouched.
type RawSearcher interface {
	Raw(ctx context.Context, term string) (string, json.RawMessage, error)
}

// Integrations reports which collaborators are configured.
type Integrations struct {
	Vision      bool
	Marketplace bool
	Providers   []string
	Cache       string
}

// Handler serves the API routes.
type Handler struct {
	svc          Estimator
	terms        TermSearcher
	raw          RawSearcher
	integrations Integrations
	maxUpload    int64
	now          func() time.Time
	logger       zerolog.Logger
}

// NewHandler creates a Handler. terms and raw may be nil, which disables the
// matching debug modes.
func NewHandler(svc Estimator, terms TermSearcher, raw RawSearcher, integrations Integrations, maxUpload int64, logger zerolog.Logger) *Handler {
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &Handler{
		svc:          svc,
		terms:        terms,
		raw:          raw,
		integrations: integrations,
		maxUpload:    maxUpload,
		now:          time.Now,
		logger:       logger,
	}
}

// RegisterRoutes installs the API on e.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Banner)

	api := e.Group("/api")
	api.GET("/health", h.Health)
	// Allow 1MB of multipart overhead on top of the image itself.
	api.POST("/analyze-image", h.AnalyzeImage, middleware.BodyLimit(bodyLimit(h.maxUpload+(1<<20))))
	api.POST("/estimate", h.Estimate)
	api.GET("/market", h.Market)
	api.GET("/debug-ebay/:searchTerm", h.DebugSearch)
}

// Banner describes the service.
func (h *Handler) Banner(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Thrift Flip Analyzer Backend Server",
		"endpoints": map[string]string{
			"health":   "/api/health",
			"analyze":  "/api/analyze-image (POST)",
			"estimate": "/api/estimate (POST)",
			"market":   "/api/market?category=&brand=",
			"debug":    "/api/debug-ebay/:searchTerm",
		},
		"integrations": map[string]interface{}{
			"googleVision": status(h.integrations.Vision),
			"marketplace":  status(h.integrations.Marketplace),
			"providers":    h.integrations.Providers,
			"cache":        h.integrations.Cache,
		},
	})
}

// Health reports liveness.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":          "Server is running!",
		"timestamp":       h.now().UTC().Format(time.RFC3339),
		"ebayIntegration": status(h.integrations.Marketplace),
	})
}

// AnalyzeImage accepts a multipart upload in the "image" field.
func (h *Handler) AnalyzeImage(c echo.Context) error {
	fh, err := c.FormFile("image")
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge {
			return he
		}
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No image file provided"})
	}
	if fh.Size > h.maxUpload {
		return c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "Image exceeds upload limit"})
	}

	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	image, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
	if err != nil {
		return err
	}

	mime := fh.Header.Get(echo.HeaderContentType)
	if mime == "" || mime == echo.MIMEOctetStream {
		mime = http.DetectContentType(image)
	}

	analysis, err := h.svc.Analyze(c.Request().Context(), image, mime)
	if errors.Is(err, estimate.ErrNoImage) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No image file provided"})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, analysis)
}

// DetectionInput is one caller supplied detection. A missing score counts
// as fully confident.
type DetectionInput struct {
	Description string   `json:"description" validate:"required,max=200"`
	Score       *float64 `json:"score" default:"1" validate:"required,gte=0,lte=1"`
}

// EstimateRequest carries pre-computed detections.
type EstimateRequest struct {
	Objects []DetectionInput `json:"objects" validate:"max=50,dive"`
	Labels  []DetectionInput `json:"labels" validate:"max=50,dive"`
	Logos   []DetectionInput `json:"logos" validate:"max=50,dive"`
	Text    string           `json:"text" validate:"max=10000"`
}

// Bag converts the request to a detection bag.
func (r EstimateRequest) Bag() model.DetectionBag {
	convert := func(in []DetectionInput, kind model.DetectionKind) []model.Detection {
		out := make([]model.Detection, 0, len(in))
		for _, d := range in {
			score := 1.0
			if d.Score != nil {
				score = *d.Score
			}
			out = append(out, model.Detection{Kind: kind, Description: d.Description, Score: score})
		}
		return out
	}
	return model.DetectionBag{
		Objects: convert(r.Objects, model.KindObject),
		Labels:  convert(r.Labels, model.KindLabel),
		Logos:   convert(r.Logos, model.KindLogo),
		Text:    r.Text,
	}
}

// Estimate runs the pipeline on caller supplied detections, skipping vision.
func (h *Handler) Estimate(c echo.Context) error {
	var req EstimateRequest
	if errs := bindAndValidate(c, &req); errs != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Details: errs})
	}
	return c.JSON(http.StatusOK, h.svc.EstimateFromDetections(c.Request().Context(), req.Bag()))
}

// MarketRequest selects a category for a market lookup.
type MarketRequest struct {
	Category string `query:"category" validate:"required,max=200"`
	Brand    string `query:"brand" validate:"max=100"`
}

// Market returns the estimate for a known category.
func (h *Handler) Market(c echo.Context) error {
	var req MarketRequest
	if errs := bindAndValidate(c, &req); errs != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Details: errs})
	}
	return c.JSON(http.StatusOK, h.svc.MarketFor(c.Request().Context(), req.Category, req.Brand))
}

// DebugRequest selects what the debug route returns: the raw Finding API
// answer or the parsed listing set of the first available provider.
type DebugRequest struct {
	SearchTerm string `param:"searchTerm" validate:"required,max=350"`
	Mode       string `query:"mode" default:"raw" validate:"oneof=raw listings"`
}

// DebugSearch runs one marketplace search term and returns what came back.
func (h *Handler) DebugSearch(c echo.Context) error {
	var req DebugRequest
	if errs := bindAndValidate(c, &req); errs != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Details: errs})
	}
	ctx := c.Request().Context()

	if req.Mode == "raw" && h.raw != nil {
		url, raw, err := h.raw.Raw(ctx, req.SearchTerm)
		if err == nil {
			return c.JSON(http.StatusOK, map[string]interface{}{
				"searchTerm": req.SearchTerm,
				"url":        url,
				"response":   raw,
			})
		}
		h.logger.Warn().Err(err).Str("term", req.SearchTerm).Msg("raw debug search failed")
		if h.terms == nil {
			return c.JSON(http.StatusBadGateway, ErrorResponse{Error: "Marketplace request failed"})
		}
	}

	if h.terms == nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "No marketplace provider configured"})
	}
	set, err := h.terms.SearchTerm(ctx, req.SearchTerm)
	switch {
	case errors.Is(err, marketplace.ErrNoResults):
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "No marketplace provider configured"})
	case err != nil:
		h.logger.Warn().Err(err).Str("term", req.SearchTerm).Msg("debug search failed")
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: "Marketplace request failed"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"searchTerm": req.SearchTerm,
		"response":   set,
	})
}

func status(active bool) string {
	if active {
		return "Active"
	}
	return "Not configured"
}

// bodyLimit renders n bytes in the size syntax BodyLimit expects.
func bodyLimit(n int64) string {
	return strconv.FormatInt((n+1023)>>10, 10) + "K"
}
