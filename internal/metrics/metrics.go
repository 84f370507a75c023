// Package metrics exposes the service's Prometheus instruments.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder records service metrics. A nil *Recorder is a no-op, so
// components can be built without metrics in tests.
type Recorder struct {
	registry *prometheus.Registry

	analyses       *prometheus.CounterVec
	upstreamErrors *prometheus.CounterVec
	fallbacks      *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New creates a Recorder on its own registry, including the Go runtime and
// process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry creates a Recorder registering into reg.
func NewWithRegistry(reg *prometheus.Registry) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		analyses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thriftflip_analyses_total",
				Help: "Market estimates produced, by data source",
			},
			[]string{"source"},
		),
		upstreamErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thriftflip_upstream_errors_total",
				Help: "Failed calls to external collaborators",
			},
			[]string{"collaborator"},
		),
		fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thriftflip_fallbacks_total",
				Help: "Static knowledge base fallbacks, by reason",
			},
			[]string{"reason"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thriftflip_cache_lookups_total",
				Help: "Search cache lookups, by result",
			},
			[]string{"result"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "thriftflip_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"route", "method"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordAnalysis counts one produced estimate.
func (r *Recorder) RecordAnalysis(source string) {
	if r == nil {
		return
	}
	r.analyses.WithLabelValues(source).Inc()
}

// RecordUpstreamError counts a failed collaborator call.
func (r *Recorder) RecordUpstreamError(collaborator string) {
	if r == nil {
		return
	}
	r.upstreamErrors.WithLabelValues(collaborator).Inc()
}

// RecordFallback counts a static fallback.
func (r *Recorder) RecordFallback(reason string) {
	if r == nil {
		return
	}
	r.fallbacks.WithLabelValues(reason).Inc()
}

// RecordCacheLookup counts a cache hit or miss.
func (r *Recorder) RecordCacheLookup(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveDuration records how long op took since start.
func (r *Recorder) ObserveDuration(op string, start time.Time) {
	if r == nil {
		return
	}
	r.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// RecordHTTPRequest records one served request.
func (r *Recorder) RecordHTTPRequest(route, method, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, method, status).Inc()
	r.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}
