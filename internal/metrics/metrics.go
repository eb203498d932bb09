// Package metrics exposes Prometheus collectors for the analysis service,
// the worker and the HTTP API on a dedicated registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the service, worker and HTTP layer report to.
type Recorder interface {
	AnalysisCompleted(status string, d time.Duration, records int, silhouette *float64)
	CacheLookup(hit bool)
	WorkerMessage(outcome string)
	CircuitBreakerState(service string, state int)
	HTTPRequest(method, route string, status int, d time.Duration)
}

// Analysis run statuses.
const (
	StatusOK         = "ok"
	StatusInvalid    = "invalid"
	StatusStructural = "structural"
	StatusError      = "error"
)

type PrometheusMetrics struct {
	registry *prometheus.Registry

	analysisRuns        *prometheus.CounterVec
	analysisDuration    prometheus.Histogram
	recordsAnalyzed     prometheus.Histogram
	lastSilhouette      prometheus.Gauge
	cacheLookups        *prometheus.CounterVec
	workerMessages      *prometheus.CounterVec
	circuitBreakerState *prometheus.GaugeVec
	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
}

var _ Recorder = (*PrometheusMetrics)(nil)

// New registers every collector, plus the Go and process collectors, on a
// fresh registry.
func New() *PrometheusMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &PrometheusMetrics{
		registry: reg,
		analysisRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardtrend_analysis_runs_total",
				Help: "Total number of analysis runs by outcome",
			},
			[]string{"status"},
		),
		analysisDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cardtrend_analysis_duration_seconds",
				Help:    "Analysis duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
			},
		),
		recordsAnalyzed: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cardtrend_analysis_records",
				Help:    "Number of records fed into an analysis run",
				Buckets: prometheus.ExponentialBuckets(10, 4, 10),
			},
		),
		lastSilhouette: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "cardtrend_last_silhouette_score",
				Help: "Silhouette score of the most recent successful analysis",
			},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardtrend_result_cache_lookups_total",
				Help: "Result cache lookups by outcome",
			},
			[]string{"result"},
		),
		workerMessages: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardtrend_worker_messages_total",
				Help: "Analysis request messages handled by the worker",
			},
			[]string{"outcome"},
		),
		circuitBreakerState: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cardtrend_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"service"},
		),
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardtrend_http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cardtrend_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}

func (m *PrometheusMetrics) AnalysisCompleted(status string, d time.Duration, records int, silhouette *float64) {
	m.analysisRuns.WithLabelValues(status).Inc()
	if status != StatusOK {
		return
	}
	m.analysisDuration.Observe(d.Seconds())
	m.recordsAnalyzed.Observe(float64(records))
	if silhouette != nil {
		m.lastSilhouette.Set(*silhouette)
	}
}

func (m *PrometheusMetrics) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *PrometheusMetrics) WorkerMessage(outcome string) {
	m.workerMessages.WithLabelValues(outcome).Inc()
}

func (m *PrometheusMetrics) CircuitBreakerState(service string, state int) {
	m.circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

func (m *PrometheusMetrics) HTTPRequest(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Registry returns the underlying registry.
func (m *PrometheusMetrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Nop discards everything.
type Nop struct{}

func (Nop) AnalysisCompleted(string, time.Duration, int, *float64) {}
func (Nop) CacheLookup(bool)                                       {}
func (Nop) WorkerMessage(string)                                   {}
func (Nop) CircuitBreakerState(string, int)                        {}
func (Nop) HTTPRequest(string, string, int, time.Duration)         {}
