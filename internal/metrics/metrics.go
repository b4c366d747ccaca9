// Package metrics exposes the ledger's Prometheus collectors.
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

// Recorder is what the ledger service reports to.
type Recorder interface {
	RecordSubmission(success bool)
	RecordClear(success bool)
	ObservePersist(operation string, d time.Duration)
	SetMonths(n int)
	RecordEventPublished(eventType string, success bool)
}

// Metrics owns a private registry so tests and binaries never share state.
type Metrics struct {
	registry *prometheus.Registry

	submissions     *prometheus.CounterVec
	clears          *prometheus.CounterVec
	persistDuration *prometheus.HistogramVec
	months          prometheus.Gauge
	eventsPublished *prometheus.CounterVec
	eventsConsumed  *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	rateLimited     prometheus.Counter
	circuitBreaker  prometheus.Gauge
	cacheSize       prometheus.Gauge
}

// New registers every collector, plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		submissions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_submissions_total",
				Help: "Total number of form submissions",
			},
			[]string{"status"},
		),
		clears: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_clears_total",
				Help: "Total number of ledger resets",
			},
			[]string{"status"},
		),
		persistDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_persist_duration_seconds",
				Help:    "Time spent writing the ledger snapshot",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
			[]string{"operation"},
		),
		months: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "ledger_months",
				Help: "Number of months with a recorded summary",
			},
		),
		eventsPublished: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_events_published_total",
				Help: "Ledger events handed to the broker",
			},
			[]string{"type", "status"},
		),
		eventsConsumed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_events_consumed_total",
				Help: "Ledger events processed by the event worker",
			},
			[]string{"type", "status"},
		),
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"method", "route", "code"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		rateLimited: f.NewCounter(
			prometheus.CounterOpts{
				Name: "http_rate_limited_total",
				Help: "Requests rejected by the rate limiter",
			},
		),
		circuitBreaker: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "amqp_circuit_breaker_state",
				Help: "Publisher circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
		),
		cacheSize: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "rate_limit_clients",
				Help: "Clients currently tracked by the rate limiter",
			},
		),
	}
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

func (m *Metrics) RecordSubmission(success bool) {
	m.submissions.WithLabelValues(status(success)).Inc()
}

func (m *Metrics) RecordClear(success bool) {
	m.clears.WithLabelValues(status(success)).Inc()
}

func (m *Metrics) ObservePersist(operation string, d time.Duration) {
	m.persistDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) SetMonths(n int) {
	m.months.Set(float64(n))
}

func (m *Metrics) RecordEventPublished(eventType string, success bool) {
	m.eventsPublished.WithLabelValues(eventType, status(success)).Inc()
}

func (m *Metrics) RecordEventConsumed(eventType string, success bool) {
	m.eventsConsumed.WithLabelValues(eventType, status(success)).Inc()
}

// ObserveHTTP records one finished request. route must be a fixed pattern,
// never the raw path, to bound label cardinality.
func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) IncRateLimited() {
	m.rateLimited.Inc()
}

func (m *Metrics) SetCircuitBreakerState(state int) {
	m.circuitBreaker.Set(float64(state))
}

func (m *Metrics) SetRateLimitClients(n int) {
	m.cacheSize.Set(float64(n))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Noop discards everything.
type Noop struct{}

func (Noop) RecordSubmission(bool)                {}
func (Noop) RecordClear(bool)                     {}
func (Noop) ObservePersist(string, time.Duration) {}
func (Noop) SetMonths(int)                        {}
func (Noop) RecordEventPublished(string, bool)    {}
