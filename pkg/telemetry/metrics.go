package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's Prometheus collectors on a private registry.
// All methods are safe on a nil receiver.
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	upstreamDuration *prometheus.HistogramVec
	repairsTotal     *prometheus.CounterVec
	httpResponses    *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers the gateway collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_requests_total",
				Help: "Gateway requests by task, provider and outcome",
			},
			[]string{"task", "provider", "outcome"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_request_duration_seconds",
				Help:    "End-to-end gateway handling time in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"task", "provider"},
		),
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_upstream_duration_seconds",
				Help:    "Outbound provider call latency in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30, 60},
			},
			[]string{"provider", "kind"},
		),
		repairsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_detection_repairs_total",
				Help: "Detection documents that only parsed after JSON repair",
			},
			[]string{"provider"},
		),
		httpResponses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_http_responses_total",
				Help: "HTTP responses by route and status code",
			},
			[]string{"route", "code"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.upstreamDuration,
		m.repairsTotal,
		m.httpResponses,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest records one finished gateway request.
func (m *Metrics) ObserveRequest(task, provider, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(task, provider, outcome).Inc()
	m.requestDuration.WithLabelValues(task, provider).Observe(d.Seconds())
}

// ObserveUpstream records the latency of one outbound provider call.
func (m *Metrics) ObserveUpstream(provider, kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.upstreamDuration.WithLabelValues(provider, kind).Observe(d.Seconds())
}

// IncRepair counts a detection document that needed JSON repair.
func (m *Metrics) IncRepair(provider string) {
	if m == nil {
		return
	}
	m.repairsTotal.WithLabelValues(provider).Inc()
}

// ObserveHTTP counts one HTTP response.
func (m *Metrics) ObserveHTTP(route string, code int) {
	if m == nil {
		return
	}
	m.httpResponses.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Registry exposes the underlying registry (useful for testing).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus exposition handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
