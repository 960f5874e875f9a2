// Package telemetry holds the Prometheus collectors and OpenTelemetry span
// helpers used by the sync engine and the HTTP server.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records sync outcomes and upsert latency.
//
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally.
type Metrics struct {
	registry *prometheus.Registry

	// entitiesTotal counts report entries by entity type and outcome
	entitiesTotal *prometheus.CounterVec

	// upsertDuration tracks per-entity upsert latency
	upsertDuration *prometheus.HistogramVec

	// storeRequests counts HTTP requests served by the store API
	storeRequests *prometheus.CounterVec
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		entitiesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assetsync_entities_total",
			Help: "Entities processed by entity type and outcome",
		}, []string{"type", "outcome"}),
		upsertDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assetsync_upsert_duration_seconds",
			Help:    "Upsert duration in seconds by entity type",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		}, []string{"type"}),
		storeRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assetsync_store_requests_total",
			Help: "Store API requests by operation and status code",
		}, []string{"operation", "code"}),
	}
}

// Outcome counts one report entry.
func (m *Metrics) Outcome(entityType, outcome string) {
	if m == nil {
		return
	}
	m.entitiesTotal.WithLabelValues(entityType, outcome).Inc()
}

// ObserveUpsert records how long one upsert took.
func (m *Metrics) ObserveUpsert(entityType string, d time.Duration) {
	if m == nil {
		return
	}
	m.upsertDuration.WithLabelValues(entityType).Observe(d.Seconds())
}

// StoreRequest counts one store API request.
func (m *Metrics) StoreRequest(operation string, code int) {
	if m == nil {
		return
	}
	m.storeRequests.WithLabelValues(operation, http.StatusText(code)).Inc()
}

// Registry exposes the underlying registry for tests and custom handlers.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
