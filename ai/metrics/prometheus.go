// Package metrics provides Prometheus metrics export for the Q&A pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter exports pipeline metrics in Prometheus format.
// A nil *Exporter is valid and records nothing.
type Exporter struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	classifications *prometheus.CounterVec
	recoveryMisses  prometheus.Counter
}

// NewExporter creates an Exporter with its own registry.
func NewExporter() *Exporter {
	registry := prometheus.NewRegistry()
	e := &Exporter{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toondesk",
			Name:      "requests_total",
			Help:      "Questions handled, by routed intent.",
		}, []string{"intent"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "toondesk",
			Name:      "request_duration_seconds",
			Help:      "End-to-end question handling latency.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"intent"}),
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toondesk",
			Name:      "classifications_total",
			Help:      "Intent decisions, by final label and decision source.",
		}, []string{"label", "source"}),
		recoveryMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "toondesk",
			Name:      "recovery_misses_total",
			Help:      "Model payloads the structured recovery chain could not repair.",
		}),
	}
	registry.MustRegister(e.requests, e.requestLatency, e.classifications, e.recoveryMisses)
	return e
}

// RecordRequest records one handled question.
func (e *Exporter) RecordRequest(intent string, duration time.Duration) {
	if e == nil {
		return
	}
	e.requests.WithLabelValues(intent).Inc()
	e.requestLatency.WithLabelValues(intent).Observe(duration.Seconds())
}

// RecordClassification records one intent decision.
func (e *Exporter) RecordClassification(label, source string) {
	if e == nil {
		return
	}
	e.classifications.WithLabelValues(label, source).Inc()
}

// RecordRecoveryMiss records a payload the recovery chain gave up on.
func (e *Exporter) RecordRecoveryMiss() {
	if e == nil {
		return
	}
	e.recoveryMisses.Inc()
}

// Handler returns the Prometheus scrape handler.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
