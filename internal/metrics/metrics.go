// Package metrics exposes Prometheus instrumentation for the preferences
// store and the HTTP server.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"cui-prefs/internal/jsonstore"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cui"

// Result label values for store operations.
const (
	ResultOK       = "ok"
	ResultCorrupt  = "corrupt"
	ResultWrite    = "write_error"
	ResultCanceled = "canceled"
	ResultError    = "error"
)

// Metrics holds a private registry and the collectors registered on it.
// It implements jsonstore.Observer.
type Metrics struct {
	registry *prometheus.Registry

	storeOps        *prometheus.CounterVec
	storeDuration   *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

var _ jsonstore.Observer = (*Metrics)(nil)

// New creates a registry with the Go and process collectors plus the
// store and HTTP metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		storeOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Total preferences store operations by outcome",
			},
			[]string{"op", "result"},
		),
		storeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Preferences store operation latency in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"op"},
		),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.storeOps,
		m.storeDuration,
		m.requestsTotal,
		m.requestDuration,
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Observe records one store operation.
func (m *Metrics) Observe(op jsonstore.Op, took time.Duration, err error) {
	m.storeOps.WithLabelValues(string(op), Result(err)).Inc()
	m.storeDuration.WithLabelValues(string(op)).Observe(took.Seconds())
}

// ObserveRequest records one served HTTP request. path is the route
// pattern, not the raw URL, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, path string, status int, took time.Duration) {
	m.requestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(took.Seconds())
}

// Result maps a store error to its result label.
func Result(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, jsonstore.ErrCorrupt):
		return ResultCorrupt
	case errors.Is(err, jsonstore.ErrWrite):
		return ResultWrite
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ResultCanceled
	default:
		return ResultError
	}
}
