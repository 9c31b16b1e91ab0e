// Package metrics holds the Prometheus collectors of the imghost server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the server.
type Metrics struct {
	registry prometheus.Gatherer

	// Request metrics
	RequestsTotal   *prometheus.CounterVec   // imghost_http_requests_total{route,method,status}
	RequestDuration *prometheus.HistogramVec // imghost_http_request_duration_seconds{route,method}

	// Domain metrics
	OperationsTotal *prometheus.CounterVec // imghost_operations_total{operation,outcome}
	BytesUploaded   prometheus.Counter     // imghost_object_bytes_uploaded_total (filesystem store only)
	BytesDownloaded prometheus.Counter     // imghost_object_bytes_downloaded_total (filesystem store only)
}

// New registers the collectors with registry. Passing nil creates a fresh
// registry, which keeps tests independent of each other.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "imghost_http_requests_total",
			Help: "Total HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "imghost_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),

		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "imghost_operations_total",
			Help: "Upload, gallery and delete operations by outcome",
		}, []string{"operation", "outcome"}),

		BytesUploaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "imghost_object_bytes_uploaded_total",
			Help: "Total bytes written through the local object store",
		}),

		BytesDownloaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "imghost_object_bytes_downloaded_total",
			Help: "Total bytes served by the local object store",
		}),
	}
}

// ObserveOperation counts one domain operation. It is safe on a nil
// receiver so metrics can be switched off.
func (m *Metrics) ObserveOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and durations labelled with the chi
// route pattern, so ids in paths do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.RequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
