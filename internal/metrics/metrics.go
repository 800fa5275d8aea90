package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tgdrive/internal/events"
)

// Metrics holds all Prometheus collectors, registered on a private registry
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Blob transport metrics
	BlobCalls       *prometheus.CounterVec
	BlobDuration    *prometheus.HistogramVec
	BlobBytesStored prometheus.Counter
	AdaptersCached  prometheus.Gauge

	// Domain events
	Events *prometheus.CounterVec
}

// New creates the collectors plus Go runtime and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tgdrive_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tgdrive_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "route"},
		),
		BlobCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tgdrive_blob_calls_total",
				Help: "Remote transport calls by operation and result",
			},
			[]string{"op", "result"},
		),
		BlobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tgdrive_blob_call_duration_seconds",
				Help:    "Remote transport call duration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"op"},
		),
		BlobBytesStored: factory.NewCounter(prometheus.CounterOpts{
			Name: "tgdrive_blob_bytes_stored_total",
			Help: "Bytes uploaded to the remote transport",
		}),
		AdaptersCached: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tgdrive_blob_adapters_cached",
			Help: "Transport adapters held by the adapter cache",
		}),
		Events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tgdrive_events_total",
				Help: "Domain events published",
			},
			[]string{"kind"},
		),
	}
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry (tests gather from it)
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveBlobCall records one transport call
func (m *Metrics) ObserveBlobCall(op string, ok bool, elapsed time.Duration) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.BlobCalls.WithLabelValues(op, result).Inc()
	m.BlobDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveRequest records one HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// EventCounter is an events.Handler counting events by kind
func (m *Metrics) EventCounter() events.Handler {
	return func(_ context.Context, evt events.Event) error {
		m.Events.WithLabelValues(string(evt.Kind)).Inc()
		return nil
	}
}
