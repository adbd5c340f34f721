// ABOUTME: Prometheus metrics for the store, coordinator, mirror and HTTP surface
// ABOUTME: Nil-safe recorders so components can run without a registry
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const namespace = "incial"

// Metrics holds all application metrics.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	StoreOpDuration *prometheus.HistogramVec
	StoreOpErrors   *prometheus.CounterVec
	EntitiesTotal   *prometheus.GaugeVec

	MutationsTotal *prometheus.CounterVec
	MirrorWrites   *prometheus.CounterVec

	logger *zap.Logger
}

// New registers all metrics with the default registry.
func New(logger *zap.Logger) *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer, logger)
}

// NewWithRegistry registers all metrics with registerer.
func NewWithRegistry(registerer prometheus.Registerer, logger *zap.Logger) *Metrics {
	factory := promauto.With(registerer)
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "endpoint"},
		),
		StoreOpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Entity store operation duration in seconds, simulated latency included",
				Buckets:   []float64{.001, .01, .05, .1, .2, .3, .4, .5, 1},
			},
			[]string{"collection", "operation"},
		),
		StoreOpErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operation_errors_total",
				Help:      "Total number of failed entity store operations",
			},
			[]string{"collection", "operation", "kind"},
		),
		EntitiesTotal: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "entities",
				Help:      "Current number of entities per collection",
			},
			[]string{"collection"},
		),
		MutationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mutations_total",
				Help:      "Coordinated mutations by final state",
			},
			[]string{"collection", "operation", "state"},
		),
		MirrorWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mirror_writes_total",
				Help:      "Mirror write attempts by result",
			},
			[]string{"backend", "result"},
		),
		logger: logger,
	}
}

// safeExecute wraps metric operations with panic recovery.
func (m *Metrics) safeExecute(operation string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Panic in metrics operation",
				zap.String("operation", operation),
				zap.Any("panic", r),
			)
		}
	}()
	fn()
}

// RecordStoreOp records one store call. kind is empty on success.
func (m *Metrics) RecordStoreOp(collection, operation string, duration time.Duration, kind string) {
	if m == nil {
		return
	}
	m.safeExecute("RecordStoreOp", func() {
		m.StoreOpDuration.WithLabelValues(collection, operation).Observe(duration.Seconds())
		if kind != "" {
			m.StoreOpErrors.WithLabelValues(collection, operation, kind).Inc()
		}
	})
}

// SetEntities sets the size gauge for a collection.
func (m *Metrics) SetEntities(collection string, count int) {
	if m == nil {
		return
	}
	m.safeExecute("SetEntities", func() {
		m.EntitiesTotal.WithLabelValues(collection).Set(float64(count))
	})
}

// RecordMutation counts a mutation reaching a final state.
func (m *Metrics) RecordMutation(collection, operation, state string) {
	if m == nil {
		return
	}
	m.safeExecute("RecordMutation", func() {
		m.MutationsTotal.WithLabelValues(collection, operation, state).Inc()
	})
}

// RecordMirrorWrite counts a mirror write.
func (m *Metrics) RecordMirrorWrite(backend string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.safeExecute("RecordMirrorWrite", func() {
		m.MirrorWrites.WithLabelValues(backend, result).Inc()
	})
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.safeExecute("RecordHTTPRequest", func() {
		m.HTTPRequestsTotal.WithLabelValues(method, endpoint, categorizeStatus(statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	})
}

// categorizeStatus converts status code to category (2xx, 3xx, 4xx, 5xx).
func categorizeStatus(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

// ShouldSkipEndpoint reports paths excluded from HTTP metrics.
func ShouldSkipEndpoint(path string) bool {
	return path == "/metrics" || path == "/health"
}
