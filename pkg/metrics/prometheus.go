// Package metrics records attribute persistence operations for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder counts and times persistence operations. It satisfies
// the attrs Recorder interface and is safe for concurrent use.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	operations *prometheus.CounterVec
	failures   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// PrometheusConfig configures the recorder.
type PrometheusConfig struct {
	// Namespace prefixes every metric name (default: "attributes").
	Namespace string

	// Registry receives the collectors. A private registry is created when nil.
	Registry *prometheus.Registry

	// ConstLabels are added to every metric.
	ConstLabels prometheus.Labels

	// Buckets for the duration histogram, in seconds.
	Buckets []float64
}

// DefaultBuckets returns the default duration buckets.
func DefaultBuckets() []float64 {
	return []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}
}

// NewPrometheusRecorder creates and registers the recorder collectors.
func NewPrometheusRecorder(cfg PrometheusConfig) (*PrometheusRecorder, error) {
	if cfg.Namespace == "" {
		cfg.Namespace = "attributes"
	}
	if cfg.Buckets == nil {
		cfg.Buckets = DefaultBuckets()
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	labelNames := []string{"op"}
	r := &PrometheusRecorder{
		registry: reg,
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   cfg.Namespace,
				Name:        "persistence_operations_total",
				Help:        "Total number of persistence operations",
				ConstLabels: cfg.ConstLabels,
			},
			labelNames,
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   cfg.Namespace,
				Name:        "persistence_failures_total",
				Help:        "Total number of failed persistence operations",
				ConstLabels: cfg.ConstLabels,
			},
			labelNames,
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   cfg.Namespace,
				Name:        "persistence_duration_seconds",
				Help:        "Persistence operation duration in seconds",
				ConstLabels: cfg.ConstLabels,
				Buckets:     cfg.Buckets,
			},
			labelNames,
		),
	}

	for _, collector := range []prometheus.Collector{r.operations, r.failures, r.duration} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Observe records one operation.
func (r *PrometheusRecorder) Observe(op string, duration time.Duration, err error) {
	if r == nil {
		return
	}
	labels := prometheus.Labels{"op": op}
	r.operations.With(labels).Inc()
	if err != nil {
		r.failures.With(labels).Inc()
	}
	r.duration.With(labels).Observe(duration.Seconds())
}

// Registry returns the registry holding the recorder collectors.
func (r *PrometheusRecorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
