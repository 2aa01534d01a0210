package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the metrics of one triple store
type Registry struct {
	TriplesTotal      prometheus.Gauge
	TermsTotal        prometheus.Gauge
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	QueriesTotal      *prometheus.CounterVec
	SnapshotBytes     *prometheus.GaugeVec

	registry *prometheus.Registry
}

// NewRegistry creates a registry with all store metrics registered on a
// private prometheus registry, plus the Go runtime collectors
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	factory := promauto.With(r.registry)

	r.TriplesTotal = factory.NewGauge(prometheus.GaugeOpts{
		Name: "hexastore_triples_total",
		Help: "Number of distinct triples stored",
	})
	r.TermsTotal = factory.NewGauge(prometheus.GaugeOpts{
		Name: "hexastore_terms_total",
		Help: "Number of terms in the node dictionary",
	})
	r.OperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hexastore_operations_total",
			Help: "Total number of store operations",
		},
		[]string{"operation", "status"},
	)
	r.OperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hexastore_operation_duration_seconds",
			Help:    "Store operation duration in seconds",
			Buckets: []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"operation"},
	)
	r.QueriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hexastore_queries_total",
			Help: "Total number of pattern queries by the ordering that answered them",
		},
		[]string{"ordering", "pattern"},
	)
	r.SnapshotBytes = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hexastore_snapshot_bytes",
			Help: "Size of the last snapshot written",
		},
		[]string{"encoding"},
	)

	r.registry.MustRegister(collectors.NewGoCollector())
	return r
}

// Observe records the outcome and duration of an operation started at start
func (r *Registry) Observe(operation string, start time.Time, err error) {
	if r == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.OperationsTotal.WithLabelValues(operation, status).Inc()
	r.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Gatherer exposes the underlying registry
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler serving the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Gatherer(), promhttp.HandlerOpts{})
}
