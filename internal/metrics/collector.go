// Package metrics exports Prometheus metrics for provider queries, scans,
// budgets and the background task queue
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nexconsult/investigacao-api/internal/models"
	"github.com/nexconsult/investigacao-api/internal/providers"
)

const namespace = "investigacao"

// Collector owns every metric of the service. Create one per registry.
type Collector struct {
	registry *prometheus.Registry

	providerQueries  *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	monthlySpend     *prometheus.GaugeVec

	scansTotal    *prometheus.CounterVec
	scanDuration  prometheus.Histogram
	scansActive   prometheus.Gauge
	persistErrors *prometheus.CounterVec

	tasksTotal    *prometheus.CounterVec
	queueRejected prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates a collector on a fresh registry that also carries the Go and
// process collectors
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewWithRegistry(reg)
}

// NewWithRegistry registers the service metrics on reg
func NewWithRegistry(reg *prometheus.Registry) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		providerQueries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_queries_total",
			Help:      "Provider queries by provider, query type and outcome",
		}, []string{"provider", "query_type", "outcome"}),

		providerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_query_duration_seconds",
			Help:      "Provider query latency including retries",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"provider", "outcome"}),

		monthlySpend: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "provider_monthly_spend_brl",
			Help:      "Current monthly spend per provider in BRL",
		}, []string{"provider"}),

		scansTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Finished investigation scans by terminal status",
		}, []string{"status"}),

		scanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Wall time of a full investigation scan",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),

		scansActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scans_active",
			Help:      "Scans currently running",
		}),

		persistErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_errors_total",
			Help:      "Persistence failures by record kind",
		}, []string{"kind"}),

		tasksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "background_tasks_total",
			Help:      "Background tasks by kind and result",
		}, []string{"kind", "result"}),

		queueRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "background_queue_rejected_total",
			Help:      "Tasks rejected because the queue was full",
		}),

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),

		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// Registry exposes the underlying registry for the /metrics handler
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveQuery implements providers.Observer
func (c *Collector) ObserveQuery(provider models.ProviderID, queryType models.QueryType, outcome providers.Outcome, elapsed time.Duration) {
	c.providerQueries.WithLabelValues(string(provider), string(queryType), string(outcome)).Inc()
	c.providerDuration.WithLabelValues(string(provider), string(outcome)).Observe(elapsed.Seconds())
}

// SetSpend records a provider's current monthly spend
func (c *Collector) SetSpend(provider models.ProviderID, spent float64) {
	c.monthlySpend.WithLabelValues(string(provider)).Set(spent)
}

// ScanStarted marks a scan as running
func (c *Collector) ScanStarted() {
	c.scansActive.Inc()
}

// ScanFinished records a scan's terminal status and duration
func (c *Collector) ScanFinished(status models.InvestigationStatus, elapsed time.Duration) {
	c.scansActive.Dec()
	c.scansTotal.WithLabelValues(string(status)).Inc()
	c.scanDuration.Observe(elapsed.Seconds())
}

// PersistFailed counts a persistence failure for one record kind
func (c *Collector) PersistFailed(kind string) {
	c.persistErrors.WithLabelValues(kind).Inc()
}

// TaskFinished counts a background task outcome
func (c *Collector) TaskFinished(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.tasksTotal.WithLabelValues(kind, result).Inc()
}

// TaskRejected counts a task dropped by a full queue
func (c *Collector) TaskRejected() {
	c.queueRejected.Inc()
}

// ObserveHTTP records one HTTP request
func (c *Collector) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(route, method, statusClass(status)).Inc()
	c.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
