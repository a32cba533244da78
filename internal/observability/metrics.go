package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors shared by the API and worker flows.
// A nil *Metrics is safe to call; every method becomes a no-op.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal        *prometheus.CounterVec
	httpRequestDuration      *prometheus.HistogramVec
	dispatchDeliveredTotal   *prometheus.CounterVec
	dispatchFailedTotal      *prometheus.CounterVec
	idempotentHitsTotal      *prometheus.CounterVec
	providerAttemptsTotal    *prometheus.CounterVec
	providerSendDuration     *prometheus.HistogramVec
	enrichmentJobsTotal      *prometheus.CounterVec
	contactsExtractedTotal   prometheus.Counter
	abandonedDeliveriesTotal prometheus.Counter
	workerInflight           prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "market_nexus",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "market_nexus",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		dispatchDeliveredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "market_nexus",
				Name:      "dispatch_delivered_total",
				Help:      "Total number of notifications delivered, by category and winning provider.",
			},
			[]string{"category", "provider"},
		),
		dispatchFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "market_nexus",
				Name:      "dispatch_failed_total",
				Help:      "Total number of notifications that ended in failed state, by category and reason.",
			},
			[]string{"category", "reason"},
		),
		idempotentHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "market_nexus",
				Name:      "idempotent_hits_total",
				Help:      "Total number of dispatch requests answered from a prior delivery.",
			},
			[]string{"category"},
		),
		providerAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "market_nexus",
				Name:      "provider_attempts_total",
				Help:      "Total number of provider send attempts by provider and outcome.",
			},
			[]string{"provider", "outcome"},
		),
		providerSendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "market_nexus",
				Name:      "provider_send_duration_seconds",
				Help:      "Provider send attempt duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"provider"},
		),
		enrichmentJobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "market_nexus",
				Name:      "enrichment_jobs_total",
				Help:      "Total number of enrichment jobs finished, by terminal status.",
			},
			[]string{"status"},
		),
		contactsExtractedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "market_nexus",
				Name:      "contacts_extracted_total",
				Help:      "Total number of decision-maker contacts extracted.",
			},
		),
		abandonedDeliveriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "market_nexus",
				Name:      "abandoned_deliveries_total",
				Help:      "Total number of stuck pending deliveries marked failed by the reaper.",
			},
		),
		workerInflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "market_nexus",
				Name:      "worker_inflight",
				Help:      "Current number of enrichment jobs being processed.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.dispatchDeliveredTotal,
		m.dispatchFailedTotal,
		m.idempotentHitsTotal,
		m.providerAttemptsTotal,
		m.providerSendDuration,
		m.enrichmentJobsTotal,
		m.contactsExtractedTotal,
		m.abandonedDeliveriesTotal,
		m.workerInflight,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncDispatchDelivered(category string, providerName string) {
	if m == nil {
		return
	}
	m.dispatchDeliveredTotal.WithLabelValues(normalizeLabel(category), normalizeLabel(providerName)).Inc()
}

func (m *Metrics) IncDispatchFailed(category string, reason string) {
	if m == nil {
		return
	}
	m.dispatchFailedTotal.WithLabelValues(normalizeLabel(category), normalizeLabel(reason)).Inc()
}

func (m *Metrics) IncIdempotentHit(category string) {
	if m == nil {
		return
	}
	m.idempotentHitsTotal.WithLabelValues(normalizeLabel(category)).Inc()
}

func (m *Metrics) IncProviderAttempt(providerName string, outcome string) {
	if m == nil {
		return
	}
	m.providerAttemptsTotal.WithLabelValues(normalizeLabel(providerName), normalizeLabel(outcome)).Inc()
}

func (m *Metrics) ObserveProviderSendDuration(providerName string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.providerSendDuration.WithLabelValues(normalizeLabel(providerName)).Observe(seconds)
}

func (m *Metrics) IncEnrichmentJobFinished(status string) {
	if m == nil {
		return
	}
	m.enrichmentJobsTotal.WithLabelValues(normalizeLabel(status)).Inc()
}

func (m *Metrics) AddContactsExtracted(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.contactsExtractedTotal.Add(float64(count))
}

func (m *Metrics) AddAbandonedDeliveries(count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.abandonedDeliveriesTotal.Add(float64(count))
}

func (m *Metrics) IncWorkerInFlight() {
	if m == nil {
		return
	}
	m.workerInflight.Inc()
}

func (m *Metrics) DecWorkerInFlight() {
	if m == nil {
		return
	}
	m.workerInflight.Dec()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
