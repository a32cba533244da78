package observability

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsDispatchCollectors(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()

	metrics.IncDispatchDelivered("WELCOME", "Resend")
	metrics.IncDispatchFailed("welcome", "providers_exhausted")
	metrics.IncIdempotentHit("welcome")
	metrics.IncProviderAttempt("resend", "failure")
	metrics.IncProviderAttempt("resend", "success")
	metrics.ObserveProviderSendDuration("resend", 120*time.Millisecond)

	if got := testutil.ToFloat64(metrics.dispatchDeliveredTotal.WithLabelValues("welcome", "resend")); got != 1 {
		t.Fatalf("dispatch_delivered_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.dispatchFailedTotal.WithLabelValues("welcome", "providers_exhausted")); got != 1 {
		t.Fatalf("dispatch_failed_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.idempotentHitsTotal.WithLabelValues("welcome")); got != 1 {
		t.Fatalf("idempotent_hits_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.providerAttemptsTotal.WithLabelValues("resend", "failure")); got != 1 {
		t.Fatalf("provider_attempts_total{failure} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.providerAttemptsTotal.WithLabelValues("resend", "success")); got != 1 {
		t.Fatalf("provider_attempts_total{success} = %v, want 1", got)
	}
}

func TestMetricsWorkerCollectors(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()

	metrics.IncEnrichmentJobFinished("COMPLETED")
	metrics.AddContactsExtracted(7)
	metrics.AddContactsExtracted(0)
	metrics.AddAbandonedDeliveries(3)
	metrics.IncWorkerInFlight()
	metrics.DecWorkerInFlight()

	if got := testutil.ToFloat64(metrics.enrichmentJobsTotal.WithLabelValues("completed")); got != 1 {
		t.Fatalf("enrichment_jobs_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.contactsExtractedTotal); got != 7 {
		t.Fatalf("contacts_extracted_total = %v, want 7", got)
	}
	if got := testutil.ToFloat64(metrics.abandonedDeliveriesTotal); got != 3 {
		t.Fatalf("abandoned_deliveries_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(metrics.workerInflight); got != 0 {
		t.Fatalf("worker_inflight = %v, want 0", got)
	}
}

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	t.Parallel()

	var metrics *Metrics

	metrics.IncDispatchDelivered("welcome", "resend")
	metrics.IncDispatchFailed("welcome", "canceled")
	metrics.IncIdempotentHit("welcome")
	metrics.IncProviderAttempt("resend", "success")
	metrics.ObserveProviderSendDuration("resend", time.Second)
	metrics.IncEnrichmentJobFinished("failed")
	metrics.AddContactsExtracted(1)
	metrics.AddAbandonedDeliveries(1)
	metrics.IncWorkerInFlight()
	metrics.DecWorkerInFlight()
}

func TestMetricsHTTPMiddlewareRecordsRequest(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/livez", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/livez", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/livez", "200")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}

func TestMetricsHTTPMiddlewareRecordsErrorStatus(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	req := httptest.NewRequest("GET", "/boom", nil)
	_, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/boom", "500")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}
