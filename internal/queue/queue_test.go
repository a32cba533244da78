package queue

import "testing"

func TestDLQName(t *testing.T) {
	if got := DLQName(EnrichmentQueueName); got != "dlq.enrichment.jobs" {
		t.Fatalf("DLQName = %s, want dlq.enrichment.jobs", got)
	}
}

func TestEnrichmentJobMessageValidate(t *testing.T) {
	msg := EnrichmentJobMessage{
		JobID:         "job-1",
		CorrelationID: "corr-1",
	}
	if err := msg.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	msg.JobID = "  "
	if err := msg.Validate(); err == nil {
		t.Fatal("expected error for empty job id")
	}
}
