package queue

import (
	"fmt"
	"strings"
)

// EnrichmentJobMessage is the broker payload for enrichment processing.
// Company data stays in the database; the message carries only the job
// reference so poisoned payloads cannot hold company PII in the DLQ.
type EnrichmentJobMessage struct {
	JobID         string `json:"jobId"`
	CorrelationID string `json:"correlationId,omitempty"`
}

func (m EnrichmentJobMessage) Validate() error {
	if strings.TrimSpace(m.JobID) == "" {
		return fmt.Errorf("jobId is required")
	}
	return nil
}
