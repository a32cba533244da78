// Package queue carries enrichment jobs between the API and the worker
// over RabbitMQ.
package queue

import (
	"context"
	"fmt"
)

// EnrichmentQueueName is the work queue the API publishes jobs to and the
// worker consumes from.
const EnrichmentQueueName = "enrichment.jobs"

// Publisher publishes enrichment job messages to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg EnrichmentJobMessage) error
	Close() error
}

// MessageHandler handles a consumed queue message.
type MessageHandler func(ctx context.Context, msg EnrichmentJobMessage) error

// Consumer consumes enrichment job messages from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}

// DLQName returns the dead-letter queue name for a work queue,
// e.g. dlq.enrichment.jobs.
func DLQName(queue string) string {
	return fmt.Sprintf("dlq.%s", queue)
}
