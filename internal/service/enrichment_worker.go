package service

import (
	"context"
	"errors"
	"fmt"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/domain"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/enrich"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/observability"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/queue"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minWorkerConcurrency = 1

// CompanyEnricher is the finder port consumed by the worker.
type CompanyEnricher interface {
	BatchSize() int
	EnrichBatch(ctx context.Context, companies []domain.Company) ([]domain.Contact, int, error)
}

var _ CompanyEnricher = (*enrich.Finder)(nil)

// EnrichmentWorker consumes enrichment jobs from the queue and drives them
// to a terminal status.
type EnrichmentWorker struct {
	jobs        repository.EnrichmentRepository
	consumer    queue.Consumer
	enricher    CompanyEnricher
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
}

func NewEnrichmentWorker(
	jobs repository.EnrichmentRepository,
	consumer queue.Consumer,
	enricher CompanyEnricher,
	concurrency int,
	logger *zap.Logger,
) (*EnrichmentWorker, error) {
	if jobs == nil {
		return nil, fmt.Errorf("enrichment repository is required")
	}
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if enricher == nil {
		return nil, fmt.Errorf("company enricher is required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &EnrichmentWorker{
		jobs:        jobs,
		consumer:    consumer,
		enricher:    enricher,
		logger:      logger,
		concurrency: concurrency,
	}, nil
}

func (w *EnrichmentWorker) SetMetrics(metrics *observability.Metrics) {
	if w == nil {
		return
	}
	w.metrics = metrics
}

// Start consumes the enrichment queue until context cancellation.
func (w *EnrichmentWorker) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			w.logger.Info("enrichment worker started",
				zap.Int("workerId", workerID),
				zap.String("queue", queue.EnrichmentQueueName),
			)

			err := w.consumer.Consume(groupCtx, queue.EnrichmentQueueName, w.processMessage)
			if err != nil {
				w.logger.Error("enrichment worker stopped with error",
					zap.Int("workerId", workerID),
					zap.Error(err),
				)
				return err
			}

			w.logger.Info("enrichment worker stopped",
				zap.Int("workerId", workerID),
			)
			return nil
		})
	}

	return g.Wait()
}

func (w *EnrichmentWorker) processMessage(ctx context.Context, msg queue.EnrichmentJobMessage) error {
	logger := w.logger.With(zap.String("jobId", msg.JobID))
	if msg.CorrelationID != "" {
		logger = logger.With(zap.String("correlationId", msg.CorrelationID))
	}

	job, err := w.jobs.GetJob(ctx, msg.JobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Warn("enrichment job not found, skipping")
			return nil
		}
		return fmt.Errorf("failed to load enrichment job: %w", err)
	}

	if err := w.jobs.MarkJobProcessing(ctx, job.ID); err != nil {
		// Another worker claimed the job or it already reached a
		// terminal status; ack and move on.
		if errors.Is(err, domain.ErrConflict) {
			logger.Info("enrichment job already claimed, skipping")
			return nil
		}
		return fmt.Errorf("failed to mark job processing: %w", err)
	}

	w.metrics.IncWorkerInFlight()
	defer w.metrics.DecWorkerInFlight()

	status, contactCount, detail := w.runJob(ctx, logger, job)

	// The terminal status must land even when the job was cut short by
	// shutdown, otherwise the job is stuck in PROCESSING forever.
	finishCtx := context.WithoutCancel(ctx)
	if err := w.jobs.FinishJob(finishCtx, job.ID, status, contactCount, detail); err != nil {
		return fmt.Errorf("failed to finish enrichment job: %w", err)
	}

	w.metrics.IncEnrichmentJobFinished(status.String())
	w.metrics.AddContactsExtracted(contactCount)

	logger.Info("enrichment job finished",
		zap.String("status", status.String()),
		zap.Int("contactCount", contactCount),
	)
	return nil
}

// runJob processes the job's companies in enricher-sized chunks and returns
// the terminal status to record. Contacts are persisted per chunk so a
// partially processed job keeps what it already found.
func (w *EnrichmentWorker) runJob(
	ctx context.Context,
	logger *zap.Logger,
	job *domain.EnrichmentJob,
) (domain.JobStatus, int, *string) {
	var (
		contactCount int
		failedTotal  int
	)

	for _, chunk := range chunkCompanies(job.Companies, w.enricher.BatchSize()) {
		contacts, failed, err := w.enricher.EnrichBatch(ctx, chunk)
		failedTotal += failed

		if len(contacts) > 0 {
			rows := make([]*domain.Contact, 0, len(contacts))
			for i := range contacts {
				contacts[i].JobID = job.ID
				rows = append(rows, &contacts[i])
			}
			saveCtx := context.WithoutCancel(ctx)
			if saveErr := w.jobs.SaveContacts(saveCtx, rows); saveErr != nil {
				logger.Error("failed to save contacts", zap.Error(saveErr))
				detail := fmt.Sprintf("contact persistence failed: %v", saveErr)
				return domain.JobStatusFailed, contactCount, &detail
			}
			contactCount += len(contacts)
		}

		if err != nil {
			detail := fmt.Sprintf("enrichment aborted: %v", err)
			return domain.JobStatusFailed, contactCount, &detail
		}
	}

	switch {
	case failedTotal == 0:
		return domain.JobStatusCompleted, contactCount, nil
	case failedTotal < len(job.Companies):
		detail := fmt.Sprintf("%d of %d companies failed enrichment", failedTotal, len(job.Companies))
		return domain.JobStatusPartialFailure, contactCount, &detail
	default:
		detail := fmt.Sprintf("all %d companies failed enrichment", len(job.Companies))
		return domain.JobStatusFailed, contactCount, &detail
	}
}

func chunkCompanies(companies []domain.Company, size int) [][]domain.Company {
	if size < 1 {
		size = enrich.DefaultBatchSize
	}

	chunks := make([][]domain.Company, 0, (len(companies)+size-1)/size)
	for start := 0; start < len(companies); start += size {
		end := start + size
		if end > len(companies) {
			end = len(companies)
		}
		chunks = append(chunks, companies[start:end])
	}
	return chunks
}
