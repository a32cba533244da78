package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/domain"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/queue"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/repository"
	"go.uber.org/zap"
)

// maxCompaniesPerJob bounds one submitted job. Larger imports should be
// split by the caller; the worker chunks further down to the search batch
// size.
const maxCompaniesPerJob = 200

// EnrichmentService accepts enrichment jobs, persists them, and hands them
// to the worker through the queue.
type EnrichmentService struct {
	jobs      repository.EnrichmentRepository
	publisher queue.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewEnrichmentService(
	jobs repository.EnrichmentRepository,
	publisher queue.Publisher,
	logger *zap.Logger,
) (*EnrichmentService, error) {
	if jobs == nil {
		return nil, fmt.Errorf("enrichment repository is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &EnrichmentService{
		jobs:      jobs,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// SubmitJob persists a PENDING job and enqueues it. The job row is written
// before the queue publish so a lost message is visible as a stuck PENDING
// job rather than silently dropped work.
func (s *EnrichmentService) SubmitJob(
	ctx context.Context,
	companies []domain.Company,
	correlationID string,
) (*domain.EnrichmentJob, error) {
	if len(companies) == 0 {
		return nil, fmt.Errorf("%w: companies is required", domain.ErrValidation)
	}
	if len(companies) > maxCompaniesPerJob {
		return nil, fmt.Errorf("%w: at most %d companies per job", domain.ErrValidation, maxCompaniesPerJob)
	}
	for i := range companies {
		if err := companies[i].Validate(); err != nil {
			return nil, err
		}
	}

	job := &domain.EnrichmentJob{
		ID:             uuid.NewString(),
		Status:         domain.JobStatusPending,
		Companies:      companies,
		TotalCompanies: len(companies),
		CreatedAt:      s.now().UTC(),
	}

	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create enrichment job: %w", err)
	}

	msg := queue.EnrichmentJobMessage{
		JobID:         job.ID,
		CorrelationID: correlationID,
	}
	if err := s.publisher.Publish(ctx, queue.EnrichmentQueueName, msg); err != nil {
		detail := fmt.Sprintf("enqueue failed: %v", err)
		if finishErr := s.jobs.FinishJob(context.WithoutCancel(ctx), job.ID, domain.JobStatusFailed, 0, &detail); finishErr != nil {
			s.logger.Error("failed to mark unqueued job failed",
				zap.String("jobId", job.ID),
				zap.Error(finishErr),
			)
		}
		return nil, fmt.Errorf("failed to enqueue enrichment job: %w", err)
	}

	s.logger.Info("enrichment job submitted",
		zap.String("jobId", job.ID),
		zap.Int("totalCompanies", job.TotalCompanies),
	)
	return job, nil
}

func (s *EnrichmentService) GetJob(ctx context.Context, id string) (*domain.EnrichmentJob, error) {
	return s.jobs.GetJob(ctx, id)
}

// ListContacts returns the contacts found for a job. The job is loaded
// first so an unknown id surfaces as ErrNotFound instead of an empty list.
func (s *EnrichmentService) ListContacts(ctx context.Context, jobID string) ([]domain.Contact, error) {
	if _, err := s.jobs.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	return s.jobs.ListContactsByJob(ctx, jobID)
}
