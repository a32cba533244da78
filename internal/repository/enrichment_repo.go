package repository

import (
	"context"
	"errors"

	"github.com/sourcecodeals/market-nexus-dispatch/internal/domain"
	"gorm.io/gorm"
)

// EnrichmentRepository stores enrichment jobs and the contacts they found.
type EnrichmentRepository interface {
	CreateJob(ctx context.Context, j *domain.EnrichmentJob) error
	GetJob(ctx context.Context, id string) (*domain.EnrichmentJob, error)
	// MarkJobProcessing claims a PENDING job; a redelivered queue message
	// for an already-claimed job gets ErrConflict and is acked, not rerun.
	MarkJobProcessing(ctx context.Context, id string) error
	// FinishJob moves a PENDING or PROCESSING job to a terminal status;
	// a job that is already terminal gets ErrConflict.
	FinishJob(ctx context.Context, id string, status domain.JobStatus, contactCount int, detail *string) error
	SaveContacts(ctx context.Context, contacts []*domain.Contact) error
	ListContactsByJob(ctx context.Context, jobID string) ([]domain.Contact, error)
}

type GormEnrichmentRepo struct {
	db *gorm.DB
}

func NewGormEnrichmentRepo(db *gorm.DB) *GormEnrichmentRepo {
	return &GormEnrichmentRepo{db: db}
}

func (r *GormEnrichmentRepo) CreateJob(ctx context.Context, j *domain.EnrichmentJob) error {
	model := jobModelFromDomain(j)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if j != nil {
		*j = *jobModelToDomain(model)
	}
	return nil
}

func (r *GormEnrichmentRepo) GetJob(ctx context.Context, id string) (*domain.EnrichmentJob, error) {
	var model EnrichmentJobModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return jobModelToDomain(&model), nil
}

func (r *GormEnrichmentRepo) MarkJobProcessing(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&EnrichmentJobModel{}).
		Where("id = ? AND status = ?", id, domain.JobStatusPending).
		Update("status", domain.JobStatusProcessing)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

// FinishJob writes the terminal status. PROCESSING is the normal source
// state; PENDING is allowed so a job whose queue publish failed can be
// failed without ever being claimed. Terminal rows never change again.
func (r *GormEnrichmentRepo) FinishJob(ctx context.Context, id string, status domain.JobStatus, contactCount int, detail *string) error {
	result := r.db.WithContext(ctx).
		Model(&EnrichmentJobModel{}).
		Where("id = ? AND status IN ?", id, []domain.JobStatus{domain.JobStatusPending, domain.JobStatusProcessing}).
		Updates(map[string]any{
			"status":        status,
			"contact_count": contactCount,
			"error_detail":  detail,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormEnrichmentRepo) SaveContacts(ctx context.Context, contacts []*domain.Contact) error {
	models := make([]ContactModel, 0, len(contacts))
	for _, c := range contacts {
		if model := contactModelFromDomain(c); model != nil {
			models = append(models, *model)
		}
	}

	if len(models) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).CreateInBatches(&models, 100).Error
}

func (r *GormEnrichmentRepo) ListContactsByJob(ctx context.Context, jobID string) ([]domain.Contact, error) {
	var models []ContactModel
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("company_domain ASC, created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	contacts := make([]domain.Contact, 0, len(models))
	for i := range models {
		contacts = append(contacts, *contactModelToDomain(&models[i]))
	}

	return contacts, nil
}
