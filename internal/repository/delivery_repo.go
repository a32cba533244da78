package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sourcecodeals/market-nexus-dispatch/internal/domain"
	"gorm.io/gorm"
)

type ListParams struct {
	Status   *domain.Status
	Category *domain.Category
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// DeliveryRepository is the durable delivery log. One row is written per
// logical dispatch request before the first provider call; the row moves to
// exactly one terminal state afterwards and is never deleted.
type DeliveryRepository interface {
	Create(ctx context.Context, a *domain.DeliveryAttempt) error
	GetByID(ctx context.Context, id string) (*domain.DeliveryAttempt, error)
	// FindDeliveredByCorrelationID backs the idempotency guard. ErrNotFound
	// is the normal "proceed with dispatch" answer.
	FindDeliveredByCorrelationID(ctx context.Context, correlationID string) (*domain.DeliveryAttempt, error)
	List(ctx context.Context, params ListParams) ([]domain.DeliveryAttempt, int64, error)
	MarkDelivered(ctx context.Context, id string, provider string, providerMessageID string, attemptCount int, deliveredAt time.Time) error
	MarkFailed(ctx context.Context, id string, detail string, attemptCount int) error
	// MarkAbandonedBefore fails PENDING rows older than the cutoff, catching
	// dispatches whose process died before writing a terminal state.
	MarkAbandonedBefore(ctx context.Context, cutoff time.Time, detail string) (int64, error)
}

type GormDeliveryRepo struct {
	db *gorm.DB
}

func NewGormDeliveryRepo(db *gorm.DB) *GormDeliveryRepo {
	return &GormDeliveryRepo{db: db}
}

func (r *GormDeliveryRepo) Create(ctx context.Context, a *domain.DeliveryAttempt) error {
	model := deliveryModelFromDomain(a)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if a != nil {
		*a = *deliveryModelToDomain(model)
	}
	return nil
}

func (r *GormDeliveryRepo) GetByID(ctx context.Context, id string) (*domain.DeliveryAttempt, error) {
	var model DeliveryAttemptModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return deliveryModelToDomain(&model), nil
}

func (r *GormDeliveryRepo) FindDeliveredByCorrelationID(ctx context.Context, correlationID string) (*domain.DeliveryAttempt, error) {
	var model DeliveryAttemptModel
	err := r.db.WithContext(ctx).
		Where("correlation_id = ? AND status = ?", correlationID, domain.StatusDelivered).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return deliveryModelToDomain(&model), nil
}

func (r *GormDeliveryRepo) List(ctx context.Context, params ListParams) ([]domain.DeliveryAttempt, int64, error) {
	query := r.db.WithContext(ctx).Model(&DeliveryAttemptModel{})

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Category != nil {
		query = query.Where("category = ?", *params.Category)
	}
	if params.From != nil {
		query = query.Where("created_at >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("created_at <= ?", *params.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []DeliveryAttemptModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	attempts := make([]domain.DeliveryAttempt, 0, len(models))
	for i := range models {
		attempts = append(attempts, *deliveryModelToDomain(&models[i]))
	}

	return attempts, total, nil
}

func (r *GormDeliveryRepo) MarkDelivered(ctx context.Context, id string, provider string, providerMessageID string, attemptCount int, deliveredAt time.Time) error {
	updates := map[string]any{
		"status":        domain.StatusDelivered,
		"provider":      provider,
		"attempt_count": attemptCount,
		"delivered_at":  deliveredAt,
		"error_detail":  nil,
	}
	if providerMessageID != "" {
		updates["provider_message_id"] = providerMessageID
	}

	return r.transitionFromPending(ctx, id, updates)
}

func (r *GormDeliveryRepo) MarkFailed(ctx context.Context, id string, detail string, attemptCount int) error {
	return r.transitionFromPending(ctx, id, map[string]any{
		"status":        domain.StatusFailed,
		"attempt_count": attemptCount,
		"error_detail":  detail,
	})
}

// transitionFromPending guards the state machine: terminal states are
// written once, and a second writer loses with ErrConflict.
func (r *GormDeliveryRepo) transitionFromPending(ctx context.Context, id string, updates map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&DeliveryAttemptModel{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormDeliveryRepo) MarkAbandonedBefore(ctx context.Context, cutoff time.Time, detail string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&DeliveryAttemptModel{}).
		Where("status = ? AND created_at < ?", domain.StatusPending, cutoff).
		Updates(map[string]any{
			"status":       domain.StatusFailed,
			"error_detail": detail,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
