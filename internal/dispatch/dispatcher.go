// Package dispatch implements the notification dispatcher: request
// validation, the idempotency guard over the delivery log, and the
// provider chain executor with bounded retries.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/domain"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/observability"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/repository"
	"go.uber.org/zap"
)

// Dispatcher coordinates one notification request end to end:
//
//	validate -> idempotency guard -> pending audit row -> provider chain
//	-> terminal audit update.
//
// The audit row is written exactly once per logical request, not once per
// provider attempt. Two near-simultaneous requests with the same
// correlation id can both pass the guard and both deliver; that window is
// accepted for notifications, and the partial unique index on
// (correlation_id) WHERE status = 'DELIVERED' keeps the log consistent.
type Dispatcher struct {
	deliveries repository.DeliveryRepository
	chain      *ChainExecutor
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// Result is the outcome surfaced to the caller.
type Result struct {
	DeliveryID string
	Delivered  bool
	Provider   string
	MessageID  string
	Detail     string

	// Idempotent is true when the result was served from the delivery log
	// without contacting any provider.
	Idempotent bool
}

func NewDispatcher(
	deliveries repository.DeliveryRepository,
	chain *ChainExecutor,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if deliveries == nil {
		return nil, fmt.Errorf("delivery repository is required")
	}
	if chain == nil {
		return nil, fmt.Errorf("chain executor is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		deliveries: deliveries,
		chain:      chain,
		logger:     logger,
		now:        time.Now,
	}, nil
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
	d.chain.SetMetrics(metrics)
}

func (d *Dispatcher) Dispatch(ctx context.Context, req domain.DispatchRequest) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	callerCorrelated := normalizeRequest(&req)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	logger := d.logger.With(
		zap.String("correlationId", req.CorrelationID),
		zap.String("category", req.Category.String()),
	)

	// Idempotency guard: a generated correlation id can never have a prior
	// delivery, so the lookup only runs for caller-supplied ids.
	if callerCorrelated {
		cached, err := d.deliveries.FindDeliveredByCorrelationID(ctx, req.CorrelationID)
		if err == nil {
			logger.Info("dispatch served from delivery log", zap.String("deliveryId", cached.ID))
			if d.metrics != nil {
				d.metrics.IncIdempotentHit(req.Category.String())
			}
			return cachedResult(cached), nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("idempotency lookup failed: %w", err)
		}
	}

	attempt := &domain.DeliveryAttempt{
		ID:            uuid.NewString(),
		Recipient:     req.Recipient,
		Subject:       req.Subject,
		Category:      req.Category,
		Status:        domain.StatusPending,
		CorrelationID: req.CorrelationID,
		CreatedAt:     d.now().UTC(),
	}
	if err := d.deliveries.Create(ctx, attempt); err != nil {
		// No audit record means no idempotency guarantee; abort before any
		// provider is contacted.
		return nil, fmt.Errorf("%w: %v", domain.ErrAuditWrite, err)
	}

	chainResult, chainErr := d.chain.Execute(ctx, req)

	// The terminal audit write is part of correctness, not reporting: it
	// must land even when the caller hung up mid-dispatch.
	logCtx := context.WithoutCancel(ctx)

	if chainErr == nil {
		deliveredAt := d.now().UTC()
		if err := d.deliveries.MarkDelivered(logCtx, attempt.ID, chainResult.Provider, chainResult.MessageID, chainResult.Attempts, deliveredAt); err != nil {
			// Never reverse a successful send over a log write failure.
			logger.Error("failed to record delivered state",
				zap.String("deliveryId", attempt.ID),
				zap.String("provider", chainResult.Provider),
				zap.Error(err),
			)
		}
		if d.metrics != nil {
			d.metrics.IncDispatchDelivered(req.Category.String(), chainResult.Provider)
		}
		logger.Info("notification delivered",
			zap.String("deliveryId", attempt.ID),
			zap.String("provider", chainResult.Provider),
			zap.Int("attempts", chainResult.Attempts),
		)

		return &Result{
			DeliveryID: attempt.ID,
			Delivered:  true,
			Provider:   chainResult.Provider,
			MessageID:  chainResult.MessageID,
		}, nil
	}

	detail := chainResult.Detail
	if err := d.deliveries.MarkFailed(logCtx, attempt.ID, detail, chainResult.Attempts); err != nil {
		logger.Error("failed to record failed state",
			zap.String("deliveryId", attempt.ID),
			zap.Error(err),
		)
	}
	if d.metrics != nil {
		d.metrics.IncDispatchFailed(req.Category.String(), failureReason(chainErr))
	}
	logger.Warn("notification failed",
		zap.String("deliveryId", attempt.ID),
		zap.Int("attempts", chainResult.Attempts),
		zap.String("detail", detail),
	)

	result := &Result{
		DeliveryID: attempt.ID,
		Detail:     detail,
	}
	if errors.Is(chainErr, domain.ErrProvidersExhausted) {
		return result, chainErr
	}
	return result, fmt.Errorf("dispatch aborted: %w", chainErr)
}

// normalizeRequest trims fields and defaults the correlation id. It reports
// whether the correlation id came from the caller.
func normalizeRequest(req *domain.DispatchRequest) bool {
	req.Recipient = strings.TrimSpace(req.Recipient)
	req.Subject = strings.TrimSpace(req.Subject)
	req.HTMLContent = strings.TrimSpace(req.HTMLContent)
	req.TextContent = strings.TrimSpace(req.TextContent)
	req.CorrelationID = strings.TrimSpace(req.CorrelationID)

	if req.CorrelationID != "" {
		return true
	}
	req.CorrelationID = uuid.NewString()
	return false
}

func cachedResult(cached *domain.DeliveryAttempt) *Result {
	result := &Result{
		DeliveryID: cached.ID,
		Delivered:  true,
		Idempotent: true,
	}
	if cached.Provider != nil {
		result.Provider = *cached.Provider
	}
	if cached.ProviderMessageID != nil {
		result.MessageID = *cached.ProviderMessageID
	}
	return result
}

func failureReason(err error) string {
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "providers_exhausted"
}
