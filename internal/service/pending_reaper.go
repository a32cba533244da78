package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcecodeals/market-nexus-dispatch/internal/observability"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultReapInterval  = time.Minute
	defaultPendingMaxAge = 15 * time.Minute

	abandonedDetail = "abandoned: no terminal outcome recorded"
)

// PendingReaper periodically fails delivery rows stuck in PENDING, which
// happens when the process dies between the audit insert and the terminal
// update. Rows are marked FAILED, never deleted.
type PendingReaper struct {
	deliveries repository.DeliveryRepository
	logger     *zap.Logger
	metrics    *observability.Metrics
	interval   time.Duration
	maxAge     time.Duration
	now        func() time.Time
}

func NewPendingReaper(
	deliveries repository.DeliveryRepository,
	interval time.Duration,
	maxAge time.Duration,
	logger *zap.Logger,
) (*PendingReaper, error) {
	if deliveries == nil {
		return nil, fmt.Errorf("delivery repository is required")
	}
	if interval <= 0 {
		interval = defaultReapInterval
	}
	if maxAge <= 0 {
		maxAge = defaultPendingMaxAge
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PendingReaper{
		deliveries: deliveries,
		logger:     logger,
		interval:   interval,
		maxAge:     maxAge,
		now:        time.Now,
	}, nil
}

func (r *PendingReaper) SetMetrics(metrics *observability.Metrics) {
	if r == nil {
		return
	}
	r.metrics = metrics
}

func (r *PendingReaper) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Run an initial sweep so rows stranded before a restart do not wait
	// for the first ticker edge.
	if err := r.sweep(ctx); err != nil && ctx.Err() == nil {
		r.logger.Error("pending reaper initial sweep failed", zap.Error(err))
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.sweep(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				r.logger.Error("pending reaper sweep failed", zap.Error(err))
			}
		}
	}
}

func (r *PendingReaper) sweep(ctx context.Context) error {
	cutoff := r.now().UTC().Add(-r.maxAge)

	count, err := r.deliveries.MarkAbandonedBefore(ctx, cutoff, abandonedDetail)
	if err != nil {
		return fmt.Errorf("failed to mark abandoned deliveries: %w", err)
	}

	if count > 0 {
		r.metrics.AddAbandonedDeliveries(count)
		r.logger.Warn("marked abandoned deliveries failed",
			zap.Int64("count", count),
			zap.Time("cutoff", cutoff),
		)
	}

	return nil
}
