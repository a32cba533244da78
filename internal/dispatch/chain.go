package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sourcecodeals/market-nexus-dispatch/internal/domain"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/observability"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/provider"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/retry"
	"go.uber.org/zap"
)

// ChainExecutor walks an ordered provider list and stops at the first 2xx.
// Each configured provider gets up to the retry ceiling of attempts with
// capped exponential backoff before the chain escalates to the next one.
// Providers are strictly sequential; there is no parallel fan-out.
type ChainExecutor struct {
	providers []provider.Provider
	policy    retry.Policy
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

// ChainResult reports how a chain run ended. On failure Provider and
// MessageID are empty and Detail aggregates the per-provider outcomes.
type ChainResult struct {
	Provider   string
	MessageID  string
	StatusCode int
	Attempts   int
	Detail     string
}

func NewChainExecutor(providers []provider.Provider, policy retry.Policy, logger *zap.Logger) (*ChainExecutor, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one provider is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ChainExecutor{
		providers: providers,
		policy:    policy,
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (e *ChainExecutor) SetMetrics(metrics *observability.Metrics) {
	if e == nil {
		return
	}
	e.metrics = metrics
}

// Execute never sends again after a provider success and never blocks
// longer than providers x ceiling x (timeout + max backoff). The returned
// ChainResult is non-nil even on failure so the caller can audit attempt
// counts and detail.
func (e *ChainExecutor) Execute(ctx context.Context, req domain.DispatchRequest) (*ChainResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	totalAttempts := 0
	notes := make([]string, 0, len(e.providers))

	for _, p := range e.providers {
		if !p.Configured() {
			// Missing credential skips the provider, it does not fail the chain.
			notes = append(notes, fmt.Sprintf("%s: skipped, credential not configured", p.Name()))
			e.logger.Debug("provider skipped", zap.String("provider", p.Name()))
			continue
		}

		var sendResult *provider.SendResult
		err := retry.Do(ctx, e.policy, provider.IsRetryable, func(ctx context.Context, attempt int) error {
			totalAttempts++

			start := e.now()
			result, sendErr := p.Send(ctx, req)
			if e.metrics != nil {
				e.metrics.ObserveProviderSendDuration(p.Name(), e.now().Sub(start))
			}

			if sendErr != nil {
				if e.metrics != nil {
					e.metrics.IncProviderAttempt(p.Name(), "failure")
				}
				e.logger.Warn("provider attempt failed",
					zap.String("provider", p.Name()),
					zap.Int("attempt", attempt),
					zap.Bool("transient", provider.IsTransient(sendErr)),
					zap.Error(sendErr),
				)
				return sendErr
			}

			if e.metrics != nil {
				e.metrics.IncProviderAttempt(p.Name(), "success")
			}
			sendResult = result
			return nil
		})

		if err == nil {
			return &ChainResult{
				Provider:   p.Name(),
				MessageID:  sendResult.MessageID,
				StatusCode: sendResult.StatusCode,
				Attempts:   totalAttempts,
			}, nil
		}

		notes = append(notes, fmt.Sprintf("%s: %v", p.Name(), err))

		if errors.Is(err, context.Canceled) {
			return &ChainResult{
				Attempts: totalAttempts,
				Detail:   joinNotes(notes),
			}, err
		}
	}

	detail := joinNotes(notes)
	if totalAttempts == 0 {
		detail = "no provider attempted successfully: " + detail
	}

	return &ChainResult{
		Attempts: totalAttempts,
		Detail:   detail,
	}, fmt.Errorf("%w: %s", domain.ErrProvidersExhausted, detail)
}

func joinNotes(notes []string) string {
	if len(notes) == 0 {
		return "no providers configured"
	}
	return strings.Join(notes, "; ")
}
