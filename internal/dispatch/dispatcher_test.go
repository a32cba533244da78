package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sourcecodeals/market-nexus-dispatch/internal/domain"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/provider"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/repository"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/retry"
)

// testPolicy keeps backoff in the microsecond range so retry loops finish
// instantly while preserving the 3-attempt ceiling.
func testPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, BaseDelay: time.Microsecond, MaxDelay: 4 * time.Microsecond}
}

type fakeProvider struct {
	mu         sync.Mutex
	name       string
	configured bool
	sendFn     func(ctx context.Context, req domain.DispatchRequest, call int) (*provider.SendResult, error)
	calls      int
}

func (p *fakeProvider) Name() string     { return p.name }
func (p *fakeProvider) Configured() bool { return p.configured }

func (p *fakeProvider) Send(ctx context.Context, req domain.DispatchRequest) (*provider.SendResult, error) {
	p.mu.Lock()
	p.calls++
	call := p.calls
	p.mu.Unlock()
	return p.sendFn(ctx, req, call)
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func alwaysFailing(name string) *fakeProvider {
	return &fakeProvider{
		name:       name,
		configured: true,
		sendFn: func(ctx context.Context, req domain.DispatchRequest, call int) (*provider.SendResult, error) {
			return nil, &provider.Error{Provider: name, Message: "request timed out", Transient: true}
		},
	}
}

func alwaysSucceeding(name string, messageID string) *fakeProvider {
	return &fakeProvider{
		name:       name,
		configured: true,
		sendFn: func(ctx context.Context, req domain.DispatchRequest, call int) (*provider.SendResult, error) {
			return &provider.SendResult{StatusCode: 200, MessageID: messageID}, nil
		},
	}
}

type fakeDeliveryRepo struct {
	createFn          func(ctx context.Context, a *domain.DeliveryAttempt) error
	findDeliveredFn   func(ctx context.Context, correlationID string) (*domain.DeliveryAttempt, error)
	markDeliveredFn   func(ctx context.Context, id, providerName, messageID string, attempts int, at time.Time) error
	markFailedFn      func(ctx context.Context, id, detail string, attempts int) error
	createCalls       int
	markDeliveredArgs []string
	markFailedDetail  string
}

func (r *fakeDeliveryRepo) Create(ctx context.Context, a *domain.DeliveryAttempt) error {
	r.createCalls++
	if r.createFn != nil {
		return r.createFn(ctx, a)
	}
	return nil
}

func (r *fakeDeliveryRepo) GetByID(ctx context.Context, id string) (*domain.DeliveryAttempt, error) {
	return nil, domain.ErrNotFound
}

func (r *fakeDeliveryRepo) FindDeliveredByCorrelationID(ctx context.Context, correlationID string) (*domain.DeliveryAttempt, error) {
	if r.findDeliveredFn != nil {
		return r.findDeliveredFn(ctx, correlationID)
	}
	return nil, domain.ErrNotFound
}

func (r *fakeDeliveryRepo) List(ctx context.Context, params repository.ListParams) ([]domain.DeliveryAttempt, int64, error) {
	return nil, 0, nil
}

func (r *fakeDeliveryRepo) MarkDelivered(ctx context.Context, id, providerName, messageID string, attempts int, at time.Time) error {
	r.markDeliveredArgs = []string{id, providerName, messageID}
	if r.markDeliveredFn != nil {
		return r.markDeliveredFn(ctx, id, providerName, messageID, attempts, at)
	}
	return nil
}

func (r *fakeDeliveryRepo) MarkFailed(ctx context.Context, id, detail string, attempts int) error {
	r.markFailedDetail = detail
	if r.markFailedFn != nil {
		return r.markFailedFn(ctx, id, detail, attempts)
	}
	return nil
}

func (r *fakeDeliveryRepo) MarkAbandonedBefore(ctx context.Context, cutoff time.Time, detail string) (int64, error) {
	return 0, nil
}

func newTestDispatcher(t *testing.T, repo repository.DeliveryRepository, providers ...provider.Provider) *Dispatcher {
	t.Helper()

	chain, err := NewChainExecutor(providers, testPolicy(), nil)
	if err != nil {
		t.Fatalf("NewChainExecutor() error = %v", err)
	}

	d, err := NewDispatcher(repo, chain, nil)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}
	return d
}

func dispatchRequest() domain.DispatchRequest {
	return domain.DispatchRequest{
		Recipient:     "a@b.com",
		Subject:       "Test",
		TextContent:   "Hello",
		Category:      domain.CategoryWelcome,
		CorrelationID: "corr-1",
	}
}

func TestDispatchWritesExactlyOnePendingRow(t *testing.T) {
	t.Parallel()

	var created *domain.DeliveryAttempt
	repo := &fakeDeliveryRepo{
		createFn: func(ctx context.Context, a *domain.DeliveryAttempt) error {
			created = a
			return nil
		},
	}

	failing := alwaysFailing("resend")
	succeeding := alwaysSucceeding("sendgrid", "sg-1")
	d := newTestDispatcher(t, repo, failing, succeeding)

	result, err := d.Dispatch(context.Background(), dispatchRequest())
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	// One audit row per logical request, not per provider attempt.
	if repo.createCalls != 1 {
		t.Fatalf("create calls = %d, want 1", repo.createCalls)
	}
	if created.Status != domain.StatusPending {
		t.Fatalf("initial status = %s, want PENDING", created.Status)
	}
	if created.CorrelationID != "corr-1" {
		t.Fatalf("correlation id = %q, want corr-1", created.CorrelationID)
	}
	if !result.Delivered {
		t.Fatal("expected delivered result")
	}
}

func TestDispatchProviderFallbackExhaustsRetriesThenEscalates(t *testing.T) {
	t.Parallel()

	repo := &fakeDeliveryRepo{}
	failing := alwaysFailing("resend")
	succeeding := alwaysSucceeding("sendgrid", "sg-1")
	untouched := alwaysSucceeding("smtp", "smtp-1")

	d := newTestDispatcher(t, repo, failing, succeeding, untouched)

	result, err := d.Dispatch(context.Background(), dispatchRequest())
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	// M failing providers contribute M x retryCeiling attempts, then the
	// first success stops the chain immediately.
	if failing.callCount() != 3 {
		t.Fatalf("failing provider calls = %d, want retry ceiling of 3", failing.callCount())
	}
	if succeeding.callCount() != 1 {
		t.Fatalf("succeeding provider calls = %d, want 1", succeeding.callCount())
	}
	if untouched.callCount() != 0 {
		t.Fatalf("later provider calls = %d, want 0 after success", untouched.callCount())
	}
	if result.Provider != "sendgrid" || result.MessageID != "sg-1" {
		t.Fatalf("result = %+v, want sendgrid/sg-1", result)
	}
	if len(repo.markDeliveredArgs) == 0 || repo.markDeliveredArgs[1] != "sendgrid" {
		t.Fatalf("MarkDelivered args = %v, want sendgrid", repo.markDeliveredArgs)
	}
}

func TestDispatchFailOnceThenSucceed(t *testing.T) {
	t.Parallel()

	repo := &fakeDeliveryRepo{}
	flaky := &fakeProvider{
		name:       "resend",
		configured: true,
		sendFn: func(ctx context.Context, req domain.DispatchRequest, call int) (*provider.SendResult, error) {
			if call == 1 {
				return nil, &provider.Error{Provider: "resend", StatusCode: 503, Message: "returned status 503", Transient: true}
			}
			return &provider.SendResult{StatusCode: 200, MessageID: "re-42"}, nil
		},
	}
	fallback := alwaysSucceeding("sendgrid", "sg-never")

	d := newTestDispatcher(t, repo, flaky, fallback)

	result, err := d.Dispatch(context.Background(), dispatchRequest())
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if flaky.callCount() != 2 {
		t.Fatalf("provider A calls = %d, want 2", flaky.callCount())
	}
	if fallback.callCount() != 0 {
		t.Fatalf("provider B calls = %d, want 0", fallback.callCount())
	}
	if !result.Delivered || result.MessageID != "re-42" {
		t.Fatalf("result = %+v, want delivered with re-42", result)
	}
}

func TestDispatchIdempotentReplayServesCachedResult(t *testing.T) {
	t.Parallel()

	providerName := "resend"
	messageID := "re-original"
	repo := &fakeDeliveryRepo{
		findDeliveredFn: func(ctx context.Context, correlationID string) (*domain.DeliveryAttempt, error) {
			if correlationID != "corr-1" {
				t.Fatalf("lookup correlation id = %q, want corr-1", correlationID)
			}
			deliveredAt := time.Now().UTC()
			return &domain.DeliveryAttempt{
				ID:                "existing-delivery",
				Status:            domain.StatusDelivered,
				CorrelationID:     correlationID,
				Provider:          &providerName,
				ProviderMessageID: &messageID,
				DeliveredAt:       &deliveredAt,
			}, nil
		},
	}

	p := alwaysSucceeding("resend", "re-should-not-send")
	d := newTestDispatcher(t, repo, p)

	result, err := d.Dispatch(context.Background(), dispatchRequest())
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if p.callCount() != 0 {
		t.Fatalf("provider calls = %d, want 0 on idempotent replay", p.callCount())
	}
	if repo.createCalls != 0 {
		t.Fatalf("create calls = %d, want 0 on idempotent replay", repo.createCalls)
	}
	if !result.Idempotent || !result.Delivered {
		t.Fatalf("result = %+v, want idempotent delivered", result)
	}
	if result.MessageID != "re-original" {
		t.Fatalf("MessageID = %q, want cached re-original", result.MessageID)
	}
}

func TestDispatchGeneratedCorrelationIDSkipsGuard(t *testing.T) {
	t.Parallel()

	lookups := 0
	repo := &fakeDeliveryRepo{
		findDeliveredFn: func(ctx context.Context, correlationID string) (*domain.DeliveryAttempt, error) {
			lookups++
			return nil, domain.ErrNotFound
		},
	}

	d := newTestDispatcher(t, repo, alwaysSucceeding("resend", "re-1"))

	req := dispatchRequest()
	req.CorrelationID = ""
	if _, err := d.Dispatch(context.Background(), req); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if lookups != 0 {
		t.Fatalf("guard lookups = %d, want 0 for generated correlation id", lookups)
	}
}

func TestDispatchZeroConfiguredProvidersFails(t *testing.T) {
	t.Parallel()

	repo := &fakeDeliveryRepo{}
	unconfiguredA := &fakeProvider{name: "resend"}
	unconfiguredB := &fakeProvider{name: "sendgrid"}

	d := newTestDispatcher(t, repo, unconfiguredA, unconfiguredB)

	result, err := d.Dispatch(context.Background(), dispatchRequest())
	if !errors.Is(err, domain.ErrProvidersExhausted) {
		t.Fatalf("Dispatch() error = %v, want ErrProvidersExhausted", err)
	}

	if !strings.Contains(result.Detail, "no provider attempted successfully") {
		t.Fatalf("detail = %q, want mention of no provider attempted", result.Detail)
	}
	if !strings.Contains(repo.markFailedDetail, "credential not configured") {
		t.Fatalf("failed detail = %q, want skip notes", repo.markFailedDetail)
	}
	if repo.createCalls != 1 {
		t.Fatalf("create calls = %d, want 1 (row still transitions to FAILED)", repo.createCalls)
	}
}

func TestDispatchAllProvidersExhaustedMarksFailed(t *testing.T) {
	t.Parallel()

	markedFailed := false
	repo := &fakeDeliveryRepo{
		markFailedFn: func(ctx context.Context, id, detail string, attempts int) error {
			markedFailed = true
			if attempts != 6 {
				t.Fatalf("attempts = %d, want 6 (2 providers x ceiling 3)", attempts)
			}
			return nil
		},
	}

	a := alwaysFailing("resend")
	b := alwaysFailing("sendgrid")
	d := newTestDispatcher(t, repo, a, b)

	_, err := d.Dispatch(context.Background(), dispatchRequest())
	if !errors.Is(err, domain.ErrProvidersExhausted) {
		t.Fatalf("Dispatch() error = %v, want ErrProvidersExhausted", err)
	}

	if a.callCount() != 3 || b.callCount() != 3 {
		t.Fatalf("calls = %d/%d, want 3/3", a.callCount(), b.callCount())
	}
	if !markedFailed {
		t.Fatal("row should transition to FAILED after exhaustion")
	}
}

func TestDispatchAuditWriteFailureAbortsBeforeProviders(t *testing.T) {
	t.Parallel()

	repo := &fakeDeliveryRepo{
		createFn: func(ctx context.Context, a *domain.DeliveryAttempt) error {
			return errors.New("connection reset")
		},
	}

	p := alwaysSucceeding("resend", "re-1")
	d := newTestDispatcher(t, repo, p)

	_, err := d.Dispatch(context.Background(), dispatchRequest())
	if !errors.Is(err, domain.ErrAuditWrite) {
		t.Fatalf("Dispatch() error = %v, want ErrAuditWrite", err)
	}
	if p.callCount() != 0 {
		t.Fatalf("provider calls = %d, want 0 when audit row cannot be written", p.callCount())
	}
}

func TestDispatchTerminalWriteFailureDoesNotReverseDelivery(t *testing.T) {
	t.Parallel()

	repo := &fakeDeliveryRepo{
		markDeliveredFn: func(ctx context.Context, id, providerName, messageID string, attempts int, at time.Time) error {
			return errors.New("connection reset")
		},
	}

	d := newTestDispatcher(t, repo, alwaysSucceeding("resend", "re-1"))

	result, err := d.Dispatch(context.Background(), dispatchRequest())
	if err != nil {
		t.Fatalf("Dispatch() error = %v, success must not be reversed by a log failure", err)
	}
	if !result.Delivered || result.MessageID != "re-1" {
		t.Fatalf("result = %+v, want delivered re-1", result)
	}
}

func TestDispatchValidationErrorWritesNothing(t *testing.T) {
	t.Parallel()

	repo := &fakeDeliveryRepo{}
	p := alwaysSucceeding("resend", "re-1")
	d := newTestDispatcher(t, repo, p)

	req := dispatchRequest()
	req.Recipient = "  "

	_, err := d.Dispatch(context.Background(), req)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Dispatch() error = %v, want ErrValidation", err)
	}
	if repo.createCalls != 0 {
		t.Fatalf("create calls = %d, want 0 for invalid input", repo.createCalls)
	}
	if p.callCount() != 0 {
		t.Fatalf("provider calls = %d, want 0 for invalid input", p.callCount())
	}
}
