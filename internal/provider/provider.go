package provider

import (
	"context"

	"github.com/sourcecodeals/market-nexus-dispatch/internal/domain"
)

// Provider is the outbound notification delivery port. One implementation
// exists per third-party service; the chain executor is provider-agnostic.
type Provider interface {
	// Name returns the provider identifier used in logs and the audit row.
	Name() string
	// Configured reports whether the provider's credential is present.
	// Unconfigured providers are skipped by the chain, not failed.
	Configured() bool
	Send(ctx context.Context, req domain.DispatchRequest) (*SendResult, error)
}

// SendResult stores provider call metadata for audit and persistence.
type SendResult struct {
	StatusCode int
	Body       string
	MessageID  string
}

// Identity is the sender identity stamped on every outbound message.
// Supplied from configuration at construction time; providers never read
// the environment themselves.
type Identity struct {
	SenderName    string
	SenderAddress string
	ReplyTo       string
}
