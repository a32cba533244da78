package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Error classifies a provider call failure. Transient marks failures that
// would plausibly succeed on a later attempt (timeouts, 429, 5xx); the
// distinction feeds log detail, while the chain retries every failure up
// to the ceiling regardless.
type Error struct {
	Provider   string
	StatusCode int
	Message    string
	Transient  bool
	Cause      error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	if e.Provider != "" {
		parts = append(parts, e.Provider)
	}
	parts = append(parts, "provider error")

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsTransient reports whether an error looks recoverable.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var providerErr *Error
	if errors.As(err, &providerErr) {
		return providerErr.Transient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

// IsRetryable reports whether a failed attempt should be tried again within
// the same provider's retry budget. Every failure is retried except caller
// cancellation, which ends the whole dispatch.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, context.Canceled)
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == 429 || (statusCode >= 500 && statusCode <= 599)
}

func httpErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("returned status %d", statusCode)
	body = strings.TrimSpace(body)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}
