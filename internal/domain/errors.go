package domain

import "errors"

var (
	// ErrValidation marks malformed or incomplete caller input.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a missing entity lookup.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a write rejected by the current entity state,
	// e.g. a second terminal transition on a delivery attempt.
	ErrConflict = errors.New("conflict")

	// ErrAuditWrite marks a failure to persist the pending audit row.
	// Dispatch aborts before any provider is contacted because the
	// idempotency guarantee depends on that record existing.
	ErrAuditWrite = errors.New("audit write failed")

	// ErrProvidersExhausted marks a dispatch where every provider in the
	// chain was skipped or exhausted its retries without a 2xx response.
	ErrProvidersExhausted = errors.New("all providers exhausted")
)
