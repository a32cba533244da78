package ratelimit

import "context"

// RateLimiter enforces a per-second budget for a named outbound API bucket.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Wait(ctx context.Context, key string) error
}
