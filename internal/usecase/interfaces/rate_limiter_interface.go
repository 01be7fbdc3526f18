package interfaces

import "context"

// IRateLimiter throttles abuse-prone endpoints (pickup-code guessing). It is
// an injected service with an explicit lifecycle, never module-level state.
type IRateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
