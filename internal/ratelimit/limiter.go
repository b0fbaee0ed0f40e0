package ratelimit

import (
	"context"
	"time"
)

// Limiter counts calls per (identifier, action) inside a window and reports
// whether one more call is allowed.
type Limiter interface {
	CheckRateLimit(ctx context.Context, identifier, action string, limit int, window time.Duration) (bool, error)
}
