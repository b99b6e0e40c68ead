package service

import (
	"context"
	"time"
)

const defaultStoreTimeout = 3 * time.Second

// storeContext bounds a single store round trip. A deadline hit surfaces as
// context.DeadlineExceeded and is reported to callers as ErrUnavailable.
func storeContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
