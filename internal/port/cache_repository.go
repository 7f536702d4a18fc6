package port

import (
	"context"
	"errors"
	"time"
)

var ErrLockTimeout = errors.New("item lock wait timed out")

type ItemLocker interface {
	// Lock blocks until the item's lock is held or the wait gives up. The
	// returned func releases the lock.
	Lock(ctx context.Context, itemID string) (func(), error)
}

type IdempotencyStore interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)
	// DeleteIdempotency releases a key whose operation did not complete
	DeleteIdempotency(ctx context.Context, key string) error
}

type RateLimiter interface {
	// Allow records one hit for key and reports whether it fits in the window
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
