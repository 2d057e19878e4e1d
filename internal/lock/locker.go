// internal/lock/locker.go
//
// Keyed mutual exclusion for per-channel game operations.
// Implementations:
//   - Local (local.go): in-process, one semaphore per key.
//   - Redis (redis.go): SET NX PX lease shared by every replica on the same Redis.
//
// Operations on different keys never wait on each other.

package lock

import (
	"context"
	"errors"
)

// ErrTimeout is returned when a lock could not be acquired before the context ended.
var ErrTimeout = errors.New("lock: acquire timed out")

// Locker serializes work per key.
type Locker interface {
	// Lock blocks until key is held or ctx is done. The returned unlock func
	// must be called exactly once.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// acquireErr maps a finished context to ErrTimeout while keeping the cause.
func acquireErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.Join(ErrTimeout, ctx.Err())
	}
	return ctx.Err()
}
