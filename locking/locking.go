/*
Package locking provides per-key mutual exclusion.

PURPOSE:
  The booking engine serialises its conflict-check-then-commit section
  per resource. The Locker interface abstracts how that exclusion is
  provided: in-process mutexes on a single node, Redis locks when
  several processes share one store.

SEE ALSO:
  - memory.go: the in-process implementation
  - redis.go: the distributed implementation
*/
package locking

import (
	"context"
	"errors"
	"time"
)

// ErrNotHeld is returned when releasing a lock that is no longer held.
var ErrNotHeld = errors.New("lock not held")

// A Lock is a held exclusive claim on one key.
type Lock interface {
	// Key the lock was acquired for.
	Key() string

	// Release gives the claim up. Releasing twice fails with
	// ErrNotHeld.
	Release(ctx context.Context) error
}

// A Locker hands out exclusive locks by key.
type Locker interface {
	// Acquire blocks until the key's lock is available or ctx is done.
	// ttl bounds the hold time on backends that support expiry.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}
