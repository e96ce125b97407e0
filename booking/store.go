/*
store.go - Collaborator interfaces

PURPOSE:
  The engine owns no data. Committed entries, the per-resource user
  list and the charging rates live behind the interfaces here; the
  engine performs one read phase (conflict and quota queries) and one
  write (Commit) per booking.

IMPLEMENTATIONS:
  - booking/store: in-memory versions for tests and single-node use
  - store/sqlite: persistent versions

CONTRACTS:
  - Commit re-checks the no-overlap invariant and inserts atomically,
    so the invariant holds even for writers that skipped the engine's
    own conflict check.
  - Query results are copies; mutating them must not affect the store.
*/
package booking

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// EntryStore persists committed entries.
type EntryStore interface {
	// Commit verifies that the entry's window overlaps no committed
	// entry on the same resource and inserts it, atomically with
	// respect to other commits. A collision fails with an error
	// wrapping ErrOverlap.
	Commit(ctx context.Context, e Entry) error

	// Get fetches one entry; ErrEntryNotFound when absent.
	Get(ctx context.Context, id EntryID) (Entry, error)

	// Delete removes one entry; ErrEntryNotFound when absent.
	Delete(ctx context.Context, id EntryID) error

	// Overlapping lists committed entries on the resource whose windows
	// intersect w, skipping excluding when non-empty.
	Overlapping(ctx context.Context, resource ResourceID, w Window, excluding EntryID) ([]Entry, error)

	// FutureBySubject lists the subject's committed entries on the
	// resource that have not yet finished at the given instant.
	FutureBySubject(ctx context.Context, resource ResourceID, subject UserID, at time.Time) ([]Entry, error)

	// ByResource lists committed entries on the resource intersecting
	// w, ordered by window start.
	ByResource(ctx context.Context, resource ResourceID, w Window) ([]Entry, error)
}

// Roster looks up the per-resource user list.
type Roster interface {
	// Lookup returns the roster row for (resource, user). A user with
	// no row is fully held and holds no role.
	Lookup(ctx context.Context, resource ResourceID, user UserID) (UserListEntry, bool, error)
}

// RateTable prices shifts.
type RateTable interface {
	// Rate returns the per-shift rate for the subject on the resource.
	// Implementations may fall back to a resource-wide default; a zero
	// rate means the booking is free.
	Rate(ctx context.Context, resource ResourceID, subject UserID) (decimal.Decimal, error)
}
