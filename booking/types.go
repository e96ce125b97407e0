/*
Package booking validates, resolves and commits reservations of shared
instruments against time.

PURPOSE:
  This file defines the vocabulary shared by every part of the engine:
  who books (subjects, actors, roles), what gets booked (resources), the
  half-open time window being reserved, and the committed Entry record.

KEY CONCEPTS:
  - UserID/ResourceID/EntryID: string-typed identifiers. Typed IDs keep
    call sites honest without pulling in an identity layer.
  - Role: ordered privilege levels compared with plain >=, so a policy
    can say "staff or better" with no lookup machinery behind it.
  - Window: half-open [Start, End). Two windows that only share a
    boundary do not overlap.
  - Entry: a committed reservation. The derived fields (ShiftCount,
    Charge, Policy, Comment) are produced by the engine, never set by
    callers.
  - UserListEntry: one roster row per (resource, user), carrying the
    user's role and the two hold flags.

SEE ALSO:
  - policy.go: the rules evaluated against these types
  - engine.go: the pipeline that produces Entries
*/
package booking

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type (
	// UserID identifies a person, as booking subject or actor.
	UserID string

	// ResourceID identifies one bookable instrument.
	ResourceID string

	// EntryID identifies a committed booking entry.
	EntryID string
)

// SystemActor is the identity for bookings made by the system itself.
// It skips the eligibility gate and carries override authority.
const SystemActor UserID = "system"

// =============================================================================
// ROLES
// =============================================================================

// Role is an ordered privilege level. A higher role may do everything a
// lower one may.
type Role int

const (
	// RoleNone is the level of a user absent from a resource's user list.
	RoleNone Role = iota
	RoleUser
	RoleStaff
	RoleAdmin
)

// Overrides reports whether the role carries privileged override
// authority. Override actors bypass policy constraints; they are still
// subject to conflict detection.
func (r Role) Overrides() bool { return r >= RoleAdmin }

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleStaff:
		return "staff"
	case RoleAdmin:
		return "admin"
	default:
		return "none"
	}
}

// =============================================================================
// TIME WINDOWS
// =============================================================================

// Window is a half-open time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open windows intersect. Windows
// that only touch at a boundary do not overlap.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// Duration returns End minus Start.
func (w Window) Duration() time.Duration { return w.End.Sub(w.Start) }

// Contains reports whether other lies entirely within w.
func (w Window) Contains(other Window) bool {
	return !other.Start.Before(w.Start) && !other.End.After(w.End)
}

// IsValid reports whether the window is non-degenerate.
func (w Window) IsValid() bool {
	return !w.Start.IsZero() && !w.End.IsZero() && w.Start.Before(w.End)
}

// In returns the window with both endpoints expressed in loc.
func (w Window) In(loc *time.Location) Window {
	return Window{Start: w.Start.In(loc), End: w.End.In(loc)}
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}

// =============================================================================
// ROSTER
// =============================================================================

// UserListEntry is one row of a resource's user list. Users not on the
// list are fully held and hold no role.
type UserListEntry struct {
	Resource ResourceID
	User     UserID
	Role     Role

	// UserHold blocks booking until the user completes required
	// actions; the user can clear it themselves.
	UserHold bool

	// AdminHold blocks booking until an administrator clears it.
	AdminHold bool
}

// Held reports whether any hold blocks this user.
func (u UserListEntry) Held() bool { return u.UserHold || u.AdminHold }

// =============================================================================
// ENTRIES AND RESOURCES
// =============================================================================

// Entry is a committed reservation of resource time.
type Entry struct {
	ID       EntryID
	Resource ResourceID
	Subject  UserID // who the time is reserved for
	Actor    UserID // who performed the booking
	Window   Window

	// ShiftCount is the weighted number of shifts the window spans,
	// zero for resources without a shift schedule.
	ShiftCount float64

	// Charge is ShiftCount times the per-shift rate for the subject.
	Charge decimal.Decimal

	// Policy names the rule that admitted the booking, empty when the
	// booking was admitted by override authority alone.
	Policy string

	Comment   string
	CreatedAt time.Time
}

// Resource bundles the configuration the engine needs for one
// instrument: its ordered policy list and its shift schedule. Both are
// plain values supplied by the caller; the engine never fetches them.
type Resource struct {
	ID   ResourceID
	Name string

	// Policies are evaluated in order; the first that applies and
	// permits wins.
	Policies []Policy

	// Shifts may be empty for resources booked purely by quantum.
	Shifts ShiftSchedule
}
