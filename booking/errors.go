/*
errors.go - The rejection taxonomy

PURPOSE:
  Every way a booking can be refused is a distinct, classifiable error.
  The taxonomy is closed: callers branch on kind with errors.Is or pull
  detail with errors.As. Nothing here is transient and nothing is
  retried by the engine.

KINDS:
  1. Hold errors - the subject is blocked before policies are consulted
  2. Policy errors - no rule admits the booking
  3. Conflict errors - the window collides with a committed entry
  4. Input errors - degenerate windows, unknown ids

USAGE:
  The HTTP layer maps kinds to status codes:

    if errors.Is(err, booking.ErrOverlap) {
        // 409
    }

SEE ALSO:
  - resolve.go: produces hold and policy errors
  - engine.go: produces conflict and input errors
*/
package booking

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUserHeld is returned when the subject's self-clearable hold is
	// active and holds are not being ignored.
	ErrUserHeld = errors.New("subject has an active user hold")

	// ErrAdminHeld is returned when the subject's administrative hold is
	// active, or the subject is not on the resource's user list at all.
	ErrAdminHeld = errors.New("subject has an active administrative hold")

	// ErrPolicyDoesNotApply marks one policy's constraint failure. The
	// resolver consumes it to move to the next policy; callers only see
	// it wrapped inside a PolicyNotFoundError.
	ErrPolicyDoesNotApply = errors.New("policy does not apply")

	// ErrPolicyNotFound is returned when no policy in the resource's
	// list both applies and permits, and the actor lacks override
	// authority.
	ErrPolicyNotFound = errors.New("no policy permits this booking")

	// ErrOverlap is returned when the window intersects a committed
	// entry on the same resource.
	ErrOverlap = errors.New("window overlaps a committed booking")

	// ErrInvalidWindow is returned for windows that are empty or
	// inverted after normalisation.
	ErrInvalidWindow = errors.New("booking window is empty or inverted")

	// ErrEntryNotFound is returned when a referenced entry doesn't exist.
	ErrEntryNotFound = errors.New("booking entry not found")

	// ErrUnknownResource is returned when the engine has no
	// configuration for the referenced resource.
	ErrUnknownResource = errors.New("unknown resource")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// HoldError reports which hold blocked the subject.
type HoldError struct {
	Resource ResourceID
	Subject  UserID
	Admin    bool // true for an administrative hold
}

func (e *HoldError) Error() string {
	if e.Admin {
		return fmt.Sprintf("subject %s is held on %s by an administrator", e.Subject, e.Resource)
	}
	return fmt.Sprintf("subject %s is held on %s pending required actions", e.Subject, e.Resource)
}

func (e *HoldError) Unwrap() error {
	if e.Admin {
		return ErrAdminHeld
	}
	return ErrUserHeld
}

// PolicyDoesNotApplyError names the constraint that failed for one
// policy.
type PolicyDoesNotApplyError struct {
	Policy string
	Reason string
}

func (e *PolicyDoesNotApplyError) Error() string {
	return fmt.Sprintf("policy %q does not apply: %s", e.Policy, e.Reason)
}

func (e *PolicyDoesNotApplyError) Unwrap() error {
	return ErrPolicyDoesNotApply
}

// PolicyNotFoundError is the terminal rejection when no policy admits
// the booking. Cause holds the failure of the first policy that
// applied, when there was one; its reason is the most specific message
// available to show a caller.
type PolicyNotFoundError struct {
	Resource ResourceID
	Cause    *PolicyDoesNotApplyError
}

func (e *PolicyNotFoundError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("no policy permits this booking on %s: %s", e.Resource, e.Cause.Error())
	}
	return fmt.Sprintf("no policy permits this booking on %s", e.Resource)
}

func (e *PolicyNotFoundError) Unwrap() error {
	return ErrPolicyNotFound
}

// OverlapError identifies the committed entry colliding with the
// candidate window.
type OverlapError struct {
	Resource       ResourceID
	Requested      Window
	Existing       EntryID
	ExistingWindow Window
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("window %s on %s overlaps entry %s at %s",
		e.Requested, e.Resource, e.Existing, e.ExistingWindow)
}

func (e *OverlapError) Unwrap() error {
	return ErrOverlap
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRejection returns true if the error is one of the engine's terminal
// rejection kinds, as opposed to an infrastructure failure.
func IsRejection(err error) bool {
	return errors.Is(err, ErrUserHeld) ||
		errors.Is(err, ErrAdminHeld) ||
		errors.Is(err, ErrPolicyNotFound) ||
		errors.Is(err, ErrOverlap) ||
		errors.Is(err, ErrInvalidWindow)
}

// IsHold returns true if the error is a hold on the subject.
func IsHold(err error) bool {
	return errors.Is(err, ErrUserHeld) || errors.Is(err, ErrAdminHeld)
}

// IsNotFound returns true if the error indicates a missing entry or
// resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntryNotFound) || errors.Is(err, ErrUnknownResource)
}
