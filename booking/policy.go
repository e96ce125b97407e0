/*
policy.go - Booking policies

PURPOSE:
  A Policy is one rule in a resource's ordered rule list: who may book
  (by role), when (weekday mask and a daily time window), at what
  granularity (quantum or shift alignment), and within which limits
  (immutable window, maximum forward horizon, quota).

EVALUATION ORDER:
  Policies are evaluated in list order and the first one that both
  applies (role match) and permits (constraints hold after
  rationalisation) wins. Order encodes priority: specific rules go
  before general ones. A later, more permissive policy is never
  consulted once an earlier one admits the booking.

NULLABLE LIMITS:
  ImmutableWindow, MaxForward and Quota are pointers; nil means the
  policy does not impose that limit.
*/
package booking

import "time"

// Policy is a single booking rule.
type Policy struct {
	Name string

	// AppliesToRole is the minimum role the subject must hold for the
	// policy to apply at all.
	AppliesToRole Role

	// BookerRole is the minimum role the actor must hold when booking
	// on behalf of someone else.
	BookerRole Role

	// Weekdays enables booking per weekday, indexed by time.Weekday
	// (Sunday is 0).
	Weekdays [7]bool

	// WindowStart and WindowEnd bound the time-of-day a booking may
	// start at, both inclusive. WindowStart is also the zero point of
	// the quantisation grid.
	WindowStart ClockTime
	WindowEnd   ClockTime

	// Quantum is the granularity window boundaries are rounded to when
	// the policy does not align to shifts, and the fallback when shift
	// alignment finds no enclosing shift.
	Quantum time.Duration

	// ImmutableWindow rejects windows starting before now minus the
	// given duration. A negative value therefore acts as a minimum
	// advance notice.
	ImmutableWindow *time.Duration

	// MaxForward rejects windows ending after now plus the given
	// duration.
	MaxForward *time.Duration

	// Quota caps the subject's total future committed time on the
	// resource, the candidate included.
	Quota *time.Duration

	// UseShifts selects shift alignment over quantisation when the
	// resource's schedule covers both window endpoints.
	UseShifts bool
}

// AppliesTo reports whether the policy applies to a booking by actor
// for subject, given their roles on the resource. Booking for oneself
// needs only the subject's role; booking on behalf of someone else
// also needs the actor to meet BookerRole, unless the actor holds
// override authority.
func (p Policy) AppliesTo(subjectRole, actorRole Role, onBehalf bool) bool {
	if subjectRole < p.AppliesToRole {
		return false
	}
	if onBehalf && !actorRole.Overrides() && actorRole < p.BookerRole {
		return false
	}
	return true
}

// AllWeek is a weekday mask with every day enabled.
func AllWeek() [7]bool {
	return [7]bool{true, true, true, true, true, true, true}
}

// WeekdaysOf builds a weekday mask from the given days.
func WeekdaysOf(days ...time.Weekday) [7]bool {
	var mask [7]bool
	for _, d := range days {
		mask[d] = true
	}
	return mask
}
