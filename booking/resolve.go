/*
resolve.go - Eligibility gate and policy resolution

PURPOSE:
  Decides which rule admits a booking. The gate rejects held subjects
  before any policy is consulted; the resolver then scans the
  resource's ordered policy list for the first policy that applies
  (role match) and permits (constraints hold after rationalisation).

RESOLUTION OUTCOMES:
  - a Policy, with the rationalised window the booking must use
  - override: no policy matched but the actor holds override
    authority; the window stays as requested and conflict detection
    still applies
  - a rejection: a hold, or a PolicyNotFoundError carrying the first
    applicable policy's failure so the caller sees the most specific
    reason

CONSTRAINT ORDER inside one policy:
  rationalise, then time-of-day window, weekday, immutable window,
  forward horizon, quota. The last three are skipped for privileged
  actors. Every failure is a PolicyDoesNotApplyError and moves the
  scan to the next policy.
*/
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Resolution is the outcome of a successful policy resolution.
type Resolution struct {
	// Policy that admitted the booking; nil when Override is set.
	Policy *Policy

	// Override marks a booking admitted by actor authority alone.
	Override bool

	// Window is the rationalised window the booking must use. On
	// override it is the requested window unchanged.
	Window Window
}

// PolicyName returns the admitting policy's name, empty on override.
func (r Resolution) PolicyName() string {
	if r.Policy == nil {
		return ""
	}
	return r.Policy.Name
}

// Resolve runs the eligibility gate and the policy scan for a request
// without committing anything. Submit uses it internally; callers can
// use it to probe whether a booking would be admitted.
func (e *Engine) Resolve(ctx context.Context, req Request) (Resolution, error) {
	res, ok := e.resources[req.Resource]
	if !ok {
		return Resolution{}, fmt.Errorf("%w: %s", ErrUnknownResource, req.Resource)
	}
	w := req.Window.In(e.zone)
	if !w.IsValid() {
		return Resolution{}, fmt.Errorf("%w: %s", ErrInvalidWindow, w)
	}
	return e.resolve(ctx, res, req.Subject, req.actor(), w, req.IgnoreHolds, "")
}

// resolve is the gate plus the first-match policy scan. excluding
// names an existing entry to leave out of quota sums when an entry is
// re-validated against today's rules.
func (e *Engine) resolve(ctx context.Context, res Resource, subject, actor UserID, w Window, ignoreHolds bool, excluding EntryID) (Resolution, error) {
	system := actor == SystemActor

	// Bookings made by the system identity skip the hold checks
	// entirely; the subject's role is still needed for policy matching.
	subjectRow, err := e.gate(ctx, res.ID, subject, ignoreHolds || system)
	if err != nil {
		return Resolution{}, err
	}

	onBehalf := actor != subject
	actorRole := subjectRow.Role
	switch {
	case system:
		// The system identity always books with override authority.
		actorRole = RoleAdmin
	case onBehalf:
		row, ok, err := e.roster.Lookup(ctx, res.ID, actor)
		if err != nil {
			return Resolution{}, fmt.Errorf("roster lookup for actor %s: %w", actor, err)
		}
		actorRole = RoleNone
		if ok {
			actorRole = row.Role
		}
	}
	override := actorRole.Overrides()

	var firstFailure *PolicyDoesNotApplyError
	for i := range res.Policies {
		p := &res.Policies[i]
		if !p.AppliesTo(subjectRow.Role, actorRole, onBehalf) {
			continue
		}
		rw, err := e.permitted(ctx, p, res, subject, w, override, excluding)
		if err != nil {
			var dna *PolicyDoesNotApplyError
			if errors.As(err, &dna) {
				if firstFailure == nil {
					firstFailure = dna
				}
				continue
			}
			return Resolution{}, err
		}
		// First match wins; later policies are never consulted.
		return Resolution{Policy: p, Window: rw}, nil
	}

	if override {
		return Resolution{Override: true, Window: secondAligned(w)}, nil
	}
	return Resolution{}, &PolicyNotFoundError{Resource: res.ID, Cause: firstFailure}
}

// gate applies the hold checks for the subject on the resource. With
// ignoreHolds it still resolves the subject's roster row, since absent
// users hold no role.
func (e *Engine) gate(ctx context.Context, resource ResourceID, subject UserID, ignoreHolds bool) (UserListEntry, error) {
	row, ok, err := e.roster.Lookup(ctx, resource, subject)
	if err != nil {
		return UserListEntry{}, fmt.Errorf("roster lookup for subject %s: %w", subject, err)
	}
	if !ok {
		// Not on the user list: fully held, no role.
		if ignoreHolds {
			return UserListEntry{Resource: resource, User: subject, Role: RoleNone}, nil
		}
		return UserListEntry{}, &HoldError{Resource: resource, Subject: subject, Admin: true}
	}
	if !ignoreHolds {
		if row.UserHold {
			return UserListEntry{}, &HoldError{Resource: resource, Subject: subject}
		}
		if row.AdminHold {
			return UserListEntry{}, &HoldError{Resource: resource, Subject: subject, Admin: true}
		}
	}
	return row, nil
}

// permitted checks one applying policy's constraints. It returns the
// rationalised window on success and a PolicyDoesNotApplyError naming
// the failed constraint otherwise.
func (e *Engine) permitted(ctx context.Context, p *Policy, res Resource, subject UserID, w Window, privileged bool, excluding EntryID) (Window, error) {
	rw := Rationalise(w, *p, res.Shifts)

	startClock := ClockOf(rw.Start)
	if startClock < p.WindowStart || startClock > p.WindowEnd {
		return Window{}, doesNotApply(p, "start %s is outside the bookable window %s-%s",
			startClock, p.WindowStart, p.WindowEnd)
	}
	if !p.Weekdays[rw.Start.Weekday()] {
		return Window{}, doesNotApply(p, "%s is not a bookable day", rw.Start.Weekday())
	}

	if privileged {
		return rw, nil
	}

	now := e.now()
	if p.ImmutableWindow != nil && now.Add(-*p.ImmutableWindow).After(rw.Start) {
		return Window{}, doesNotApply(p, "start %s is no longer mutable (immutable window %s)",
			rw.Start.Format(time.RFC3339), *p.ImmutableWindow)
	}
	if p.MaxForward != nil && now.Add(*p.MaxForward).Before(rw.End) {
		return Window{}, doesNotApply(p, "end %s is beyond the forward horizon of %s",
			rw.End.Format(time.RFC3339), *p.MaxForward)
	}
	if p.Quota != nil {
		booked, err := FutureCommitted(ctx, e.store, res.ID, subject, now, excluding)
		if err != nil {
			return Window{}, err
		}
		if booked+rw.Duration() > *p.Quota {
			return Window{}, doesNotApply(p, "quota exhausted: %s already booked, %s requested, %s allowed",
				booked, rw.Duration(), *p.Quota)
		}
	}

	return rw, nil
}

func doesNotApply(p *Policy, format string, args ...any) *PolicyDoesNotApplyError {
	return &PolicyDoesNotApplyError{Policy: p.Name, Reason: fmt.Sprintf(format, args...)}
}
