/*
engine.go - The booking pipeline

PURPOSE:
  Drives a booking request through the full commit sequence:

    drafted -> rationalised -> validated -> conflict-checked -> priced
            -> committed

  Any step can stop the pipeline with a classified rejection
  (errors.go). The engine is synchronous: one call, one verdict.

CONCURRENCY:
  Two concurrent submissions for the same resource could both pass the
  conflict read before either commits. The engine therefore holds a
  per-resource lock from the conflict check through the commit, and
  the stores additionally re-check the overlap inside the insert, so
  the no-overlap invariant survives even writers that bypass the
  engine. Submissions for distinct resources run fully in parallel.

CLOCK AND ZONE:
  All windows are normalised into the engine's zone before anything
  looks at them. Now is injectable so time-dependent constraints are
  testable.

SEE ALSO:
  - resolve.go: the validation half of the pipeline
  - store.go: the persistence contracts
  - locking: the per-resource lock implementations
*/
package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/booking-engine/locking"
)

// lockTTL bounds how long a crashed holder can stall other writers on
// the same resource when a distributed lock backs the engine.
const lockTTL = 10 * time.Second

// Engine validates, prices and commits bookings.
type Engine struct {
	store  EntryStore
	roster Roster
	rates  RateTable
	locks  locking.Locker

	resources map[ResourceID]Resource
	zone      *time.Location
	nowFunc   func() time.Time
}

// Config wires an Engine's collaborators. Store and Roster are
// required; everything else has a sensible default.
type Config struct {
	Store  EntryStore
	Roster Roster
	Rates  RateTable      // nil prices every booking at zero
	Locks  locking.Locker // nil uses in-process locks

	// Resources the engine will accept bookings for, with their
	// ordered policy lists and shift schedules.
	Resources []Resource

	Zone *time.Location   // nil means UTC
	Now  func() time.Time // nil means time.Now
}

// New builds an Engine from cfg.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, errors.New("booking: Config.Store is required")
	}
	if cfg.Roster == nil {
		return nil, errors.New("booking: Config.Roster is required")
	}

	e := &Engine{
		store:     cfg.Store,
		roster:    cfg.Roster,
		rates:     cfg.Rates,
		locks:     cfg.Locks,
		resources: make(map[ResourceID]Resource, len(cfg.Resources)),
		zone:      cfg.Zone,
		nowFunc:   cfg.Now,
	}
	if e.rates == nil {
		e.rates = freeRates{}
	}
	if e.locks == nil {
		e.locks = locking.NewMemory()
	}
	if e.zone == nil {
		e.zone = time.UTC
	}
	if e.nowFunc == nil {
		e.nowFunc = time.Now
	}

	for _, r := range cfg.Resources {
		if r.ID == "" {
			return nil, errors.New("booking: resource with empty id")
		}
		if _, dup := e.resources[r.ID]; dup {
			return nil, fmt.Errorf("booking: duplicate resource %s", r.ID)
		}
		e.resources[r.ID] = r
	}
	return e, nil
}

func (e *Engine) now() time.Time { return e.nowFunc().In(e.zone) }

// Zone returns the zone windows are normalised into.
func (e *Engine) Zone() *time.Location { return e.zone }

// Resource returns the configuration for id.
func (e *Engine) Resource(id ResourceID) (Resource, bool) {
	r, ok := e.resources[id]
	return r, ok
}

// Resources lists the configured resources, ordered by id.
func (e *Engine) Resources() []Resource {
	out := make([]Resource, 0, len(e.resources))
	for _, r := range e.resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// =============================================================================
// SUBMIT
// =============================================================================

// Request describes one booking attempt.
type Request struct {
	Resource ResourceID
	Subject  UserID
	Actor    UserID // empty means the subject books for themselves
	Window   Window

	// IgnoreHolds skips the eligibility gate. Reserved for callers
	// acting with administrative intent.
	IgnoreHolds bool
}

func (r Request) actor() UserID {
	if r.Actor == "" {
		return r.Subject
	}
	return r.Actor
}

// Submit runs the full pipeline for one booking request and commits
// the entry on success. The returned entry carries the rationalised
// window, the shift count and the charge.
func (e *Engine) Submit(ctx context.Context, req Request) (Entry, error) {
	res, ok := e.resources[req.Resource]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrUnknownResource, req.Resource)
	}

	w := req.Window.In(e.zone)
	if !w.IsValid() {
		return Entry{}, fmt.Errorf("%w: %s", ErrInvalidWindow, w)
	}

	actor := req.actor()
	resolution, err := e.resolve(ctx, res, req.Subject, actor, w, req.IgnoreHolds, "")
	if err != nil {
		return Entry{}, err
	}

	// The conflict read and the insert must not interleave with other
	// commits on this resource.
	lock, err := e.locks.Acquire(ctx, resourceLockKey(res.ID), lockTTL)
	if err != nil {
		return Entry{}, fmt.Errorf("locking resource %s: %w", res.ID, err)
	}
	defer lock.Release(ctx)

	if err := e.checkConflict(ctx, res.ID, resolution.Window, ""); err != nil {
		return Entry{}, err
	}

	entry := Entry{
		ID:         EntryID(uuid.NewString()),
		Resource:   res.ID,
		Subject:    req.Subject,
		Actor:      actor,
		Window:     resolution.Window,
		ShiftCount: CountShifts(res.Shifts, resolution.Window),
		Policy:     resolution.PolicyName(),
		CreatedAt:  e.now(),
	}
	entry.Charge, err = ChargeFor(ctx, e.rates, res.ID, req.Subject, entry.ShiftCount)
	if err != nil {
		return Entry{}, err
	}
	entry.Comment = annotate(entry, resolution)

	if err := e.store.Commit(ctx, entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// checkConflict asks the authoritative store whether the window
// collides with a committed entry.
func (e *Engine) checkConflict(ctx context.Context, resource ResourceID, w Window, excluding EntryID) error {
	clashes, err := e.store.Overlapping(ctx, resource, w, excluding)
	if err != nil {
		return fmt.Errorf("conflict check: %w", err)
	}
	if len(clashes) > 0 {
		return &OverlapError{
			Resource:       resource,
			Requested:      w,
			Existing:       clashes[0].ID,
			ExistingWindow: clashes[0].Window,
		}
	}
	return nil
}

// annotate derives the audit comment persisted with the entry.
func annotate(entry Entry, r Resolution) string {
	switch {
	case r.Override:
		return fmt.Sprintf("booked by %s for %s outside policy (override)", entry.Actor, entry.Subject)
	case entry.Actor != entry.Subject:
		return fmt.Sprintf("booked by %s for %s under policy %q", entry.Actor, entry.Subject, entry.Policy)
	default:
		return fmt.Sprintf("booked under policy %q", entry.Policy)
	}
}

// =============================================================================
// RELEASE
// =============================================================================

// ReleaseReport describes a completed release.
type ReleaseReport struct {
	Entry Entry

	// Policy is the audit reference produced by re-resolving the entry
	// at release time: the rule that would admit the booking today.
	// Empty when no rule would, or when the release was forced.
	Policy   string
	Override bool
	Forced   bool
}

// Release deletes a committed entry. Unless forced, the entry is
// re-resolved first, ignoring holds, purely to record which policy
// would admit it today; a failed resolution leaves the reference empty
// and never blocks the release.
func (e *Engine) Release(ctx context.Context, id EntryID, force bool) (ReleaseReport, error) {
	entry, err := e.store.Get(ctx, id)
	if err != nil {
		return ReleaseReport{}, err
	}

	report := ReleaseReport{Entry: entry, Forced: force}
	if !force {
		res, ok := e.resources[entry.Resource]
		if !ok {
			return ReleaseReport{}, fmt.Errorf("%w: %s", ErrUnknownResource, entry.Resource)
		}
		resolution, err := e.resolve(ctx, res, entry.Subject, entry.Actor, entry.Window, true, entry.ID)
		switch {
		case err == nil:
			report.Policy = resolution.PolicyName()
			report.Override = resolution.Override
		case IsRejection(err):
			// No rule admits the entry today; the release proceeds
			// with an empty audit reference.
		default:
			return ReleaseReport{}, err
		}
	}

	if err := e.store.Delete(ctx, id); err != nil {
		return ReleaseReport{}, err
	}
	return report, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func resourceLockKey(id ResourceID) string {
	return "booking:resource:" + string(id)
}

// secondAligned widens a window outward to whole seconds. Persisted
// windows are second-granular; rationalised windows already are, so
// this only matters for overrides passing the request through.
func secondAligned(w Window) Window {
	start := w.Start.Truncate(time.Second)
	end := w.End.Truncate(time.Second)
	if end.Before(w.End) {
		end = end.Add(time.Second)
	}
	return Window{Start: start, End: end}
}

// freeRates prices everything at zero; the default when no rate table
// is configured.
type freeRates struct{}

func (freeRates) Rate(context.Context, ResourceID, UserID) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
