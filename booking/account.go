/*
account.go - Shift counting and quota accounting

PURPOSE:
  Two sums the pipeline needs after a window has been rationalised:
  how many weighted shifts the window spans (the charging basis) and
  how much future time the subject already holds on the resource (the
  quota basis).

THE SHIFT WALK:
  The walk starts at the window's start, in the shift containing it,
  and visits shifts cyclically: each visited shift contributes its
  weighting and advances the cursor by its wall-clock span. The walk
  stops once the cursor reaches the window's end; the end boundary
  itself is nudged inward so a window ending exactly on a shift
  boundary does not pick up one extra shift.
*/
package booking

import (
	"context"
	"fmt"
	"time"
)

// boundaryEpsilon nudges boundary instants into the interior of a
// window before shift lookups, so instants sitting exactly on a shift
// boundary resolve to the shift inside the window.
const boundaryEpsilon = time.Second

// CountShifts walks the cyclic shift list across the window and
// accumulates the weighting of every shift visited. Resources without
// a schedule, and windows starting outside every shift, count zero.
func CountShifts(schedule ShiftSchedule, w Window) float64 {
	if len(schedule) == 0 || !w.IsValid() {
		return 0
	}
	first, ok := schedule.IndexAt(w.Start.Add(boundaryEpsilon))
	if !ok {
		return 0
	}

	var total float64
	cursor := w.Start
	limit := w.End.Add(-boundaryEpsilon)
	for i := first; cursor.Before(limit); i++ {
		shift := schedule[i%len(schedule)] // explicit cyclic wraparound
		total += shift.Weighting
		cursor = cursor.Add(shift.Span())
	}
	return total
}

// FutureCommitted sums the durations of the subject's committed entries
// on the resource that have not yet finished at the given instant. The
// entry under evaluation can be excluded by id, for re-validation of an
// existing booking.
func FutureCommitted(ctx context.Context, entries EntryStore, resource ResourceID, subject UserID, at time.Time, excluding EntryID) (time.Duration, error) {
	future, err := entries.FutureBySubject(ctx, resource, subject, at)
	if err != nil {
		return 0, fmt.Errorf("summing future bookings: %w", err)
	}
	var total time.Duration
	for _, e := range future {
		if excluding != "" && e.ID == excluding {
			continue
		}
		total += e.Window.Duration()
	}
	return total, nil
}
