/*
rationalise.go - Window rationalisation

PURPOSE:
  Requested windows rarely line up with bookable boundaries. This file
  widens a requested window outward to the nearest valid boundaries, in
  one of two modes.

SHIFT MODE (policy.UseShifts and the schedule covers both endpoints):
  The start snaps down to the start of the shift containing it and the
  end snaps up to the end of the shift containing it. A shift that
  wraps midnight moves the snapped date across the day boundary: a
  start inside the tail of last night's shift belongs to yesterday's
  shift start, an end inside a shift running past midnight belongs to
  tomorrow's shift end. If either endpoint falls outside every shift,
  the whole window is quantised instead.

QUANTISATION MODE:
  Boundaries round to multiples of the policy quantum, measured from
  the policy's WindowStart so the grid is anchored to the bookable day:
  start down, end up. An end rounded past midnight rolls onto the next
  date.

  Both modes only ever widen: the result always contains the request.
*/
package booking

import "time"

// Rationalise aligns a requested window to the policy's boundaries.
// The result always contains w. Callers are expected to pass a window
// already expressed in the engine's zone.
func Rationalise(w Window, p Policy, shifts ShiftSchedule) Window {
	if p.UseShifts && len(shifts) > 0 {
		if out, ok := rationaliseShifts(w, shifts); ok {
			return out
		}
		// One of the endpoints had no enclosing shift.
	}
	return quantise(w, p)
}

// rationaliseShifts snaps both endpoints outward to the boundaries of
// their enclosing shifts, crossing date lines for shifts that wrap
// midnight.
func rationaliseShifts(w Window, shifts ShiftSchedule) (Window, bool) {
	startProbe := w.Start.Add(boundaryEpsilon)
	startIdx, ok := shifts.IndexAt(startProbe)
	if !ok {
		return Window{}, false
	}
	endProbe := w.End.Add(-boundaryEpsilon)
	endIdx, ok := shifts.IndexAt(endProbe)
	if !ok {
		return Window{}, false
	}

	startShift := shifts[startIdx]
	start := startShift.Start.At(w.Start)
	if startShift.Start > ClockOf(startProbe) {
		// The shift began yesterday and wrapped past midnight.
		start = start.AddDate(0, 0, -1)
	}

	endShift := shifts[endIdx]
	end := endShift.End.At(w.End)
	if endShift.End < ClockOf(endProbe) {
		// The shift runs past midnight and ends tomorrow.
		end = end.AddDate(0, 0, 1)
	}

	return Window{Start: start, End: end}, true
}

// quantise rounds the start down and the end up to multiples of the
// quantum, counted from the policy's WindowStart on each endpoint's
// own date.
func quantise(w Window, p Policy) Window {
	q := int(p.Quantum / time.Second)
	if q <= 0 {
		return w
	}
	anchor := int(p.WindowStart)

	startOffset := int(ClockOf(w.Start)) - anchor
	endOffset := int(ClockOf(w.End)) - anchor

	start := ClockTime(anchor + floorDiv(startOffset, q)*q).At(w.Start)
	end := ClockTime(anchor + ceilDiv(endOffset, q)*q).At(w.End)

	return Window{Start: start, End: end}
}

// floorDiv divides rounding toward negative infinity, which plain Go
// integer division does not do for negative numerators.
func floorDiv(a, b int) int {
	quo := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		quo--
	}
	return quo
}

// ceilDiv divides rounding toward positive infinity.
func ceilDiv(a, b int) int {
	return -floorDiv(-a, b)
}
