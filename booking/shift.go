/*
shift.go - Shift schedules

PURPOSE:
  A resource may run on shifts: an ordered, cyclic list of time-of-day
  intervals, each with a weighting used for charging. The schedule
  answers two questions: which shift contains a given instant, and how
  long a shift lasts on the wall clock when it crosses midnight.

INVARIANTS:
  - The list is cyclic: the shift after the last is the first.
  - A shift whose End is numerically at or below its Start crosses
    midnight; its wall-clock span is still positive. Equal endpoints
    mean the shift covers the full day.
  - Schedules are expected to tile the day. That is a configuration
    responsibility and is not enforced here; an instant outside every
    shift simply has no containing shift.
*/
package booking

import "time"

// Shift is one recurring time-of-day interval [Start, End) with a
// charging weight.
type Shift struct {
	Name      string
	Start     ClockTime
	End       ClockTime // at or below Start means the shift crosses midnight
	Weighting float64
}

// Span is the wall-clock length of the shift.
func (s Shift) Span() time.Duration { return clockSpan(s.Start, s.End) }

// contains reports whether the time-of-day c falls inside the shift.
func (s Shift) contains(c ClockTime) bool {
	if s.Start < s.End {
		return c >= s.Start && c < s.End
	}
	// Crosses midnight; covers the whole day when Start == End.
	return c >= s.Start || c < s.End
}

// ShiftSchedule is a resource's ordered, cyclic shift list.
type ShiftSchedule []Shift

// IndexAt returns the index of the shift containing the instant, or
// false when no shift does. Callers probing a window boundary should
// nudge the instant inward first so boundary instants resolve to the
// shift inside the window rather than the neighbouring one.
func (ss ShiftSchedule) IndexAt(t time.Time) (int, bool) {
	c := ClockOf(t)
	for i, s := range ss {
		if s.contains(c) {
			return i, true
		}
	}
	return 0, false
}
