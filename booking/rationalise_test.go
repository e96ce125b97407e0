package booking_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/warp/booking-engine/booking"
)

func quantisedPolicy(anchor string, quantum time.Duration) booking.Policy {
	return booking.Policy{
		Name:        "test",
		Weekdays:    booking.AllWeek(),
		WindowStart: booking.MustClock(anchor),
		WindowEnd:   booking.MustClock("24:00"),
		Quantum:     quantum,
	}
}

// =============================================================================
// QUANTISATION
// =============================================================================

func TestRationalise_QuantisesToAnchoredGrid(t *testing.T) {
	// GIVEN: A three-hour quantum anchored at 09:00
	// WHEN: Requesting 10:10-10:40
	// THEN: The window widens to the enclosing grid cell 09:00-12:00

	p := quantisedPolicy("09:00", 3*time.Hour)
	w := booking.Window{
		Start: at(t, "2026-03-02", "10:10"),
		End:   at(t, "2026-03-02", "10:40"),
	}

	got := booking.Rationalise(w, p, nil)

	if want := at(t, "2026-03-02", "09:00"); !got.Start.Equal(want) {
		t.Errorf("start = %v, want %v", got.Start, want)
	}
	if want := at(t, "2026-03-02", "12:00"); !got.End.Equal(want) {
		t.Errorf("end = %v, want %v", got.End, want)
	}
}

func TestRationalise_AlignedWindowUnchanged(t *testing.T) {
	p := quantisedPolicy("09:00", time.Hour)
	w := booking.Window{
		Start: at(t, "2026-03-02", "10:00"),
		End:   at(t, "2026-03-02", "13:00"),
	}

	got := booking.Rationalise(w, p, nil)

	if !got.Start.Equal(w.Start) || !got.End.Equal(w.End) {
		t.Errorf("aligned window changed: %v", got)
	}
}

func TestRationalise_BeforeAnchorRoundsOutward(t *testing.T) {
	// GIVEN: An hourly quantum anchored at 09:00
	// WHEN: Requesting 08:10-08:40, entirely before the anchor
	// THEN: The grid extends backwards from the anchor to 08:00-09:00

	p := quantisedPolicy("09:00", time.Hour)
	w := booking.Window{
		Start: at(t, "2026-03-02", "08:10"),
		End:   at(t, "2026-03-02", "08:40"),
	}

	got := booking.Rationalise(w, p, nil)

	if want := at(t, "2026-03-02", "08:00"); !got.Start.Equal(want) {
		t.Errorf("start = %v, want %v", got.Start, want)
	}
	if want := at(t, "2026-03-02", "09:00"); !got.End.Equal(want) {
		t.Errorf("end = %v, want %v", got.End, want)
	}
}

func TestRationalise_EndRollsPastMidnight(t *testing.T) {
	// GIVEN: An hourly quantum anchored at midnight
	// WHEN: Requesting a window ending 23:30
	// THEN: The end rounds up to midnight of the next day

	p := quantisedPolicy("00:00", time.Hour)
	w := booking.Window{
		Start: at(t, "2026-03-02", "23:05"),
		End:   at(t, "2026-03-02", "23:30"),
	}

	got := booking.Rationalise(w, p, nil)

	if want := at(t, "2026-03-02", "23:00"); !got.Start.Equal(want) {
		t.Errorf("start = %v, want %v", got.Start, want)
	}
	if want := at(t, "2026-03-03", "00:00"); !got.End.Equal(want) {
		t.Errorf("end = %v, want %v", got.End, want)
	}
}

func TestRationalise_ContainsRequest(t *testing.T) {
	// Whatever the inputs, rationalisation only ever widens.

	rng := rand.New(rand.NewSource(1))
	quanta := []time.Duration{15 * time.Minute, time.Hour, 2 * time.Hour, 3 * time.Hour}
	anchors := []string{"00:00", "09:00", "08:30"}

	for i := 0; i < 200; i++ {
		p := quantisedPolicy(anchors[rng.Intn(len(anchors))], quanta[rng.Intn(len(quanta))])
		start := at(t, "2026-03-02", "00:00").Add(time.Duration(rng.Intn(48*3600)) * time.Second)
		w := booking.Window{
			Start: start,
			End:   start.Add(time.Duration(1+rng.Intn(12*3600)) * time.Second),
		}

		got := booking.Rationalise(w, p, nil)

		if !got.Contains(w) {
			t.Fatalf("rationalised %v does not contain request %v (quantum %s, anchor %s)",
				got, w, p.Quantum, p.WindowStart)
		}
		span := got.Duration()
		if span <= 0 || span%p.Quantum != 0 {
			t.Fatalf("rationalised span %s is not a positive multiple of quantum %s", span, p.Quantum)
		}
	}
}

// =============================================================================
// SHIFT ALIGNMENT
// =============================================================================

func TestRationalise_SnapsToShiftBoundaries(t *testing.T) {
	// GIVEN: The three-shift day and a shift-aligned policy
	// WHEN: Requesting 10:10-19:30, straddling day and evening
	// THEN: The window widens to the shift boundaries 09:00-23:00

	p := quantisedPolicy("00:00", time.Hour)
	p.UseShifts = true
	w := booking.Window{
		Start: at(t, "2026-03-02", "10:10"),
		End:   at(t, "2026-03-02", "19:30"),
	}

	got := booking.Rationalise(w, p, threeShiftDay())

	if want := at(t, "2026-03-02", "09:00"); !got.Start.Equal(want) {
		t.Errorf("start = %v, want %v", got.Start, want)
	}
	if want := at(t, "2026-03-02", "23:00"); !got.End.Equal(want) {
		t.Errorf("end = %v, want %v", got.End, want)
	}
}

func TestRationalise_ExactShiftUnchanged(t *testing.T) {
	p := quantisedPolicy("00:00", time.Hour)
	p.UseShifts = true
	w := booking.Window{
		Start: at(t, "2026-03-02", "09:00"),
		End:   at(t, "2026-03-02", "18:00"),
	}

	got := booking.Rationalise(w, p, threeShiftDay())

	if !got.Start.Equal(w.Start) || !got.End.Equal(w.End) {
		t.Errorf("exact shift window changed: %v", got)
	}
}

func TestRationalise_WrappingShiftStartsPreviousDay(t *testing.T) {
	// GIVEN: A request starting inside the tail of the night shift
	// WHEN: Rationalising
	// THEN: The start snaps back to the shift's start on the previous day

	p := quantisedPolicy("00:00", time.Hour)
	p.UseShifts = true
	w := booking.Window{
		Start: at(t, "2026-03-02", "02:00"),
		End:   at(t, "2026-03-02", "05:00"),
	}

	got := booking.Rationalise(w, p, threeShiftDay())

	if want := at(t, "2026-03-01", "23:00"); !got.Start.Equal(want) {
		t.Errorf("start = %v, want %v", got.Start, want)
	}
	if want := at(t, "2026-03-02", "09:00"); !got.End.Equal(want) {
		t.Errorf("end = %v, want %v", got.End, want)
	}
}

func TestRationalise_WrappingShiftEndsNextDay(t *testing.T) {
	// GIVEN: A request ending just past midnight inside the night shift
	// WHEN: Rationalising
	// THEN: The end snaps forward to the shift's end on the next day

	p := quantisedPolicy("00:00", time.Hour)
	p.UseShifts = true
	w := booking.Window{
		Start: at(t, "2026-03-02", "23:30"),
		End:   at(t, "2026-03-03", "01:00"),
	}

	got := booking.Rationalise(w, p, threeShiftDay())

	if want := at(t, "2026-03-02", "23:00"); !got.Start.Equal(want) {
		t.Errorf("start = %v, want %v", got.Start, want)
	}
	if want := at(t, "2026-03-03", "09:00"); !got.End.Equal(want) {
		t.Errorf("end = %v, want %v", got.End, want)
	}
}

func TestRationalise_UncoveredEndpointFallsBackToQuantum(t *testing.T) {
	// GIVEN: A schedule with a gap and a request starting inside it
	// WHEN: Rationalising with shifts enabled
	// THEN: The whole window is quantised instead

	p := quantisedPolicy("00:00", time.Hour)
	p.UseShifts = true
	gappy := booking.ShiftSchedule{
		{Name: "day", Start: booking.MustClock("09:00"), End: booking.MustClock("18:00"), Weighting: 1},
	}
	w := booking.Window{
		Start: at(t, "2026-03-02", "19:10"),
		End:   at(t, "2026-03-02", "20:40"),
	}

	got := booking.Rationalise(w, p, gappy)

	if want := at(t, "2026-03-02", "19:00"); !got.Start.Equal(want) {
		t.Errorf("start = %v, want %v", got.Start, want)
	}
	if want := at(t, "2026-03-02", "21:00"); !got.End.Equal(want) {
		t.Errorf("end = %v, want %v", got.End, want)
	}
}
