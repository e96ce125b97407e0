package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/warp/booking-engine/booking"
	"github.com/warp/booking-engine/booking/store"
)

func TestSubmit_ConcurrentSameWindow_ExactlyOneCommits(t *testing.T) {
	// GIVEN: 16 submissions racing for the same window
	// WHEN: They all run through the engine concurrently
	// THEN: Exactly one commits; the rest are overlap rejections

	eng, entries, _ := newTestEngine(t, rigWith(func(*booking.Policy) {}))
	w := window(t, "2026-03-02", "10:00", "2026-03-02", "11:00")

	const racers = 16
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = eng.Submit(context.Background(), booking.Request{
				Resource: "rig-1", Subject: "frank", Window: w,
			})
		}(i)
	}
	wg.Wait()

	var committed, overlapped int
	for i, err := range errs {
		switch {
		case err == nil:
			committed++
		case errors.Is(err, booking.ErrOverlap):
			overlapped++
		default:
			t.Errorf("racer %d: unexpected error: %v", i, err)
		}
	}
	if committed != 1 {
		t.Errorf("committed = %d, want exactly 1", committed)
	}
	if overlapped != racers-1 {
		t.Errorf("overlap rejections = %d, want %d", overlapped, racers-1)
	}

	listed, err := entries.ByResource(context.Background(), "rig-1",
		window(t, "2026-03-02", "00:00", "2026-03-03", "00:00"))
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(listed) != 1 {
		t.Errorf("store holds %d entries, want 1", len(listed))
	}
}

func TestSubmit_DistinctResources_CommitInParallel(t *testing.T) {
	// GIVEN: Two independent resources
	// WHEN: The same window is booked on each concurrently
	// THEN: Both commit; per-resource locking never couples resources

	roster := store.NewRoster()
	roster.Put(booking.UserListEntry{Resource: "rig-1", User: "alice", Role: booking.RoleUser})
	roster.Put(booking.UserListEntry{Resource: "rig-2", User: "alice", Role: booking.RoleUser})
	eng := resolveEngine(t, roster,
		booking.Resource{ID: "rig-1", Name: "Rig 1", Policies: []booking.Policy{openPolicy("open", time.Hour)}},
		booking.Resource{ID: "rig-2", Name: "Rig 2", Policies: []booking.Policy{openPolicy("open", time.Hour)}},
	)
	w := window(t, "2026-03-02", "10:00", "2026-03-02", "11:00")

	done := make(chan error, 2)
	for _, id := range []booking.ResourceID{"rig-1", "rig-2"} {
		go func(id booking.ResourceID) {
			_, err := eng.Submit(context.Background(), booking.Request{
				Resource: id, Subject: "alice", Window: w,
			})
			done <- err
		}(id)
	}

	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Errorf("parallel submit failed: %v", err)
		}
	}
}

func TestSubmit_ConcurrentAdjacentWindows_AllCommit(t *testing.T) {
	// GIVEN: Eight requests for eight disjoint hour cells
	// WHEN: They race on one resource
	// THEN: Every one commits

	eng, entries, _ := newTestEngine(t, rigWith(func(*booking.Policy) {}))

	const n = 8
	base := at(t, "2026-03-02", "09:00")
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := base.Add(time.Duration(i) * time.Hour)
			_, errs[i] = eng.Submit(context.Background(), booking.Request{
				Resource: "rig-1", Subject: "frank",
				Window: booking.Window{Start: start, End: start.Add(time.Hour)},
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("cell %d: %v", i, err)
		}
	}

	listed, err := entries.ByResource(context.Background(), "rig-1",
		window(t, "2026-03-02", "00:00", "2026-03-03", "00:00"))
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(listed) != n {
		t.Errorf("store holds %d entries, want %d", len(listed), n)
	}
}
