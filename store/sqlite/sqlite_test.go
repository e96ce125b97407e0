package sqlite_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/booking-engine/booking"
	"github.com/warp/booking-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func hour(h int) time.Time {
	return time.Date(2026, time.March, 2, h, 0, 0, 0, time.UTC)
}

func entryAt(id string, start, end time.Time) booking.Entry {
	return booking.Entry{
		ID:        booking.EntryID(id),
		Resource:  "rig-1",
		Subject:   "alice",
		Actor:     "alice",
		Window:    booking.Window{Start: start, End: end},
		Charge:    decimal.Zero,
		CreatedAt: hour(7),
	}
}

// =============================================================================
// ENTRY STORE TESTS
// =============================================================================

func TestStore_CommitAndGet_Roundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := booking.Entry{
		ID:         "e1",
		Resource:   "sequencer-1",
		Subject:    "alice",
		Actor:      "bob",
		Window:     booking.Window{Start: hour(9), End: hour(23)},
		ShiftCount: 1.75,
		Charge:     decimal.RequireFromString("187.50"),
		Policy:     "shift-run",
		Comment:    `booked by bob for alice under policy "shift-run"`,
		CreatedAt:  hour(8),
	}
	require.NoError(t, store.Commit(ctx, want))

	got, err := store.Get(ctx, "e1")
	require.NoError(t, err)

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Resource, got.Resource)
	assert.Equal(t, want.Subject, got.Subject)
	assert.Equal(t, want.Actor, got.Actor)
	assert.WithinDuration(t, want.Window.Start, got.Window.Start, 0)
	assert.WithinDuration(t, want.Window.End, got.Window.End, 0)
	assert.Equal(t, want.ShiftCount, got.ShiftCount)
	assert.True(t, got.Charge.Equal(want.Charge), "charge = %v, want %v", got.Charge, want.Charge)
	assert.Equal(t, want.Policy, got.Policy)
	assert.Equal(t, want.Comment, got.Comment)
	assert.WithinDuration(t, want.CreatedAt, got.CreatedAt, 0)
}

func TestStore_Commit_EmptyAuditFieldsRoundtrip(t *testing.T) {
	// Override entries carry no policy; both audit columns are nullable.
	store := newTestStore(t)
	ctx := context.Background()

	e := entryAt("e1", hour(10), hour(11))
	e.Policy = ""
	e.Comment = ""
	require.NoError(t, store.Commit(ctx, e))

	got, err := store.Get(ctx, "e1")
	require.NoError(t, err)
	assert.Empty(t, got.Policy)
	assert.Empty(t, got.Comment)
}

func TestStore_Commit_OverlapRejected(t *testing.T) {
	// GIVEN: A committed entry 10:00-12:00
	// WHEN: Committing 11:00-13:00 on the same resource
	// THEN: The insert fails identifying the clashing entry

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Commit(ctx, entryAt("e1", hour(10), hour(12))))

	err := store.Commit(ctx, entryAt("e2", hour(11), hour(13)))
	assert.ErrorIs(t, err, booking.ErrOverlap)

	var overlap *booking.OverlapError
	require.ErrorAs(t, err, &overlap)
	assert.Equal(t, booking.EntryID("e1"), overlap.Existing)
	assert.Equal(t, booking.ResourceID("rig-1"), overlap.Resource)
	assert.WithinDuration(t, hour(10), overlap.ExistingWindow.Start, 0)
}

func TestStore_Commit_BoundaryTouchAllowed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Commit(ctx, entryAt("e1", hour(10), hour(11))))
	assert.NoError(t, store.Commit(ctx, entryAt("e2", hour(11), hour(12))), "adjacent window should not clash")
	assert.NoError(t, store.Commit(ctx, entryAt("e3", hour(9), hour(10))), "preceding window should not clash")
}

func TestStore_Commit_DifferentResourcesIndependent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Commit(ctx, entryAt("e1", hour(10), hour(12))))

	e := entryAt("e2", hour(10), hour(12))
	e.Resource = "rig-2"
	assert.NoError(t, store.Commit(ctx, e), "same window on another resource should commit")
}

func TestStore_Commit_DuplicateIDRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Commit(ctx, entryAt("e1", hour(10), hour(11))))

	err := store.Commit(ctx, entryAt("e1", hour(14), hour(15)))
	assert.Error(t, err, "reusing an entry id should fail")
	assert.NotErrorIs(t, err, booking.ErrOverlap)
}

func TestStore_Get_Missing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "no-such-entry")
	assert.ErrorIs(t, err, booking.ErrEntryNotFound)
}

func TestStore_Delete_FreesTheWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Commit(ctx, entryAt("e1", hour(10), hour(11))))
	require.NoError(t, store.Delete(ctx, "e1"))

	_, err := store.Get(ctx, "e1")
	assert.ErrorIs(t, err, booking.ErrEntryNotFound)

	assert.ErrorIs(t, store.Delete(ctx, "e1"), booking.ErrEntryNotFound, "second delete should report the entry gone")
	assert.NoError(t, store.Commit(ctx, entryAt("e2", hour(10), hour(11))), "freed window should be bookable again")
}

func TestStore_Overlapping_ExcludesGivenID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Commit(ctx, entryAt("e1", hour(10), hour(12))))

	w := booking.Window{Start: hour(11), End: hour(13)}
	hits, err := store.Overlapping(ctx, "rig-1", w, "")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, booking.EntryID("e1"), hits[0].ID)

	hits, err = store.Overlapping(ctx, "rig-1", w, "e1")
	require.NoError(t, err)
	assert.Empty(t, hits, "excluded entry should not be reported")
}

func TestStore_FutureBySubject_Boundary(t *testing.T) {
	// GIVEN: Entries ending before, exactly at and after noon, plus one
	//        for another subject
	// WHEN: Listing alice's unfinished entries at noon
	// THEN: Only the entry still ahead is returned

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Commit(ctx, entryAt("finished", hour(8), hour(10))))
	require.NoError(t, store.Commit(ctx, entryAt("ends-at-noon", hour(10), hour(12))))
	require.NoError(t, store.Commit(ctx, entryAt("upcoming", hour(15), hour(16))))
	other := entryAt("other-subject", hour(17), hour(18))
	other.Subject = "frank"
	require.NoError(t, store.Commit(ctx, other))

	future, err := store.FutureBySubject(ctx, "rig-1", "alice", hour(12))
	require.NoError(t, err)
	require.Len(t, future, 1)
	assert.Equal(t, booking.EntryID("upcoming"), future[0].ID)
}

func TestStore_ByResource_OrderedByStart(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Commit(ctx, entryAt("late", hour(15), hour(16))))
	require.NoError(t, store.Commit(ctx, entryAt("early", hour(9), hour(10))))
	require.NoError(t, store.Commit(ctx, entryAt("middle", hour(12), hour(13))))

	listed, err := store.ByResource(ctx, "rig-1", booking.Window{Start: hour(0), End: hour(23)})
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, booking.EntryID("early"), listed[0].ID)
	assert.Equal(t, booking.EntryID("middle"), listed[1].ID)
	assert.Equal(t, booking.EntryID("late"), listed[2].ID)
}

// =============================================================================
// RATE TABLE TESTS
// =============================================================================

func TestStore_Rates_SubjectOverridesDefault(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetRate(ctx, "rig-1", "", decimal.NewFromInt(150)))
	require.NoError(t, store.SetRate(ctx, "rig-1", "alice", decimal.NewFromInt(100)))

	rate, err := store.Rate(ctx, "rig-1", "alice")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(100)), "alice rate = %v", rate)

	rate, err = store.Rate(ctx, "rig-1", "frank")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(150)), "default rate = %v", rate)
}

func TestStore_Rates_MissingIsZero(t *testing.T) {
	store := newTestStore(t)

	rate, err := store.Rate(context.Background(), "rig-9", "alice")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.Zero), "rate = %v, want zero", rate)
}

func TestStore_Rates_UpsertReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetRate(ctx, "rig-1", "alice", decimal.RequireFromString("12.50")))
	require.NoError(t, store.SetRate(ctx, "rig-1", "alice", decimal.RequireFromString("15.25")))

	rate, err := store.Rate(ctx, "rig-1", "alice")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("15.25")), "rate = %v after upsert", rate)
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestStore_ConcurrentCommits_SingleWinner(t *testing.T) {
	// GIVEN: 8 entries racing for the same window
	// WHEN: They commit concurrently
	// THEN: Exactly one insert wins; the overlap check and the insert
	//       are atomic

	store := newTestStore(t)
	w := booking.Window{Start: hour(10), End: hour(11)}

	const racers = 8
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e := entryAt("racer", w.Start, w.End)
			e.ID = booking.EntryID(string(rune('a' + i)))
			errs[i] = store.Commit(context.Background(), e)
		}(i)
	}
	wg.Wait()

	var committed int
	for i, err := range errs {
		if err == nil {
			committed++
			continue
		}
		assert.ErrorIs(t, err, booking.ErrOverlap, "racer %d", i)
	}
	assert.Equal(t, 1, committed, "exactly one racer should commit")

	listed, err := store.ByResource(context.Background(), "rig-1", w)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}
