/*
memory.go - In-memory collaborators

PURPOSE:
  Map-backed implementations of the booking engine's collaborator
  interfaces, for tests and single-node deployments:
  - Memory: EntryStore with an atomic overlap-check-and-insert
  - Roster: the per-resource user list
  - Rates: per-subject rates with a resource-wide default

CONCURRENCY:
  Every method takes the store mutex. Commit holds it across the
  overlap scan and the insert, which is what makes the commit atomic
  with respect to concurrent commits.

SEE ALSO:
  - booking/store.go: the interface contracts
  - store/sqlite: the persistent counterparts
*/
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/booking-engine/booking"
)

// =============================================================================
// ENTRY STORE
// =============================================================================

// Memory is an in-memory booking.EntryStore.
type Memory struct {
	mu      sync.RWMutex
	entries map[booking.ResourceID][]booking.Entry // sorted by window start
	index   map[booking.EntryID]booking.ResourceID
}

// NewMemory creates an empty in-memory entry store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[booking.ResourceID][]booking.Entry),
		index:   make(map[booking.EntryID]booking.ResourceID),
	}
}

// Commit checks the no-overlap invariant and inserts, both under one
// lock acquisition.
func (m *Memory) Commit(_ context.Context, e booking.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.index[e.ID]; dup {
		return fmt.Errorf("duplicate entry id %s", e.ID)
	}

	list := m.entries[e.Resource]
	for _, existing := range list {
		if existing.Window.Overlaps(e.Window) {
			return &booking.OverlapError{
				Resource:       e.Resource,
				Requested:      e.Window,
				Existing:       existing.ID,
				ExistingWindow: existing.Window,
			}
		}
	}

	// Insert keeping the per-resource list sorted by start.
	at := sort.Search(len(list), func(i int) bool {
		return list[i].Window.Start.After(e.Window.Start)
	})
	list = append(list, booking.Entry{})
	copy(list[at+1:], list[at:])
	list[at] = e
	m.entries[e.Resource] = list
	m.index[e.ID] = e.Resource
	return nil
}

// Get fetches one entry by id.
func (m *Memory) Get(_ context.Context, id booking.EntryID) (booking.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	resource, ok := m.index[id]
	if !ok {
		return booking.Entry{}, fmt.Errorf("%w: %s", booking.ErrEntryNotFound, id)
	}
	for _, e := range m.entries[resource] {
		if e.ID == id {
			return e, nil
		}
	}
	return booking.Entry{}, fmt.Errorf("%w: %s", booking.ErrEntryNotFound, id)
}

// Delete removes one entry by id.
func (m *Memory) Delete(_ context.Context, id booking.EntryID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	resource, ok := m.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", booking.ErrEntryNotFound, id)
	}
	list := m.entries[resource]
	for i, e := range list {
		if e.ID == id {
			m.entries[resource] = append(list[:i:i], list[i+1:]...)
			delete(m.index, id)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", booking.ErrEntryNotFound, id)
}

// Overlapping lists entries on the resource intersecting w.
func (m *Memory) Overlapping(_ context.Context, resource booking.ResourceID, w booking.Window, excluding booking.EntryID) ([]booking.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []booking.Entry
	for _, e := range m.entries[resource] {
		if excluding != "" && e.ID == excluding {
			continue
		}
		if e.Window.Overlaps(w) {
			out = append(out, e)
		}
	}
	return out, nil
}

// FutureBySubject lists the subject's entries that have not finished
// at the given instant.
func (m *Memory) FutureBySubject(_ context.Context, resource booking.ResourceID, subject booking.UserID, at time.Time) ([]booking.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []booking.Entry
	for _, e := range m.entries[resource] {
		if e.Subject == subject && e.Window.End.After(at) {
			out = append(out, e)
		}
	}
	return out, nil
}

// ByResource lists entries on the resource intersecting w, ordered by
// window start.
func (m *Memory) ByResource(_ context.Context, resource booking.ResourceID, w booking.Window) ([]booking.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []booking.Entry
	for _, e := range m.entries[resource] {
		if e.Window.Overlaps(w) {
			out = append(out, e)
		}
	}
	return out, nil
}

// =============================================================================
// ROSTER
// =============================================================================

// Roster is an in-memory user list.
type Roster struct {
	mu   sync.RWMutex
	rows map[booking.ResourceID]map[booking.UserID]booking.UserListEntry
}

// NewRoster creates an empty roster.
func NewRoster() *Roster {
	return &Roster{rows: make(map[booking.ResourceID]map[booking.UserID]booking.UserListEntry)}
}

// Put inserts or replaces one roster row.
func (r *Roster) Put(row booking.UserListEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := r.rows[row.Resource]
	if users == nil {
		users = make(map[booking.UserID]booking.UserListEntry)
		r.rows[row.Resource] = users
	}
	users[row.User] = row
}

// Remove deletes one roster row; the user becomes fully held.
func (r *Roster) Remove(resource booking.ResourceID, user booking.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows[resource], user)
}

// Lookup returns the roster row for (resource, user).
func (r *Roster) Lookup(_ context.Context, resource booking.ResourceID, user booking.UserID) (booking.UserListEntry, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.rows[resource][user]
	return row, ok, nil
}

// =============================================================================
// RATES
// =============================================================================

// Rates is an in-memory rate table with per-subject rates and an
// optional per-resource default.
type Rates struct {
	mu       sync.RWMutex
	rates    map[booking.ResourceID]map[booking.UserID]decimal.Decimal
	defaults map[booking.ResourceID]decimal.Decimal
}

// NewRates creates an empty rate table.
func NewRates() *Rates {
	return &Rates{
		rates:    make(map[booking.ResourceID]map[booking.UserID]decimal.Decimal),
		defaults: make(map[booking.ResourceID]decimal.Decimal),
	}
}

// SetDefault sets the resource-wide per-shift rate.
func (r *Rates) SetDefault(resource booking.ResourceID, rate decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults[resource] = rate
}

// Set sets the per-shift rate for one subject.
func (r *Rates) Set(resource booking.ResourceID, subject booking.UserID, rate decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subjects := r.rates[resource]
	if subjects == nil {
		subjects = make(map[booking.UserID]decimal.Decimal)
		r.rates[resource] = subjects
	}
	subjects[subject] = rate
}

// Rate returns the subject's rate, the resource default, or zero.
func (r *Rates) Rate(_ context.Context, resource booking.ResourceID, subject booking.UserID) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rate, ok := r.rates[resource][subject]; ok {
		return rate, nil
	}
	if rate, ok := r.defaults[resource]; ok {
		return rate, nil
	}
	return decimal.Zero, nil
}
