/*
Package sqlite provides a SQLite-backed implementation of the booking
storage interfaces.

PURPOSE:
  Persistent implementations of the booking engine's EntryStore and
  RateTable over a single SQLite file. One process owns the file; the
  engine's per-resource lock plus the transactional commit below keep
  the no-overlap invariant.

SCHEMA:
  entries - committed bookings, window endpoints as RFC3339 UTC text.
            RFC3339 in a fixed zone sorts lexicographically, so range
            predicates work on the raw columns.
  rates   - per-shift rates, one row per (resource, subject); the row
            with the empty subject is the resource default.

CONCURRENCY:
  A store-level mutex serialises writers, and Commit additionally runs
  its overlap check and insert inside one transaction, so the
  invariant holds even for callers that skipped the engine.

ERROR HANDLING:
  Domain outcomes are mapped onto the booking error taxonomy at this
  boundary: a colliding insert fails with booking.OverlapError, lookups
  of missing entries with booking.ErrEntryNotFound.

SEE ALSO:
  - booking/store.go: the interface contracts
  - booking/store/memory.go: the in-memory counterpart
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/booking-engine/booking"
)

// Store implements booking.EntryStore and booking.RateTable.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Committed booking entries
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		resource_id TEXT NOT NULL,
		subject_id TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		start_at TEXT NOT NULL,
		end_at TEXT NOT NULL,
		shift_count REAL NOT NULL DEFAULT 0,
		charge TEXT NOT NULL DEFAULT '0',
		policy TEXT,
		comment TEXT,
		created_at TEXT NOT NULL,
		CHECK (start_at < end_at)
	);

	CREATE INDEX IF NOT EXISTS idx_entries_resource_window
		ON entries(resource_id, start_at, end_at);

	CREATE INDEX IF NOT EXISTS idx_entries_subject
		ON entries(resource_id, subject_id, end_at);

	-- Per-shift rates; subject_id '' is the resource default
	CREATE TABLE IF NOT EXISTS rates (
		resource_id TEXT NOT NULL,
		subject_id TEXT NOT NULL DEFAULT '',
		per_shift TEXT NOT NULL,
		PRIMARY KEY (resource_id, subject_id)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ENTRY STORE
// =============================================================================

// Commit checks the no-overlap invariant and inserts the entry inside
// one transaction.
func (s *Store) Commit(ctx context.Context, e booking.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var clashID, clashStart, clashEnd string
	err = tx.QueryRowContext(ctx, `
		SELECT id, start_at, end_at FROM entries
		WHERE resource_id = ? AND start_at < ? AND ? < end_at
		LIMIT 1`,
		string(e.Resource), utc(e.Window.End), utc(e.Window.Start),
	).Scan(&clashID, &clashStart, &clashEnd)
	switch {
	case err == nil:
		return &booking.OverlapError{
			Resource:       e.Resource,
			Requested:      e.Window,
			Existing:       booking.EntryID(clashID),
			ExistingWindow: booking.Window{Start: parseUTC(clashStart), End: parseUTC(clashEnd)},
		}
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("failed to check overlap: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries
			(id, resource_id, subject_id, actor_id, start_at, end_at,
			 shift_count, charge, policy, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(e.ID), string(e.Resource), string(e.Subject), string(e.Actor),
		utc(e.Window.Start), utc(e.Window.End),
		e.ShiftCount, e.Charge.String(),
		nullString(e.Policy), nullString(e.Comment),
		utc(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}

	return tx.Commit()
}

// Get fetches one entry by id.
func (s *Store) Get(ctx context.Context, id booking.EntryID) (booking.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, resource_id, subject_id, actor_id, start_at, end_at,
		       shift_count, charge, policy, comment, created_at
		FROM entries
		WHERE id = ?`, string(id))

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return booking.Entry{}, fmt.Errorf("%w: %s", booking.ErrEntryNotFound, id)
	}
	return e, err
}

// Delete removes one entry by id.
func (s *Store) Delete(ctx context.Context, id booking.EntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", booking.ErrEntryNotFound, id)
	}
	return nil
}

// Overlapping lists entries on the resource intersecting w.
func (s *Store) Overlapping(ctx context.Context, resource booking.ResourceID, w booking.Window, excluding booking.EntryID) ([]booking.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, resource_id, subject_id, actor_id, start_at, end_at,
		       shift_count, charge, policy, comment, created_at
		FROM entries
		WHERE resource_id = ? AND start_at < ? AND ? < end_at AND id != ?
		ORDER BY start_at ASC`,
		string(resource), utc(w.End), utc(w.Start), string(excluding))
	if err != nil {
		return nil, fmt.Errorf("failed to query overlapping entries: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// FutureBySubject lists the subject's entries not yet finished at the
// given instant.
func (s *Store) FutureBySubject(ctx context.Context, resource booking.ResourceID, subject booking.UserID, at time.Time) ([]booking.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, resource_id, subject_id, actor_id, start_at, end_at,
		       shift_count, charge, policy, comment, created_at
		FROM entries
		WHERE resource_id = ? AND subject_id = ? AND end_at > ?
		ORDER BY start_at ASC`,
		string(resource), string(subject), utc(at))
	if err != nil {
		return nil, fmt.Errorf("failed to query future entries: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// ByResource lists entries on the resource intersecting w, ordered by
// window start.
func (s *Store) ByResource(ctx context.Context, resource booking.ResourceID, w booking.Window) ([]booking.Entry, error) {
	return s.Overlapping(ctx, resource, w, "")
}

// =============================================================================
// RATE TABLE
// =============================================================================

// SetRate sets the per-shift rate for one subject. An empty subject
// sets the resource default.
func (s *Store) SetRate(ctx context.Context, resource booking.ResourceID, subject booking.UserID, rate decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rates (resource_id, subject_id, per_shift)
		VALUES (?, ?, ?)
		ON CONFLICT(resource_id, subject_id) DO UPDATE SET
			per_shift = excluded.per_shift`,
		string(resource), string(subject), rate.String())
	if err != nil {
		return fmt.Errorf("failed to save rate: %w", err)
	}
	return nil
}

// Rate returns the subject's per-shift rate, falling back to the
// resource default, then to zero.
func (s *Store) Rate(ctx context.Context, resource booking.ResourceID, subject booking.UserID) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var perShift string
	err := s.db.QueryRowContext(ctx, `
		SELECT per_shift FROM rates
		WHERE resource_id = ? AND subject_id IN (?, '')
		ORDER BY subject_id DESC
		LIMIT 1`,
		string(resource), string(subject)).Scan(&perShift)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return decimal.Zero, nil
	case err != nil:
		return decimal.Zero, fmt.Errorf("failed to query rate: %w", err)
	}

	rate, err := decimal.NewFromString(perShift)
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed rate %q: %w", perShift, err)
	}
	return rate, nil
}

// =============================================================================
// SCANNING AND HELPERS
// =============================================================================

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (booking.Entry, error) {
	var (
		e         booking.Entry
		id        string
		resource  string
		subject   string
		actor     string
		startAt   string
		endAt     string
		charge    string
		policy    sql.NullString
		comment   sql.NullString
		createdAt string
	)

	err := row.Scan(
		&id, &resource, &subject, &actor, &startAt, &endAt,
		&e.ShiftCount, &charge, &policy, &comment, &createdAt,
	)
	if err != nil {
		return e, err
	}

	e.ID = booking.EntryID(id)
	e.Resource = booking.ResourceID(resource)
	e.Subject = booking.UserID(subject)
	e.Actor = booking.UserID(actor)
	e.Window = booking.Window{Start: parseUTC(startAt), End: parseUTC(endAt)}
	e.Policy = policy.String
	e.Comment = comment.String
	e.CreatedAt = parseUTC(createdAt)

	e.Charge, err = decimal.NewFromString(charge)
	if err != nil {
		return e, fmt.Errorf("malformed charge %q: %w", charge, err)
	}
	return e, nil
}

func collectEntries(rows *sql.Rows) ([]booking.Entry, error) {
	var entries []booking.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func utc(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseUTC(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
