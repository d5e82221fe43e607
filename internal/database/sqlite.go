package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"worklog/internal/database/migrations"
	"worklog/internal/track"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the Store interface on a single SQLite file.
// All collectors in the process share one store; the connection pool
// underneath hands each operation its own connection, so concurrent
// collector writes are safe.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens the event store at path. path can be a file path
// or ":memory:" for an in-memory store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	return &SQLiteStore{
		db:   db,
		path: path,
	}, nil
}

// NewSQLiteStoreFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{
		db:   db,
		path: "",
	}
}

// OpenConnection opens and configures a SQLite connection with appropriate
// PRAGMAs. Exported for tools and tests that need a properly configured
// connection. path can be a file path or ":memory:".
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection; letting the pool open
	// a second one would hand out an empty schema.
	if strings.Contains(path, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	// Foreign keys are OFF by default in SQLite for backward compatibility.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// WAL lets readers proceed while a collector is writing.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	// Several collectors share the file; wait rather than fail on lock.
	if _, err := db.Exec("PRAGMA busy_timeout = 10000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Project operations

// GetOrCreateProject returns the id of the project with the given name,
// creating it first if necessary. Safe to race between collectors: the
// insert is INSERT OR IGNORE against the UNIQUE name, followed by a
// re-read.
func (s *SQLiteStore) GetOrCreateProject(ctx context.Context, name, path string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, "SELECT id FROM projects WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("finding project %q: %w", name, err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO projects (name, path, created_at) VALUES (?, ?, ?)",
		name, path, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("creating project %q: %w", name, err)
	}

	err = s.db.QueryRowContext(ctx, "SELECT id FROM projects WHERE name = ?", name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("re-reading project %q: %w", name, err)
	}
	return id, nil
}

// Activity operations

// InsertActivity appends one activity row and returns its id.
func (s *SQLiteStore) InsertActivity(ctx context.Context, ev track.ActivityEvent) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_log (timestamp, duration_s, event_type, project_id, app_name, summary, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.Timestamp.UTC().Format(time.RFC3339),
		nullInt64(ev.DurationS, ev.DurationS > 0),
		ev.Kind,
		nullInt64(ev.ProjectID, ev.ProjectID != 0),
		nullString(ev.App),
		nullString(ev.Summary),
		nullString(ev.Data))
	if err != nil {
		return 0, fmt.Errorf("inserting activity: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading activity id: %w", err)
	}
	return id, nil
}

// InsertFileEvent appends one file event, optionally linked to an
// activity row via ActivityID.
func (s *SQLiteStore) InsertFileEvent(ctx context.Context, fe track.FileEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO file_events (activity_id, timestamp, file_path, event_type, project_id, file_size)
		VALUES (?, ?, ?, ?, ?, ?)`,
		nullInt64(fe.ActivityID, fe.ActivityID != 0),
		fe.Timestamp.UTC().Format(time.RFC3339),
		fe.Path,
		fe.Kind,
		nullInt64(fe.ProjectID, fe.ProjectID != 0),
		nullInt64(fe.Size, fe.Size >= 0))
	if err != nil {
		return fmt.Errorf("inserting file event: %w", err)
	}
	return nil
}

// InsertBrowserVisit records one browser history visit. A visit with the
// same timestamp and URL as an existing browser row is skipped; the bool
// reports whether a row was written.
func (s *SQLiteStore) InsertBrowserVisit(ctx context.Context, visitedAt time.Time, url, title string) (bool, error) {
	ts := visitedAt.UTC().Format(time.RFC3339)

	var exists int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM activity_log
		WHERE event_type = ? AND timestamp = ? AND data = ?`,
		track.EventBrowser, ts, url).Scan(&exists)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("checking for existing visit: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO activity_log (timestamp, event_type, summary, data)
		VALUES (?, ?, ?, ?)`,
		ts, track.EventBrowser, nullString(title), url)
	if err != nil {
		return false, fmt.Errorf("inserting browser visit: %w", err)
	}
	return true, nil
}

// UpsertCodingSummary records the total coding seconds for one project on
// one day (day is YYYY-MM-DD). An existing row for that project and day
// is updated in place; an unchanged duration is a no-op. The bool reports
// whether anything was written.
func (s *SQLiteStore) UpsertCodingSummary(ctx context.Context, day string, projectID, seconds int64, summary, data string) (bool, error) {
	var id, current int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(duration_s, 0) FROM activity_log
		WHERE event_type = ? AND project_id = ? AND timestamp LIKE ?`,
		track.EventCodingSummary, projectID, day+"%").Scan(&id, &current)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO activity_log (timestamp, duration_s, event_type, project_id, summary, data)
			VALUES (?, ?, ?, ?, ?, ?)`,
			day+"T12:00:00Z", seconds, track.EventCodingSummary, projectID,
			nullString(summary), nullString(data))
		if err != nil {
			return false, fmt.Errorf("inserting coding summary: %w", err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("finding coding summary: %w", err)
	case current == seconds:
		return false, nil
	default:
		_, err = s.db.ExecContext(ctx, `
			UPDATE activity_log SET duration_s = ?, summary = ?, data = ? WHERE id = ?`,
			seconds, nullString(summary), nullString(data), id)
		if err != nil {
			return false, fmt.Errorf("updating coding summary: %w", err)
		}
		return true, nil
	}
}

// HasActivityOn reports whether any row of the given kind exists for the
// project on the given day (YYYY-MM-DD).
func (s *SQLiteStore) HasActivityOn(ctx context.Context, kind string, projectID int64, day string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM activity_log
		WHERE event_type = ? AND project_id = ? AND timestamp LIKE ?
		LIMIT 1`,
		kind, projectID, day+"%").Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking for activity: %w", err)
	}
	return true, nil
}

// CountEventsOn counts activity rows on the given day (YYYY-MM-DD).
// An empty kind counts all event types.
func (s *SQLiteStore) CountEventsOn(ctx context.Context, day, kind string) (int, error) {
	var n int
	var err error
	if kind == "" {
		err = s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM activity_log WHERE timestamp LIKE ?", day+"%").Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM activity_log WHERE timestamp LIKE ? AND event_type = ?",
			day+"%", kind).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("counting events: %w", err)
	}
	return n, nil
}

// Path returns the store file path (or ":memory:" for in-memory stores).
func (s *SQLiteStore) Path() string {
	return s.path
}

// DB exposes the underlying connection for tests and tools.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// CheckMigrations verifies the store schema is up-to-date.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// MigrateUp brings the store schema to the latest version.
func (s *SQLiteStore) MigrateUp() error {
	return migrations.MigrateUp(s.db)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func nullInt64(v int64, valid bool) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: valid}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

// Compile-time check that SQLiteStore implements the track.Store interface
var _ track.Store = (*SQLiteStore)(nil)
