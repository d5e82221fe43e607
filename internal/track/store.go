package track

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Store is the event log. All writes are append-only except
// UpsertCodingSummary, which revises the single daily row per project.
// Implementations must be safe for concurrent use by multiple collectors.
type Store interface {
	// InsertActivity appends one activity row and returns its id.
	InsertActivity(ctx context.Context, ev ActivityEvent) (int64, error)

	// InsertFileEvent appends one file event row.
	InsertFileEvent(ctx context.Context, fe FileEvent) error

	// InsertBrowserVisit appends one browser activity row unless a row with
	// the same timestamp and URL already exists. Returns whether a row was
	// actually inserted, so repeated syncs of the same history are no-ops.
	InsertBrowserVisit(ctx context.Context, visitedAt time.Time, url, title string) (bool, error)

	// GetOrCreateProject returns the id for the named project, creating the
	// row on first reference. Concurrent callers racing on a new name all
	// receive the same id; the UNIQUE constraint turns the losing insert
	// into a lookup.
	GetOrCreateProject(ctx context.Context, name, path string) (int64, error)

	// UpsertCodingSummary records one vscode_coding row per project per day,
	// replacing the existing row's duration and payload when already present.
	// Returns true when a new row was inserted.
	UpsertCodingSummary(ctx context.Context, day string, projectID int64, seconds int64, summary, data string) (bool, error)

	// HasActivityOn reports whether an activity row of the given kind exists
	// for the project on the given day (day formatted as 2006-01-02).
	HasActivityOn(ctx context.Context, kind string, projectID int64, day string) (bool, error)

	// CountEventsOn counts activity rows of one kind on the given day.
	CountEventsOn(ctx context.Context, day, kind string) (int, error)

	Close() error
}

// DryRunStore prints every candidate write instead of performing it.
// It is selected once at startup when --dry-run is set, so collectors never
// branch on the flag themselves.
type DryRunStore struct {
	W io.Writer
}

func NewDryRunStore(w io.Writer) *DryRunStore { return &DryRunStore{W: w} }

func (s *DryRunStore) InsertActivity(_ context.Context, ev ActivityEvent) (int64, error) {
	fmt.Fprintf(s.W, "[dry-run] %-13s %s  app=%s  %s\n",
		ev.Kind, ev.Timestamp.UTC().Format(time.RFC3339), ev.App, ev.Summary)
	return 0, nil
}

func (s *DryRunStore) InsertFileEvent(_ context.Context, fe FileEvent) error {
	fmt.Fprintf(s.W, "[dry-run] file_event    %-9s %s\n", fe.Kind, fe.Path)
	return nil
}

func (s *DryRunStore) InsertBrowserVisit(_ context.Context, visitedAt time.Time, url, title string) (bool, error) {
	fmt.Fprintf(s.W, "[dry-run] browser       %s  %q  %s\n",
		visitedAt.UTC().Format(time.RFC3339), title, url)
	return true, nil
}

func (s *DryRunStore) GetOrCreateProject(_ context.Context, name, _ string) (int64, error) {
	fmt.Fprintf(s.W, "[dry-run] project       %s\n", name)
	return 0, nil
}

func (s *DryRunStore) UpsertCodingSummary(_ context.Context, day string, _ int64, seconds int64, summary, _ string) (bool, error) {
	fmt.Fprintf(s.W, "[dry-run] %-13s %s  %ds  %s\n", EventCodingSummary, day, seconds, summary)
	return true, nil
}

func (s *DryRunStore) HasActivityOn(context.Context, string, int64, string) (bool, error) {
	return false, nil
}

func (s *DryRunStore) CountEventsOn(context.Context, string, string) (int, error) {
	return 0, nil
}

func (s *DryRunStore) Close() error { return nil }

var _ Store = (*DryRunStore)(nil)
