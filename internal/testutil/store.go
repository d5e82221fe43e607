package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"worklog/internal/track"
)

// RecordedVisit is one InsertBrowserVisit call captured by RecordingStore.
type RecordedVisit struct {
	VisitedAt time.Time
	URL       string
	Title     string
}

// RecordedSummary is one UpsertCodingSummary call captured by RecordingStore.
type RecordedSummary struct {
	Day       string
	ProjectID int64
	Seconds   int64
	Summary   string
	Data      string
}

// RecordingStore is an in-memory track.Store that captures every write for
// assertions. Safe for concurrent use.
type RecordingStore struct {
	mu         sync.Mutex
	activities []track.ActivityEvent
	fileEvents []track.FileEvent
	visits     []RecordedVisit
	summaries  []RecordedSummary
	projects   map[string]int64
	nextID     int64
}

// NewRecordingStore creates an empty RecordingStore.
func NewRecordingStore() *RecordingStore {
	return &RecordingStore{projects: make(map[string]int64)}
}

func (s *RecordingStore) InsertActivity(_ context.Context, ev track.ActivityEvent) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.activities = append(s.activities, ev)
	return s.nextID, nil
}

func (s *RecordingStore) InsertFileEvent(_ context.Context, fe track.FileEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fileEvents = append(s.fileEvents, fe)
	return nil
}

func (s *RecordingStore) InsertBrowserVisit(_ context.Context, visitedAt time.Time, url, title string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.visits {
		if v.VisitedAt.Equal(visitedAt) && v.URL == url {
			return false, nil
		}
	}
	s.visits = append(s.visits, RecordedVisit{VisitedAt: visitedAt, URL: url, Title: title})
	return true, nil
}

func (s *RecordingStore) GetOrCreateProject(_ context.Context, name, _ string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.projects[name]; ok {
		return id, nil
	}
	id := int64(len(s.projects) + 1)
	s.projects[name] = id
	return id, nil
}

func (s *RecordingStore) UpsertCodingSummary(_ context.Context, day string, projectID, seconds int64, summary, data string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.summaries {
		if r.Day == day && r.ProjectID == projectID {
			if r.Seconds == seconds {
				return false, nil
			}
			s.summaries[i].Seconds = seconds
			s.summaries[i].Summary = summary
			s.summaries[i].Data = data
			return true, nil
		}
	}
	s.summaries = append(s.summaries, RecordedSummary{
		Day: day, ProjectID: projectID, Seconds: seconds, Summary: summary, Data: data,
	})
	return true, nil
}

func (s *RecordingStore) HasActivityOn(_ context.Context, kind string, projectID int64, day string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.activities {
		if ev.Kind == kind && ev.ProjectID == projectID &&
			strings.HasPrefix(ev.Timestamp.UTC().Format(time.RFC3339), day) {
			return true, nil
		}
	}
	return false, nil
}

func (s *RecordingStore) CountEventsOn(_ context.Context, day, kind string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.activities {
		if kind != "" && ev.Kind != kind {
			continue
		}
		if strings.HasPrefix(ev.Timestamp.UTC().Format(time.RFC3339), day) {
			n++
		}
	}
	return n, nil
}

func (s *RecordingStore) Close() error { return nil }

// Activities returns a copy of the captured activity rows.
func (s *RecordingStore) Activities() []track.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]track.ActivityEvent, len(s.activities))
	copy(out, s.activities)
	return out
}

// FileEvents returns a copy of the captured file event rows.
func (s *RecordingStore) FileEvents() []track.FileEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]track.FileEvent, len(s.fileEvents))
	copy(out, s.fileEvents)
	return out
}

// Visits returns a copy of the captured browser visits.
func (s *RecordingStore) Visits() []RecordedVisit {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedVisit, len(s.visits))
	copy(out, s.visits)
	return out
}

// Summaries returns a copy of the captured coding summaries.
func (s *RecordingStore) Summaries() []RecordedSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedSummary, len(s.summaries))
	copy(out, s.summaries)
	return out
}

var _ track.Store = (*RecordingStore)(nil)
