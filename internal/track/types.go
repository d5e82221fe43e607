package track

import "time"

// Activity event kinds as stored in activity_log.event_type.
const (
	EventFileChange     = "file_change"
	EventWindowFocus    = "window_focus"
	EventBrowser        = "browser"
	EventGitCommit      = "git_commit"
	EventCodingSummary  = "vscode_coding"
	EventCodingActivity = "vscode_activity"
)

// File event kinds as stored in file_events.event_type.
const (
	FileCreated  = "created"
	FileModified = "modified"
	FileDeleted  = "deleted"
)

// ActivityEvent is one append-only row of the activity log.
// ProjectID zero means the event could not be attributed to a project and
// is stored with a NULL project reference. DurationS zero is stored as NULL.
type ActivityEvent struct {
	Timestamp time.Time
	DurationS int64
	Kind      string
	ProjectID int64
	App       string
	Summary   string
	Data      string
}

// FileEvent is one discrete filesystem notification that survived filtering.
// ActivityID zero means no back-reference; Size below zero means unknown
// (stored as NULL), since zero is a valid file size.
type FileEvent struct {
	ActivityID int64
	Timestamp  time.Time
	Path       string
	Kind       string
	ProjectID  int64
	Size       int64
}

// Attribution is the result of resolving a path against the watch roots.
type Attribution struct {
	Name string // project name: first path component under the matching root
	Path string // the project's directory (root joined with Name)
}
