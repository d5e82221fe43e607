package app

import (
	"time"

	"github.com/google/uuid"
)

// Run identifies one CLI invocation. The ID threads through every log line
// so interleaved collector output in the shared log file can be pulled
// apart per invocation.
type Run struct {
	ID        string
	Command   string
	StartedAt time.Time
}

// NewRun creates a run record for the named command.
func NewRun(command string) *Run {
	return &Run{
		ID:        uuid.New().String()[:8],
		Command:   command,
		StartedAt: time.Now().UTC(),
	}
}
