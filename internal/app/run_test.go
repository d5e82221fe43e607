package app

import (
	"testing"
	"time"
)

func TestNewRun(t *testing.T) {
	before := time.Now().UTC()
	r := NewRun("daemon")

	if r.Command != "daemon" {
		t.Errorf("command = %q, want daemon", r.Command)
	}
	if len(r.ID) != 8 {
		t.Errorf("id = %q, want 8 characters", r.ID)
	}
	if r.StartedAt.Before(before.Add(-time.Second)) {
		t.Errorf("started at %v, before test start %v", r.StartedAt, before)
	}

	other := NewRun("daemon")
	if other.ID == r.ID {
		t.Errorf("two runs share id %q", r.ID)
	}
}
