package track

import (
	"path"
	"strings"
	"sync"
	"time"
)

// Debounce defaults shared by the filesystem and window collectors.
const (
	DebounceWindow  = 2 * time.Second
	DebounceHorizon = 60 * time.Second
)

// ShouldExclude reports whether the path matches any exclusion pattern.
// Each pattern is checked against every path component, the basename, and
// the whole slash-normalized path, so "node_modules" excludes anything
// inside a node_modules directory but not a file merely containing that
// substring. Malformed patterns are skipped rather than treated as fatal.
func ShouldExclude(filePath string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}

	p := NormalizePath(filePath)
	segments := strings.Split(strings.TrimPrefix(p, "/"), "/")
	base := path.Base(p)

	for _, pattern := range patterns {
		for _, seg := range segments {
			if ok, err := path.Match(pattern, seg); err == nil && ok {
				return true
			}
		}
		if ok, err := path.Match(pattern, p); err == nil && ok {
			return true
		}
		if ok, err := path.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

// Debouncer suppresses repeated events for the same key inside a short
// window. It is shared across collector goroutines; a single mutex guards
// the map and every critical section is O(1) plus an amortized prune.
type Debouncer struct {
	mu      sync.Mutex
	window  time.Duration
	horizon time.Duration
	clock   Clock
	seen    map[string]time.Time
}

// NewDebouncer creates a Debouncer. A nil clock means real time.
func NewDebouncer(window, horizon time.Duration, clock Clock) *Debouncer {
	if clock == nil {
		clock = RealClock{}
	}
	return &Debouncer{
		window:  window,
		horizon: horizon,
		clock:   clock,
		seen:    make(map[string]time.Time),
	}
}

// Accept reports whether an event for key should be processed. An accepted
// event refreshes the key's timestamp; a key seen again inside the window
// is suppressed. Entries older than the horizon are pruned on every call
// to bound memory.
func (d *Debouncer) Accept(key string) bool {
	now := d.clock.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.seen[key]; ok && now.Sub(last) < d.window {
		return false
	}
	d.seen[key] = now

	for k, v := range d.seen {
		if now.Sub(v) > d.horizon {
			delete(d.seen, k)
		}
	}
	return true
}
