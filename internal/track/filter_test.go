package track

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestShouldExclude(t *testing.T) {
	patterns := []string{".git", "node_modules", "__pycache__", "*.tmp", "*.swp"}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"inside git dir", "/home/p/acme/.git/objects/ab/cdef", true},
		{"inside node_modules", "/home/p/web/node_modules/react/index.js", true},
		{"pycache component", "/home/p/tool/__pycache__/mod.cpython-312.pyc", true},
		{"tmp extension", "/home/p/acme/build.tmp", true},
		{"swap file", "/home/p/acme/.main.go.swp", true},
		{"plain source file", "/home/p/acme/main.go", false},
		{"substring is not a component", "/home/p/mygit/file.go", false},
		{"gitignore is not .git", "/home/p/acme/.gitignore", false},
		{"tmp in the middle of a name", "/home/p/acme/template.go", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldExclude(tt.path, patterns); got != tt.want {
				t.Errorf("ShouldExclude(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestShouldExcludeNoPatterns(t *testing.T) {
	if ShouldExclude("/anything/at/all", nil) {
		t.Error("empty pattern list excluded a path")
	}
}

func TestShouldExcludeMalformedPattern(t *testing.T) {
	// A broken pattern is skipped, not fatal, and does not match everything.
	if ShouldExclude("/home/p/acme/main.go", []string{"[unclosed"}) {
		t.Error("malformed pattern excluded an unrelated path")
	}
}

func TestDebouncer(t *testing.T) {
	clock := newFakeClock()
	d := NewDebouncer(2*time.Second, 60*time.Second, clock)

	if !d.Accept("a") {
		t.Fatal("first event suppressed")
	}
	if d.Accept("a") {
		t.Error("immediate repeat accepted")
	}
	if !d.Accept("b") {
		t.Error("unrelated key suppressed")
	}

	clock.advance(time.Second)
	if d.Accept("a") {
		t.Error("repeat inside the window accepted")
	}

	clock.advance(1500 * time.Millisecond)
	if !d.Accept("a") {
		t.Error("event after the window suppressed")
	}
}

func TestDebouncerPrunesOldKeys(t *testing.T) {
	clock := newFakeClock()
	d := NewDebouncer(2*time.Second, 60*time.Second, clock)

	d.Accept("stale")
	clock.advance(61 * time.Second)

	// Any call prunes entries older than the horizon.
	d.Accept("fresh")

	d.mu.Lock()
	_, ok := d.seen["stale"]
	d.mu.Unlock()
	if ok {
		t.Error("entry older than the horizon was not pruned")
	}
}

func TestDebouncerConcurrent(t *testing.T) {
	d := NewDebouncer(time.Millisecond, time.Second, nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				d.Accept("shared")
				d.Accept("other")
			}
		}()
	}
	wg.Wait()
}
