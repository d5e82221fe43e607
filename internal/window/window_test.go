package window

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"worklog/internal/testutil"
	"worklog/internal/track"
)

// scriptedProber replays a fixed sequence of samples.
type scriptedProber struct {
	samples []Info
	errs    []error
	i       int
}

func (s *scriptedProber) ActiveWindow(context.Context) (Info, error) {
	if s.i >= len(s.samples) {
		return Info{}, errors.New("out of samples")
	}
	info := s.samples[s.i]
	var err error
	if s.i < len(s.errs) {
		err = s.errs[s.i]
	}
	s.i++
	return info, err
}

func TestPoller_RecordsFocusChanges(t *testing.T) {
	store := testutil.NewRecordingStore()
	clock := testutil.FixedClock()
	prober := &scriptedProber{samples: []Info{
		{App: "firefox", Title: "Go docs"},
		{App: "firefox", Title: "Go docs"}, // unchanged: skipped
		{App: "Code", Title: "main.go - acme - Visual Studio Code"},
	}}

	p := NewPoller(prober, store, nil, clock, time.Second, nil, nil)
	for i := 0; i < 3; i++ {
		p.pollOnce(context.Background())
	}

	got := store.Activities()
	if len(got) != 2 {
		t.Fatalf("recorded %d activities, want 2: %v", len(got), got)
	}
	if got[0].App != "firefox" || got[0].Summary != "Go docs" {
		t.Errorf("first row = %+v", got[0])
	}
	if got[0].Kind != track.EventWindowFocus {
		t.Errorf("kind = %q, want %q", got[0].Kind, track.EventWindowFocus)
	}
	if got[1].App != "Code" {
		t.Errorf("second row app = %q, want Code", got[1].App)
	}
}

func TestPoller_ReturnToSameWindowIsRecorded(t *testing.T) {
	store := testutil.NewRecordingStore()
	prober := &scriptedProber{samples: []Info{
		{App: "firefox", Title: "A"},
		{App: "emacs", Title: "B"},
		{App: "firefox", Title: "A"}, // focus came back: new row
	}}

	p := NewPoller(prober, store, nil, testutil.FixedClock(), time.Second, nil, nil)
	for i := 0; i < 3; i++ {
		p.pollOnce(context.Background())
	}

	if n := len(store.Activities()); n != 3 {
		t.Errorf("recorded %d activities, want 3", n)
	}
}

func TestPoller_Denylist(t *testing.T) {
	store := testutil.NewRecordingStore()
	prober := &scriptedProber{samples: []Info{
		{App: "Taskmgr", Title: "Task Manager"},
		{App: "LockApp", Title: "Windows Default Lock Screen"},
		{App: "SearchHost", Title: "Search"},
		{App: "", Title: ""},
		{App: "emacs", Title: "notes.org"},
	}}

	p := NewPoller(prober, store, nil, testutil.FixedClock(), time.Second, nil, nil)
	for i := 0; i < 5; i++ {
		p.pollOnce(context.Background())
	}

	got := store.Activities()
	if len(got) != 1 {
		t.Fatalf("recorded %d activities, want 1: %v", len(got), got)
	}
	if got[0].App != "emacs" {
		t.Errorf("recorded app = %q, want emacs", got[0].App)
	}
}

func TestPoller_ProbeErrorSkipsSample(t *testing.T) {
	store := testutil.NewRecordingStore()
	prober := &scriptedProber{
		samples: []Info{{}, {App: "emacs", Title: "notes.org"}},
		errs:    []error{errors.New("no display"), nil},
	}

	p := NewPoller(prober, store, nil, testutil.FixedClock(), time.Second, nil, nil)
	p.pollOnce(context.Background())
	p.pollOnce(context.Background())

	if n := len(store.Activities()); n != 1 {
		t.Errorf("recorded %d activities, want 1", n)
	}
}

func TestPoller_AttributesVSCodeWorkspace(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "acme"), 0755); err != nil {
		t.Fatal(err)
	}

	store := testutil.NewRecordingStore()
	prober := &scriptedProber{samples: []Info{
		{App: "Code", Title: "main.go - acme - Visual Studio Code"},
	}}

	p := NewPoller(prober, store, nil, testutil.FixedClock(), time.Second, []string{root}, nil)
	p.pollOnce(context.Background())

	got := store.Activities()
	if len(got) != 1 {
		t.Fatalf("recorded %d activities, want 1", len(got))
	}
	if got[0].ProjectID == 0 {
		t.Error("VS Code window not attributed to a project")
	}
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	store := testutil.NewRecordingStore()
	prober := &scriptedProber{samples: []Info{{App: "a", Title: "b"}}}
	p := NewPoller(prober, store, nil, nil, 10*time.Millisecond, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestParseVSCodeTitle(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"main.go - worklog - Visual Studio Code", "worklog"},
		{"● main.go - worklog - Visual Studio Code", "worklog"},
		{"worklog - Visual Studio Code", "worklog"},
		{"a - b - c - Visual Studio Code", "c"},
		{"main.go - worklog - Visual Studio Code - Insiders", "worklog"},
		{"Go docs - Mozilla Firefox", ""},
		{"plain title", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ParseVSCodeTitle(tt.title); got != tt.want {
			t.Errorf("ParseVSCodeTitle(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestParseXpropOutput(t *testing.T) {
	out := `WM_CLASS(STRING) = "code", "Code"
_NET_WM_NAME(UTF8_STRING) = "main.go - worklog - Visual Studio Code"`

	info := parseXpropOutput(out)
	if info.App != "Code" {
		t.Errorf("App = %q, want Code", info.App)
	}
	if info.Title != "main.go - worklog - Visual Studio Code" {
		t.Errorf("Title = %q", info.Title)
	}
}

func TestParseWindowID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"_NET_ACTIVE_WINDOW(WINDOW): window id # 0x3c00007\n", "0x3c00007"},
		{"_NET_ACTIVE_WINDOW(WINDOW): window id # 0x0\n", ""},
		{"garbage", ""},
	}
	for _, tt := range tests {
		if got := parseWindowID(tt.in); got != tt.want {
			t.Errorf("parseWindowID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
