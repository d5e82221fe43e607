package app

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLogHandler_Handle(t *testing.T) {
	ts := time.Date(2026, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		runID   string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			runID:   "run-123",
			level:   slog.LevelInfo,
			message: "watcher started",
			want:    "2026-06-15T14:30:45Z\tINFO\trun-123\twatcher started\n",
		},
		{
			name:    "debug level",
			runID:   "run-456",
			level:   slog.LevelDebug,
			message: "event debounced",
			want:    "2026-06-15T14:30:45Z\tDEBUG\trun-456\tevent debounced\n",
		},
		{
			name:    "with record attrs",
			runID:   "run-789",
			level:   slog.LevelInfo,
			message: "file event",
			attrs:   []slog.Attr{slog.String("path", "/code/acme/main.go"), slog.Int("size", 42)},
			want:    "2026-06-15T14:30:45Z\tINFO\trun-789\tfile event\tpath=/code/acme/main.go\tsize=42\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &logHandler{w: &buf, runID: tt.runID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestLogHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &logHandler{w: &buf, runID: "run-1"}

	// Add pre-set attrs
	h2 := h.WithAttrs([]slog.Attr{slog.String("collector", "browser")}).(*logHandler)

	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "sync", 0)
	r.AddAttrs(slog.String("url", "https://example.com"))

	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "collector=browser") {
		t.Errorf("expected pre-set attr collector=browser, got: %q", got)
	}
	if !strings.Contains(got, "url=https://example.com") {
		t.Errorf("expected record attr url=https://example.com, got: %q", got)
	}
}

func TestLogHandler_WithAttrs_doesNotMutateOriginal(t *testing.T) {
	var buf bytes.Buffer
	h := &logHandler{w: &buf, runID: "run-1", attrs: []slog.Attr{slog.String("a", "1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("b", "2")}).(*logHandler)

	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}
	if len(h2.attrs) != 2 {
		t.Errorf("new handler attrs: got %d, want 2", len(h2.attrs))
	}
}

func TestLogHandler_Enabled(t *testing.T) {
	h := &logHandler{}
	// All levels should be enabled
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if !h.Enabled(context.Background(), level) {
			t.Errorf("Enabled(%v) = false, want true", level)
		}
	}
}

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()

	logger, f, err := newLogger(dir, "test-run")
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	if logger == nil {
		t.Fatal("newLogger() returned nil logger")
	}
	if f == nil {
		t.Fatal("newLogger() returned nil file")
	}
}
