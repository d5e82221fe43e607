package coding

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"worklog/internal/config"
	"worklog/internal/testutil"
	"worklog/internal/track"
)

func TestWakapiClient_Healthy(t *testing.T) {
	t.Run("any response counts as up", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))
		defer srv.Close()

		c := NewWakapiClient(srv.URL, "")
		if !c.Healthy(context.Background()) {
			t.Error("Healthy() = false for responding server")
		}
	})

	t.Run("transport failure counts as down", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		srv.Close() // nothing listening anymore

		c := NewWakapiClient(srv.URL, "")
		if c.Healthy(context.Background()) {
			t.Error("Healthy() = true for dead server")
		}
	})
}

func TestWakapiClient_Summaries(t *testing.T) {
	var gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `{"data":[{"projects":[
			{"name":"acme","total_seconds":3600.5,"text":"1 hr"},
			{"name":"side","total_seconds":120,"text":"2 mins"}
		]}]}`)
	}))
	defer srv.Close()

	c := NewWakapiClient(srv.URL, "waka_secret")
	got, err := c.Summaries(context.Background(), "2026-01-15")
	if err != nil {
		t.Fatalf("Summaries() error = %v", err)
	}

	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte(":waka_secret"))
	if gotAuth != wantAuth {
		t.Errorf("Authorization = %q, want %q", gotAuth, wantAuth)
	}
	if gotQuery != "start=2026-01-15&end=2026-01-15" {
		t.Errorf("query = %q", gotQuery)
	}

	if len(got) != 2 {
		t.Fatalf("got %d projects, want 2", len(got))
	}
	if got[0].Name != "acme" || got[0].TotalSeconds != 3600.5 {
		t.Errorf("first project = %+v", got[0])
	}
}

func TestWakapiClient_SummariesErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewWakapiClient(srv.URL, "bad")
	if _, err := c.Summaries(context.Background(), "2026-01-15"); err == nil {
		t.Error("Summaries() expected error for 401, got nil")
	}
}

func TestSyncWakapi(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data":[{"projects":[
			{"name":"acme","total_seconds":3600,"text":"1 hr"},
			{"name":"","total_seconds":50},
			{"name":"idle","total_seconds":0}
		]}]}`)
	}))
	defer srv.Close()

	store := testutil.NewRecordingStore()
	clock := testutil.FixedClock()
	cfg := config.WakapiConfig{Enabled: true, URL: srv.URL, PollIntervalMinutes: 15}
	c := New(cfg, t.TempDir(), nil, store, nil, clock)

	if err := c.SyncWakapi(context.Background()); err != nil {
		t.Fatalf("SyncWakapi() error = %v", err)
	}

	summaries := store.Summaries()
	if len(summaries) != 1 {
		t.Fatalf("recorded %d summaries, want 1 (empty and zero skipped): %v", len(summaries), summaries)
	}
	if summaries[0].Day != "2026-01-15" || summaries[0].Seconds != 3600 {
		t.Errorf("summary = %+v", summaries[0])
	}

	t.Run("repeat sync does not duplicate", func(t *testing.T) {
		if err := c.SyncWakapi(context.Background()); err != nil {
			t.Fatalf("second SyncWakapi() error = %v", err)
		}
		if n := len(store.Summaries()); n != 1 {
			t.Errorf("summaries after second sync = %d, want 1", n)
		}
	})
}

func TestScanLogs(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "acme"), 0755); err != nil {
		t.Fatal(err)
	}

	logDir := t.TempDir()
	logLine := fmt.Sprintf("[2026-01-15 10:01:02] opening folder file://%s/acme src\n", root)
	if err := os.WriteFile(filepath.Join(logDir, "window1.log"), []byte(logLine), 0644); err != nil {
		t.Fatal(err)
	}

	store := testutil.NewRecordingStore()
	clock := testutil.FixedClock()
	cfg := config.WakapiConfig{Enabled: false}
	c := New(cfg, logDir, []string{root}, store, nil, clock)

	if err := c.scanLogs(context.Background(), time.Hour); err != nil {
		t.Fatalf("scanLogs() error = %v", err)
	}

	activities := store.Activities()
	if len(activities) != 1 {
		t.Fatalf("recorded %d activities, want 1: %v", len(activities), activities)
	}
	if activities[0].Kind != track.EventCodingActivity {
		t.Errorf("kind = %q, want %q", activities[0].Kind, track.EventCodingActivity)
	}
	if activities[0].ProjectID == 0 {
		t.Error("coding activity not attributed to a project")
	}

	t.Run("one row per project per day", func(t *testing.T) {
		if err := c.scanLogs(context.Background(), time.Hour); err != nil {
			t.Fatalf("second scanLogs() error = %v", err)
		}
		if n := len(store.Activities()); n != 1 {
			t.Errorf("activities after second scan = %d, want 1", n)
		}
	})
}

func TestScanLogs_MissingDir(t *testing.T) {
	store := testutil.NewRecordingStore()
	c := New(config.WakapiConfig{}, filepath.Join(t.TempDir(), "nope"), nil, store, nil, testutil.FixedClock())

	if err := c.scanLogs(context.Background(), time.Hour); err == nil {
		t.Error("scanLogs() with missing dir expected error, got nil")
	}
}

func TestDefaultVSCodeLogDir(t *testing.T) {
	if dir := DefaultVSCodeLogDir(); dir == "" {
		t.Skip("no home directory in test environment")
	}
}
