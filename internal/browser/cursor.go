package browser

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// syncState is the on-disk cursor: the Unix timestamp of the newest visit
// already ingested. Visits at or before it are never re-read.
type syncState struct {
	LastSyncUnix int64 `json:"last_sync_unix"`
}

// loadCursor reads the sync state file. A missing or unreadable file
// yields the zero time, which makes the next sync fall back to the
// lookback window.
func loadCursor(path string) time.Time {
	data, err := os.ReadFile(path)
	if err != nil {
		return time.Time{}
	}
	var st syncState
	if err := json.Unmarshal(data, &st); err != nil || st.LastSyncUnix == 0 {
		return time.Time{}
	}
	return time.Unix(st.LastSyncUnix, 0).UTC()
}

// saveCursor writes the sync state file, creating its directory if needed.
func saveCursor(path string, t time.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	data, err := json.Marshal(syncState{LastSyncUnix: t.Unix()})
	if err != nil {
		return fmt.Errorf("encoding sync state: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing sync state: %w", err)
	}
	return nil
}
