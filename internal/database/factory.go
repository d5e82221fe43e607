package database

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"worklog/internal/config"
	"worklog/internal/track"
)

// NewStoreFromConfig opens the event store described by the config.
// When dryRun is set every collector write is printed to w instead,
// and no store file is touched.
func NewStoreFromConfig(cfg *config.Config, dryRun bool, w io.Writer) (track.Store, error) {
	if dryRun {
		return track.NewDryRunStore(w), nil
	}

	path := cfg.DBPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	store, err := NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("opening event store: %w", err)
	}
	return store, nil
}

// StoreExists reports whether the event store file has been initialized.
// One-shot collectors use this to exit cleanly on machines where the
// daemon has never run.
func StoreExists(cfg *config.Config) bool {
	_, err := os.Stat(cfg.DBPath())
	return err == nil
}
