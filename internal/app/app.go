package app

import (
	"fmt"
	"os"

	"worklog/internal/config"
	"worklog/internal/database"
	"worklog/internal/track"
)

// Options control how the application layer is wired.
type Options struct {
	// DryRun substitutes a printing store; no database file is touched.
	DryRun bool

	// AutoMigrate brings the store schema up to date instead of failing
	// when it is behind. Used by the daemon and by init-db.
	AutoMigrate bool
}

// App is the application layer between the CLI and the collectors.
// It wires the config, event store, and logger together; the caller must
// call Close when done.
type App struct {
	Cfg   *config.Config
	Store track.Store
	Log   track.Logger

	run     *Run
	logFile *os.File
}

// NewApp creates a fully wired App from the given config.
// command identifies the CLI command being run (e.g. "files", "daemon").
func NewApp(cfg *config.Config, command string, opts Options) (*App, error) {
	run := NewRun(command)

	logger, logFile, err := newLogger(cfg.LogDir, run.ID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	store, err := database.NewStoreFromConfig(cfg, opts.DryRun, os.Stdout)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating event store: %w", err)
	}

	if s, ok := store.(*database.SQLiteStore); ok {
		if opts.AutoMigrate {
			if err := s.MigrateUp(); err != nil {
				store.Close()
				logFile.Close()
				return nil, fmt.Errorf("migrating event store: %w", err)
			}
		} else if err := s.CheckMigrations(); err != nil {
			store.Close()
			logFile.Close()
			return nil, fmt.Errorf("event store schema out of date (run `worklog init-db`): %w", err)
		}
	}

	return &App{
		Cfg:     cfg,
		Store:   store,
		Log:     &slogAdapter{l: logger},
		run:     run,
		logFile: logFile,
	}, nil
}

// RunID returns the short id identifying this invocation in the log file.
func (a *App) RunID() string {
	return a.run.ID
}

// Close releases the store and the log file.
func (a *App) Close() error {
	var firstErr error

	if err := a.Store.Close(); err != nil {
		firstErr = fmt.Errorf("closing event store: %w", err)
	}

	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}

	return firstErr
}
