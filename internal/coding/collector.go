package coding

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"worklog/internal/config"
	"worklog/internal/track"
)

// FallbackInterval is how often the log-scan fallback runs.
const FallbackInterval = time.Hour

// Collector records daily coding totals. The strategy is chosen once at
// startup: a reachable Wakapi instance is polled for per-project
// summaries; otherwise VS Code logs are scanned for a coarse
// one-row-per-project-per-day signal.
type Collector struct {
	cfg    config.WakapiConfig
	client *WakapiClient
	logDir string
	roots  []string
	store  track.Store
	log    track.Logger
	clock  track.Clock
}

// New creates a coding-activity collector. logDir "" means the platform
// default VS Code location.
func New(cfg config.WakapiConfig, logDir string, roots []string, store track.Store, log track.Logger, clock track.Clock) *Collector {
	if log == nil {
		log = track.NopLogger{}
	}
	if clock == nil {
		clock = track.RealClock{}
	}
	if logDir == "" {
		logDir = DefaultVSCodeLogDir()
	}
	return &Collector{
		cfg:    cfg,
		client: NewWakapiClient(cfg.URL, cfg.APIKey),
		logDir: logDir,
		roots:  roots,
		store:  store,
		log:    log,
		clock:  clock,
	}
}

// Run picks a strategy and loops until ctx is cancelled.
func (c *Collector) Run(ctx context.Context) {
	if c.cfg.Enabled && c.client.Healthy(ctx) {
		interval := time.Duration(c.cfg.PollIntervalMinutes) * time.Minute
		if interval <= 0 {
			interval = 15 * time.Minute
		}
		c.log.Info("coding collector started", "mode", "wakapi", "interval", interval)
		c.loop(ctx, interval, c.SyncWakapi)
		return
	}

	if c.cfg.Enabled {
		c.log.Warn("wakapi unreachable, falling back to editor log scan", "url", c.cfg.URL)
	}
	c.log.Info("coding collector started", "mode", "log-scan", "interval", FallbackInterval)
	c.loop(ctx, FallbackInterval, func(ctx context.Context) error {
		return c.scanLogs(ctx, FallbackInterval)
	})
}

func (c *Collector) loop(ctx context.Context, interval time.Duration, sync func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := sync(ctx); err != nil {
			c.log.Warn("coding sync failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SyncWakapi fetches today's per-project totals and upserts one
// vscode_coding row per project.
func (c *Collector) SyncWakapi(ctx context.Context) error {
	day := c.clock.Now().UTC().Format("2006-01-02")

	summaries, err := c.client.Summaries(ctx, day)
	if err != nil {
		return fmt.Errorf("fetching wakapi summaries: %w", err)
	}

	for _, s := range summaries {
		if s.Name == "" || s.TotalSeconds <= 0 {
			continue
		}

		attr := c.attributed(s.Name)
		projectID, err := c.store.GetOrCreateProject(ctx, attr.Name, attr.Path)
		if err != nil {
			c.log.Error("resolving project for coding summary", "project", s.Name, "error", err)
			continue
		}

		written, err := c.store.UpsertCodingSummary(ctx, day, projectID, int64(s.TotalSeconds), s.Text, "")
		if err != nil {
			c.log.Error("recording coding summary", "project", s.Name, "error", err)
			continue
		}
		if written {
			c.log.Debug("coding summary updated", "project", s.Name, "seconds", int64(s.TotalSeconds))
		}
	}
	return nil
}

// attributed maps a Wakapi project name onto a watch-root directory when
// one of that name exists; otherwise the name stands alone.
func (c *Collector) attributed(name string) track.Attribution {
	for _, root := range c.roots {
		candidate := filepath.Join(root, name)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return track.Attribution{Name: name, Path: candidate}
		}
	}
	return track.Attribution{Name: name}
}
