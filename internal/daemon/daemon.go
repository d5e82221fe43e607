package daemon

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"worklog/internal/browser"
	"worklog/internal/coding"
	"worklog/internal/config"
	"worklog/internal/fswatch"
	"worklog/internal/hooks"
	"worklog/internal/track"
	"worklog/internal/window"
)

const (
	statusInterval  = 5 * time.Minute
	browserInterval = time.Hour

	// stopTimeout bounds how long shutdown waits for collectors to drain.
	stopTimeout = 5 * time.Second
)

// Daemon runs every collector concurrently against one shared store and
// coordinates their shutdown.
type Daemon struct {
	cfg    *config.Config
	store  track.Store
	log    track.Logger
	clock  track.Clock
	dryRun bool

	// runSummary is swapped out in tests.
	runSummary func(ctx context.Context, period string)
}

func New(cfg *config.Config, store track.Store, log track.Logger, clock track.Clock, dryRun bool) *Daemon {
	if log == nil {
		log = track.NewNopLogger()
	}
	if clock == nil {
		clock = track.RealClock{}
	}
	d := &Daemon{
		cfg:    cfg,
		store:  store,
		log:    log,
		clock:  clock,
		dryRun: dryRun,
	}
	d.runSummary = d.execSummary
	return d
}

// Run starts all collectors and blocks until ctx is cancelled. Collectors
// that cannot start (no display server, no watchable roots) are logged and
// skipped rather than failing the daemon.
func (d *Daemon) Run(ctx context.Context) error {
	start := d.clock.Now()
	hour, min, err := parseClockTime(d.cfg.DailySummaryTime)
	if err != nil {
		d.log.Warn("invalid daily_summary_time, using 23:55",
			"value", d.cfg.DailySummaryTime, "error", err)
		hour, min = 23, 55
	}
	d.log.Info("daemon starting", "roots", fmt.Sprintf("%v", d.cfg.WatchRoots))

	if d.dryRun {
		d.log.Info("dry run, skipping git hook install")
	} else {
		n := hooks.InstallAll(d.cfg.WatchRoots, d.log)
		d.log.Info("git hooks checked", "installed", n)
	}

	watcher, err := fswatch.New(d.cfg.WatchRoots, d.cfg.ExcludePatterns, d.store, d.log, d.clock)
	if err != nil {
		d.log.Warn("file watching unavailable", "error", err)
		watcher = nil
	} else if err := watcher.Start(ctx); err != nil {
		d.log.Warn("file watching unavailable", "error", err)
		watcher.Stop()
		watcher = nil
	}

	var wg sync.WaitGroup
	spawn := func(name string, run func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run(ctx)
			d.log.Debug("collector finished", "collector", name)
		}()
	}

	if prober, err := window.NewProber(); err != nil {
		d.log.Warn("window tracking unavailable", "error", err)
	} else {
		poller := window.NewPoller(prober, d.store, d.log, d.clock, 0, d.cfg.WatchRoots, nil)
		spawn("window", poller.Run)
	}

	bc := browser.New(d.cfg.BrowserHistoryPath, d.cfg.BrowserCursorPath(), 0, d.store, d.log, d.clock)
	spawn("browser", func(ctx context.Context) { bc.Run(ctx, browserInterval) })

	cc := coding.New(d.cfg.Wakapi, "", d.cfg.WatchRoots, d.store, d.log, d.clock)
	spawn("coding", cc.Run)

	sched, err := d.startScheduler(ctx, hour, min)
	if err != nil {
		if watcher != nil {
			watcher.Stop()
		}
		return err
	}

	d.statusLoop(ctx, start)

	// ctx is done. Give the collectors a bounded window to drain.
	schedCtx := sched.Stop()
	if watcher != nil {
		watcher.Stop()
	}

	drained := make(chan struct{})
	go func() {
		wg.Wait()
		<-schedCtx.Done()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(stopTimeout):
		d.log.Warn("shutdown timed out waiting for collectors", "timeout", stopTimeout)
	}

	d.log.Info("daemon stopped", "uptime", d.clock.Now().Sub(start).Round(time.Second))
	return nil
}

// startScheduler wires the summary triggers: daily at the configured time,
// weekly on Monday just after midnight, and a monthly check each morning
// that fires only on the first of the month.
func (d *Daemon) startScheduler(ctx context.Context, hour, min int) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("%d %d * * *", min, hour), func() {
		d.runSummary(ctx, "daily")
	})
	if err == nil {
		_, err = c.AddFunc("5 0 * * 1", func() {
			d.runSummary(ctx, "weekly")
		})
	}
	if err == nil {
		_, err = c.AddFunc("10 0 * * *", func() {
			if d.clock.Now().Day() == 1 {
				d.runSummary(ctx, "monthly")
			}
		})
	}
	if err != nil {
		return nil, fmt.Errorf("configuring summary schedule: %w", err)
	}
	c.Start()
	return c, nil
}

func (d *Daemon) execSummary(ctx context.Context, period string) {
	if d.cfg.SummaryCommand == "" {
		d.log.Info("summary due", "period", period)
		return
	}
	d.log.Info("running summary command", "period", period)
	cmd := exec.CommandContext(ctx, "sh", "-c", d.cfg.SummaryCommand+" "+period)
	if out, err := cmd.CombinedOutput(); err != nil {
		d.log.Error("summary command failed", "period", period, "error", err, "output", string(out))
	}
}

// statusLoop logs a heartbeat with today's event counts until ctx is done.
func (d *Daemon) statusLoop(ctx context.Context, start time.Time) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.logStatus(ctx, start)
		}
	}
}

func (d *Daemon) logStatus(ctx context.Context, start time.Time) {
	day := d.clock.Now().UTC().Format("2006-01-02")
	args := []any{"uptime", d.clock.Now().Sub(start).Round(time.Second)}
	for _, kind := range []string{
		track.EventFileChange, track.EventWindowFocus, track.EventBrowser,
		track.EventGitCommit, track.EventCodingSummary, track.EventCodingActivity,
	} {
		n, err := d.store.CountEventsOn(ctx, day, kind)
		if err != nil {
			d.log.Warn("status count failed", "kind", kind, "error", err)
			continue
		}
		args = append(args, kind, n)
	}
	d.log.Info("status", args...)
}

// parseClockTime parses "HH:MM" into its components.
func parseClockTime(s string) (hour, min int, err error) {
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &min); err != nil {
		return 0, 0, err
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return 0, 0, fmt.Errorf("out of range")
	}
	return hour, min, nil
}
