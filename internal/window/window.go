package window

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"worklog/internal/track"
)

// DefaultInterval is how often the active window is sampled.
const DefaultInterval = 30 * time.Second

// DefaultDenylist filters system surfaces that never represent work:
// shell chrome, lock and logon screens, search and settings panels.
// Matched case-insensitively against both the application name and title.
var DefaultDenylist = []string{
	"explorer", "task manager", "taskmgr", "clock", "calculator",
	"snipping tool", "magnifier", "narrator", "on-screen keyboard",
	"action center", "start", "search", "cortana", "settings",
	"control panel", "windows security", "system tray", "notification",
	"lockapp", "screensaver", "logonui",
}

// Info describes the currently focused window.
type Info struct {
	App   string
	Title string
}

// Prober reads the active window from the desktop environment.
type Prober interface {
	ActiveWindow(ctx context.Context) (Info, error)
}

// Poller samples the active window on an interval and records focus
// changes. A sample identical to the previous one writes nothing.
type Poller struct {
	prober   Prober
	store    track.Store
	log      track.Logger
	clock    track.Clock
	interval time.Duration
	roots    []string
	denylist []string

	lastKey string
}

// NewPoller creates a window focus poller. A nil denylist gets the
// default; interval zero gets DefaultInterval.
func NewPoller(prober Prober, store track.Store, log track.Logger, clock track.Clock, interval time.Duration, roots, denylist []string) *Poller {
	if log == nil {
		log = track.NopLogger{}
	}
	if clock == nil {
		clock = track.RealClock{}
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if denylist == nil {
		denylist = DefaultDenylist
	}
	return &Poller{
		prober:   prober,
		store:    store,
		log:      log,
		clock:    clock,
		interval: interval,
		roots:    roots,
		denylist: denylist,
	}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.log.Info("window poller started", "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.pollOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// pollOnce samples the active window and records it when it differs from
// the previous sample and survives the denylist.
func (p *Poller) pollOnce(ctx context.Context) {
	info, err := p.prober.ActiveWindow(ctx)
	if err != nil {
		p.log.Debug("window probe failed", "error", err)
		return
	}

	if info.App == "" && info.Title == "" {
		return
	}
	if p.denied(info) {
		return
	}

	key := info.App + "|" + info.Title
	if key == p.lastKey {
		return
	}
	p.lastKey = key

	var projectID int64
	if folder := ParseVSCodeTitle(info.Title); folder != "" {
		if id, err := p.projectForFolder(ctx, folder); err != nil {
			p.log.Error("resolving project for window", "folder", folder, "error", err)
		} else {
			projectID = id
		}
	}

	_, err = p.store.InsertActivity(ctx, track.ActivityEvent{
		Timestamp: p.clock.Now(),
		Kind:      track.EventWindowFocus,
		ProjectID: projectID,
		App:       info.App,
		Summary:   info.Title,
	})
	if err != nil {
		p.log.Error("recording window focus", "app", info.App, "error", err)
	}
}

func (p *Poller) denied(info Info) bool {
	app := strings.ToLower(info.App)
	title := strings.ToLower(info.Title)
	for _, deny := range p.denylist {
		if strings.Contains(app, deny) || strings.Contains(title, deny) {
			return true
		}
	}
	return false
}

// projectForFolder attributes an editor workspace folder to a project by
// looking for a directory of that name directly under a watch root.
func (p *Poller) projectForFolder(ctx context.Context, folder string) (int64, error) {
	for _, root := range p.roots {
		candidate := filepath.Join(root, folder)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return p.store.GetOrCreateProject(ctx, folder, candidate)
		}
	}
	return 0, nil
}

// ParseVSCodeTitle extracts the workspace folder from a VS Code window
// title. Titles follow the "file - folder - Visual Studio Code"
// convention, with a leading dirty marker when the file is unsaved.
// Returns "" for titles that are not VS Code's.
func ParseVSCodeTitle(title string) string {
	title = strings.TrimPrefix(title, "● ") // dirty marker
	parts := strings.Split(title, " - ")
	for i, part := range parts {
		if !strings.HasPrefix(part, "Visual Studio Code") {
			continue
		}
		switch {
		case i == 0:
			return ""
		case i >= 2:
			return parts[i-1]
		default:
			// "folder - Visual Studio Code": no file open.
			return parts[0]
		}
	}
	return ""
}

// String describes the poller for status output.
func (p *Poller) String() string {
	return fmt.Sprintf("window poller (every %s)", p.interval)
}
