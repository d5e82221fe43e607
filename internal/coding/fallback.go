package coding

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"time"

	"worklog/internal/track"
)

// maxLogRead caps how much of any single editor log file is scanned.
const maxLogRead = 1 << 20

var fileURIPattern = regexp.MustCompile(`file://[^\s"'\\)\]]+`)

// DefaultVSCodeLogDir returns the VS Code log directory for the current
// platform, or "" when the home directory cannot be determined.
func DefaultVSCodeLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Code", "logs")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Code", "logs")
		}
		return filepath.Join(home, "AppData", "Roaming", "Code", "logs")
	default:
		return filepath.Join(home, ".config", "Code", "logs")
	}
}

// scanLogs is the degraded path when no Wakapi instance is reachable:
// editor log files modified inside the window are mined for file://
// workspace URIs, and each project seen gets at most one vscode_activity
// row per day.
func (c *Collector) scanLogs(ctx context.Context, window time.Duration) error {
	if c.logDir == "" {
		return fmt.Errorf("no editor log directory")
	}
	if _, err := os.Stat(c.logDir); err != nil {
		return fmt.Errorf("editor log directory: %w", err)
	}

	now := c.clock.Now()
	cutoff := now.Add(-window)
	day := now.UTC().Format("2006-01-02")

	seen := make(map[string]track.Attribution)
	err := filepath.WalkDir(c.logDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.ModTime().Before(cutoff) {
			return nil
		}
		for _, p := range extractWorkspacePaths(path) {
			if attr, ok := track.ResolveProject(p, c.roots); ok {
				seen[attr.Name] = attr
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking editor logs: %w", err)
	}

	for _, attr := range seen {
		projectID, err := c.store.GetOrCreateProject(ctx, attr.Name, attr.Path)
		if err != nil {
			c.log.Error("resolving project from editor logs", "project", attr.Name, "error", err)
			continue
		}

		already, err := c.store.HasActivityOn(ctx, track.EventCodingActivity, projectID, day)
		if err != nil {
			c.log.Error("checking existing coding activity", "project", attr.Name, "error", err)
			continue
		}
		if already {
			continue
		}

		_, err = c.store.InsertActivity(ctx, track.ActivityEvent{
			Timestamp: now,
			Kind:      track.EventCodingActivity,
			ProjectID: projectID,
			Summary:   "editor activity: " + attr.Name,
		})
		if err != nil {
			c.log.Error("recording coding activity", "project", attr.Name, "error", err)
		}
	}
	return nil
}

// extractWorkspacePaths pulls decoded filesystem paths out of file:// URIs
// in one log file.
func extractWorkspacePaths(logPath string) []string {
	f, err := os.Open(logPath)
	if err != nil {
		return nil
	}
	defer f.Close()

	buf := make([]byte, maxLogRead)
	n, _ := f.Read(buf)

	var out []string
	for _, raw := range fileURIPattern.FindAllString(string(buf[:n]), -1) {
		u, err := url.Parse(raw)
		if err != nil || u.Path == "" {
			continue
		}
		out = append(out, u.Path)
	}
	return out
}
