package window

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

const probeTimeout = 5 * time.Second

// NewProber returns the window prober for the current platform, or an
// error when the platform has no supported desktop probe. The daemon
// treats that error as a missing capability and runs without the window
// collector.
func NewProber() (Prober, error) {
	switch runtime.GOOS {
	case "linux":
		if _, err := exec.LookPath("xprop"); err != nil {
			return nil, fmt.Errorf("xprop not found (X11 required): %w", err)
		}
		return &xpropProber{}, nil
	case "darwin":
		if _, err := exec.LookPath("osascript"); err != nil {
			return nil, fmt.Errorf("osascript not found: %w", err)
		}
		return &osascriptProber{}, nil
	default:
		return nil, fmt.Errorf("no window prober for %s", runtime.GOOS)
	}
}

// xpropProber reads the active window through X11 root window properties.
type xpropProber struct{}

func (x *xpropProber) ActiveWindow(ctx context.Context) (Info, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "xprop", "-root", "_NET_ACTIVE_WINDOW").Output()
	if err != nil {
		return Info{}, fmt.Errorf("querying active window: %w", err)
	}
	winID := parseWindowID(string(out))
	if winID == "" {
		return Info{}, fmt.Errorf("no active window id in %q", strings.TrimSpace(string(out)))
	}

	out, err = exec.CommandContext(ctx, "xprop", "-id", winID, "WM_CLASS", "_NET_WM_NAME").Output()
	if err != nil {
		return Info{}, fmt.Errorf("querying window %s: %w", winID, err)
	}

	info := parseXpropOutput(string(out))
	return info, nil
}

// parseWindowID extracts the window id from
// "_NET_ACTIVE_WINDOW(WINDOW): window id # 0x3c00007".
func parseWindowID(s string) string {
	idx := strings.LastIndex(s, "0x")
	if idx < 0 {
		return ""
	}
	id := strings.TrimSpace(s[idx:])
	if id == "0x0" {
		return ""
	}
	return id
}

// parseXpropOutput pulls the application class and title out of
// WM_CLASS/_NET_WM_NAME lines:
//
//	WM_CLASS(STRING) = "code", "Code"
//	_NET_WM_NAME(UTF8_STRING) = "main.go - worklog - Visual Studio Code"
func parseXpropOutput(s string) Info {
	var info Info
	for _, line := range strings.Split(s, "\n") {
		switch {
		case strings.HasPrefix(line, "WM_CLASS"):
			// The second quoted value is the class name.
			fields := splitQuoted(line)
			if len(fields) >= 2 {
				info.App = fields[1]
			} else if len(fields) == 1 {
				info.App = fields[0]
			}
		case strings.HasPrefix(line, "_NET_WM_NAME"):
			fields := splitQuoted(line)
			if len(fields) >= 1 {
				info.Title = fields[0]
			}
		}
	}
	return info
}

// splitQuoted returns the double-quoted substrings of a line.
func splitQuoted(line string) []string {
	var out []string
	for {
		start := strings.IndexByte(line, '"')
		if start < 0 {
			return out
		}
		rest := line[start+1:]
		end := strings.IndexByte(rest, '"')
		if end < 0 {
			return out
		}
		out = append(out, rest[:end])
		line = rest[end+1:]
	}
}

// osascriptProber reads the frontmost application and window title via
// System Events.
type osascriptProber struct{}

const frontmostScript = `tell application "System Events"
	set frontApp to first application process whose frontmost is true
	set appName to name of frontApp
	set winTitle to ""
	try
		set winTitle to name of front window of frontApp
	end try
	return appName & "\n" & winTitle
end tell`

func (o *osascriptProber) ActiveWindow(ctx context.Context) (Info, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "osascript", "-e", frontmostScript).Output()
	if err != nil {
		return Info{}, fmt.Errorf("querying frontmost application: %w", err)
	}

	lines := strings.SplitN(strings.TrimRight(string(out), "\n"), "\n", 2)
	info := Info{App: strings.TrimSpace(lines[0])}
	if len(lines) > 1 {
		info.Title = strings.TrimSpace(lines[1])
	}
	return info, nil
}
