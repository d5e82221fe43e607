package browser

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultHistoryPaths lists the Chromium-family history files for the
// current platform, most common browser first. The first existing file
// wins.
func DefaultHistoryPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	switch runtime.GOOS {
	case "darwin":
		base := filepath.Join(home, "Library", "Application Support")
		return []string{
			filepath.Join(base, "Google", "Chrome", "Default", "History"),
			filepath.Join(base, "Microsoft Edge", "Default", "History"),
			filepath.Join(base, "Chromium", "Default", "History"),
		}
	case "windows":
		local := os.Getenv("LOCALAPPDATA")
		if local == "" {
			local = filepath.Join(home, "AppData", "Local")
		}
		return []string{
			filepath.Join(local, "Google", "Chrome", "User Data", "Default", "History"),
			filepath.Join(local, "Microsoft", "Edge", "User Data", "Default", "History"),
			filepath.Join(local, "Chromium", "User Data", "Default", "History"),
		}
	default:
		base := filepath.Join(home, ".config")
		return []string{
			filepath.Join(base, "google-chrome", "Default", "History"),
			filepath.Join(base, "chromium", "Default", "History"),
			filepath.Join(base, "microsoft-edge", "Default", "History"),
		}
	}
}

// findHistory returns the first existing history file. override, when
// non-empty, is the only candidate.
func findHistory(override string) string {
	candidates := DefaultHistoryPaths()
	if override != "" {
		candidates = []string{override}
	}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}
