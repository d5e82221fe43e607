package hooks

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"worklog/internal/track"
)

const (
	markerBegin = "# >>> worklog post-commit hook >>>"
	markerEnd   = "# <<< worklog post-commit hook <<<"

	// The hook backgrounds the collector so committing never waits on it.
	hookCommand = `worklog commit --repo "$(pwd)" &`
)

// maxDepth bounds repository discovery below each watch root.
const maxDepth = 2

// DiscoverRepos finds git repositories under the watch roots, at most
// maxDepth levels down, skipping hidden directories. Duplicates (a root
// nested under another) are collapsed.
func DiscoverRepos(roots []string) []string {
	seen := make(map[string]struct{})
	var repos []string

	for _, root := range roots {
		root = filepath.Clean(root)
		filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return nil
			}
			base := filepath.Base(path)
			if path != root && strings.HasPrefix(base, ".") {
				return filepath.SkipDir
			}
			if depth(root, path) > maxDepth {
				return filepath.SkipDir
			}
			if info, err := os.Stat(filepath.Join(path, ".git")); err == nil && info.IsDir() {
				if _, dup := seen[path]; !dup {
					seen[path] = struct{}{}
					repos = append(repos, path)
				}
				return filepath.SkipDir
			}
			return nil
		})
	}
	return repos
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(os.PathSeparator)) + 1
}

// Install idempotently appends the marker-delimited hook block to the
// repository's post-commit hook. An existing block is left untouched.
// Returns whether the hook was newly written.
func Install(repoPath string) (bool, error) {
	hookPath := filepath.Join(repoPath, ".git", "hooks", "post-commit")

	existing, err := os.ReadFile(hookPath)
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("reading hook: %w", err)
	}
	if strings.Contains(string(existing), markerBegin) {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(hookPath), 0755); err != nil {
		return false, fmt.Errorf("creating hooks directory: %w", err)
	}

	var content strings.Builder
	if len(existing) == 0 {
		content.WriteString("#!/bin/sh\n")
	} else {
		content.Write(existing)
		if !strings.HasSuffix(string(existing), "\n") {
			content.WriteString("\n")
		}
	}
	content.WriteString(markerBegin + "\n")
	content.WriteString(hookCommand + "\n")
	content.WriteString(markerEnd + "\n")

	if err := os.WriteFile(hookPath, []byte(content.String()), 0755); err != nil {
		return false, fmt.Errorf("writing hook: %w", err)
	}
	return true, nil
}

// Uninstall removes the marker-delimited block. A hook left with nothing
// but a shebang is deleted outright. Returns whether anything changed.
func Uninstall(repoPath string) (bool, error) {
	hookPath := filepath.Join(repoPath, ".git", "hooks", "post-commit")

	existing, err := os.ReadFile(hookPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading hook: %w", err)
	}

	content := string(existing)
	begin := strings.Index(content, markerBegin)
	if begin < 0 {
		return false, nil
	}
	end := strings.Index(content, markerEnd)
	if end < 0 {
		end = len(content)
	} else {
		end += len(markerEnd)
		if end < len(content) && content[end] == '\n' {
			end++
		}
	}

	remainder := content[:begin] + content[end:]
	if strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(remainder), "#!/bin/sh")) == "" {
		if err := os.Remove(hookPath); err != nil {
			return false, fmt.Errorf("removing hook: %w", err)
		}
		return true, nil
	}

	if err := os.WriteFile(hookPath, []byte(remainder), 0755); err != nil {
		return false, fmt.Errorf("writing hook: %w", err)
	}
	return true, nil
}

// InstallAll discovers repositories under the roots and installs the hook
// in each, logging per-repo results. Returns the number of repositories
// newly hooked.
func InstallAll(roots []string, log track.Logger) int {
	if log == nil {
		log = track.NewNopLogger()
	}
	installed := 0
	for _, repo := range DiscoverRepos(roots) {
		added, err := Install(repo)
		if err != nil {
			log.Warn("hook install failed", "repo", repo, "error", err)
			continue
		}
		if added {
			installed++
			log.Info("hook installed", "repo", repo)
		}
	}
	return installed
}

// UninstallAll removes the hook from every discovered repository and
// returns the number of repositories changed.
func UninstallAll(roots []string, log track.Logger) int {
	if log == nil {
		log = track.NewNopLogger()
	}
	removed := 0
	for _, repo := range DiscoverRepos(roots) {
		changed, err := Uninstall(repo)
		if err != nil {
			log.Warn("hook uninstall failed", "repo", repo, "error", err)
			continue
		}
		if changed {
			removed++
			log.Info("hook removed", "repo", repo)
		}
	}
	return removed
}
