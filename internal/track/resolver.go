package track

import (
	"path"
	"strings"
)

// NormalizePath converts backslashes to forward slashes and cleans the
// result, so that paths coming from different sources (fsnotify, window
// titles, git, config files written on Windows) compare consistently.
func NormalizePath(p string) string {
	return path.Clean(strings.ReplaceAll(p, "\\", "/"))
}

// ResolveProject maps an absolute path to a project: the first path
// component beneath whichever watch root contains it. The comparison is
// case-sensitive first, then case-insensitive as a fallback for
// case-preserving filesystems. A path outside every root is simply not
// attributed; that is never an error.
func ResolveProject(filePath string, watchRoots []string) (Attribution, bool) {
	p := NormalizePath(filePath)

	for _, root := range watchRoots {
		r := NormalizePath(root)
		rel, ok := relativeTo(p, r)
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(rel, "/")
		if name == "" {
			// The path is the watch root itself.
			continue
		}
		return Attribution{Name: name, Path: r + "/" + name}, true
	}
	return Attribution{}, false
}

// relativeTo returns p relative to root when p is beneath it.
func relativeTo(p, root string) (string, bool) {
	if root == "/" {
		if p == "/" {
			return "", false
		}
		return strings.TrimPrefix(p, "/"), true
	}
	if len(p) <= len(root) {
		return "", false
	}
	head, tail := p[:len(root)], p[len(root):]
	if head != root && !strings.EqualFold(head, root) {
		return "", false
	}
	if !strings.HasPrefix(tail, "/") {
		return "", false
	}
	return strings.TrimPrefix(tail, "/"), true
}
