package gitcommit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"worklog/internal/track"
)

// gitTimeout bounds each git invocation; a hung git must never hang the
// post-commit hook.
const gitTimeout = 15 * time.Second

// sep separates fields in the git log format string. Unlikely to appear
// in a commit subject.
const sep = "|SEP|"

// ErrNotRepository reports that the target path has no .git directory.
// Callers treat it differently from transient store or git failures.
var ErrNotRepository = errors.New("not a git repository")

// Commit is the recorded head commit of a repository. AuthoredAt stamps
// the stored rows rather than riding in the JSON payload.
type Commit struct {
	Repo         string   `json:"repo"`
	Hash         string   `json:"hash"`
	ShortHash    string   `json:"short_hash"`
	Subject      string   `json:"subject"`
	Author       string   `json:"author"`
	ChangedFiles []string `json:"changed_files"`

	AuthoredAt time.Time `json:"-"`
}

// Run records the HEAD commit of the repository at repoPath: one
// git_commit activity row plus one file event per changed file. roots are
// the configured watch roots used for project attribution.
func Run(ctx context.Context, repoPath string, roots []string, store track.Store, log track.Logger) error {
	if log == nil {
		log = track.NopLogger{}
	}

	repoPath, err := filepath.Abs(repoPath)
	if err != nil {
		return fmt.Errorf("resolving repository path: %w", err)
	}
	if info, statErr := os.Stat(filepath.Join(repoPath, ".git")); statErr != nil || !info.IsDir() {
		return fmt.Errorf("%s: %w", repoPath, ErrNotRepository)
	}

	commit, err := readHead(ctx, repoPath)
	if err != nil {
		return fmt.Errorf("reading HEAD of %s: %w", repoPath, err)
	}

	// Rows carry the author timestamp so a hook firing late, or a manual
	// re-run, still dates the event when the commit was made.
	now := commit.AuthoredAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	attr, ok := track.ResolveProject(repoPath, roots)
	if !ok {
		// Repository outside the watch roots: attribute by its own name.
		attr = track.Attribution{Name: filepath.Base(repoPath), Path: repoPath}
	}
	var projectID int64
	if id, err := store.GetOrCreateProject(ctx, attr.Name, attr.Path); err != nil {
		log.Error("resolving project for commit", "repo", repoPath, "error", err)
	} else {
		projectID = id
	}

	payload, err := json.Marshal(commit)
	if err != nil {
		return fmt.Errorf("encoding commit payload: %w", err)
	}

	activityID, err := store.InsertActivity(ctx, track.ActivityEvent{
		Timestamp: now,
		Kind:      track.EventGitCommit,
		ProjectID: projectID,
		Summary:   commit.Subject,
		Data:      string(payload),
	})
	if err != nil {
		return fmt.Errorf("recording commit: %w", err)
	}

	for _, rel := range commit.ChangedFiles {
		full := filepath.Join(repoPath, rel)
		size := int64(-1)
		if info, err := os.Stat(full); err == nil {
			size = info.Size()
		}
		err := store.InsertFileEvent(ctx, track.FileEvent{
			ActivityID: activityID,
			Timestamp:  now,
			Path:       full,
			Kind:       track.FileModified,
			ProjectID:  projectID,
			Size:       size,
		})
		if err != nil {
			log.Error("recording changed file", "path", full, "error", err)
		}
	}

	log.Info("commit recorded", "repo", repoPath, "hash", commit.ShortHash, "files", len(commit.ChangedFiles))
	return nil
}

// readHead shells out to git for the HEAD commit metadata and its changed
// files.
func readHead(ctx context.Context, repoPath string) (*Commit, error) {
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	format := strings.Join([]string{"%H", "%h", "%s", "%an", "%aI"}, sep)
	out, err := gitOutput(ctx, repoPath, "log", "-1", "--pretty=format:"+format)
	if err != nil {
		return nil, err
	}

	fields := strings.Split(out, sep)
	if len(fields) != 5 {
		return nil, fmt.Errorf("unexpected git log output %q", out)
	}

	commit := &Commit{
		Repo:      repoPath,
		Hash:      fields[0],
		ShortHash: fields[1],
		Subject:   fields[2],
		Author:    fields[3],
	}
	if at, err := time.Parse(time.RFC3339, fields[4]); err == nil {
		commit.AuthoredAt = at.UTC()
	}

	// --root makes the very first commit report its files too.
	filesOut, err := gitOutput(ctx, repoPath, "diff-tree", "--no-commit-id", "--root", "-r", "--name-only", "HEAD")
	if err != nil {
		return nil, err
	}
	for _, line := range strings.Split(filesOut, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			commit.ChangedFiles = append(commit.ChangedFiles, line)
		}
	}

	return commit, nil
}

func gitOutput(ctx context.Context, repoPath string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", repoPath}, args...)...)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}
