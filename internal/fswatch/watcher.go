package fswatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"worklog/internal/track"
)

// Watcher turns raw filesystem notifications under the configured roots
// into activity and file event rows. Directories are watched recursively;
// watches follow directory creation and removal at runtime.
type Watcher struct {
	roots    []string
	excludes []string
	store    track.Store
	log      track.Logger
	clock    track.Clock

	fsw      *fsnotify.Watcher
	debounce *track.Debouncer

	mu      sync.Mutex
	watched map[string]struct{}

	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// New creates a watcher for the given roots. Roots that do not exist are
// skipped with a warning when Start runs; New fails only when the
// underlying notification facility cannot be created.
func New(roots, excludes []string, store track.Store, log track.Logger, clock track.Clock) (*Watcher, error) {
	if log == nil {
		log = track.NopLogger{}
	}
	if clock == nil {
		clock = track.RealClock{}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating filesystem watcher: %w", err)
	}

	return &Watcher{
		roots:    roots,
		excludes: excludes,
		store:    store,
		log:      log,
		clock:    clock,
		fsw:      fsw,
		debounce: track.NewDebouncer(track.DebounceWindow, track.DebounceHorizon, clock),
		watched:  make(map[string]struct{}),
		stop:     make(chan struct{}),
	}, nil
}

// Start registers watches on every directory under the roots and begins
// processing events until Stop is called or ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	watchedRoots := 0
	for _, root := range w.roots {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			w.log.Warn("skipping unwatchable root", "root", root, "error", err)
			continue
		}
		if err := w.watchRecursive(root); err != nil {
			w.log.Warn("partial watch for root", "root", root, "error", err)
		}
		watchedRoots++
	}
	if watchedRoots == 0 {
		return fmt.Errorf("no watchable roots among %v", w.roots)
	}

	w.log.Info("filesystem watcher started", "roots", watchedRoots, "dirs", w.watchedCount())

	w.wg.Add(1)
	go w.run(ctx)
	return nil
}

// Stop shuts the watcher down and waits for the event loop to drain.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		close(w.stop)
		w.fsw.Close()
	})
	w.wg.Wait()
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error", "error", err)
		case evt, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ctx, evt)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, evt fsnotify.Event) {
	path := filepath.Clean(evt.Name)

	if track.ShouldExclude(path, w.excludes) {
		return
	}

	kind, ok := eventKind(evt.Op)
	if !ok {
		return
	}

	if kind == track.FileCreated {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			// A new directory needs its own watch before events inside it
			// can be seen.
			if err := w.watchRecursive(path); err != nil {
				w.log.Warn("watching new directory", "path", path, "error", err)
			}
			return
		}
	}
	if kind == track.FileDeleted {
		w.unwatch(path)
	}

	// Keyed on the path alone: an editor save bursts Create then Write
	// for the same file and must collapse to one recorded event.
	if !w.debounce.Accept(path) {
		return
	}

	w.record(ctx, path, kind)
}

// record writes one activity row plus its linked file event.
func (w *Watcher) record(ctx context.Context, path, kind string) {
	now := w.clock.Now()

	var projectID int64
	if attr, ok := track.ResolveProject(path, w.roots); ok {
		id, err := w.store.GetOrCreateProject(ctx, attr.Name, attr.Path)
		if err != nil {
			w.log.Error("resolving project", "path", path, "error", err)
		} else {
			projectID = id
		}
	}

	size := int64(-1)
	if kind != track.FileDeleted {
		if info, err := os.Stat(path); err == nil {
			size = info.Size()
		}
	}

	activityID, err := w.store.InsertActivity(ctx, track.ActivityEvent{
		Timestamp: now,
		Kind:      track.EventFileChange,
		ProjectID: projectID,
		Summary:   fmt.Sprintf("%s: %s", kind, filepath.Base(path)),
		Data:      path,
	})
	if err != nil {
		w.log.Error("recording activity", "path", path, "error", err)
		return
	}

	err = w.store.InsertFileEvent(ctx, track.FileEvent{
		ActivityID: activityID,
		Timestamp:  now,
		Path:       path,
		Kind:       kind,
		ProjectID:  projectID,
		Size:       size,
	})
	if err != nil {
		w.log.Error("recording file event", "path", path, "error", err)
	}
}

// watchRecursive adds a watch on root and every directory below it,
// skipping excluded directories entirely.
func (w *Watcher) watchRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && track.ShouldExclude(path, w.excludes) {
			return filepath.SkipDir
		}

		w.mu.Lock()
		defer w.mu.Unlock()
		if _, exists := w.watched[path]; !exists {
			if err := w.fsw.Add(path); err == nil {
				w.watched[path] = struct{}{}
			}
		}
		return nil
	})
}

// unwatch prunes the watch map for a removed directory tree. The kernel
// drops the watches itself; this only keeps the map from leaking.
func (w *Watcher) unwatch(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for p := range w.watched {
		if p == path || strings.HasPrefix(p, path+string(os.PathSeparator)) {
			delete(w.watched, p)
			_ = w.fsw.Remove(p)
		}
	}
}

func (w *Watcher) watchedCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.watched)
}

// eventKind maps an fsnotify op bitmask to a file event kind. Chmod-only
// events are dropped.
func eventKind(op fsnotify.Op) (string, bool) {
	switch {
	case op&fsnotify.Create != 0:
		return track.FileCreated, true
	case op&fsnotify.Write != 0:
		return track.FileModified, true
	case op&fsnotify.Remove != 0, op&fsnotify.Rename != 0:
		return track.FileDeleted, true
	default:
		return "", false
	}
}
