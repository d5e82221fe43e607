package browser

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3" // read-only history snapshot

	"worklog/internal/track"
)

// DefaultLookback bounds how far back the first sync reaches when no
// cursor exists yet.
const DefaultLookback = 24 * time.Hour

// DefaultSyncInterval is how often the daemon re-syncs browser history.
const DefaultSyncInterval = time.Hour

// Collector ingests Chromium-family browser history into the event log.
// The browser holds its history file locked while running, so each sync
// copies it aside and reads the snapshot.
type Collector struct {
	historyOverride string
	cursorPath      string
	lookback        time.Duration
	store           track.Store
	log             track.Logger
	clock           track.Clock
}

// New creates a browser history collector. historyOverride, when set,
// replaces platform auto-detection; cursorPath is the JSON sync state
// location.
func New(historyOverride, cursorPath string, lookback time.Duration, store track.Store, log track.Logger, clock track.Clock) *Collector {
	if log == nil {
		log = track.NopLogger{}
	}
	if clock == nil {
		clock = track.RealClock{}
	}
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &Collector{
		historyOverride: historyOverride,
		cursorPath:      cursorPath,
		lookback:        lookback,
		store:           store,
		log:             log,
		clock:           clock,
	}
}

// Run syncs immediately and then on the given interval until ctx is
// cancelled. Sync failures are logged; the next cycle retries.
func (c *Collector) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	c.log.Info("browser collector started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if n, err := c.Sync(ctx); err != nil {
			c.log.Warn("browser sync failed", "error", err)
		} else if n > 0 {
			c.log.Info("browser sync complete", "visits", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Sync reads visits newer than the cursor (bounded by the lookback
// window) and records them. The cursor advances to the newest visit seen
// only after the whole batch succeeds, so a failed run is retried in
// full. Returns the number of visits inserted.
func (c *Collector) Sync(ctx context.Context) (int, error) {
	historyPath := findHistory(c.historyOverride)
	if historyPath == "" {
		return 0, fmt.Errorf("no browser history file found")
	}

	snapshot, err := copySnapshot(historyPath)
	if err != nil {
		return 0, fmt.Errorf("copying history file: %w", err)
	}
	defer os.Remove(snapshot)

	cursor := loadCursor(c.cursorPath)
	since := c.clock.Now().Add(-c.lookback)
	if cursor.After(since) {
		since = cursor
	}

	visits, err := readVisits(ctx, snapshot, since)
	if err != nil {
		return 0, err
	}

	inserted := 0
	maxSeen := cursor
	for _, v := range visits {
		// The query bound is approximate; the cursor is authoritative.
		if !v.At.After(cursor) {
			continue
		}
		ok, err := c.store.InsertBrowserVisit(ctx, v.At, v.URL, v.Title)
		if err != nil {
			return inserted, fmt.Errorf("recording visit: %w", err)
		}
		if ok {
			inserted++
		}
		if v.At.After(maxSeen) {
			maxSeen = v.At
		}
	}

	if maxSeen.After(cursor) {
		if err := saveCursor(c.cursorPath, maxSeen); err != nil {
			return inserted, fmt.Errorf("advancing cursor: %w", err)
		}
	}
	return inserted, nil
}

type visit struct {
	At    time.Time
	URL   string
	Title string
}

// readVisits opens the history snapshot read-only and returns visits
// strictly newer than since, oldest first.
func readVisits(ctx context.Context, path string, since time.Time) ([]visit, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening history snapshot: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT urls.url, COALESCE(urls.title, ''), visits.visit_time
		FROM visits JOIN urls ON visits.url = urls.id
		WHERE visits.visit_time > ?
		ORDER BY visits.visit_time ASC`,
		TimeToChrome(since))
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var out []visit
	for rows.Next() {
		var url, title string
		var visitTime int64
		if err := rows.Scan(&url, &title, &visitTime); err != nil {
			return nil, fmt.Errorf("scanning visit: %w", err)
		}
		out = append(out, visit{At: ChromeToTime(visitTime), URL: url, Title: title})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading visits: %w", err)
	}
	return out, nil
}

// copySnapshot copies the live history file to a temp file and returns
// its path. The caller removes it.
func copySnapshot(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "worklog-history-*.db")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), nil
}
