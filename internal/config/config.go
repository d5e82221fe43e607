package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the main configuration for worklog. It is read once at process
// start and passed into every collector constructor; there is no ambient
// global lookup.
type Config struct {
	WatchRoots        []string `toml:"watch_roots"`
	ExcludePatterns   []string `toml:"exclude_patterns"`
	ClaudeHistoryPath string   `toml:"claude_history_path,omitempty"`
	DailySummaryTime  string   `toml:"daily_summary_time"`
	SummaryCommand    string   `toml:"summary_command,omitempty"`
	SensitivePatterns []string `toml:"sensitive_patterns"`
	DataDir           string   `toml:"data_dir"`
	LogDir            string   `toml:"log_dir"`

	// BrowserHistoryPath overrides browser history auto-detection.
	BrowserHistoryPath string `toml:"browser_history_path,omitempty"`

	Wakapi WakapiConfig `toml:"wakapi"`
}

// WakapiConfig is the coding-activity integration block. When disabled or
// unreachable the collector falls back to scanning editor log files.
type WakapiConfig struct {
	Enabled             bool   `toml:"enabled"`
	URL                 string `toml:"url"`
	APIKey              string `toml:"api_key,omitempty"`
	PollIntervalMinutes int    `toml:"poll_interval_minutes"`
}

// NewConfig creates a new Config with default values rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		ExcludePatterns: []string{
			".git", "node_modules", "__pycache__", ".venv",
			"*.tmp", "*.swp", ".obsidian",
		},
		DailySummaryTime: "23:55",
		DataDir:          filepath.Join(baseDir, "data"),
		LogDir:           filepath.Join(baseDir, "log"),
		Wakapi: WakapiConfig{
			URL:                 "http://localhost:3000",
			PollIntervalMinutes: 15,
		},
	}
}

// DBPath returns the event store location inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "worklog.db")
}

// BrowserCursorPath returns the browser sync-state file location.
func (c *Config) BrowserCursorPath() string {
	return filepath.Join(c.DataDir, "browser_sync_state.json")
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader. Keys the file does not
// set keep their defaults.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	cfg := NewConfig("")
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.DailySummaryTime == "" {
		cfg.DailySummaryTime = "23:55"
	}
	if cfg.Wakapi.URL == "" {
		cfg.Wakapi.URL = "http://localhost:3000"
	}
	if cfg.Wakapi.PollIntervalMinutes <= 0 {
		cfg.Wakapi.PollIntervalMinutes = 15
	}
	return cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the
// provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
