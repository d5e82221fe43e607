package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - WORKLOG_CONFIG_PATH: config file location (default: ~/.config/worklog.toml)
//   - WORKLOG_HOME: base directory for worklog data (default: ~/.local/share/worklog)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"data_dir":    filepath.Join(baseDir, "data"),
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking WORKLOG_CONFIG_PATH
// first, then falling back to the default ~/.config/worklog.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("WORKLOG_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "worklog.toml"), nil
}

// getBaseDir returns the base directory for worklog data, checking
// WORKLOG_HOME first, then falling back to the XDG default
// ~/.local/share/worklog.
func getBaseDir() (string, error) {
	if path := os.Getenv("WORKLOG_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "worklog"), nil
}
