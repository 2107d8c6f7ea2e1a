package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variables consulted by GetDefaults. They are also exported to
// the executor so it resolves the same layout.
const (
	EnvHome      = "SYNC_SHUTTLE_HOME"
	EnvConfigDir = "SYNC_SHUTTLE_CONFIG_DIR"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - SYNC_SHUTTLE_HOME: base directory for shuttle data (default: ~/.sync-shuttle)
//   - SYNC_SHUTTLE_CONFIG_DIR: configuration directory (default: <base>/config)
func GetDefaults() (map[string]string, error) {
	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}
	return Layout(baseDir, os.Getenv(EnvConfigDir)), nil
}

// Layout returns every path of the shuttle tree rooted at baseDir. An empty
// configDir selects baseDir/config.
func Layout(baseDir, configDir string) map[string]string {
	if configDir == "" {
		configDir = filepath.Join(baseDir, "config")
	}
	logDir := filepath.Join(baseDir, "logs")
	return map[string]string{
		"base_dir":      baseDir,
		"config_dir":    configDir,
		"servers_path":  filepath.Join(configDir, "servers.toml"),
		"settings_path": filepath.Join(configDir, "shuttle.toml"),
		"log_dir":       logDir,
		"ledger_path":   filepath.Join(logDir, "sync.jsonl"),
		"log_path":      filepath.Join(logDir, "shuttle.log"),
		"inbox_dir":     filepath.Join(baseDir, "local", "inbox"),
		"outbox_dir":    filepath.Join(baseDir, "local", "outbox"),
		"cache_dir":     filepath.Join(baseDir, "cache", "remote"),
		"state_dir":     filepath.Join(baseDir, "state"),
		"index_path":    filepath.Join(baseDir, "state", "ledger.db"),
	}
}

// layoutDirs lists the directories Init creates.
var layoutDirs = []string{"config_dir", "log_dir", "inbox_dir", "outbox_dir", "cache_dir", "state_dir"}

// getBaseDir returns the base directory, checking SYNC_SHUTTLE_HOME first,
// then falling back to ~/.sync-shuttle.
func getBaseDir() (string, error) {
	if path := os.Getenv(EnvHome); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".sync-shuttle"), nil
}
