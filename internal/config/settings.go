package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Settings is the optional application configuration file (shuttle.toml).
type Settings struct {
	Executor ExecutorConfig `toml:"executor"`
	Catalog  CatalogConfig  `toml:"catalog"`
	History  HistoryConfig  `toml:"history"`
	Index    IndexConfig    `toml:"index"`
}

// ExecutorConfig locates the external transfer executor and bounds each run.
type ExecutorConfig struct {
	Script       string        `toml:"script"`
	PushTimeout  time.Duration `toml:"push_timeout"`
	PullTimeout  time.Duration `toml:"pull_timeout"`
	ShareTimeout time.Duration `toml:"share_timeout"`
}

// CatalogConfig holds local scan settings.
type CatalogConfig struct {
	MaxDepth int      `toml:"max_depth"`
	Ignore   []string `toml:"ignore"`
}

// HistoryConfig holds ledger display settings.
type HistoryConfig struct {
	Limit int `toml:"limit"`
}

// IndexConfig selects the ledger index backend: "sqlite" (default) or "memory".
type IndexConfig struct {
	Type string `toml:"type"`
}

// DefaultSettings returns the settings used when no file is present.
func DefaultSettings() *Settings {
	return &Settings{
		Executor: ExecutorConfig{
			Script:       "sync-shuttle.sh",
			PushTimeout:  60 * time.Second,
			PullTimeout:  60 * time.Second,
			ShareTimeout: 30 * time.Second,
		},
		Catalog: CatalogConfig{MaxDepth: 4},
		History: HistoryConfig{Limit: 20},
		Index:   IndexConfig{Type: "sqlite"},
	}
}

// Manager handles reading and writing settings.
type Manager struct{}

// Read decodes Settings from the provided reader. Keys absent from the
// input keep their default values.
func (m *Manager) Read(r io.Reader) (*Settings, error) {
	s := DefaultSettings()
	if _, err := toml.NewDecoder(r).Decode(s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Write encodes Settings to the provided writer.
func (m *Manager) Write(w io.Writer, s *Settings) error {
	if err := toml.NewEncoder(w).Encode(s); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return nil
}

func (s *Settings) validate() error {
	if s.Executor.PushTimeout <= 0 || s.Executor.PullTimeout <= 0 || s.Executor.ShareTimeout <= 0 {
		return fmt.Errorf("executor timeouts must be positive")
	}
	if s.Index.Type != "sqlite" && s.Index.Type != "memory" {
		return fmt.Errorf("unknown index type: %q", s.Index.Type)
	}
	if s.Catalog.MaxDepth < 1 {
		return fmt.Errorf("catalog max_depth must be at least 1, got %d", s.Catalog.MaxDepth)
	}
	return nil
}

// ReadSettingsFile reads Settings from path. A missing file yields defaults.
func ReadSettingsFile(path string) (*Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultSettings(), nil
		}
		return nil, fmt.Errorf("failed to open settings file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	s, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading settings from %s: %w", path, err)
	}
	return s, nil
}

// InitSettings writes default settings to path unless a file is already there.
func InitSettings(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("settings file already exists at %s", path)
	}
	return WriteAtomic(path, func(w io.Writer) error {
		m := &Manager{}
		return m.Write(w, DefaultSettings())
	})
}
