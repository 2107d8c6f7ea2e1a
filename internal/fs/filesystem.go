package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"sync-shuttle/internal/shuttle"
)

// IgnoreFileName is read from the root of every scanned tree.
const IgnoreFileName = ".shuttleignore"

// OSFilesystemManager is the real filesystem implementation of FilesystemManager.
// It performs actual filesystem operations using the os package.
type OSFilesystemManager struct {
	ignore []string
	logger shuttle.Logger
}

// NewOSFilesystemManager creates a filesystem manager that operates on the real filesystem.
// ignore holds patterns applied to every scan in addition to the root's ignore file.
func NewOSFilesystemManager(ignore []string, logger shuttle.Logger) *OSFilesystemManager {
	return &OSFilesystemManager{ignore: ignore, logger: logger}
}

// Scan enumerates the regular files under root.
func (m *OSFilesystemManager) Scan(root string, maxDepth int) ([]*shuttle.Path, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", root)
	}

	patterns, err := ParseIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	matcher := NewIgnoreMatcher(append(append([]string{}, m.ignore...), patterns...))

	var paths []*shuttle.Path
	if err := m.walk(root, "", 0, maxDepth, matcher, &paths); err != nil {
		return nil, err
	}
	return paths, nil
}

// walk lists dir (rel below the root, depth levels down) and recurses into
// subdirectories while they stay under maxDepth.
func (m *OSFilesystemManager) walk(dir, rel string, depth, maxDepth int, matcher *IgnoreMatcher, out *[]*shuttle.Path) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if depth == 0 {
			return fmt.Errorf("reading directory: %w", err)
		}
		m.logger.Debug("skipping unreadable directory", "path", dir, "error", err)
		return nil
	}

	var dirs, files []scanEntry
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		full := filepath.Join(dir, e.Name())
		info, err := entryInfo(e, full)
		if err != nil {
			m.logger.Debug("skipping unreadable entry", "path", full, "error", err)
			continue
		}
		if matcher.Match(filepath.FromSlash(path.Join(rel, e.Name())), info.IsDir()) {
			continue
		}
		if info.IsDir() {
			dirs = append(dirs, scanEntry{e.Name(), info})
		} else if info.Mode().IsRegular() {
			files = append(files, scanEntry{e.Name(), info})
		}
	}
	sortByFoldedName(dirs)
	sortByFoldedName(files)

	for _, d := range dirs {
		if depth+1 >= maxDepth {
			break
		}
		if err := m.walk(filepath.Join(dir, d.name), path.Join(rel, d.name), depth+1, maxDepth, matcher, out); err != nil {
			return err
		}
	}
	for _, f := range files {
		*out = append(*out, shuttle.NewPath(filepath.Join(dir, f.name), path.Join(rel, f.name), f.info))
	}
	return nil
}

type scanEntry struct {
	name string
	info fs.FileInfo
}

// entryInfo describes e, following a symlink to its target. A dangling
// link or an entry removed since ReadDir is an error.
func entryInfo(e fs.DirEntry, full string) (fs.FileInfo, error) {
	if e.Type()&fs.ModeSymlink != 0 {
		return os.Stat(full)
	}
	return e.Info()
}

// CountTopLevel counts the non-hidden entries directly inside dir.
func (m *OSFilesystemManager) CountTopLevel(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading directory: %w", err)
	}
	n := 0
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), ".") {
			n++
		}
	}
	return n, nil
}

func sortByFoldedName(entries []scanEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].name) < strings.ToLower(entries[j].name)
	})
}

// Compile-time check that OSFilesystemManager implements shuttle.FilesystemManager interface
var _ shuttle.FilesystemManager = (*OSFilesystemManager)(nil)
