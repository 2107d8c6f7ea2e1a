package testutil

import (
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"time"

	"sync-shuttle/internal/shuttle"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Rel     string
	Size    int64
	ModTime time.Time
}

// MockFilesystemManager is an in-memory FilesystemManager. Scan returns the
// files added under a root in insertion order; ordering and depth rules are
// the real scanner's concern.
type MockFilesystemManager struct {
	files map[string][]MockFile

	// ScanErr, when set, is returned by every Scan call.
	ScanErr error
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files: make(map[string][]MockFile),
	}
}

// AddFile adds a file at rel (slash-separated) beneath root.
func (m *MockFilesystemManager) AddFile(root, rel string, size int64, modTime time.Time) {
	m.files[root] = append(m.files[root], MockFile{Rel: rel, Size: size, ModTime: modTime})
}

func (m *MockFilesystemManager) Scan(root string, maxDepth int) ([]*shuttle.Path, error) {
	if m.ScanErr != nil {
		return nil, m.ScanErr
	}
	var paths []*shuttle.Path
	for _, f := range m.files[root] {
		info := &mockFileInfo{
			name:    path.Base(f.Rel),
			size:    f.Size,
			mode:    0644,
			modTime: f.ModTime,
		}
		paths = append(paths, shuttle.NewPath(filepath.Join(root, filepath.FromSlash(f.Rel)), f.Rel, info))
	}
	return paths, nil
}

// CountTopLevel counts the distinct first path components added under dir.
func (m *MockFilesystemManager) CountTopLevel(dir string) (int, error) {
	seen := make(map[string]bool)
	for _, f := range m.files[dir] {
		first, _, _ := strings.Cut(f.Rel, "/")
		seen[first] = true
	}
	return len(seen), nil
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return false }
func (m *mockFileInfo) Sys() any           { return nil }

// Compile-time check
var _ shuttle.FilesystemManager = (*MockFilesystemManager)(nil)
