package shuttle

import "io/fs"

// Path is a file found by a FilesystemManager scan, with the stat info
// cached at scan time.
type Path struct {
	absPath string
	relPath string
	info    fs.FileInfo
}

// NewPath creates a Path from its components.
// This is primarily for use by FilesystemManager implementations.
func NewPath(absPath, relPath string, info fs.FileInfo) *Path {
	return &Path{
		absPath: absPath,
		relPath: relPath,
		info:    info,
	}
}

// String returns the absolute path as a string.
func (p *Path) String() string {
	return p.absPath
}

// Rel returns the path relative to the scanned root, slash-separated.
func (p *Path) Rel() string {
	return p.relPath
}

// Info returns the cached file info from when the path was scanned.
func (p *Path) Info() fs.FileInfo {
	return p.info
}
