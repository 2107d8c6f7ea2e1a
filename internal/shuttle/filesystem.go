package shuttle

// FilesystemManager enumerates local directory trees for the catalog.
// It abstracts file access to enable testing without touching the real filesystem.
type FilesystemManager interface {
	// Scan returns the regular files under root, depth-first with directories
	// visited before files and names compared case-insensitively. Names
	// starting with '.' are skipped at every level. Only the root and the
	// directories fewer than maxDepth levels below it are listed. A missing
	// root yields no files.
	Scan(root string, maxDepth int) ([]*Path, error)

	// CountTopLevel counts the non-hidden entries directly inside dir,
	// files and directories alike. A missing dir counts as zero.
	CountTopLevel(dir string) (int, error)
}
