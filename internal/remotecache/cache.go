package remotecache

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"sync-shuttle/internal/config"
	"sync-shuttle/internal/shuttle"
)

// Extension of per-server cache files.
const Extension = ".list"

// Store reads and writes per-server snapshots under one directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// PathFor returns the cache file location for serverID.
func (s *Store) PathFor(serverID string) string {
	return filepath.Join(s.dir, serverID+Extension)
}

// Read loads the snapshot for serverID. It returns ErrCacheMiss when no
// cache file exists.
func (s *Store) Read(serverID, host string) (*shuttle.RemoteListing, error) {
	if err := shuttle.ValidateID(serverID); err != nil {
		return nil, err
	}
	f, err := os.Open(s.PathFor(serverID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", shuttle.ErrCacheMiss, serverID)
		}
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	defer f.Close()
	return Decode(f, serverID, host)
}

// Write replaces the snapshot for serverID.
func (s *Store) Write(serverID string, snap Snapshot) error {
	if err := shuttle.ValidateID(serverID); err != nil {
		return err
	}
	if err := config.WriteAtomic(s.PathFor(serverID), func(w io.Writer) error {
		return Encode(w, snap)
	}); err != nil {
		return fmt.Errorf("writing cache for %s: %w", serverID, err)
	}
	return nil
}

var _ shuttle.RemoteCache = (*Store)(nil)
