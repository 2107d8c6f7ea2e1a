package shuttle

import "time"

// RemoteListing is a parsed remote listing snapshot for one server.
type RemoteListing struct {
	ServerID string `json:"server_id" yaml:"server_id"`
	// Status is the raw header line, kept for diagnostic display.
	Status      string      `json:"status" yaml:"status"`
	OK          bool        `json:"ok" yaml:"ok"`
	RefreshedAt time.Time   `json:"refreshed_at,omitempty" yaml:"refreshed_at,omitempty"`
	Entries     []FileEntry `json:"entries" yaml:"entries"`
	// Skipped counts malformed records that were dropped.
	Skipped int `json:"skipped" yaml:"skipped"`
}

// RemoteCache reads cached remote listings written by the external executor.
type RemoteCache interface {
	// Read returns the snapshot for serverID, with host stamped as each
	// entry's Source. It returns ErrCacheMiss when nothing is cached.
	Read(serverID, host string) (*RemoteListing, error)
}
