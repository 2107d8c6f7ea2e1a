package shuttle

import "time"

// Location says where a catalog entry lives.
type Location string

const (
	LocationInbox  Location = "inbox"
	LocationOutbox Location = "outbox"

	remotePrefix = "remote:"
)

// RemoteLocation returns the location of entries cached from serverID.
func RemoteLocation(serverID string) Location {
	return Location(remotePrefix + serverID)
}

// FileEntry is one derived catalog row. Entries are recomputed on every
// refresh and carry no identity beyond Path.
type FileEntry struct {
	Name     string    `json:"name" yaml:"name"`
	Path     string    `json:"path" yaml:"path"`
	Size     int64     `json:"size" yaml:"size"`
	Modified time.Time `json:"modified" yaml:"modified"`
	Location Location  `json:"location" yaml:"location"`
	Source   string    `json:"source,omitempty" yaml:"source,omitempty"`
}
