package shuttle

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultCatalogDepth bounds how far local scans descend.
const DefaultCatalogDepth = 4

// ProfileLookup resolves a server id to its current profile.
type ProfileLookup interface {
	Get(id string) (ServerProfile, error)
}

// CatalogPaths locates the local inbox and outbox roots.
type CatalogPaths struct {
	Inbox  string
	Outbox string
}

// Catalog merges local inbox/outbox scans with cached remote listings into
// one browsable view. It only reads; nothing on disk is modified.
type Catalog struct {
	paths    CatalogPaths
	maxDepth int
	fsmgr    FilesystemManager
	cache    RemoteCache
	profiles ProfileLookup
	logger   Logger
}

// NewCatalog creates a Catalog. maxDepth <= 0 selects DefaultCatalogDepth.
func NewCatalog(paths CatalogPaths, maxDepth int, fsmgr FilesystemManager, cache RemoteCache, profiles ProfileLookup, logger Logger) *Catalog {
	if maxDepth <= 0 {
		maxDepth = DefaultCatalogDepth
	}
	return &Catalog{
		paths:    paths,
		maxDepth: maxDepth,
		fsmgr:    fsmgr,
		cache:    cache,
		profiles: profiles,
		logger:   logger,
	}
}

// ListInbox enumerates the inbox. Files beneath a per-sender subdirectory
// take that subdirectory's name as their Source.
func (c *Catalog) ListInbox() ([]FileEntry, error) {
	paths, err := c.fsmgr.Scan(c.paths.Inbox, c.maxDepth)
	if err != nil {
		return nil, fmt.Errorf("scanning inbox: %w", err)
	}
	entries := make([]FileEntry, 0, len(paths))
	for _, p := range paths {
		e := localEntry(p, LocationInbox)
		if sender, _, nested := strings.Cut(p.Rel(), "/"); nested {
			e.Source = sender
		}
		entries = append(entries, e)
	}
	c.logger.Debug("listed inbox", "root", c.paths.Inbox, "entries", len(entries))
	return entries, nil
}

// ListOutbox enumerates the outbox. The global and per-server subtrees are
// reported uniformly as outbox entries.
func (c *Catalog) ListOutbox() ([]FileEntry, error) {
	paths, err := c.fsmgr.Scan(c.paths.Outbox, c.maxDepth)
	if err != nil {
		return nil, fmt.Errorf("scanning outbox: %w", err)
	}
	entries := make([]FileEntry, 0, len(paths))
	for _, p := range paths {
		entries = append(entries, localEntry(p, LocationOutbox))
	}
	c.logger.Debug("listed outbox", "root", c.paths.Outbox, "entries", len(entries))
	return entries, nil
}

// ListRemote returns the cached listing for serverID. When nothing is
// cached it returns an empty listing together with ErrCacheMiss, which
// callers should render as a hint to refresh rather than as a failure.
func (c *Catalog) ListRemote(serverID string) (*RemoteListing, error) {
	host := ""
	profile, err := c.profiles.Get(serverID)
	switch {
	case err == nil:
		host = profile.Host
	case errors.Is(err, ErrNotFound):
		// Listings may outlive the profile that produced them.
	default:
		return nil, fmt.Errorf("resolving server %s: %w", serverID, err)
	}

	listing, err := c.cache.Read(serverID, host)
	if errors.Is(err, ErrCacheMiss) {
		c.logger.Debug("no cached listing", "server", serverID)
		return &RemoteListing{ServerID: serverID, Entries: []FileEntry{}}, err
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached listing for %s: %w", serverID, err)
	}
	if listing.Skipped > 0 {
		c.logger.Debug("skipped malformed cache records", "server", serverID, "skipped", listing.Skipped)
	}
	return listing, nil
}

// CatalogStats is the quick overview shown above the browser.
type CatalogStats struct {
	Inbox  int `json:"inbox" yaml:"inbox"`
	Outbox int `json:"outbox" yaml:"outbox"`
}

// Stats counts the top-level, non-hidden items of the inbox and outbox.
func (c *Catalog) Stats() (CatalogStats, error) {
	in, err := c.fsmgr.CountTopLevel(c.paths.Inbox)
	if err != nil {
		return CatalogStats{}, fmt.Errorf("counting inbox: %w", err)
	}
	out, err := c.fsmgr.CountTopLevel(c.paths.Outbox)
	if err != nil {
		return CatalogStats{}, fmt.Errorf("counting outbox: %w", err)
	}
	return CatalogStats{Inbox: in, Outbox: out}, nil
}

func localEntry(p *Path, loc Location) FileEntry {
	info := p.Info()
	return FileEntry{
		Name:     filepath.Base(p.String()),
		Path:     p.String(),
		Size:     info.Size(),
		Modified: info.ModTime(),
		Location: loc,
	}
}
