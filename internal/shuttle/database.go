package shuttle

import (
	"context"
	"time"
)

// LedgerResult is a ledger read: the parsed records plus how many lines in
// the read window were malformed and dropped.
type LedgerResult struct {
	Records []OperationRecord `json:"records" yaml:"records"`
	Skipped int               `json:"skipped" yaml:"skipped"`
}

// OperationLog is the append-only operation ledger.
type OperationLog interface {
	// Recent returns up to limit records, most recent first.
	// limit <= 0 reads everything.
	Recent(limit int) (*LedgerResult, error)

	// All returns every record in append order.
	All() (*LedgerResult, error)

	// Append writes one record, assigning a uuid when it has none.
	Append(rec OperationRecord) (OperationRecord, error)
}

// OperationFilter narrows an index query. Empty fields match everything.
type OperationFilter struct {
	ServerID  string
	Status    string
	Operation string
	// Limit <= 0 returns every match.
	Limit int
}

// ImportResult summarizes one ledger import into the index.
type ImportResult struct {
	Added    int `json:"added" yaml:"added"`
	Existing int `json:"existing" yaml:"existing"`
	// NoUUID counts records that cannot be keyed and were not indexed.
	NoUUID int `json:"no_uuid" yaml:"no_uuid"`
	// Malformed counts ledger lines that did not parse.
	Malformed int `json:"malformed" yaml:"malformed"`
}

// ServerActivity aggregates indexed operations for one server id.
type ServerActivity struct {
	ServerID     string `json:"server_id" yaml:"server_id"`
	Total        int    `json:"total" yaml:"total"`
	Succeeded    int    `json:"succeeded" yaml:"succeeded"`
	Failed       int    `json:"failed" yaml:"failed"`
	Bytes        int64  `json:"bytes" yaml:"bytes"`
	LastActivity string `json:"last_activity" yaml:"last_activity"`
}

// IndexStatus describes the index schema and its most recent import.
type IndexStatus struct {
	SchemaVersion uint `json:"schema_version" yaml:"schema_version"`
	LatestVersion uint `json:"latest_version" yaml:"latest_version"`
	UpToDate      bool `json:"up_to_date" yaml:"up_to_date"`
	// LastRun is zero when nothing was ever imported.
	LastRun time.Time `json:"last_run" yaml:"last_run"`
}

// OperationIndex is a queryable copy of the ledger.
// The ledger stays the source of truth; the index can be rebuilt from it.
type OperationIndex interface {
	// Import adds records not yet indexed, keyed by uuid. Records keep
	// their ledger position for ordering.
	Import(ctx context.Context, records []OperationRecord, malformed int, now time.Time) (ImportResult, error)

	// Query returns matching records, most recent first.
	Query(ctx context.Context, filter OperationFilter) ([]OperationRecord, error)

	// Activity returns per-server aggregates ordered by server id.
	Activity(ctx context.Context) ([]ServerActivity, error)

	// Status reports the schema version and the last import time.
	Status(ctx context.Context) (IndexStatus, error)

	// Close releases the underlying connection.
	Close() error
}
