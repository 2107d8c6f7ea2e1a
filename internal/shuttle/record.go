package shuttle

import (
	"strings"
	"time"
)

// Operation kinds written by the external executor.
const (
	OperationPush  = "push"
	OperationPull  = "pull"
	OperationShare = "share"
)

// Terminal statuses. Other values are preserved as-is.
const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

// OperationRecord is one completed sync operation in the ledger.
// Timestamps are kept as written; use StartTime/EndTime to parse them.
type OperationRecord struct {
	UUID             string `json:"uuid" yaml:"uuid"`
	Operation        string `json:"operation" yaml:"operation"`
	ServerID         string `json:"server_id" yaml:"server_id"`
	SourcePath       string `json:"source_path" yaml:"source_path"`
	DestPath         string `json:"dest_path" yaml:"dest_path"`
	TimestampStart   string `json:"timestamp_start" yaml:"timestamp_start"`
	TimestampEnd     string `json:"timestamp_end" yaml:"timestamp_end"`
	Status           string `json:"status" yaml:"status"`
	BytesTransferred int64  `json:"bytes_transferred" yaml:"bytes_transferred"`
	DryRun           bool   `json:"dry_run" yaml:"dry_run"`
}

// Succeeded reports whether the operation finished with SUCCESS.
func (r OperationRecord) Succeeded() bool {
	return r.Status == StatusSuccess
}

// StartTime parses TimestampStart. ok is false when it is empty or unparseable.
func (r OperationRecord) StartTime() (time.Time, bool) {
	return ParseTimestamp(r.TimestampStart)
}

// EndTime parses TimestampEnd. ok is false when it is empty or unparseable.
func (r OperationRecord) EndTime() (time.Time, bool) {
	return ParseTimestamp(r.TimestampEnd)
}

// Duration is the time from start to end. ok is false when either timestamp
// is unusable or the end precedes the start.
func (r OperationRecord) Duration() (time.Duration, bool) {
	start, ok := r.StartTime()
	if !ok {
		return 0, false
	}
	end, ok := r.EndTime()
	if !ok || end.Before(start) {
		return 0, false
	}
	return end.Sub(start), true
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp accepts ISO-8601 instants with a Z suffix, a numeric offset,
// or no zone at all (read as local time).
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		var (
			t   time.Time
			err error
		)
		if layout == time.RFC3339Nano {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
