package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sync-shuttle/internal/shuttle"
)

// LedgerLine renders rec the way the executor writes it.
func LedgerLine(t *testing.T, rec shuttle.OperationRecord) string {
	t.Helper()
	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("encoding ledger record: %v", err)
	}
	return string(b)
}

// WriteLedger writes lines to path, one per line, creating parent dirs.
func WriteLedger(t *testing.T, path string, lines ...string) {
	t.Helper()
	WriteFile(t, path, strings.Join(lines, "\n")+"\n")
}

// WriteFile writes content to path, creating parent dirs.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// Record returns a successful push record with the given uuid and server.
func Record(uuid, serverID string) shuttle.OperationRecord {
	return shuttle.OperationRecord{
		UUID:             uuid,
		Operation:        shuttle.OperationPush,
		ServerID:         serverID,
		SourcePath:       "/home/user/report.pdf",
		DestPath:         "/home/user/.sync-shuttle/remote/inbox/report.pdf",
		TimestampStart:   "2025-03-10T13:59:00Z",
		TimestampEnd:     "2025-03-10T13:59:30Z",
		Status:           shuttle.StatusSuccess,
		BytesTransferred: 2048,
	}
}
