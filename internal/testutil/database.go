package testutil

import (
	"testing"

	"sync-shuttle/internal/database"
)

// NewTestIndex creates a new in-memory, migrated operation index.
// The index is automatically closed when the test completes.
func NewTestIndex(t *testing.T) *database.SQLiteIndex {
	t.Helper()

	idx, err := database.NewSQLiteIndex(":memory:")
	if err != nil {
		t.Fatalf("failed to open index: %v", err)
	}

	t.Cleanup(func() {
		idx.Close()
	})

	return idx
}
