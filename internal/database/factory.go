package database

import (
	"fmt"
)

// Index backends.
const (
	TypeSQLite = "sqlite"
	TypeMemory = "memory"
)

// NewIndex creates an OperationIndex of the given type. path is required
// for sqlite and ignored for memory.
func NewIndex(indexType, path string) (*SQLiteIndex, error) {
	switch indexType {
	case TypeSQLite:
		if path == "" {
			return nil, fmt.Errorf("path required for sqlite index")
		}
		return NewSQLiteIndex(path)
	case TypeMemory:
		return NewSQLiteIndex(":memory:")
	default:
		return nil, fmt.Errorf("unknown index type: %s", indexType)
	}
}
