package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sync-shuttle/internal/database/migrations"
	"sync-shuttle/internal/shuttle"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteIndex implements shuttle.OperationIndex on SQLite.
type SQLiteIndex struct {
	db   *sql.DB
	path string
}

// NewSQLiteIndex opens the index at path and applies pending migrations.
// path can be a file path or ":memory:" for an in-memory index.
func NewSQLiteIndex(path string) (*SQLiteIndex, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
	}
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating index: %w", err)
	}
	if err := migrations.Validate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("validating index: %w", err)
	}
	return &SQLiteIndex{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; for :memory: every connection would otherwise
	// be a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return db, nil
}

// Import inserts records the index has not seen. Each record's position in
// records is stored as its sequence number, so callers pass the whole
// ledger in append order.
func (s *SQLiteIndex) Import(ctx context.Context, records []shuttle.OperationRecord, malformed int, now time.Time) (shuttle.ImportResult, error) {
	res := shuttle.ImportResult{Malformed: malformed}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("beginning import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO operations
			(uuid, seq, operation, server_id, source_path, dest_path,
			 timestamp_start, timestamp_end, status, bytes_transferred, dry_run)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return res, fmt.Errorf("preparing import: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if r.UUID == "" {
			res.NoUUID++
			continue
		}
		result, err := stmt.ExecContext(ctx, r.UUID, i, r.Operation, r.ServerID, r.SourcePath, r.DestPath,
			r.TimestampStart, r.TimestampEnd, r.Status, r.BytesTransferred, r.DryRun)
		if err != nil {
			return res, fmt.Errorf("indexing %s: %w", r.UUID, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return res, fmt.Errorf("indexing %s: %w", r.UUID, err)
		}
		if n == 0 {
			res.Existing++
		} else {
			res.Added++
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO index_runs (run_at, added, existing, no_uuid, malformed) VALUES (?, ?, ?, ?, ?)",
		now.UTC().Format(time.RFC3339), res.Added, res.Existing, res.NoUUID, res.Malformed); err != nil {
		return res, fmt.Errorf("recording import: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("committing import: %w", err)
	}
	return res, nil
}

// Query returns matching operations, most recent ledger position first.
func (s *SQLiteIndex) Query(ctx context.Context, f shuttle.OperationFilter) ([]shuttle.OperationRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.ServerID != "" {
		where = append(where, "server_id = ?")
		args = append(args, f.ServerID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Operation != "" {
		where = append(where, "operation = ?")
		args = append(args, f.Operation)
	}

	q := `SELECT uuid, operation, server_id, source_path, dest_path,
		timestamp_start, timestamp_end, status, bytes_transferred, dry_run
		FROM operations`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY seq DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying operations: %w", err)
	}
	defer rows.Close()

	var out []shuttle.OperationRecord
	for rows.Next() {
		var r shuttle.OperationRecord
		if err := rows.Scan(&r.UUID, &r.Operation, &r.ServerID, &r.SourcePath, &r.DestPath,
			&r.TimestampStart, &r.TimestampEnd, &r.Status, &r.BytesTransferred, &r.DryRun); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating operations: %w", err)
	}
	return out, nil
}

// Activity aggregates operations per server. LastActivity is the latest
// end timestamp as written, compared as text.
func (s *SQLiteIndex) Activity(ctx context.Context) ([]shuttle.ServerActivity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT server_id,
			COUNT(*),
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
			COALESCE(SUM(bytes_transferred), 0),
			COALESCE(MAX(timestamp_end), '')
		FROM operations
		GROUP BY server_id
		ORDER BY server_id`, shuttle.StatusSuccess, shuttle.StatusFailure)
	if err != nil {
		return nil, fmt.Errorf("aggregating operations: %w", err)
	}
	defer rows.Close()

	var out []shuttle.ServerActivity
	for rows.Next() {
		var a shuttle.ServerActivity
		if err := rows.Scan(&a.ServerID, &a.Total, &a.Succeeded, &a.Failed, &a.Bytes, &a.LastActivity); err != nil {
			return nil, fmt.Errorf("scanning aggregate: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating aggregates: %w", err)
	}
	return out, nil
}

// LastRun returns when the index was last refreshed, or the zero time if
// it never was.
func (s *SQLiteIndex) LastRun(ctx context.Context) (time.Time, error) {
	var runAt sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT MAX(run_at) FROM index_runs").Scan(&runAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("reading index runs: %w", err)
	}
	if !runAt.Valid {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, runAt.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing index run time: %w", err)
	}
	return t, nil
}

// Status reports the schema version and when the index was last refreshed.
func (s *SQLiteIndex) Status(ctx context.Context) (shuttle.IndexStatus, error) {
	schema, err := migrations.CheckStatus(s.db)
	if err != nil {
		return shuttle.IndexStatus{}, fmt.Errorf("checking index schema: %w", err)
	}
	last, err := s.LastRun(ctx)
	if err != nil {
		return shuttle.IndexStatus{}, err
	}
	return shuttle.IndexStatus{
		SchemaVersion: schema.Current,
		LatestVersion: schema.Latest,
		UpToDate:      schema.UpToDate(),
		LastRun:       last,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

var _ shuttle.OperationIndex = (*SQLiteIndex)(nil)
