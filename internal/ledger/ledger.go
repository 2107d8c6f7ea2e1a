package ledger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"sync-shuttle/internal/shuttle"
)

// maxLineSize bounds a single ledger record.
const maxLineSize = 1 << 20

// Ledger reads and appends the newline-delimited JSON operation log.
type Ledger struct {
	path   string
	ids    shuttle.IDGenerator
	logger shuttle.Logger
}

// New creates a Ledger backed by the log at path.
func New(path string, ids shuttle.IDGenerator, logger shuttle.Logger) *Ledger {
	return &Ledger{path: path, ids: ids, logger: logger}
}

// Path returns the location of the log file.
func (l *Ledger) Path() string {
	return l.path
}

// Recent returns up to limit records, most recent first. The window is
// the last limit non-blank lines of the log; lines in it that do not parse,
// or exceed maxLineSize, are counted in Skipped. limit <= 0 reads the whole
// log. A missing log
// is an empty result.
func (l *Ledger) Recent(limit int) (*shuttle.LedgerResult, error) {
	lines, err := l.tail(limit)
	if err != nil {
		return nil, err
	}
	res := &shuttle.LedgerResult{Records: make([]shuttle.OperationRecord, 0, len(lines))}
	for i := len(lines) - 1; i >= 0; i-- {
		rec, ok := parseLine(lines[i])
		if !ok {
			res.Skipped++
			continue
		}
		res.Records = append(res.Records, rec)
	}
	if res.Skipped > 0 {
		l.logger.Debug("skipped malformed ledger lines", "path", l.path, "skipped", res.Skipped)
	}
	return res, nil
}

// All returns every parseable record in append order.
func (l *Ledger) All() (*shuttle.LedgerResult, error) {
	lines, err := l.tail(0)
	if err != nil {
		return nil, err
	}
	res := &shuttle.LedgerResult{Records: make([]shuttle.OperationRecord, 0, len(lines))}
	for _, line := range lines {
		rec, ok := parseLine(line)
		if !ok {
			res.Skipped++
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

// tail returns the last limit non-blank lines in file order, or all of
// them when limit <= 0.
func (l *Ledger) tail(limit int) ([][]byte, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	defer f.Close()

	var lines [][]byte
	oversized := 0
	r := bufio.NewReaderSize(f, maxLineSize)
	for {
		raw, tooLong, err := shuttle.ReadLine(r)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading ledger: %w", err)
		}
		// An oversized line keeps its place in the window as an empty,
		// unparseable entry.
		if line := bytes.TrimSpace(raw); tooLong || len(line) > 0 {
			if tooLong {
				oversized++
			}
			lines = append(lines, bytes.Clone(line))
			if limit > 0 && len(lines) > limit {
				lines = lines[1:]
			}
		}
		if err != nil {
			break
		}
	}
	if oversized > 0 {
		l.logger.Debug("dropped oversized ledger lines", "path", l.path, "count", oversized, "max_bytes", maxLineSize)
	}
	return lines, nil
}

// parseLine decodes one record. Anything but a JSON object is rejected.
func parseLine(line []byte) (shuttle.OperationRecord, bool) {
	var rec shuttle.OperationRecord
	if len(line) == 0 || line[0] != '{' {
		return rec, false
	}
	if err := json.Unmarshal(line, &rec); err != nil {
		return rec, false
	}
	return rec, true
}

// Append writes rec as one line, assigning a uuid when it has none.
func (l *Ledger) Append(rec shuttle.OperationRecord) (shuttle.OperationRecord, error) {
	if rec.UUID == "" {
		rec.UUID = l.ids.New()
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return rec, fmt.Errorf("encoding ledger record: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return rec, fmt.Errorf("creating ledger directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return rec, fmt.Errorf("opening ledger: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(b, '\n')); err != nil {
		return rec, fmt.Errorf("appending to ledger: %w", err)
	}
	l.logger.Debug("appended ledger record", "uuid", rec.UUID, "operation", rec.Operation, "server", rec.ServerID)
	return rec, nil
}

var _ shuttle.OperationLog = (*Ledger)(nil)
