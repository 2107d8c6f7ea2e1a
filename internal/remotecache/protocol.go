package remotecache

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"sync-shuttle/internal/shuttle"
)

// Protocol markers.
const (
	// HeaderOK starts the status line of a successful snapshot. Encode
	// follows it with a space and the RFC 3339 refresh time.
	HeaderOK = "OK"
	// HeaderErrorPrefix conventionally starts the status line of a failed
	// refresh. Any header not starting with HeaderOK is a failure.
	HeaderErrorPrefix = "ERROR:"
	// EmptySentinel is the only body line of a snapshot with no files.
	EmptySentinel = "EMPTY"

	fieldSep = "|"
)

// maxRecordSize bounds one line of a snapshot.
const maxRecordSize = 64 * 1024

// Decode parses a snapshot. A header starting with HeaderOK is a success;
// any other header is a failure snapshot with no entries. Records with fewer
// than two fields, or longer than maxRecordSize, are counted in Skipped and
// dropped; a non-numeric size reads as 0; a missing or non-numeric modified
// time reads as unset.
func Decode(r io.Reader, serverID, host string) (*shuttle.RemoteListing, error) {
	listing := &shuttle.RemoteListing{ServerID: serverID, Entries: []shuttle.FileEntry{}}
	br := bufio.NewReaderSize(r, maxRecordSize)

	raw, tooLong, err := shuttle.ReadLine(br)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading cache header: %w", err)
	}
	header := strings.TrimSpace(string(raw))
	listing.Status = header
	if tooLong || !strings.HasPrefix(header, HeaderOK) {
		return listing, nil
	}
	listing.OK = true
	if stamp := strings.TrimSpace(strings.TrimPrefix(header, HeaderOK)); stamp != "" {
		if t, err := time.Parse(time.RFC3339, stamp); err == nil {
			listing.RefreshedAt = t
		}
	}

	loc := shuttle.RemoteLocation(serverID)
	for err == nil {
		raw, tooLong, err = shuttle.ReadLine(br)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading cache records: %w", err)
		}
		if tooLong {
			listing.Skipped++
			continue
		}
		line := strings.TrimRight(string(raw), "\r\n")
		if strings.TrimSpace(line) == "" || line == EmptySentinel {
			continue
		}
		entry, ok := decodeRecord(line)
		if !ok {
			listing.Skipped++
			continue
		}
		entry.Location = loc
		entry.Source = host
		listing.Entries = append(listing.Entries, entry)
	}
	return listing, nil
}

func decodeRecord(line string) (shuttle.FileEntry, bool) {
	fields := strings.Split(line, fieldSep)
	if len(fields) < 2 {
		return shuttle.FileEntry{}, false
	}
	size, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil || size < 0 {
		size = 0
	}
	entry := shuttle.FileEntry{
		Name: fields[1],
		Path: fields[1],
		Size: size,
	}
	if len(fields) >= 3 {
		if secs, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64); err == nil && secs > 0 && !math.IsInf(secs, 0) {
			whole, frac := math.Modf(secs)
			entry.Modified = time.Unix(int64(whole), int64(frac*1e9))
		}
	}
	return entry, true
}

// Snapshot is what an executor records after a remote listing attempt.
type Snapshot struct {
	// Err, when non-nil, makes this a failure snapshot.
	Err         error
	RefreshedAt time.Time
	Entries     []shuttle.FileEntry
}

// Encode writes s in the cache file format.
func Encode(w io.Writer, s Snapshot) error {
	bw := bufio.NewWriter(w)
	if s.Err != nil {
		msg := strings.ReplaceAll(s.Err.Error(), "\n", " ")
		fmt.Fprintf(bw, "%s %s\n", HeaderErrorPrefix, msg)
		return bw.Flush()
	}

	if s.RefreshedAt.IsZero() {
		fmt.Fprintln(bw, HeaderOK)
	} else {
		fmt.Fprintf(bw, "%s %s\n", HeaderOK, s.RefreshedAt.UTC().Format(time.RFC3339))
	}
	if len(s.Entries) == 0 {
		fmt.Fprintln(bw, EmptySentinel)
		return bw.Flush()
	}
	for _, e := range s.Entries {
		if e.Name == "" || strings.ContainsAny(e.Name, fieldSep+"\n\r") {
			return fmt.Errorf("%w: cache entry name %q", shuttle.ErrInvalidValue, e.Name)
		}
		var mod string
		if !e.Modified.IsZero() {
			mod = strconv.FormatFloat(float64(e.Modified.UnixNano())/1e9, 'f', -1, 64)
		} else {
			mod = "0"
		}
		fmt.Fprintf(bw, "%d%s%s%s%s\n", e.Size, fieldSep, e.Name, fieldSep, mod)
	}
	return bw.Flush()
}
