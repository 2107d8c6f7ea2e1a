package remotecache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"sync-shuttle/internal/shuttle"
	"sync-shuttle/internal/testutil"
)

func TestStore_Read(t *testing.T) {
	t.Run("missing file is a cache miss", func(t *testing.T) {
		s := NewStore(t.TempDir())
		listing, err := s.Read("web-01", "10.0.0.5")
		if !errors.Is(err, shuttle.ErrCacheMiss) {
			t.Fatalf("Read() error = %v, want ErrCacheMiss", err)
		}
		if listing != nil && len(listing.Entries) != 0 {
			t.Errorf("expected no entries, got %d", len(listing.Entries))
		}
	})

	t.Run("skips malformed records", func(t *testing.T) {
		dir := t.TempDir()
		testutil.WriteFile(t, filepath.Join(dir, "web-01.list"),
			"OK\n1024|report.pdf|1741614000\nbroken-line\n2048|notes.txt\n")
		s := NewStore(dir)

		listing, err := s.Read("web-01", "10.0.0.5")
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if !listing.OK {
			t.Error("OK = false, want true")
		}
		if len(listing.Entries) != 2 {
			t.Fatalf("len(Entries) = %d, want 2", len(listing.Entries))
		}
		if listing.Skipped != 1 {
			t.Errorf("Skipped = %d, want 1", listing.Skipped)
		}
		first := listing.Entries[0]
		if first.Name != "report.pdf" || first.Size != 1024 {
			t.Errorf("Entries[0] = %+v", first)
		}
		if !first.Modified.Equal(time.Unix(1741614000, 0)) {
			t.Errorf("Modified = %v", first.Modified)
		}
		if first.Location != "remote:web-01" || first.Source != "10.0.0.5" {
			t.Errorf("Location/Source = %q/%q", first.Location, first.Source)
		}
		if !listing.Entries[1].Modified.IsZero() {
			t.Errorf("missing modified time should be unset, got %v", listing.Entries[1].Modified)
		}
	})

	t.Run("rejects ids that could escape the cache dir", func(t *testing.T) {
		s := NewStore(t.TempDir())
		if _, err := s.Read("../etc", ""); !errors.Is(err, shuttle.ErrInvalidID) {
			t.Errorf("Read() error = %v, want ErrInvalidID", err)
		}
	})
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantOK    bool
		wantN     int
		wantSkip  int
		wantState string
	}{
		{name: "empty sentinel", input: "OK\nEMPTY\n", wantOK: true, wantState: "OK"},
		{name: "failure snapshot", input: "ERROR: connection refused\n10|a.txt|0\n", wantState: "ERROR: connection refused"},
		{name: "empty file", input: "", wantState: ""},
		{name: "non-numeric size", input: "OK\nbig|a.txt|0\n", wantOK: true, wantN: 1, wantState: "OK"},
		{name: "empty name keeps the record", input: "OK\n10||0\n", wantOK: true, wantN: 1, wantState: "OK"},
		{name: "single field", input: "OK\n10\n", wantOK: true, wantSkip: 1, wantState: "OK"},
		{name: "blank lines ignored", input: "OK\n\n10|a\n\n", wantOK: true, wantN: 1, wantState: "OK"},
		{name: "any header prefixed with OK", input: "OK: refreshed\n10|a\n", wantOK: true, wantN: 1, wantState: "OK: refreshed"},
		{name: "lowercase marker is a failure", input: "ok\n10|a\n", wantState: "ok"},
		{name: "oversized record", input: "OK\n1|a\n" + strings.Repeat("9", 2*maxRecordSize) + "|big\n2|b\n", wantOK: true, wantN: 2, wantSkip: 1, wantState: "OK"},
		{name: "oversized header", input: strings.Repeat("E", 2*maxRecordSize) + "\n1|a\n", wantState: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(strings.NewReader(tt.input), "srv", "h")
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got.OK != tt.wantOK {
				t.Errorf("OK = %v, want %v", got.OK, tt.wantOK)
			}
			if len(got.Entries) != tt.wantN {
				t.Errorf("len(Entries) = %d, want %d", len(got.Entries), tt.wantN)
			}
			if got.Skipped != tt.wantSkip {
				t.Errorf("Skipped = %d, want %d", got.Skipped, tt.wantSkip)
			}
			if got.Status != tt.wantState {
				t.Errorf("Status = %q, want %q", got.Status, tt.wantState)
			}
		})
	}
}

func TestDecode_RefreshedAt(t *testing.T) {
	got, err := Decode(strings.NewReader("OK 2025-03-10T12:00:00Z\nEMPTY\n"), "srv", "")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	if !got.RefreshedAt.Equal(want) {
		t.Errorf("RefreshedAt = %v, want %v", got.RefreshedAt, want)
	}
}

func TestStore_WriteRead(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "cache", "remote"))
	refreshed := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	mod := time.Unix(1741600000, 500000000)
	snap := Snapshot{
		RefreshedAt: refreshed,
		Entries: []shuttle.FileEntry{
			{Name: "a.pdf", Size: 10, Modified: mod},
			{Name: "b.txt", Size: 0},
		},
	}
	if err := s.Write("web-01", snap); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := s.Read("web-01", "host-a")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !got.OK || !got.RefreshedAt.Equal(refreshed) {
		t.Errorf("header = %q, OK=%v RefreshedAt=%v", got.Status, got.OK, got.RefreshedAt)
	}
	if len(got.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2", len(got.Entries))
	}
	if !got.Entries[0].Modified.Equal(mod) {
		t.Errorf("Modified = %v, want %v", got.Entries[0].Modified, mod)
	}
	if !got.Entries[1].Modified.IsZero() {
		t.Errorf("Modified = %v, want unset", got.Entries[1].Modified)
	}

	if err := s.Write("web-01", Snapshot{Err: errors.New("host unreachable")}); err != nil {
		t.Fatalf("Write(failure) error = %v", err)
	}
	got, err = s.Read("web-01", "host-a")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.OK || got.Status != "ERROR: host unreachable" || len(got.Entries) != 0 {
		t.Errorf("failure snapshot = %+v", got)
	}
}

func TestStore_ConcurrentWrites(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			entries := make([]shuttle.FileEntry, n+1)
			for j := range entries {
				entries[j] = shuttle.FileEntry{Name: fmt.Sprintf("f%d.txt", j), Size: int64(j)}
			}
			errs <- s.Write("web-01", Snapshot{Entries: entries})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("Write() error = %v", err)
		}
	}

	got, err := s.Read("web-01", "")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !got.OK || got.Skipped != 0 || len(got.Entries) == 0 {
		t.Errorf("listing after concurrent writes = %+v", got)
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Name() != "web-01.list" {
		var names []string
		for _, f := range files {
			names = append(names, f.Name())
		}
		t.Errorf("cache dir holds %v, want only web-01.list", names)
	}
}

func TestStore_WriteFailureKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	if err := s.Write("web-01", Snapshot{Entries: []shuttle.FileEntry{{Name: "a.txt"}}}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	err := s.Write("web-01", Snapshot{Entries: []shuttle.FileEntry{{Name: "bad|name"}}})
	if !errors.Is(err, shuttle.ErrInvalidValue) {
		t.Fatalf("Write() error = %v, want ErrInvalidValue", err)
	}

	got, err := s.Read("web-01", "")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got.Entries) != 1 || got.Entries[0].Name != "a.txt" {
		t.Errorf("entries = %+v, want the previous snapshot", got.Entries)
	}
	if files, _ := os.ReadDir(dir); len(files) != 1 {
		t.Errorf("cache dir holds %d files, want 1", len(files))
	}
}

func TestEncode_RejectsUnencodableNames(t *testing.T) {
	var b strings.Builder
	err := Encode(&b, Snapshot{Entries: []shuttle.FileEntry{{Name: "a|b"}}})
	if !errors.Is(err, shuttle.ErrInvalidValue) {
		t.Errorf("Encode() error = %v, want ErrInvalidValue", err)
	}
}
