package shuttle_test

import (
	"reflect"
	"testing"

	"sync-shuttle/internal/shuttle"
)

func names(entries []shuttle.FileEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func TestSearch(t *testing.T) {
	entries := []shuttle.FileEntry{
		{Name: "report.pdf"},
		{Name: "Scan.PDF"},
		{Name: "pdf-notes.txt"},
		{Name: "photo[1].jpg"},
		{Name: "archive.pdf.bak"},
	}

	tests := []struct {
		name    string
		pattern string
		want    []string
	}{
		{name: "suffix glob is case-insensitive", pattern: "*.pdf", want: []string{"report.pdf", "Scan.PDF"}},
		{name: "empty pattern returns all", pattern: "", want: names(entries)},
		{name: "whitespace pattern returns all", pattern: "  ", want: names(entries)},
		{name: "bare word must match the whole name", pattern: "pdf", want: []string{}},
		{name: "exact name is case-insensitive", pattern: "REPORT.pdf", want: []string{"report.pdf"}},
		{name: "exact name does not match longer names", pattern: "archive.pdf", want: []string{}},
		{name: "prefix glob", pattern: "pdf*", want: []string{"pdf-notes.txt"}},
		{name: "regex metacharacters are literal", pattern: "photo[1]*", want: []string{"photo[1].jpg"}},
		{name: "middle wildcard", pattern: "r*t.pdf", want: []string{"report.pdf"}},
		{name: "no match", pattern: "*.docx", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(shuttle.Search(entries, tt.pattern))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Search(%q) = %v, want %v", tt.pattern, got, tt.want)
			}
		})
	}
}
