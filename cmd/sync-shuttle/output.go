package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"sync-shuttle/internal/shuttle"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by --format.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// defaultWidth is used for human tables when the terminal size is unknown.
const defaultWidth = 100

func checkFormat(format string, allowed ...string) error {
	for _, f := range allowed {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown format %q (want one of %s)", shuttle.ErrUsage, format, strings.Join(allowed, ", "))
}

// writeStructured encodes v as JSON (two-space indent) or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: unknown format %q", shuttle.ErrUsage, format)
	}
}

// stdoutTerminal reports whether stdout is a terminal and, if so, its width.
func stdoutTerminal() (bool, int) {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return false, 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		width = defaultWidth
	}
	return true, width
}

// table renders rows either aligned for people or tab-separated for tools.
type table struct {
	header []string
	rows   [][]string
}

func (t *table) add(cols ...string) {
	t.rows = append(t.rows, cols)
}

// write renders the table to stdout in the mode chosen by the terminal.
func (t *table) write(w io.Writer) {
	human, width := stdoutTerminal()
	if human {
		t.renderHuman(w, width)
		return
	}
	t.renderPlain(w)
}

// renderPlain writes one tab-separated line per row, without a header.
func (t *table) renderPlain(w io.Writer) {
	for _, row := range t.rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
}

// renderHuman pads columns and truncates the last one to fit width.
func (t *table) renderHuman(w io.Writer, width int) {
	widths := make([]int, len(t.header))
	measure := func(row []string) {
		for i, col := range row {
			if i < len(widths) && utf8.RuneCountInString(col) > widths[i] {
				widths[i] = utf8.RuneCountInString(col)
			}
		}
	}
	measure(t.header)
	for _, row := range t.rows {
		measure(row)
	}

	line := func(row []string) string {
		var b strings.Builder
		for i, col := range row {
			if i == len(row)-1 {
				b.WriteString(col)
				break
			}
			b.WriteString(col)
			b.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(col)+2))
		}
		return truncate(b.String(), width)
	}

	fmt.Fprintln(w, line(t.header))
	for _, row := range t.rows {
		fmt.Fprintln(w, line(row))
	}
}

// truncate shortens s to at most width runes, marking the cut with "…".
func truncate(s string, width int) string {
	if width <= 0 || utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	return string(r[:width-1]) + "…"
}
