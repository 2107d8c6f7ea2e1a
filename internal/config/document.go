package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// DocumentTitle heads every registry file this package writes.
const DocumentTitle = "# Sync Shuttle - Server Configuration"

// serversTable is the top-level table holding one sub-table per server.
const serversTable = "servers"

// Field is one scalar key/value pair of a server section.
// Value is always a bool, an int64, or a string.
type Field struct {
	Key   string
	Value any
}

// Section is one [servers.<id>] table with its fields in document order.
type Section struct {
	ID     string
	Fields []Field
}

// Lookup returns the value stored under key and whether it is present.
func (s *Section) Lookup(key string) (any, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Set replaces the value of key in place, or appends it if absent.
func (s *Section) Set(key string, value any) {
	for i := range s.Fields {
		if s.Fields[i].Key == key {
			s.Fields[i].Value = value
			return
		}
	}
	s.Fields = append(s.Fields, Field{Key: key, Value: value})
}

// Document is the parsed registry file: server sections in document order.
// The registry is its only writer.
type Document struct {
	sections []*Section

	// Dropped lists the keys of values this format cannot carry (floats,
	// datetimes, arrays, nested tables, keys outside [servers]). They are
	// omitted from the next Encode.
	Dropped []string
}

// NewDocument returns an empty Document.
func NewDocument() *Document {
	return &Document{}
}

// Sections returns the server sections in document order.
func (d *Document) Sections() []*Section {
	return d.sections
}

// Section returns the section for id.
func (d *Document) Section(id string) (*Section, bool) {
	for _, s := range d.sections {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Append adds a section at the end. The caller checks for duplicates.
func (d *Document) Append(s *Section) {
	d.sections = append(d.sections, s)
}

// Remove deletes the section for id and reports whether it existed.
func (d *Document) Remove(id string) bool {
	for i, s := range d.sections {
		if s.ID == id {
			d.sections = append(d.sections[:i], d.sections[i+1:]...)
			return true
		}
	}
	return false
}

// Parse decodes a registry document, keeping sections and fields in the
// order they appear in the input.
func Parse(r io.Reader) (*Document, error) {
	var raw map[string]any
	md, err := toml.NewDecoder(r).Decode(&raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode registry: %w", err)
	}

	doc := NewDocument()
	servers, _ := raw[serversTable].(map[string]any)
	for _, key := range md.Keys() {
		if key[0] != serversTable {
			if len(key) == 1 {
				doc.Dropped = append(doc.Dropped, key.String())
			}
			continue
		}
		switch len(key) {
		case 1:
			if servers == nil {
				doc.Dropped = append(doc.Dropped, key.String())
			}
		case 2:
			if _, ok := servers[key[1]].(map[string]any); !ok {
				doc.Dropped = append(doc.Dropped, key.String())
				continue
			}
			doc.ensure(key[1])
		case 3:
			table, ok := servers[key[1]].(map[string]any)
			if !ok {
				continue
			}
			value, ok := scalar(table[key[2]])
			if !ok {
				doc.Dropped = append(doc.Dropped, key.String())
				continue
			}
			s := doc.ensure(key[1])
			s.Fields = append(s.Fields, Field{Key: key[2], Value: value})
		}
	}
	return doc, nil
}

func (d *Document) ensure(id string) *Section {
	if s, ok := d.Section(id); ok {
		return s
	}
	s := &Section{ID: id}
	d.Append(s)
	return s
}

// scalar normalizes the value types the registry format carries.
func scalar(v any) (any, bool) {
	switch v := v.(type) {
	case bool, string, int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return nil, false
	}
}

// Encode writes the document: the title, a blank line, then one section
// per server with a blank line after each.
func (d *Document) Encode(w io.Writer) error {
	var b strings.Builder
	b.WriteString(DocumentTitle)
	b.WriteString("\n\n")
	for _, s := range d.sections {
		fmt.Fprintf(&b, "[%s]\n", toml.Key{serversTable, s.ID})
		for _, f := range s.Fields {
			line, err := encodeField(f)
			if err != nil {
				return fmt.Errorf("encoding servers.%s.%s: %w", s.ID, f.Key, err)
			}
			b.WriteString(line)
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// encodeField renders one key = value line, letting the toml encoder
// handle key and string quoting.
func encodeField(f Field) (string, error) {
	v, ok := scalar(f.Value)
	if !ok {
		return "", fmt.Errorf("unsupported value type %T", f.Value)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(map[string]any{f.Key: v}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ReadDocumentFile parses the registry at path. A missing file is reported
// with an error wrapping fs.ErrNotExist.
func ReadDocumentFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("registry %s: %w", path, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("reading registry from %s: %w", path, err)
	}
	return doc, nil
}

// WriteDocumentFile replaces the registry at path with doc.
func WriteDocumentFile(path string, doc *Document) error {
	if err := WriteAtomic(path, doc.Encode); err != nil {
		return fmt.Errorf("writing registry to %s: %w", path, err)
	}
	return nil
}

// InitDocument writes an empty registry to path unless one already exists.
func InitDocument(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := WriteDocumentFile(path, NewDocument()); err != nil {
		return false, fmt.Errorf("initializing registry: %w", err)
	}
	return true, nil
}
