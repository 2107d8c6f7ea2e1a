package registry

import (
	"errors"
	"fmt"
	"io/fs"

	"sync-shuttle/internal/config"
	"sync-shuttle/internal/shuttle"
)

// Registry manages server profiles stored in the registry document.
// Every call re-reads the file, and every mutation rewrites it in full.
type Registry struct {
	path   string
	logger shuttle.Logger
}

// New creates a Registry backed by the document at path.
func New(path string, logger shuttle.Logger) *Registry {
	return &Registry{path: path, logger: logger}
}

// Path returns the location of the registry document.
func (r *Registry) Path() string {
	return r.path
}

// Init creates an empty registry document if none exists.
func (r *Registry) Init() (bool, error) {
	created, err := config.InitDocument(r.path)
	if err != nil {
		return false, err
	}
	if created {
		r.logger.Info("created registry", "path", r.path)
	}
	return created, nil
}

func (r *Registry) load() (*config.Document, error) {
	doc, err := config.ReadDocumentFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: registry file %s", shuttle.ErrNotFound, r.path)
	}
	return doc, err
}

func (r *Registry) save(doc *config.Document) error {
	for _, key := range doc.Dropped {
		r.logger.Warn("dropping unsupported registry value", "key", key, "path", r.path)
	}
	return config.WriteDocumentFile(r.path, doc)
}

func (r *Registry) section(doc *config.Document, id string) (*config.Section, error) {
	s, ok := doc.Section(id)
	if !ok {
		return nil, fmt.Errorf("%w: server %s", shuttle.ErrNotFound, id)
	}
	return s, nil
}

// List returns the server ids in document order.
func (r *Registry) List() ([]string, error) {
	doc, err := r.load()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(doc.Sections()))
	for _, s := range doc.Sections() {
		ids = append(ids, s.ID)
	}
	return ids, nil
}

// ListDetail returns one summary row per server in document order.
// A user or host key that is absent from the document renders as "?".
func (r *Registry) ListDetail() ([]shuttle.ServerSummary, error) {
	doc, err := r.load()
	if err != nil {
		return nil, err
	}
	rows := make([]shuttle.ServerSummary, 0, len(doc.Sections()))
	for _, s := range doc.Sections() {
		p := resolve(s)
		row := shuttle.ServerSummary{
			Status: p.Status(),
			ID:     p.ID,
			User:   p.User,
			Host:   p.Host,
			Port:   p.Port,
			Name:   p.Name,
		}
		if _, ok := s.Lookup(FieldUser); !ok {
			row.User = "?"
		}
		if _, ok := s.Lookup(FieldHost); !ok {
			row.Host = "?"
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ListEligible returns the enabled profiles, the valid transfer targets.
func (r *Registry) ListEligible() ([]shuttle.ServerProfile, error) {
	doc, err := r.load()
	if err != nil {
		return nil, err
	}
	var out []shuttle.ServerProfile
	for _, s := range doc.Sections() {
		if p := resolve(s); p.Enabled {
			out = append(out, p)
		}
	}
	return out, nil
}

// Get returns the resolved profile for id.
func (r *Registry) Get(id string) (shuttle.ServerProfile, error) {
	doc, err := r.load()
	if err != nil {
		return shuttle.ServerProfile{}, err
	}
	s, err := r.section(doc, id)
	if err != nil {
		return shuttle.ServerProfile{}, err
	}
	return resolve(s), nil
}

// GetField returns the stored value of one field: a bool, an int64, or a
// string. Present empty or zero values are returned as values; only an
// absent key is ErrNotFound.
func (r *Registry) GetField(id, field string) (any, error) {
	doc, err := r.load()
	if err != nil {
		return nil, err
	}
	s, err := r.section(doc, id)
	if err != nil {
		return nil, err
	}
	v, ok := s.Lookup(field)
	if !ok {
		return nil, fmt.Errorf("%w: field %s.%s", shuttle.ErrNotFound, id, field)
	}
	return v, nil
}

// SetField validates raw against the field's type and stores it.
// The server must already exist.
func (r *Registry) SetField(id, field, raw string) (any, error) {
	doc, err := r.load()
	if err != nil {
		return nil, err
	}
	s, err := r.section(doc, id)
	if err != nil {
		return nil, err
	}
	value, err := coerce(field, raw)
	if err != nil {
		return nil, err
	}
	s.Set(field, value)
	if err := r.save(doc); err != nil {
		return nil, err
	}
	r.logger.Info("set server field", "id", id, "field", field, "value", value)
	return value, nil
}

// Add installs a profile with default fields. A missing registry file is
// created.
func (r *Registry) Add(id string) (shuttle.ServerProfile, error) {
	if err := shuttle.ValidateID(id); err != nil {
		return shuttle.ServerProfile{}, err
	}
	doc, err := r.load()
	if errors.Is(err, shuttle.ErrNotFound) {
		doc, err = config.NewDocument(), nil
	}
	if err != nil {
		return shuttle.ServerProfile{}, err
	}
	if _, ok := doc.Section(id); ok {
		return shuttle.ServerProfile{}, fmt.Errorf("%w: server %s", shuttle.ErrAlreadyExists, id)
	}
	s := &config.Section{ID: id, Fields: defaultFields(id)}
	doc.Append(s)
	if err := r.save(doc); err != nil {
		return shuttle.ServerProfile{}, err
	}
	r.logger.Info("added server", "id", id)
	return resolve(s), nil
}

// Remove deletes the profile for id.
func (r *Registry) Remove(id string) error {
	doc, err := r.load()
	if err != nil {
		return err
	}
	if !doc.Remove(id) {
		return fmt.Errorf("%w: server %s", shuttle.ErrNotFound, id)
	}
	if err := r.save(doc); err != nil {
		return err
	}
	r.logger.Info("removed server", "id", id)
	return nil
}

// Export returns profiles keyed by id: just id when it is non-empty,
// otherwise every profile.
func (r *Registry) Export(id string) (map[string]shuttle.ServerProfile, error) {
	doc, err := r.load()
	if err != nil {
		return nil, err
	}
	out := make(map[string]shuttle.ServerProfile)
	if id != "" {
		s, err := r.section(doc, id)
		if err != nil {
			return nil, err
		}
		out[id] = resolve(s)
		return out, nil
	}
	for _, s := range doc.Sections() {
		out[s.ID] = resolve(s)
	}
	return out, nil
}

// ShellEnv returns the executor-facing assignments for an enabled profile.
func (r *Registry) ShellEnv(id string) ([]shuttle.EnvVar, error) {
	p, err := r.RequireEnabled(id)
	if err != nil {
		return nil, err
	}
	return p.ShellEnv(), nil
}

// RequireEnabled returns the profile for id if it exists and is enabled.
func (r *Registry) RequireEnabled(id string) (shuttle.ServerProfile, error) {
	p, err := r.Get(id)
	if err != nil {
		return p, err
	}
	if !p.Enabled {
		return p, fmt.Errorf("%w: %s", shuttle.ErrDisabled, id)
	}
	return p, nil
}

// resolve builds a profile from a section, applying defaults for absent
// or mistyped fields.
func resolve(s *config.Section) shuttle.ServerProfile {
	p := shuttle.ServerProfile{
		ID:           s.ID,
		Name:         stringField(s, FieldName, s.ID),
		Host:         stringField(s, FieldHost, ""),
		Port:         shuttle.DefaultPort,
		User:         stringField(s, FieldUser, ""),
		IdentityFile: stringField(s, FieldIdentityFile, ""),
		RemoteBase:   stringField(s, FieldRemoteBase, ""),
		Enabled:      boolField(s, FieldEnabled),
		S3Backup:     boolField(s, FieldS3Backup),
	}
	if v, ok := s.Lookup(FieldPort); ok {
		if n, ok := v.(int64); ok {
			p.Port = int(n)
		}
	}
	return p
}

func stringField(s *config.Section, key, def string) string {
	if v, ok := s.Lookup(key); ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return def
}

func boolField(s *config.Section, key string) bool {
	v, _ := s.Lookup(key)
	b, _ := v.(bool)
	return b
}

var _ shuttle.ProfileLookup = (*Registry)(nil)
