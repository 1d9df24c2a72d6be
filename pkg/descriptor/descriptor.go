// Package descriptor is the on-disk catalog of a dataset: which fields
// exist, their type names and versions, their parent links, and the column
// kinds each field writes. Sinks populate it while fields connect; sources
// serve it back so a read-side field tree can negotiate representations.
package descriptor

import (
	"sort"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/ajitpratap0/strata/pkg/column"
	serrors "github.com/ajitpratap0/strata/pkg/errors"
)

// FieldID identifies a field in the catalog. IDs are assigned by the writer
// in connect order, starting at zero for the root field.
type FieldID = uint64

// InvalidFieldID marks a field that is not attached to any catalog.
const InvalidFieldID FieldID = ^FieldID(0)

// FieldDescriptor records one field's catalog entry.
type FieldDescriptor struct {
	ID          FieldID       `json:"id"`
	Name        string        `json:"name"`
	TypeName    string        `json:"type_name"`
	TypeVersion uint32        `json:"type_version"`
	ParentID    FieldID       `json:"parent_id"`
	Columns     []column.Kind `json:"columns,omitempty"`
}

// Schema is the mutable catalog a store maintains. It is safe for one
// writer goroutine concurrent with readers.
type Schema struct {
	mu     sync.RWMutex
	fields map[FieldID]*FieldDescriptor
}

// NewSchema returns an empty catalog.
func NewSchema() *Schema {
	return &Schema{fields: make(map[FieldID]*FieldDescriptor)}
}

// PutField adds or updates a field entry.
func (s *Schema) PutField(fd FieldDescriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := fd
	if prev, ok := s.fields[fd.ID]; ok && len(entry.Columns) == 0 {
		entry.Columns = prev.Columns
	}
	s.fields[fd.ID] = &entry
}

// AddColumn records that the field writes a column of the given kind at the
// given position.
func (s *Schema) AddColumn(id FieldID, kind column.Kind, index uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fd, ok := s.fields[id]
	if !ok {
		fd = &FieldDescriptor{ID: id, ParentID: InvalidFieldID}
		s.fields[id] = fd
	}
	for int(index) >= len(fd.Columns) {
		fd.Columns = append(fd.Columns, column.KindUnknown)
	}
	fd.Columns[index] = kind
}

// Field returns the entry for the given ID.
func (s *Schema) Field(id FieldID) (FieldDescriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fd, ok := s.fields[id]
	if !ok {
		return FieldDescriptor{}, false
	}
	return *fd, true
}

// ColumnKinds returns the field's column kinds in column order, or nil when
// the field has no columns.
func (s *Schema) ColumnKinds(id FieldID) []column.Kind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fd, ok := s.fields[id]
	if !ok || len(fd.Columns) == 0 {
		return nil
	}
	kinds := make([]column.Kind, len(fd.Columns))
	copy(kinds, fd.Columns)
	return kinds
}

// Fields returns all entries ordered by ID.
func (s *Schema) Fields() []FieldDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]FieldDescriptor, 0, len(s.fields))
	for _, fd := range s.fields {
		out = append(out, *fd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Children returns the entries whose parent is the given field, ordered by
// ID.
func (s *Schema) Children(id FieldID) []FieldDescriptor {
	var out []FieldDescriptor
	for _, fd := range s.Fields() {
		if fd.ParentID == id && fd.ID != id {
			out = append(out, fd)
		}
	}
	return out
}

// MarshalJSON exports the catalog as a sorted field list.
func (s *Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Fields())
}

// UnmarshalJSON replaces the catalog contents with the given field list.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var fields []FieldDescriptor
	if err := json.Unmarshal(data, &fields); err != nil {
		return serrors.Wrap(err, serrors.ErrorTypeData, "failed to decode schema")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fields = make(map[FieldID]*FieldDescriptor, len(fields))
	for i := range fields {
		fd := fields[i]
		s.fields[fd.ID] = &fd
	}
	return nil
}
