// Package typeinfo is the introspection registry for user-defined types.
// Class, enum, collection, and tuple descriptions are registered by the
// application and consumed by the field layer when it materializes a field
// tree for a type name it cannot derive structurally.
package typeinfo

import (
	"sync"

	serrors "github.com/ajitpratap0/strata/pkg/errors"
)

// Member describes one data member of a registered class.
type Member struct {
	Name     string
	TypeName string
	// Offset is the member's byte offset inside the class value.
	Offset int
	// Transient members are not serialized; they may only be filled by
	// read rules.
	Transient bool
}

// Base describes an inherited sub-object of a registered class.
type Base struct {
	TypeName string
	Offset   int
}

// ReadRule post-processes a value after its persistent members were read.
// Target names the member the rule writes; only rules targeting transient
// members are applied.
type ReadRule struct {
	Target string
	Func   func(obj []byte)
}

// Class describes a registered class type.
type Class struct {
	TypeName  string
	Version   uint32
	Size      int
	Alignment int
	Members   []Member
	Bases     []Base
	ReadRules []ReadRule
}

// Collection describes a registered collection type whose in-memory layout
// is opaque to the field layer. The field layer drives it purely through the
// registered operations.
type Collection struct {
	TypeName     string
	ItemTypeName string
	// Keyed marks associative containers (sets, maps). ItemTypeName then
	// names the key or key/value type. The field layer cannot map them.
	Keyed bool
	// PointerItems marks containers that hold their items through
	// pointers rather than inline. The field layer cannot map them.
	PointerItems bool
	// Size and Alignment describe the collection header value itself.
	Size      int
	Alignment int
	// Count returns the number of items held by obj.
	Count func(obj []byte) int
	// At returns the bytes of item i.
	At func(obj []byte, i int) []byte
	// Reset prepares obj to hold n items of itemSize bytes each and
	// returns the item buffers in order, ready to be filled.
	Reset func(obj []byte, n, itemSize int) [][]byte
}

// Enum describes a registered enum type and its underlying integer type.
type Enum struct {
	TypeName   string
	Underlying string
}

// TupleLayout pins the member offsets of a pair or tuple type whose layout
// is dictated by the application rather than derived from the item types.
type TupleLayout struct {
	Offsets   []int
	Size      int
	Alignment int
}

// Registry holds type descriptions keyed by canonical type name. Safe for
// concurrent use.
type Registry struct {
	mu          sync.RWMutex
	classes     map[string]*Class
	enums       map[string]*Enum
	collections map[string]*Collection
	tuples      map[string]*TupleLayout
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		classes:     make(map[string]*Class),
		enums:       make(map[string]*Enum),
		collections: make(map[string]*Collection),
		tuples:      make(map[string]*TupleLayout),
	}
}

// RegisterClass adds or replaces a class description.
func (r *Registry) RegisterClass(c Class) error {
	if c.TypeName == "" || c.Size <= 0 || c.Alignment <= 0 {
		return serrors.New(serrors.ErrorTypeValidation,
			"class registration needs a type name and positive size and alignment")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cc := c
	r.classes[c.TypeName] = &cc
	return nil
}

// Class looks up a class description.
func (r *Registry) Class(typeName string) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[typeName]
	return c, ok
}

// RegisterEnum adds or replaces an enum description.
func (r *Registry) RegisterEnum(e Enum) error {
	if e.TypeName == "" || e.Underlying == "" {
		return serrors.New(serrors.ErrorTypeValidation,
			"enum registration needs a type name and an underlying type")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ee := e
	r.enums[e.TypeName] = &ee
	return nil
}

// Enum looks up an enum description.
func (r *Registry) Enum(typeName string) (*Enum, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.enums[typeName]
	return e, ok
}

// RegisterCollection adds or replaces a collection description.
func (r *Registry) RegisterCollection(c Collection) error {
	if c.TypeName == "" || c.ItemTypeName == "" ||
		c.Count == nil || c.At == nil || c.Reset == nil {
		return serrors.New(serrors.ErrorTypeValidation,
			"collection registration needs type names and count, at, and reset operations")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cc := c
	r.collections[c.TypeName] = &cc
	return nil
}

// Collection looks up a collection description.
func (r *Registry) Collection(typeName string) (*Collection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.collections[typeName]
	return c, ok
}

// RegisterTupleLayout pins the layout of a pair or tuple type name.
func (r *Registry) RegisterTupleLayout(typeName string, l TupleLayout) error {
	if typeName == "" || len(l.Offsets) == 0 || l.Size <= 0 || l.Alignment <= 0 {
		return serrors.New(serrors.ErrorTypeValidation,
			"tuple layout registration needs a type name, offsets, and positive size and alignment")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ll := l
	ll.Offsets = append([]int(nil), l.Offsets...)
	r.tuples[typeName] = &ll
	return nil
}

// TupleLayout looks up a pinned pair or tuple layout.
func (r *Registry) TupleLayout(typeName string) (*TupleLayout, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.tuples[typeName]
	return l, ok
}

// Default is the process-wide registry used when no explicit registry is
// supplied.
var Default = NewRegistry()

// NaturalLayout packs items with the given sizes and alignments in order,
// returning their offsets plus the padded total size and overall alignment.
func NaturalLayout(sizes, aligns []int) (offsets []int, size, align int) {
	offsets = make([]int, len(sizes))
	align = 1
	for i := range sizes {
		a := aligns[i]
		if a > align {
			align = a
		}
		size = alignUp(size, a)
		offsets[i] = size
		size += sizes[i]
	}
	size = alignUp(size, align)
	if size == 0 {
		size = 1
	}
	return offsets, size, align
}

func alignUp(n, a int) int {
	if a <= 1 {
		return n
	}
	if rem := n % a; rem != 0 {
		return n + a - rem
	}
	return n
}
