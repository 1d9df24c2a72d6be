// Package field implements the field tree: the mapping from a type name to
// a hierarchy of fields, each of which serializes one sub-object into the
// physical columns of a page store and back. Create builds a tree from a
// canonical type name, ConnectSink and ConnectSource attach a tree to a
// store, and Append and Read move values entry by entry.
package field

import (
	"fmt"
	"strings"

	"github.com/ajitpratap0/strata/pkg/column"
	"github.com/ajitpratap0/strata/pkg/compression"
	serrors "github.com/ajitpratap0/strata/pkg/errors"
)

// Trait is a bitmask of structural properties of a field's in-memory values.
// A composite field's traits are the AND of its children's, further
// restricted by its own layout.
type Trait uint32

const (
	// TraitMappable means a value is byte-identical to its single column
	// element, so bulk transfers can bypass per-element packing.
	TraitMappable Trait = 1 << iota
	// TraitTriviallyConstructible means the all-zero buffer is a valid
	// value, so construction needs no work.
	TraitTriviallyConstructible
	// TraitTriviallyDestructible means values hold no out-of-line
	// payloads, so destruction needs no work.
	TraitTriviallyDestructible
)

// traitTrivial is the full trait set of plain fixed-size values.
const traitTrivial = TraitMappable | TraitTriviallyConstructible | TraitTriviallyDestructible

// Structure classifies the role of a field within the tree.
type Structure int

const (
	StructLeaf Structure = iota
	StructRecord
	StructCollection
	StructVariant
	StructReference
)

type connState int

const (
	stateUnconnected connState = iota
	stateSinkConnected
	stateSourceConnected
)

// Field is one node of a field tree. The set of implementations is closed;
// all of them live in this package and are obtained through Create or the
// New* constructors.
type Field interface {
	// Name returns the field name, unique among its siblings.
	Name() string
	// TypeName returns the canonical type name.
	TypeName() string
	// TypeAlias returns the pre-canonicalization spelling when it
	// differs, or the empty string.
	TypeAlias() string
	// TypeVersion returns the schema version of the field's type.
	TypeVersion() uint32
	// QualifiedName returns the dot-separated path from the tree root.
	QualifiedName() string
	// Description returns the free-form field description.
	Description() string
	// SetDescription attaches a free-form description.
	SetDescription(desc string)
	// Size returns the in-memory value size in bytes.
	Size() int
	// Alignment returns the in-memory value alignment in bytes.
	Alignment() int
	// Traits returns the field's trait mask. Read callbacks suppress
	// TraitMappable while registered.
	Traits() Trait
	// Structure returns the structural role of the field.
	Structure() Structure
	// Repetitions returns the fixed per-entry element multiplier, or
	// zero for fields without one.
	Repetitions() uint64
	// Parent returns the enclosing field, or nil for a tree root.
	Parent() Field
	// SubFields returns the direct children in declaration order.
	SubFields() []Field
	// OnDiskID returns the catalog ID assigned at connect time.
	OnDiskID() uint64
	// SetOnDiskID pins the catalog ID before connecting to a source,
	// used to project a new field onto existing columns.
	SetOnDiskID(id uint64)

	// ColumnRepresentative returns the representation that will be or
	// was used for writing.
	ColumnRepresentative() column.Representation
	// SetColumnRepresentative chooses one of the field's write
	// representations. It must be called before connecting.
	SetColumnRepresentative(rep column.Representation) error

	// ConnectSink attaches the tree rooted at this field to a sink for
	// writing, assigning on-disk IDs in depth-first order.
	ConnectSink(sink column.Sink) error
	// ConnectSource attaches the tree rooted at this field to a source
	// for reading, matching on-disk column kinds against each field's
	// read representations.
	ConnectSource(source column.Source) error

	// Append serializes one value into the columns and returns an
	// estimate of the bytes written.
	Append(v *Value) (int, error)
	// Read deserializes the value at the global entry index.
	Read(globalIndex uint64, v *Value) error
	// ReadInCluster deserializes the value at a cluster-relative index.
	ReadInCluster(ci column.ClusterIndex, v *Value) error
	// AppendV serializes n consecutive values from one buffer.
	AppendV(values []byte, n int) (int, error)
	// ReadV deserializes n consecutive values into one buffer.
	ReadV(globalIndex uint64, n int, out []byte) error

	// CommitCluster finishes the current cluster for this field and all
	// children, resetting cluster-local counters.
	CommitCluster()
	// Flush seals the open pages of all columns in the tree.
	Flush() error

	// GenerateValue creates a new owning, default-constructed value.
	GenerateValue() *Value
	// BindValue wraps a caller-provided buffer laid out for this field.
	BindValue(buf []byte) *Value
	// DestroyValue releases the value's out-of-line payloads.
	DestroyValue(v *Value)
	// SplitValue returns values bound to the sub-objects of a composite
	// value, matching SubFields order. Nil for leaves.
	SplitValue(v *Value) []*Value

	// AddReadCallback registers a function invoked after every read into
	// a value of this field and returns its registration index.
	AddReadCallback(fn func(*Value)) int
	// RemoveReadCallback drops a previously registered callback.
	RemoveReadCallback(index int)

	// EntryToColumnElementIndex translates an entry index into the
	// element index of the field's principal column, or zero when the
	// field sits inside a collection or variant.
	EntryToColumnElementIndex(entry uint64) uint64

	// Clone returns an unconnected deep copy under a new name, keeping
	// the on-disk ID and representation choice.
	Clone(name string) Field

	// hooks implemented by every concrete field; unexported so the set
	// of field kinds stays closed.
	base() *fieldBase
	appendImpl(v *Value) (int, error)
	readImpl(globalIndex uint64, v *Value) error
	readInClusterImpl(ci column.ClusterIndex, v *Value) error
	construct(buf []byte)
	destruct(buf []byte)
	representations() column.Representations
	makeColumns(rep column.Representation) []*column.Column
	cloneImpl(name string) Field
	commitClusterImpl()
	afterConnectSource(source column.Source) error
}

// fieldBase carries the state and shared behavior of every field. Concrete
// fields embed it and set self to themselves so shared code dispatches to
// their hook overrides.
type fieldBase struct {
	self Field

	name        string
	typeName    string
	typeAlias   string
	typeVersion uint32
	description string

	size        int
	alignment   int
	traits      Trait
	structure   Structure
	repetitions uint64

	parent   Field
	children []Field

	onDiskID       uint64
	state          connState
	representative column.Representation
	columns        []*column.Column

	readCallbacks []func(*Value)
	heap          *heap
}

func (b *fieldBase) init(self Field, name, typeName string) {
	b.self = self
	b.name = name
	b.typeName = typeName
	b.onDiskID = ^uint64(0)
	b.heap = newHeap()
}

func (b *fieldBase) attach(child Field) {
	child.base().parent = b.self
	b.children = append(b.children, child)
}

func (b *fieldBase) base() *fieldBase { return b }

func (b *fieldBase) Name() string          { return b.name }
func (b *fieldBase) TypeName() string      { return b.typeName }
func (b *fieldBase) TypeAlias() string     { return b.typeAlias }
func (b *fieldBase) TypeVersion() uint32   { return b.typeVersion }
func (b *fieldBase) Description() string   { return b.description }
func (b *fieldBase) SetDescription(d string) { b.description = d }
func (b *fieldBase) Size() int             { return b.size }
func (b *fieldBase) Alignment() int        { return b.alignment }
func (b *fieldBase) Structure() Structure  { return b.structure }
func (b *fieldBase) Repetitions() uint64   { return b.repetitions }
func (b *fieldBase) Parent() Field         { return b.parent }
func (b *fieldBase) SubFields() []Field    { return b.children }
func (b *fieldBase) OnDiskID() uint64      { return b.onDiskID }
func (b *fieldBase) SetOnDiskID(id uint64) { b.onDiskID = id }

func (b *fieldBase) Traits() Trait {
	t := b.traits
	for _, cb := range b.readCallbacks {
		if cb != nil {
			t &^= TraitMappable
			break
		}
	}
	return t
}

func (b *fieldBase) QualifiedName() string {
	if b.parent == nil {
		return b.name
	}
	prefix := b.parent.QualifiedName()
	if prefix == "" {
		return b.name
	}
	return prefix + "." + b.name
}

// ensureValidName rejects field names that cannot appear in a qualified
// path.
func ensureValidName(name string) error {
	if name == "" {
		return serrors.New(serrors.ErrorTypeValidation, "field name cannot be empty")
	}
	if strings.ContainsRune(name, '.') {
		return serrors.Newf(serrors.ErrorTypeValidation,
			"field name %q cannot contain dots", name)
	}
	return nil
}

func (b *fieldBase) principal() *column.Column {
	if len(b.columns) == 0 {
		return nil
	}
	return b.columns[0]
}

// ColumnRepresentative returns the explicit choice, or the default write
// representation. Read-only field types have no write representation and
// return nil.
func (b *fieldBase) ColumnRepresentative() column.Representation {
	if b.representative != nil {
		return b.representative
	}
	if len(b.self.representations().WriteTypes()) == 0 {
		return nil
	}
	return b.self.representations().WriteDefault()
}

func (b *fieldBase) SetColumnRepresentative(rep column.Representation) error {
	if b.state != stateUnconnected {
		return serrors.New(serrors.ErrorTypeMisuse,
			"cannot change the column representation of a connected field")
	}
	for _, cand := range b.self.representations().WriteTypes() {
		if cand.Equal(rep) {
			b.representative = rep
			return nil
		}
	}
	return serrors.Newf(serrors.ErrorTypeRepresentation,
		"representation %s is not writable for field type %s", rep, b.typeName)
}

// autoAdjust rewrites a write representation according to the sink options:
// without compression, split encodings buy nothing; with small clusters,
// 32-bit offsets suffice.
func autoAdjust(rep column.Representation, opts *column.WriteOptions) column.Representation {
	out := make(column.Representation, len(rep))
	copy(out, rep)
	for i, k := range out {
		if opts.Compression == "" || opts.Compression == compression.None {
			k = k.Unsplit()
		}
		if opts.SmallClusters {
			switch k {
			case column.KindIndex64:
				k = column.KindIndex32
			case column.KindSplitIndex64:
				k = column.KindSplitIndex32
			}
		}
		out[i] = k
	}
	return out
}

// ConnectSink walks the tree in depth-first order, assigning on-disk IDs,
// registering catalog entries, and opening the write columns.
func (b *fieldBase) ConnectSink(sink column.Sink) error {
	nextID := uint64(0)
	parentID := descriptorInvalidID
	if b.parent != nil {
		parentID = b.parent.OnDiskID()
	}
	return connectSinkRec(b.self, sink, &nextID, parentID)
}

const descriptorInvalidID = ^uint64(0)

func connectSinkRec(f Field, sink column.Sink, nextID *uint64, parentID uint64) error {
	fb := f.base()
	if fb.state != stateUnconnected {
		return serrors.Newf(serrors.ErrorTypeMisuse,
			"field %s is already connected", fb.QualifiedName())
	}
	fb.onDiskID = *nextID
	*nextID++
	if err := sink.PutField(fb.onDiskID, fb.name, fb.typeName, f.TypeVersion(), parentID); err != nil {
		return err
	}
	rep := f.ColumnRepresentative()
	if rep == nil {
		return serrors.Newf(serrors.ErrorTypeMisuse,
			"field %s of type %s is read-only and cannot connect to a sink",
			fb.QualifiedName(), fb.typeName)
	}
	rep = autoAdjust(rep, sink.Options())
	fb.columns = f.makeColumns(rep)
	for _, col := range fb.columns {
		if err := col.ConnectSink(fb.onDiskID, sink, 0); err != nil {
			return err
		}
	}
	fb.state = stateSinkConnected
	for _, child := range fb.children {
		if err := connectSinkRec(child, sink, nextID, fb.onDiskID); err != nil {
			return err
		}
	}
	return nil
}

// ConnectSource walks the tree in depth-first order and matches each
// field's read representations against the on-disk column kinds.
func (b *fieldBase) ConnectSource(source column.Source) error {
	nextID := uint64(0)
	return connectSourceRec(b.self, source, &nextID)
}

func connectSourceRec(f Field, source column.Source, nextID *uint64) error {
	fb := f.base()
	if fb.state != stateUnconnected {
		return serrors.Newf(serrors.ErrorTypeMisuse,
			"field %s is already connected", fb.QualifiedName())
	}
	if fb.onDiskID == descriptorInvalidID {
		fb.onDiskID = *nextID
	}
	*nextID = fb.onDiskID + 1
	disk := column.Representation(source.ColumnKinds(fb.onDiskID))
	match := f.representations().MatchRead(disk)
	if match == nil {
		return serrors.Newf(serrors.ErrorTypeRepresentation,
			"field %s of type %s cannot read on-disk columns %s",
			fb.QualifiedName(), fb.typeName, disk)
	}
	fb.columns = f.makeColumns(match)
	for _, col := range fb.columns {
		if err := col.ConnectSource(fb.onDiskID, source); err != nil {
			return err
		}
	}
	fb.state = stateSourceConnected
	if err := f.afterConnectSource(source); err != nil {
		return err
	}
	for _, child := range fb.children {
		if err := connectSourceRec(child, source, nextID); err != nil {
			return err
		}
	}
	return nil
}

// afterConnectSource is the default no-op hook.
func (b *fieldBase) afterConnectSource(column.Source) error { return nil }

func (b *fieldBase) Append(v *Value) (int, error) {
	if b.state != stateSinkConnected {
		return 0, serrors.Newf(serrors.ErrorTypeMisuse,
			"field %s is not connected to a sink", b.QualifiedName())
	}
	if v.field != b.self {
		return 0, serrors.New(serrors.ErrorTypeMisuse,
			"value is bound to a different field")
	}
	return b.self.appendImpl(v)
}

func (b *fieldBase) Read(globalIndex uint64, v *Value) error {
	if b.state != stateSourceConnected {
		return serrors.Newf(serrors.ErrorTypeMisuse,
			"field %s is not connected to a source", b.QualifiedName())
	}
	if err := b.self.readImpl(globalIndex, v); err != nil {
		return err
	}
	for _, cb := range b.readCallbacks {
		if cb != nil {
			cb(v)
		}
	}
	return nil
}

func (b *fieldBase) ReadInCluster(ci column.ClusterIndex, v *Value) error {
	if b.state != stateSourceConnected {
		return serrors.Newf(serrors.ErrorTypeMisuse,
			"field %s is not connected to a source", b.QualifiedName())
	}
	if err := b.self.readInClusterImpl(ci, v); err != nil {
		return err
	}
	for _, cb := range b.readCallbacks {
		if cb != nil {
			cb(v)
		}
	}
	return nil
}

// AppendV serializes n values packed back to back in one buffer. Mappable
// trivial fields hand the whole buffer to the column in one call.
func (b *fieldBase) AppendV(values []byte, n int) (int, error) {
	if b.state != stateSinkConnected {
		return 0, serrors.Newf(serrors.ErrorTypeMisuse,
			"field %s is not connected to a sink", b.QualifiedName())
	}
	if b.Traits()&TraitMappable != 0 {
		b.principal().AppendV(values, n)
		return n * b.principal().Kind().PackedSize(), nil
	}
	total := 0
	for i := 0; i < n; i++ {
		v := b.self.BindValue(values[i*b.size : (i+1)*b.size])
		written, err := b.self.appendImpl(v)
		if err != nil {
			return total, err
		}
		total += written
	}
	return total, nil
}

// ReadV deserializes n consecutive entries into one buffer.
func (b *fieldBase) ReadV(globalIndex uint64, n int, out []byte) error {
	if b.state != stateSourceConnected {
		return serrors.Newf(serrors.ErrorTypeMisuse,
			"field %s is not connected to a source", b.QualifiedName())
	}
	if b.Traits()&TraitMappable != 0 {
		return b.principal().ReadV(globalIndex, n, out)
	}
	for i := 0; i < n; i++ {
		v := b.self.BindValue(out[i*b.size : (i+1)*b.size])
		if err := b.Read(globalIndex+uint64(i), v); err != nil {
			return err
		}
	}
	return nil
}

func (b *fieldBase) CommitCluster() {
	if b.state == stateSinkConnected {
		b.self.commitClusterImpl()
	}
	for _, child := range b.children {
		child.CommitCluster()
	}
}

// commitClusterImpl is the default no-op hook.
func (b *fieldBase) commitClusterImpl() {}

func (b *fieldBase) Flush() error {
	for _, col := range b.columns {
		if err := col.Flush(); err != nil {
			return err
		}
	}
	for _, child := range b.children {
		if err := child.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (b *fieldBase) GenerateValue() *Value {
	buf := make([]byte, b.size)
	b.self.construct(buf)
	return &Value{field: b.self, buf: buf, owning: true}
}

func (b *fieldBase) BindValue(buf []byte) *Value {
	return &Value{field: b.self, buf: buf[:b.size]}
}

func (b *fieldBase) DestroyValue(v *Value) {
	b.self.destruct(v.buf)
}

// SplitValue is the default for leaves.
func (b *fieldBase) SplitValue(*Value) []*Value { return nil }

// construct is the default hook: the zero buffer is the default value.
func (b *fieldBase) construct(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}

// destruct is the default hook for fields without out-of-line payloads.
func (b *fieldBase) destruct([]byte) {}

// readImpl is the default hook for mappable single-column fields.
func (b *fieldBase) readImpl(globalIndex uint64, v *Value) error {
	return b.principal().Read(globalIndex, v.buf)
}

func (b *fieldBase) readInClusterImpl(ci column.ClusterIndex, v *Value) error {
	return b.principal().ReadCluster(ci, v.buf)
}

// AddReadCallback returns a registration index that stays valid across
// removals of other callbacks.
func (b *fieldBase) AddReadCallback(fn func(*Value)) int {
	b.readCallbacks = append(b.readCallbacks, fn)
	return len(b.readCallbacks) - 1
}

func (b *fieldBase) RemoveReadCallback(index int) {
	if index < 0 || index >= len(b.readCallbacks) {
		return
	}
	b.readCallbacks[index] = nil
}

// EntryToColumnElementIndex multiplies the entry index by the fixed
// repetition counts along the path to the root. Inside a collection or
// variant the element index is not a function of the entry, so the result
// is zero.
func (b *fieldBase) EntryToColumnElementIndex(entry uint64) uint64 {
	idx := entry
	for f := b.self; f != nil; f = f.Parent() {
		if p := f.Parent(); p != nil {
			switch p.Structure() {
			case StructCollection, StructVariant:
				return 0
			}
		}
		if r := f.Repetitions(); r > 0 {
			idx *= r
		}
	}
	return idx
}

func (b *fieldBase) Clone(name string) Field {
	clone := b.self.cloneImpl(name)
	cb := clone.base()
	cb.onDiskID = b.onDiskID
	if b.representative != nil {
		cb.representative = append(column.Representation(nil), b.representative...)
	}
	cb.description = b.description
	return clone
}

// columnsFor builds the column handles for a representation using the
// field's in-memory element type per column position.
func columnsFor(rep column.Representation, mems ...column.MemType) []*column.Column {
	cols := make([]*column.Column, len(rep))
	for i, k := range rep {
		cols[i] = column.New(k, mems[i], uint32(i))
	}
	return cols
}

func (b *fieldBase) String() string {
	return fmt.Sprintf("%s %s", b.typeName, b.QualifiedName())
}
