package field

import (
	"github.com/ajitpratap0/strata/pkg/column"
)

// nullableField stores zero or one item per entry. The in-memory value is
// an 8-byte handle owning the item's bytes; the null handle means no item.
//
// Two encodings exist. The dense encoding writes a bit column plus one item
// per entry, appending a cached default item for null entries; it pays off
// when items are small. The sparse encoding writes an offset column whose
// per-entry size is zero or one and stores only the set items. The write
// default is dense for items under four bytes, sparse otherwise; reading
// follows whatever is on disk.
type nullableField struct {
	fieldBase
	written     uint64
	defaultItem []byte
}

func nullableRepsFor(dense bool) column.Representations {
	idx := reps(
		column.Representation{column.KindSplitIndex64},
		column.Representation{column.KindIndex64},
		column.Representation{column.KindSplitIndex32},
		column.Representation{column.KindIndex32})
	bit := column.Representation{column.KindBit}
	if dense {
		return column.NewRepresentations(append(reps(bit), idx...))
	}
	return column.NewRepresentations(append(idx, bit))
}

func newNullableField(name, typeName string, item Field) *nullableField {
	f := &nullableField{}
	f.init(f, name, typeName)
	f.size = 8
	f.alignment = 8
	f.traits = TraitTriviallyConstructible
	f.structure = StructCollection
	f.attach(item)
	return f
}

func (f *nullableField) representations() column.Representations {
	return nullableRepsFor(f.item().Size() < 4)
}

func (f *nullableField) makeColumns(rep column.Representation) []*column.Column {
	if rep[0] == column.KindBit {
		return columnsFor(rep, column.MemBool)
	}
	return columnsFor(rep, column.MemIndex)
}

func (f *nullableField) item() Field { return f.children[0] }

func (f *nullableField) dense() bool {
	return f.principal().Kind() == column.KindBit
}

func (f *nullableField) appendImpl(v *Value) (int, error) {
	item := f.item()
	handle := getHandle(v.buf)
	written := 0
	if f.dense() {
		buf := f.heap.get(handle)
		if handle == 0 {
			if f.defaultItem == nil {
				f.defaultItem = make([]byte, item.Size())
				item.construct(f.defaultItem)
			}
			buf = f.defaultItem
		}
		sum, err := item.Append(item.BindValue(buf))
		if err != nil {
			return sum, err
		}
		f.principal().AppendBit(handle != 0)
		return sum + 1, nil
	}
	if handle != 0 {
		sum, err := item.Append(item.BindValue(f.heap.get(handle)))
		if err != nil {
			return sum, err
		}
		f.written++
		written = sum
	}
	f.principal().AppendIndex(f.written)
	return written + f.principal().Kind().PackedSize(), nil
}

func (f *nullableField) readImpl(globalIndex uint64, v *Value) error {
	if f.dense() {
		set, err := f.principal().ReadBit(globalIndex)
		if err != nil {
			return err
		}
		if !set {
			f.setNull(v)
			return nil
		}
		ci, err := f.principal().ClusterIndexOf(globalIndex)
		if err != nil {
			return err
		}
		return f.readItem(v, ci)
	}
	start, n, err := f.principal().GetCollectionInfo(globalIndex)
	if err != nil {
		return err
	}
	if n == 0 {
		f.setNull(v)
		return nil
	}
	return f.readItem(v, start)
}

func (f *nullableField) readInClusterImpl(ci column.ClusterIndex, v *Value) error {
	global, err := f.principal().GlobalOf(ci)
	if err != nil {
		return err
	}
	return f.readImpl(global, v)
}

func (f *nullableField) setNull(v *Value) {
	if handle := getHandle(v.buf); handle != 0 {
		item := f.item()
		if item.Traits()&TraitTriviallyDestructible == 0 {
			item.destruct(f.heap.get(handle))
		}
		f.heap.free(handle)
		putHandle(v.buf, 0)
	}
}

func (f *nullableField) readItem(v *Value, ci column.ClusterIndex) error {
	item := f.item()
	handle := getHandle(v.buf)
	if handle == 0 {
		var block []byte
		handle, block = f.heap.alloc(item.Size())
		item.construct(block)
		putHandle(v.buf, handle)
	}
	return item.ReadInCluster(ci, item.BindValue(f.heap.get(handle)))
}

func (f *nullableField) construct(buf []byte) {
	putHandle(buf, 0)
}

func (f *nullableField) destruct(buf []byte) {
	f.setNull(&Value{field: f.self, buf: buf})
}

func (f *nullableField) commitClusterImpl() {
	f.written = 0
}

func (f *nullableField) cloneImpl(name string) Field {
	return newNullableField(name, f.typeName, f.item().Clone("_0"))
}

// IsNull reports whether a value of this field holds no item.
func (f *nullableField) IsNull(v *Value) bool {
	return getHandle(v.buf) == 0
}

// SetItem materializes the item of a value of this field and returns a
// value bound to it.
func (f *nullableField) SetItem(v *Value) *Value {
	item := f.item()
	handle := getHandle(v.buf)
	if handle == 0 {
		var block []byte
		handle, block = f.heap.alloc(item.Size())
		item.construct(block)
		putHandle(v.buf, handle)
	}
	return item.BindValue(f.heap.get(handle))
}

// Reset makes a value of this field null, destroying any held item.
func (f *nullableField) Reset(v *Value) {
	f.setNull(v)
}

// NullableIsNull reports whether a value bound to a nullable or pointer
// field holds no item.
func NullableIsNull(v *Value) bool {
	return v.field.(*nullableField).IsNull(v)
}

// NullableSet materializes the item of a value bound to a nullable or
// pointer field.
func NullableSet(v *Value) *Value {
	return v.field.(*nullableField).SetItem(v)
}

// NullableReset makes a value bound to a nullable or pointer field null.
func NullableReset(v *Value) {
	v.field.(*nullableField).Reset(v)
}
