package field

import (
	"github.com/ajitpratap0/strata/pkg/column"
)

// stringField stores variable-length byte strings in an offset column plus
// a payload byte column. The in-memory value is an 8-byte heap handle; the
// handle's block holds the string bytes.
type stringField struct {
	fieldBase
	// index is the cumulative payload length within the current cluster.
	index uint64
}

var stringReps = column.NewRepresentations(reps(
	column.Representation{column.KindSplitIndex64, column.KindChar},
	column.Representation{column.KindIndex64, column.KindChar},
	column.Representation{column.KindSplitIndex32, column.KindChar},
	column.Representation{column.KindIndex32, column.KindChar}))

func newStringField(name string) *stringField {
	f := &stringField{}
	f.init(f, name, "string")
	f.size = 8
	f.alignment = 8
	f.traits = TraitTriviallyConstructible
	f.structure = StructLeaf
	return f
}

func (f *stringField) representations() column.Representations { return stringReps }

func (f *stringField) makeColumns(rep column.Representation) []*column.Column {
	return columnsFor(rep, column.MemIndex, column.MemUInt8)
}

func (f *stringField) appendImpl(v *Value) (int, error) {
	bytes := f.heap.get(getHandle(v.buf))
	if len(bytes) > 0 {
		f.columns[1].AppendV(bytes, len(bytes))
	}
	f.index += uint64(len(bytes))
	f.columns[0].AppendIndex(f.index)
	return len(bytes) + f.columns[0].Kind().PackedSize(), nil
}

func (f *stringField) readImpl(globalIndex uint64, v *Value) error {
	start, n, err := f.columns[0].GetCollectionInfo(globalIndex)
	if err != nil {
		return err
	}
	return f.readPayload(v, start, n)
}

func (f *stringField) readInClusterImpl(ci column.ClusterIndex, v *Value) error {
	global, err := f.columns[0].GlobalOf(ci)
	if err != nil {
		return err
	}
	return f.readImpl(global, v)
}

func (f *stringField) readPayload(v *Value, start column.ClusterIndex, n uint64) error {
	handle := getHandle(v.buf)
	block := f.heap.get(handle)
	switch {
	case n == 0:
		if handle != 0 {
			f.heap.set(handle, block[:0])
		}
		return nil
	case handle == 0:
		handle, block = f.heap.alloc(int(n))
		putHandle(v.buf, handle)
	case uint64(cap(block)) < n:
		block = make([]byte, n)
		f.heap.set(handle, block)
	default:
		block = block[:n]
		f.heap.set(handle, block)
	}
	return f.columns[1].ReadClusterV(start, int(n), block)
}

func (f *stringField) construct(buf []byte) {
	putHandle(buf, 0)
}

func (f *stringField) destruct(buf []byte) {
	if handle := getHandle(buf); handle != 0 {
		f.heap.free(handle)
		putHandle(buf, 0)
	}
}

func (f *stringField) commitClusterImpl() {
	f.index = 0
}

func (f *stringField) cloneImpl(name string) Field {
	return newStringField(name)
}

// Set stores a string into a value of this field, reusing the existing
// payload block when it is large enough.
func (f *stringField) Set(v *Value, s string) {
	handle := getHandle(v.buf)
	if handle != 0 {
		if block := f.heap.get(handle); cap(block) >= len(s) {
			block = block[:len(s)]
			copy(block, s)
			f.heap.set(handle, block)
			return
		}
		f.heap.free(handle)
	}
	handle, block := f.heap.alloc(len(s))
	copy(block, s)
	putHandle(v.buf, handle)
}

// Get returns the string held by a value of this field.
func (f *stringField) Get(v *Value) string {
	return string(f.heap.get(getHandle(v.buf)))
}

// SetString stores s into a value bound to a string field.
func SetString(v *Value, s string) {
	v.field.(*stringField).Set(v, s)
}

// GetString returns the string held by a value bound to a string field.
func GetString(v *Value) string {
	return v.field.(*stringField).Get(v)
}
