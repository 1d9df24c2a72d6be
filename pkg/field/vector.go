package field

import (
	"encoding/binary"

	"github.com/ajitpratap0/strata/pkg/column"
)

// Vector header layout: 8-byte payload handle, 8-byte length in items,
// 8-byte signed capacity in items. The payload block holds the items back
// to back.
const (
	vecHandleOff = 0
	vecLenOff    = 8
	vecCapOff    = 16
	vecHeaderLen = 24
)

func vecLen(buf []byte) uint64 {
	return binary.LittleEndian.Uint64(buf[vecLenOff:])
}

func setVecLen(buf []byte, n uint64) {
	binary.LittleEndian.PutUint64(buf[vecLenOff:], n)
}

func vecCap(buf []byte) int64 {
	return int64(binary.LittleEndian.Uint64(buf[vecCapOff:]))
}

func setVecCap(buf []byte, c int64) {
	binary.LittleEndian.PutUint64(buf[vecCapOff:], uint64(c))
}

// vectorField maps a variable-length sequence of items to an offset column;
// the single item sub-field owns the item columns.
type vectorField struct {
	fieldBase
	// written is the cumulative item count within the current cluster.
	written uint64
}

func newVectorField(name string, item Field) *vectorField {
	f := &vectorField{}
	f.init(f, name, "vector<"+item.TypeName()+">")
	f.size = vecHeaderLen
	f.alignment = 8
	f.traits = TraitTriviallyConstructible
	f.structure = StructCollection
	f.attach(item)
	return f
}

func (f *vectorField) representations() column.Representations { return collectionReps }

func (f *vectorField) makeColumns(rep column.Representation) []*column.Column {
	return columnsFor(rep, column.MemIndex)
}

func (f *vectorField) item() Field { return f.children[0] }

func (f *vectorField) appendImpl(v *Value) (int, error) {
	n := vecLen(v.buf)
	written := 0
	if n > 0 {
		item := f.item()
		block := f.heap.get(getHandle(v.buf[vecHandleOff:]))
		sum, err := item.AppendV(block[:int(n)*item.Size()], int(n))
		if err != nil {
			return sum, err
		}
		written = sum
	}
	f.written += n
	f.columns[0].AppendIndex(f.written)
	return written + f.columns[0].Kind().PackedSize(), nil
}

func (f *vectorField) readImpl(globalIndex uint64, v *Value) error {
	start, n, err := f.columns[0].GetCollectionInfo(globalIndex)
	if err != nil {
		return err
	}
	return f.readItems(v, start, n)
}

func (f *vectorField) readInClusterImpl(ci column.ClusterIndex, v *Value) error {
	global, err := f.columns[0].GlobalOf(ci)
	if err != nil {
		return err
	}
	return f.readImpl(global, v)
}

// readItems resizes the payload to n items and fills them from the item
// columns. Excess trailing items are destroyed before any reallocation;
// newly needed items are constructed before reading into them.
func (f *vectorField) readItems(v *Value, start column.ClusterIndex, n uint64) error {
	item := f.item()
	block := f.resizePayload(v, n)
	if n == 0 {
		return nil
	}
	if item.Traits()&TraitMappable != 0 {
		return item.base().principal().ReadClusterV(start, int(n), block)
	}
	isz := item.Size()
	for i := uint64(0); i < n; i++ {
		iv := item.BindValue(block[int(i)*isz : int(i+1)*isz])
		if err := item.ReadInCluster(start.Plus(i), iv); err != nil {
			return err
		}
	}
	return nil
}

// resizePayload adjusts the payload block to hold exactly n items and
// returns it.
func (f *vectorField) resizePayload(v *Value, n uint64) []byte {
	item := f.item()
	isz := item.Size()
	oldLen := vecLen(v.buf)
	handle := getHandle(v.buf[vecHandleOff:])
	block := f.heap.get(handle)
	trivialDtor := item.Traits()&TraitTriviallyDestructible != 0

	if !trivialDtor {
		for i := n; i < oldLen; i++ {
			item.destruct(block[int(i)*isz : int(i+1)*isz])
		}
	}

	capItems := uint64(0)
	if isz > 0 {
		capItems = uint64(cap(block) / isz)
	}
	switch {
	case n == 0:
		block = block[:0]
	case capItems < n:
		if !trivialDtor {
			live := oldLen
			if n < live {
				live = n
			}
			for i := uint64(0); i < live; i++ {
				item.destruct(block[int(i)*isz : int(i+1)*isz])
			}
		}
		block = make([]byte, int(n)*isz)
		if item.Traits()&TraitTriviallyConstructible == 0 {
			for i := uint64(0); i < n; i++ {
				item.construct(block[int(i)*isz : int(i+1)*isz])
			}
		}
		setVecCap(v.buf, int64(n))
	default:
		block = block[:int(n)*isz]
		if item.Traits()&TraitTriviallyConstructible == 0 {
			for i := oldLen; i < n; i++ {
				item.construct(block[int(i)*isz : int(i+1)*isz])
			}
		}
	}

	if handle == 0 {
		handle, _ = f.heap.alloc(0)
		putHandle(v.buf[vecHandleOff:], handle)
	}
	f.heap.set(handle, block)
	setVecLen(v.buf, n)
	return block
}

func (f *vectorField) destruct(buf []byte) {
	item := f.item()
	handle := getHandle(buf[vecHandleOff:])
	if handle == 0 {
		return
	}
	if item.Traits()&TraitTriviallyDestructible == 0 {
		block := f.heap.get(handle)
		isz := item.Size()
		for i := uint64(0); i < vecLen(buf); i++ {
			item.destruct(block[int(i)*isz : int(i+1)*isz])
		}
	}
	f.heap.free(handle)
	putHandle(buf[vecHandleOff:], 0)
	setVecLen(buf, 0)
	setVecCap(buf, 0)
}

func (f *vectorField) commitClusterImpl() {
	f.written = 0
}

func (f *vectorField) cloneImpl(name string) Field {
	return newVectorField(name, f.item().Clone("_0"))
}

// Resize sets the item count of a vector value, constructing or destroying
// items as needed.
func (f *vectorField) Resize(v *Value, n int) {
	f.resizePayload(v, uint64(n))
}

// Len returns the item count of a vector value.
func (f *vectorField) Len(v *Value) int {
	return int(vecLen(v.buf))
}

// ItemValue returns a value bound to the i-th item.
func (f *vectorField) ItemValue(v *Value, i int) *Value {
	item := f.item()
	block := f.heap.get(getHandle(v.buf[vecHandleOff:]))
	return item.BindValue(block[i*item.Size() : (i+1)*item.Size()])
}

// collectionValue is implemented by the variable-length collection fields
// that expose item-level access to their values.
type collectionValue interface {
	Resize(v *Value, n int)
	Len(v *Value) int
	ItemValue(v *Value, i int) *Value
}

// CollectionResize sets the item count of a value bound to a collection
// field.
func CollectionResize(v *Value, n int) {
	v.field.(collectionValue).Resize(v, n)
}

// CollectionLen returns the item count of a value bound to a collection
// field.
func CollectionLen(v *Value) int {
	return v.field.(collectionValue).Len(v)
}

// CollectionItem returns a value bound to the i-th item of a collection
// value.
func CollectionItem(v *Value, i int) *Value {
	return v.field.(collectionValue).ItemValue(v, i)
}
