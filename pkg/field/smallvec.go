package field

import (
	"github.com/ajitpratap0/strata/pkg/column"
)

// smallvecField is a variable-length collection with a small-buffer
// optimization: short sequences live inline in the value buffer after the
// vector header, longer ones spill to a heap block. A capacity of -1 in the
// header marks inline storage.
type smallvecField struct {
	fieldBase
	inlineN int
	written uint64
}

// inlineItemCount sizes the inline buffer so short values stay within a
// cache line, with a floor of 8 items, unless items are so large that even
// 8 of them would be excessive.
func inlineItemCount(itemSize int) int {
	if itemSize*8 > 1024 {
		return 0
	}
	perCacheLine := (64 - vecHeaderLen + 8) / itemSize
	if perCacheLine >= 8 {
		return perCacheLine
	}
	return 8
}

func newSmallvecField(name string, item Field) *smallvecField {
	f := &smallvecField{inlineN: inlineItemCount(item.Size())}
	f.init(f, name, "smallvec<"+item.TypeName()+">")
	f.size = vecHeaderLen + f.inlineN*item.Size()
	f.alignment = 8
	if item.Alignment() > f.alignment {
		f.alignment = item.Alignment()
	}
	f.structure = StructCollection
	if f.inlineN == 0 {
		f.traits = TraitTriviallyConstructible
	}
	f.attach(item)
	return f
}

func (f *smallvecField) representations() column.Representations { return collectionReps }

func (f *smallvecField) makeColumns(rep column.Representation) []*column.Column {
	return columnsFor(rep, column.MemIndex)
}

func (f *smallvecField) item() Field { return f.children[0] }

func (f *smallvecField) inline(buf []byte) bool {
	return vecCap(buf) < 0
}

func (f *smallvecField) payload(buf []byte) []byte {
	isz := f.item().Size()
	if f.inline(buf) {
		return buf[vecHeaderLen : vecHeaderLen+int(vecLen(buf))*isz]
	}
	return f.heap.get(getHandle(buf[vecHandleOff:]))
}

func (f *smallvecField) construct(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	if f.inlineN > 0 {
		setVecCap(buf, -1)
	}
}

func (f *smallvecField) destruct(buf []byte) {
	item := f.item()
	if item.Traits()&TraitTriviallyDestructible == 0 {
		block := f.payload(buf)
		isz := item.Size()
		for i := uint64(0); i < vecLen(buf); i++ {
			item.destruct(block[int(i)*isz : int(i+1)*isz])
		}
	}
	if !f.inline(buf) {
		f.heap.free(getHandle(buf[vecHandleOff:]))
	}
	f.construct(buf)
}

func (f *smallvecField) appendImpl(v *Value) (int, error) {
	n := vecLen(v.buf)
	written := 0
	if n > 0 {
		item := f.item()
		block := f.payload(v.buf)
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

func (f *smallvecField) readImpl(globalIndex uint64, v *Value) error {
	start, n, err := f.columns[0].GetCollectionInfo(globalIndex)
	if err != nil {
		return err
	}
	block := f.resizePayload(v, n)
	if n == 0 {
		return nil
	}
	item := f.item()
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

func (f *smallvecField) readInClusterImpl(ci column.ClusterIndex, v *Value) error {
	global, err := f.columns[0].GlobalOf(ci)
	if err != nil {
		return err
	}
	return f.readImpl(global, v)
}

// resizePayload adjusts the value to hold n items, moving between inline
// and heap storage as needed, and returns the item block.
func (f *smallvecField) resizePayload(v *Value, n uint64) []byte {
	item := f.item()
	isz := item.Size()
	oldLen := vecLen(v.buf)
	trivialDtor := item.Traits()&TraitTriviallyDestructible != 0
	trivialCtor := item.Traits()&TraitTriviallyConstructible != 0

	block := f.payload(v.buf)
	if !trivialDtor {
		full := block[:cap(block)]
		if f.inline(v.buf) {
			full = v.buf[vecHeaderLen : vecHeaderLen+int(oldLen)*isz]
		}
		for i := n; i < oldLen; i++ {
			item.destruct(full[int(i)*isz : int(i+1)*isz])
		}
	}

	if f.inline(v.buf) {
		if n <= uint64(f.inlineN) {
			inlineBuf := v.buf[vecHeaderLen : vecHeaderLen+int(n)*isz]
			if !trivialCtor {
				for i := oldLen; i < n; i++ {
					item.construct(inlineBuf[int(i)*isz : int(i+1)*isz])
				}
			}
			setVecLen(v.buf, n)
			return inlineBuf
		}
		// Spill to the heap; item bytes move ownership with the copy.
		handle, spill := f.heap.alloc(int(n) * isz)
		copy(spill, v.buf[vecHeaderLen:vecHeaderLen+int(oldLen)*isz])
		putHandle(v.buf[vecHandleOff:], handle)
		setVecCap(v.buf, int64(n))
		setVecLen(v.buf, n)
		if !trivialCtor {
			for i := oldLen; i < n; i++ {
				item.construct(spill[int(i)*isz : int(i+1)*isz])
			}
		}
		return spill
	}

	handle := getHandle(v.buf[vecHandleOff:])
	capItems := uint64(0)
	if isz > 0 {
		capItems = uint64(cap(block) / isz)
	}
	switch {
	case capItems < n:
		grown := make([]byte, int(n)*isz)
		copy(grown, block)
		if !trivialCtor {
			for i := oldLen; i < n; i++ {
				item.construct(grown[int(i)*isz : int(i+1)*isz])
			}
		}
		block = grown
		setVecCap(v.buf, int64(n))
	default:
		block = block[:int(n)*isz]
		if !trivialCtor {
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

func (f *smallvecField) commitClusterImpl() {
	f.written = 0
}

func (f *smallvecField) cloneImpl(name string) Field {
	return newSmallvecField(name, f.item().Clone("_0"))
}

// Resize sets the item count of a value of this field.
func (f *smallvecField) Resize(v *Value, n int) {
	f.resizePayload(v, uint64(n))
}

// Len returns the item count of a value of this field.
func (f *smallvecField) Len(v *Value) int {
	return int(vecLen(v.buf))
}

// ItemValue returns a value bound to the i-th item.
func (f *smallvecField) ItemValue(v *Value, i int) *Value {
	item := f.item()
	block := f.payload(v.buf)
	return item.BindValue(block[i*item.Size() : (i+1)*item.Size()])
}
