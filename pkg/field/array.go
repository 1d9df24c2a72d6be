package field

import (
	"fmt"

	"github.com/ajitpratap0/strata/pkg/column"
)

// arrayField maps a fixed-length sequence of items. It owns no columns of
// its own: the item sub-field's column holds entry*length+i for element i,
// so no offset column is needed.
type arrayField struct {
	fieldBase
	length uint64
}

func newArrayField(name string, item Field, length uint64) *arrayField {
	f := &arrayField{length: length}
	f.init(f, name, fmt.Sprintf("array<%s,%d>", item.TypeName(), length))
	f.size = item.Size() * int(length)
	f.alignment = item.Alignment()
	f.traits = item.Traits() &^ TraitMappable
	f.structure = StructLeaf
	f.repetitions = length
	f.attach(item)
	return f
}

func (f *arrayField) representations() column.Representations {
	return column.EmptyRepresentations()
}

func (f *arrayField) makeColumns(column.Representation) []*column.Column { return nil }

func (f *arrayField) item() Field { return f.children[0] }

func (f *arrayField) appendImpl(v *Value) (int, error) {
	return f.item().AppendV(v.buf, int(f.length))
}

func (f *arrayField) readImpl(globalIndex uint64, v *Value) error {
	item := f.item()
	isz := item.Size()
	first := globalIndex * f.length
	for i := uint64(0); i < f.length; i++ {
		iv := item.BindValue(v.buf[int(i)*isz : int(i+1)*isz])
		if err := item.Read(first+i, iv); err != nil {
			return err
		}
	}
	return nil
}

func (f *arrayField) readInClusterImpl(ci column.ClusterIndex, v *Value) error {
	item := f.item()
	isz := item.Size()
	first := column.ClusterIndex{Cluster: ci.Cluster, Index: ci.Index * f.length}
	for i := uint64(0); i < f.length; i++ {
		iv := item.BindValue(v.buf[int(i)*isz : int(i+1)*isz])
		if err := item.ReadInCluster(first.Plus(i), iv); err != nil {
			return err
		}
	}
	return nil
}

func (f *arrayField) construct(buf []byte) {
	item := f.item()
	if item.Traits()&TraitTriviallyConstructible != 0 {
		for i := range buf {
			buf[i] = 0
		}
		return
	}
	isz := item.Size()
	for i := uint64(0); i < f.length; i++ {
		item.construct(buf[int(i)*isz : int(i+1)*isz])
	}
}

func (f *arrayField) destruct(buf []byte) {
	item := f.item()
	if item.Traits()&TraitTriviallyDestructible != 0 {
		return
	}
	isz := item.Size()
	for i := uint64(0); i < f.length; i++ {
		item.destruct(buf[int(i)*isz : int(i+1)*isz])
	}
}

// SplitValue returns one value per array slot.
func (f *arrayField) SplitValue(v *Value) []*Value {
	item := f.item()
	isz := item.Size()
	out := make([]*Value, f.length)
	for i := range out {
		out[i] = item.BindValue(v.buf[i*isz : (i+1)*isz])
	}
	return out
}

func (f *arrayField) cloneImpl(name string) Field {
	return newArrayField(name, f.item().Clone("_0"), f.length)
}
