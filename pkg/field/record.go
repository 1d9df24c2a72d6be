package field

import (
	"github.com/ajitpratap0/strata/pkg/column"
	serrors "github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/typeinfo"
)

// recordField lays its member sub-fields out at fixed offsets inside one
// value buffer. Pair and tuple fields are records whose offsets may be
// pinned externally through the typeinfo registry.
type recordField struct {
	fieldBase
	offsets []int
}

func newRecordField(name, typeName string, members []Field, offsets []int, size, align int) *recordField {
	f := &recordField{offsets: offsets}
	f.init(f, name, typeName)
	f.size = size
	f.alignment = align
	f.structure = StructRecord
	f.traits = TraitTriviallyConstructible | TraitTriviallyDestructible
	for _, m := range members {
		f.traits &= m.Traits()
		f.attach(m)
	}
	f.traits &^= TraitMappable
	return f
}

// naturalRecord packs the members in declaration order with standard
// padding.
func naturalRecord(name, typeName string, members []Field) *recordField {
	sizes := make([]int, len(members))
	aligns := make([]int, len(members))
	for i, m := range members {
		sizes[i] = m.Size()
		aligns[i] = m.Alignment()
	}
	offsets, size, align := typeinfo.NaturalLayout(sizes, aligns)
	return newRecordField(name, typeName, members, offsets, size, align)
}

// pinnedRecord uses an externally dictated layout, validating that every
// member fits.
func pinnedRecord(name, typeName string, members []Field, layout *typeinfo.TupleLayout) (*recordField, error) {
	if len(layout.Offsets) != len(members) {
		return nil, serrors.Newf(serrors.ErrorTypeSchema,
			"layout for %s pins %d offsets for %d members",
			typeName, len(layout.Offsets), len(members))
	}
	for i, m := range members {
		if layout.Offsets[i]+m.Size() > layout.Size {
			return nil, serrors.Newf(serrors.ErrorTypeSchema,
				"member %d of %s does not fit the pinned layout", i, typeName)
		}
	}
	return newRecordField(name, typeName, members, layout.Offsets, layout.Size, layout.Alignment), nil
}

func (f *recordField) representations() column.Representations {
	return column.EmptyRepresentations()
}

func (f *recordField) makeColumns(column.Representation) []*column.Column { return nil }

func (f *recordField) memberBuf(buf []byte, i int) []byte {
	m := f.children[i]
	return buf[f.offsets[i] : f.offsets[i]+m.Size()]
}

func (f *recordField) appendImpl(v *Value) (int, error) {
	total := 0
	for i, m := range f.children {
		written, err := m.Append(m.BindValue(f.memberBuf(v.buf, i)))
		if err != nil {
			return total, err
		}
		total += written
	}
	return total, nil
}

func (f *recordField) readImpl(globalIndex uint64, v *Value) error {
	for i, m := range f.children {
		if err := m.Read(globalIndex, m.BindValue(f.memberBuf(v.buf, i))); err != nil {
			return err
		}
	}
	return nil
}

func (f *recordField) readInClusterImpl(ci column.ClusterIndex, v *Value) error {
	for i, m := range f.children {
		if err := m.ReadInCluster(ci, m.BindValue(f.memberBuf(v.buf, i))); err != nil {
			return err
		}
	}
	return nil
}

func (f *recordField) construct(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	if f.traits&TraitTriviallyConstructible != 0 {
		return
	}
	for i, m := range f.children {
		m.construct(f.memberBuf(buf, i))
	}
}

func (f *recordField) destruct(buf []byte) {
	if f.traits&TraitTriviallyDestructible != 0 {
		return
	}
	for i, m := range f.children {
		m.destruct(f.memberBuf(buf, i))
	}
}

// SplitValue returns one value per member, bound into the record buffer.
func (f *recordField) SplitValue(v *Value) []*Value {
	out := make([]*Value, len(f.children))
	for i, m := range f.children {
		out[i] = m.BindValue(f.memberBuf(v.buf, i))
	}
	return out
}

func (f *recordField) cloneImpl(name string) Field {
	members := make([]Field, len(f.children))
	for i, m := range f.children {
		members[i] = m.Clone(m.Name())
	}
	offsets := append([]int(nil), f.offsets...)
	return newRecordField(name, f.typeName, members, offsets, f.size, f.alignment)
}

// MemberValue returns a value bound to the named member of a record value.
func (f *recordField) MemberValue(v *Value, name string) (*Value, error) {
	for i, m := range f.children {
		if m.Name() == name {
			return m.BindValue(f.memberBuf(v.buf, i)), nil
		}
	}
	return nil, serrors.Newf(serrors.ErrorTypeValidation,
		"record %s has no member %q", f.QualifiedName(), name)
}

// RecordMember returns a value bound to the named member of a value bound
// to a record field.
func RecordMember(v *Value, name string) (*Value, error) {
	return v.field.(*recordField).MemberValue(v, name)
}
