package field

import (
	"strings"

	"github.com/ajitpratap0/strata/pkg/column"
	serrors "github.com/ajitpratap0/strata/pkg/errors"
)

// variantField stores one of several alternative sub-fields per entry. The
// value buffer holds the active alternative at offset zero and a one-byte
// tag behind the item area; tag zero means no alternative is set. A switch
// column records, per entry, the active tag and the entry's index within
// that alternative's columns.
type variantField struct {
	fieldBase
	maxItemSize int
	tagOffset   int
	// written counts appended entries per alternative within the current
	// cluster.
	written []uint64
}

// maxVariantAlternatives is bounded by the one-byte in-memory tag, with
// zero reserved for the empty state.
const maxVariantAlternatives = 255

func newVariantField(name string, alternatives []Field) (*variantField, error) {
	if len(alternatives) == 0 {
		return nil, serrors.New(serrors.ErrorTypeSchema,
			"variant needs at least one alternative")
	}
	if len(alternatives) > maxVariantAlternatives {
		return nil, serrors.Newf(serrors.ErrorTypeSchema,
			"variant supports at most %d alternatives, got %d",
			maxVariantAlternatives, len(alternatives))
	}
	maxItemSize, maxAlign := 1, 1
	names := make([]string, len(alternatives))
	for i, alt := range alternatives {
		if alt.Size() > maxItemSize {
			maxItemSize = alt.Size()
		}
		if alt.Alignment() > maxAlign {
			maxAlign = alt.Alignment()
		}
		names[i] = alt.TypeName()
	}
	f := &variantField{
		maxItemSize: maxItemSize,
		written:     make([]uint64, len(alternatives)),
	}
	f.init(f, name, "variant<"+strings.Join(names, ",")+">")
	f.tagOffset = maxItemSize
	if maxAlign > f.tagOffset {
		f.tagOffset = maxAlign
	}
	f.size = maxItemSize + maxAlign
	f.alignment = maxAlign
	f.structure = StructVariant
	f.traits = TraitTriviallyDestructible
	for _, alt := range alternatives {
		f.traits &= alt.Traits()
		f.attach(alt)
	}
	f.traits &^= TraitMappable | TraitTriviallyConstructible
	return f, nil
}

var variantReps = column.NewRepresentations(reps(
	column.Representation{column.KindSwitch}))

func (f *variantField) representations() column.Representations { return variantReps }

func (f *variantField) makeColumns(rep column.Representation) []*column.Column {
	return columnsFor(rep, column.MemSwitch)
}

func (f *variantField) tag(buf []byte) uint32 {
	return uint32(buf[f.tagOffset])
}

func (f *variantField) setTag(buf []byte, tag uint32) {
	buf[f.tagOffset] = byte(tag)
}

func (f *variantField) altBuf(buf []byte, tag uint32) []byte {
	alt := f.children[tag-1]
	return buf[:alt.Size()]
}

func (f *variantField) appendImpl(v *Value) (int, error) {
	tag := f.tag(v.buf)
	var index uint64
	written := 0
	if tag > 0 {
		alt := f.children[tag-1]
		index = f.written[tag-1]
		sum, err := alt.Append(alt.BindValue(f.altBuf(v.buf, tag)))
		if err != nil {
			return sum, err
		}
		f.written[tag-1]++
		written = sum
	}
	f.principal().AppendSwitch(column.Switch{Index: index, Tag: tag})
	return written + f.principal().Kind().PackedSize(), nil
}

func (f *variantField) readImpl(globalIndex uint64, v *Value) error {
	ci, tag, err := f.principal().GetSwitchInfo(globalIndex)
	if err != nil {
		return err
	}
	return f.readAlternative(v, ci, tag)
}

func (f *variantField) readInClusterImpl(ci column.ClusterIndex, v *Value) error {
	global, err := f.principal().GlobalOf(ci)
	if err != nil {
		return err
	}
	return f.readImpl(global, v)
}

func (f *variantField) readAlternative(v *Value, ci column.ClusterIndex, tag uint32) error {
	if tag > uint32(len(f.children)) {
		return serrors.Newf(serrors.ErrorTypeData,
			"variant %s read tag %d beyond its %d alternatives",
			f.QualifiedName(), tag, len(f.children))
	}
	oldTag := f.tag(v.buf)
	if oldTag != tag {
		if oldTag > 0 {
			f.children[oldTag-1].destruct(f.altBuf(v.buf, oldTag))
		}
		for i := 0; i < f.tagOffset; i++ {
			v.buf[i] = 0
		}
		if tag > 0 {
			f.children[tag-1].construct(f.altBuf(v.buf, tag))
		}
		f.setTag(v.buf, tag)
	}
	if tag == 0 {
		return nil
	}
	alt := f.children[tag-1]
	return alt.ReadInCluster(ci, alt.BindValue(f.altBuf(v.buf, tag)))
}

// construct selects the first alternative, like a default-constructed
// variant.
func (f *variantField) construct(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	f.children[0].construct(f.altBuf(buf, 1))
	f.setTag(buf, 1)
}

func (f *variantField) destruct(buf []byte) {
	if tag := f.tag(buf); tag > 0 {
		f.children[tag-1].destruct(f.altBuf(buf, tag))
		f.setTag(buf, 0)
	}
}

func (f *variantField) commitClusterImpl() {
	for i := range f.written {
		f.written[i] = 0
	}
}

func (f *variantField) cloneImpl(name string) Field {
	alts := make([]Field, len(f.children))
	for i, alt := range f.children {
		alts[i] = alt.Clone(alt.Name())
	}
	clone, _ := newVariantField(name, alts)
	return clone
}

// Tag returns the active alternative of a variant value, 1-based, or zero
// when empty.
func (f *variantField) Tag(v *Value) uint32 { return f.tag(v.buf) }

// SetAlternative switches a variant value to the given 1-based alternative
// and returns a value bound to it.
func (f *variantField) SetAlternative(v *Value, tag uint32) (*Value, error) {
	if tag == 0 || tag > uint32(len(f.children)) {
		return nil, serrors.Newf(serrors.ErrorTypeValidation,
			"variant %s has no alternative %d", f.QualifiedName(), tag)
	}
	oldTag := f.tag(v.buf)
	if oldTag != tag {
		if oldTag > 0 {
			f.children[oldTag-1].destruct(f.altBuf(v.buf, oldTag))
		}
		for i := 0; i < f.tagOffset; i++ {
			v.buf[i] = 0
		}
		f.children[tag-1].construct(f.altBuf(v.buf, tag))
		f.setTag(v.buf, tag)
	}
	alt := f.children[tag-1]
	return alt.BindValue(f.altBuf(v.buf, tag)), nil
}

// VariantTag returns the active alternative of a value bound to a variant
// field.
func VariantTag(v *Value) uint32 {
	return v.field.(*variantField).Tag(v)
}

// VariantSet switches a value bound to a variant field to the given
// alternative.
func VariantSet(v *Value, tag uint32) (*Value, error) {
	return v.field.(*variantField).SetAlternative(v, tag)
}
