package field

import (
	"github.com/ajitpratap0/strata/pkg/column"
	serrors "github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/logger"
	"github.com/ajitpratap0/strata/pkg/typeinfo"
	"go.uber.org/zap"
)

// classField maps a registered class type: bases and persistent members
// become sub-fields at the offsets the registration dictates, transient
// members are constructed but never serialized, and read rules targeting
// transient members run as read callbacks.
type classField struct {
	fieldBase
	info    *typeinfo.Class
	offsets []int
}

func newClassField(name string, info *typeinfo.Class, registry *typeinfo.Registry) (*classField, error) {
	f := &classField{info: info}
	f.init(f, name, info.TypeName)
	f.typeVersion = info.Version
	f.size = info.Size
	f.alignment = info.Alignment
	f.structure = StructRecord
	f.traits = TraitTriviallyConstructible | TraitTriviallyDestructible

	for _, base := range info.Bases {
		baseInfo, ok := registry.Class(base.TypeName)
		if !ok {
			return nil, serrors.Newf(serrors.ErrorTypeSchema,
				"base type %s of class %s is not registered", base.TypeName, info.TypeName)
		}
		sub, err := newClassField(":"+base.TypeName, baseInfo, registry)
		if err != nil {
			return nil, err
		}
		f.addSub(sub, base.Offset)
	}
	for _, member := range info.Members {
		if member.Transient {
			continue
		}
		sub, err := createWithRegistry(member.Name, member.TypeName, registry)
		if err != nil {
			return nil, serrors.Wrapf(err, serrors.ErrorTypeSchema,
				"member %s of class %s", member.Name, info.TypeName)
		}
		f.addSub(sub, member.Offset)
	}
	f.traits &^= TraitMappable

	f.registerReadRules()
	return f, nil
}

func (f *classField) addSub(sub Field, offset int) {
	f.traits &= sub.Traits()
	f.offsets = append(f.offsets, offset)
	f.attach(sub)
}

// registerReadRules turns rules targeting transient members into read
// callbacks. Rules targeting persistent members would fight the columns
// they were read from, so they are skipped with a warning.
func (f *classField) registerReadRules() {
	for _, rule := range f.info.ReadRules {
		if !f.isTransient(rule.Target) {
			logger.Warn("skipping read rule for non-transient member",
				zap.String("type", f.info.TypeName),
				zap.String("member", rule.Target))
			continue
		}
		fn := rule.Func
		f.AddReadCallback(func(v *Value) { fn(v.buf) })
	}
}

func (f *classField) isTransient(member string) bool {
	for _, m := range f.info.Members {
		if m.Name == member {
			return m.Transient
		}
	}
	return false
}

func (f *classField) representations() column.Representations {
	return column.EmptyRepresentations()
}

func (f *classField) makeColumns(column.Representation) []*column.Column { return nil }

// afterConnectSource rejects on-disk data written with a different type
// version.
func (f *classField) afterConnectSource(source column.Source) error {
	diskVersion, ok := source.TypeVersion(f.onDiskID)
	if !ok {
		return nil
	}
	if diskVersion != f.typeVersion {
		return serrors.Newf(serrors.ErrorTypeSchema,
			"class %s version %d does not match on-disk version %d",
			f.typeName, f.typeVersion, diskVersion)
	}
	return nil
}

func (f *classField) subBuf(buf []byte, i int) []byte {
	sub := f.children[i]
	return buf[f.offsets[i] : f.offsets[i]+sub.Size()]
}

func (f *classField) appendImpl(v *Value) (int, error) {
	total := 0
	for i, sub := range f.children {
		written, err := sub.Append(sub.BindValue(f.subBuf(v.buf, i)))
		if err != nil {
			return total, err
		}
		total += written
	}
	return total, nil
}

func (f *classField) readImpl(globalIndex uint64, v *Value) error {
	for i, sub := range f.children {
		if err := sub.Read(globalIndex, sub.BindValue(f.subBuf(v.buf, i))); err != nil {
			return err
		}
	}
	return nil
}

func (f *classField) readInClusterImpl(ci column.ClusterIndex, v *Value) error {
	for i, sub := range f.children {
		if err := sub.ReadInCluster(ci, sub.BindValue(f.subBuf(v.buf, i))); err != nil {
			return err
		}
	}
	return nil
}

func (f *classField) construct(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	if f.traits&TraitTriviallyConstructible != 0 {
		return
	}
	for i, sub := range f.children {
		sub.construct(f.subBuf(buf, i))
	}
}

func (f *classField) destruct(buf []byte) {
	if f.traits&TraitTriviallyDestructible != 0 {
		return
	}
	for i, sub := range f.children {
		sub.destruct(f.subBuf(buf, i))
	}
}

// SplitValue returns one value per base and persistent member.
func (f *classField) SplitValue(v *Value) []*Value {
	out := make([]*Value, len(f.children))
	for i, sub := range f.children {
		out[i] = sub.BindValue(f.subBuf(v.buf, i))
	}
	return out
}

func (f *classField) cloneImpl(name string) Field {
	clone := &classField{info: f.info}
	clone.init(clone, name, f.typeName)
	clone.typeVersion = f.typeVersion
	clone.size = f.size
	clone.alignment = f.alignment
	clone.structure = StructRecord
	clone.traits = f.traits
	for i, sub := range f.children {
		clone.offsets = append(clone.offsets, f.offsets[i])
		clone.attach(sub.Clone(sub.Name()))
	}
	clone.registerReadRules()
	return clone
}

// MemberValue returns a value bound to the named persistent member.
func (f *classField) MemberValue(v *Value, name string) (*Value, error) {
	for i, sub := range f.children {
		if sub.Name() == name {
			return sub.BindValue(f.subBuf(v.buf, i)), nil
		}
	}
	return nil, serrors.Newf(serrors.ErrorTypeValidation,
		"class %s has no persistent member %q", f.QualifiedName(), name)
}

// classCollectionField maps a registered collection type whose in-memory
// layout is driven entirely through its registered operations.
type classCollectionField struct {
	fieldBase
	ops     *typeinfo.Collection
	written uint64
}

func newClassCollectionField(name string, ops *typeinfo.Collection, item Field) *classCollectionField {
	f := &classCollectionField{ops: ops}
	f.init(f, name, ops.TypeName)
	f.size = ops.Size
	f.alignment = ops.Alignment
	f.structure = StructCollection
	f.traits = TraitTriviallyConstructible
	f.attach(item)
	return f
}

func (f *classCollectionField) representations() column.Representations {
	return collectionReps
}

func (f *classCollectionField) makeColumns(rep column.Representation) []*column.Column {
	return columnsFor(rep, column.MemIndex)
}

func (f *classCollectionField) item() Field { return f.children[0] }

func (f *classCollectionField) appendImpl(v *Value) (int, error) {
	item := f.item()
	n := f.ops.Count(v.buf)
	total := 0
	for i := 0; i < n; i++ {
		written, err := item.Append(item.BindValue(f.ops.At(v.buf, i)))
		if err != nil {
			return total, err
		}
		total += written
	}
	f.written += uint64(n)
	f.principal().AppendIndex(f.written)
	return total + f.principal().Kind().PackedSize(), nil
}

func (f *classCollectionField) readImpl(globalIndex uint64, v *Value) error {
	start, n, err := f.principal().GetCollectionInfo(globalIndex)
	if err != nil {
		return err
	}
	item := f.item()
	if item.Traits()&TraitTriviallyDestructible == 0 {
		for i := 0; i < f.ops.Count(v.buf); i++ {
			item.destruct(f.ops.At(v.buf, i))
		}
	}
	bufs := f.ops.Reset(v.buf, int(n), item.Size())
	for i := uint64(0); i < n; i++ {
		if item.Traits()&TraitTriviallyConstructible == 0 {
			item.construct(bufs[i])
		}
		if err := item.ReadInCluster(start.Plus(i), item.BindValue(bufs[i])); err != nil {
			return err
		}
	}
	return nil
}

func (f *classCollectionField) readInClusterImpl(ci column.ClusterIndex, v *Value) error {
	global, err := f.principal().GlobalOf(ci)
	if err != nil {
		return err
	}
	return f.readImpl(global, v)
}

func (f *classCollectionField) destruct(buf []byte) {
	item := f.item()
	if item.Traits()&TraitTriviallyDestructible == 0 {
		for i := 0; i < f.ops.Count(buf); i++ {
			item.destruct(f.ops.At(buf, i))
		}
	}
	f.ops.Reset(buf, 0, item.Size())
}

func (f *classCollectionField) commitClusterImpl() {
	f.written = 0
}

func (f *classCollectionField) cloneImpl(name string) Field {
	return newClassCollectionField(name, f.ops, f.item().Clone("_0"))
}
