package field

import (
	"github.com/ajitpratap0/strata/pkg/column"
	serrors "github.com/ajitpratap0/strata/pkg/errors"
)

func reps(write ...column.Representation) []column.Representation { return write }

var (
	boolReps = column.NewRepresentations(reps(
		column.Representation{column.KindBit}))

	charReps = column.NewRepresentations(reps(
		column.Representation{column.KindChar}))

	int8Reps = column.NewRepresentations(reps(
		column.Representation{column.KindInt8}),
		column.Representation{column.KindUInt8})

	uint8Reps = column.NewRepresentations(reps(
		column.Representation{column.KindUInt8}),
		column.Representation{column.KindInt8})

	int16Reps = column.NewRepresentations(reps(
		column.Representation{column.KindSplitInt16},
		column.Representation{column.KindInt16}),
		column.Representation{column.KindSplitUInt16},
		column.Representation{column.KindUInt16})

	uint16Reps = column.NewRepresentations(reps(
		column.Representation{column.KindSplitUInt16},
		column.Representation{column.KindUInt16}),
		column.Representation{column.KindSplitInt16},
		column.Representation{column.KindInt16})

	int32Reps = column.NewRepresentations(reps(
		column.Representation{column.KindSplitInt32},
		column.Representation{column.KindInt32}),
		column.Representation{column.KindSplitUInt32},
		column.Representation{column.KindUInt32})

	uint32Reps = column.NewRepresentations(reps(
		column.Representation{column.KindSplitUInt32},
		column.Representation{column.KindUInt32}),
		column.Representation{column.KindSplitInt32},
		column.Representation{column.KindInt32})

	int64Reps = column.NewRepresentations(reps(
		column.Representation{column.KindSplitInt64},
		column.Representation{column.KindInt64}),
		column.Representation{column.KindSplitUInt64},
		column.Representation{column.KindUInt64},
		column.Representation{column.KindInt32},
		column.Representation{column.KindSplitInt32},
		column.Representation{column.KindUInt32},
		column.Representation{column.KindSplitUInt32})

	uint64Reps = column.NewRepresentations(reps(
		column.Representation{column.KindSplitUInt64},
		column.Representation{column.KindUInt64}),
		column.Representation{column.KindSplitInt64},
		column.Representation{column.KindInt64},
		column.Representation{column.KindInt32},
		column.Representation{column.KindSplitInt32},
		column.Representation{column.KindUInt32},
		column.Representation{column.KindSplitUInt32})

	float32Reps = column.NewRepresentations(reps(
		column.Representation{column.KindSplitReal32},
		column.Representation{column.KindReal32}))

	float64Reps = column.NewRepresentations(reps(
		column.Representation{column.KindSplitReal64},
		column.Representation{column.KindReal64},
		column.Representation{column.KindSplitReal32},
		column.Representation{column.KindReal32}))

	// collectionReps serves every offset column: strings, vectors, and
	// collection proxies.
	collectionReps = column.NewRepresentations(reps(
		column.Representation{column.KindSplitIndex64},
		column.Representation{column.KindIndex64},
		column.Representation{column.KindSplitIndex32},
		column.Representation{column.KindIndex32}))

	// cardinalityReps has no write representations: cardinality fields
	// project an existing offset column and cannot be written.
	cardinalityReps = column.NewRepresentations(nil,
		column.Representation{column.KindSplitIndex64},
		column.Representation{column.KindIndex64},
		column.Representation{column.KindSplitIndex32},
		column.Representation{column.KindIndex32})
)

// primitiveField maps one fixed-size scalar to a single column.
type primitiveField struct {
	fieldBase
	mem  column.MemType
	reps column.Representations
}

func newPrimitiveField(name, typeName string, mem column.MemType, size int, r column.Representations) *primitiveField {
	f := &primitiveField{mem: mem, reps: r}
	f.init(f, name, typeName)
	f.size = size
	f.alignment = size
	f.traits = traitTrivial
	f.structure = StructLeaf
	return f
}

type primitiveSpec struct {
	mem  column.MemType
	size int
	reps column.Representations
}

var primitiveSpecs = map[string]primitiveSpec{
	"bool":    {column.MemBool, 1, boolReps},
	"char":    {column.MemUInt8, 1, charReps},
	"int8":    {column.MemInt8, 1, int8Reps},
	"uint8":   {column.MemUInt8, 1, uint8Reps},
	"int16":   {column.MemInt16, 2, int16Reps},
	"uint16":  {column.MemUInt16, 2, uint16Reps},
	"int32":   {column.MemInt32, 4, int32Reps},
	"uint32":  {column.MemUInt32, 4, uint32Reps},
	"int64":   {column.MemInt64, 8, int64Reps},
	"uint64":  {column.MemUInt64, 8, uint64Reps},
	"float32": {column.MemFloat32, 4, float32Reps},
	"float64": {column.MemFloat64, 8, float64Reps},
}

func newPrimitive(name, typeName string) (*primitiveField, bool) {
	spec, ok := primitiveSpecs[typeName]
	if !ok {
		return nil, false
	}
	return newPrimitiveField(name, typeName, spec.mem, spec.size, spec.reps), true
}

func (f *primitiveField) representations() column.Representations { return f.reps }

func (f *primitiveField) makeColumns(rep column.Representation) []*column.Column {
	return columnsFor(rep, f.mem)
}

func (f *primitiveField) appendImpl(v *Value) (int, error) {
	f.principal().Append(v.buf)
	return f.principal().Kind().PackedSize(), nil
}

func (f *primitiveField) cloneImpl(name string) Field {
	c := newPrimitiveField(name, f.typeName, f.mem, f.size, f.reps)
	c.typeAlias = f.typeAlias
	return c
}

// enumField wraps an integer sub-field holding the enum's underlying value.
type enumField struct {
	fieldBase
}

func newEnumField(name, typeName string, underlying *primitiveField) *enumField {
	f := &enumField{}
	f.init(f, name, typeName)
	f.size = underlying.size
	f.alignment = underlying.alignment
	f.traits = TraitTriviallyConstructible | TraitTriviallyDestructible
	f.structure = StructLeaf
	f.attach(underlying)
	return f
}

func (f *enumField) representations() column.Representations {
	return column.EmptyRepresentations()
}

func (f *enumField) makeColumns(column.Representation) []*column.Column { return nil }

func (f *enumField) appendImpl(v *Value) (int, error) {
	sub := f.children[0]
	return sub.Append(sub.BindValue(v.buf))
}

func (f *enumField) readImpl(globalIndex uint64, v *Value) error {
	sub := f.children[0]
	return sub.Read(globalIndex, sub.BindValue(v.buf))
}

func (f *enumField) readInClusterImpl(ci column.ClusterIndex, v *Value) error {
	sub := f.children[0]
	return sub.ReadInCluster(ci, sub.BindValue(v.buf))
}

func (f *enumField) cloneImpl(name string) Field {
	sub := f.children[0].Clone("_0").(*primitiveField)
	c := newEnumField(name, f.typeName, sub)
	c.typeAlias = f.typeAlias
	return c
}

// cardinalityField projects the offset column of a collection into its
// per-entry item count. It is read-only: connect it to a source with the
// on-disk ID of a collection field.
type cardinalityField struct {
	fieldBase
}

func newCardinalityField(name, typeName string, width int) *cardinalityField {
	f := &cardinalityField{}
	f.init(f, name, typeName)
	f.size = width
	f.alignment = width
	f.traits = TraitTriviallyConstructible | TraitTriviallyDestructible
	f.structure = StructLeaf
	return f
}

func (f *cardinalityField) representations() column.Representations {
	return cardinalityReps
}

func (f *cardinalityField) makeColumns(rep column.Representation) []*column.Column {
	return columnsFor(rep, column.MemIndex)
}

func (f *cardinalityField) appendImpl(*Value) (int, error) {
	return 0, serrors.Newf(serrors.ErrorTypeMisuse,
		"cardinality field %s is read-only", f.QualifiedName())
}

func (f *cardinalityField) readImpl(globalIndex uint64, v *Value) error {
	_, n, err := f.principal().GetCollectionInfo(globalIndex)
	if err != nil {
		return err
	}
	writeUint(v.buf, f.size, n)
	return nil
}

func (f *cardinalityField) readInClusterImpl(ci column.ClusterIndex, v *Value) error {
	global, err := f.principal().GlobalOf(ci)
	if err != nil {
		return err
	}
	return f.readImpl(global, v)
}

func (f *cardinalityField) cloneImpl(name string) Field {
	return newCardinalityField(name, f.typeName, f.size)
}
