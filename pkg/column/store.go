package column

// Writer is the sink side of one physical column. Append calls hand over
// packed element bytes; the store owns paging, bit packing, split encoding,
// and compression.
type Writer interface {
	// AppendPacked adds one element. For bit columns the element is a
	// single byte holding 0 or 1.
	AppendPacked(elem []byte)
	// AppendPackedV adds n consecutive elements from one buffer.
	AppendPackedV(elems []byte, n int)
	// Flush seals the open page so all appended elements are durable in
	// the store.
	Flush() error
}

// Reader is the source side of one physical column.
type Reader interface {
	// Kind returns the on-disk element kind.
	Kind() Kind
	// NElements returns the total element count.
	NElements() uint64
	// ReadPacked fills out with the packed bytes of element i. For bit
	// columns out receives a single byte holding 0 or 1.
	ReadPacked(i uint64, out []byte) error
	// ReadPackedV fills out with n consecutive packed elements starting
	// at i.
	ReadPackedV(i uint64, n int, out []byte) error
	// ClusterOf returns the cluster containing element i and the global
	// index of that cluster's first element.
	ClusterOf(i uint64) (cluster, clusterStart uint64, err error)
	// ClusterStart returns the global index of the cluster's first
	// element.
	ClusterStart(cluster uint64) (uint64, error)
}

// Sink is what a field tree connects its columns to for writing.
type Sink interface {
	// Options returns the write options negotiated columns must respect.
	Options() *WriteOptions

	// OpenColumn registers a physical column for the given on-disk field
	// and returns its writer. firstElement is the global index the next
	// appended element will get; fresh stores start at zero.
	OpenColumn(fieldID uint64, kind Kind, index uint32, firstElement uint64) (Writer, error)

	// PutField records catalog information for an on-disk field.
	PutField(fieldID uint64, name, typeName string, typeVersion uint32, parentID uint64) error
}

// Source is what a field tree connects its columns to for reading.
type Source interface {
	// ColumnKinds returns the on-disk kinds of the field's columns in
	// column order, or nil when the field has no columns on disk.
	ColumnKinds(fieldID uint64) []Kind

	// TypeVersion returns the recorded on-disk type version of the field.
	TypeVersion(fieldID uint64) (uint32, bool)

	// OpenColumnReader returns a reader for the field's index-th column.
	OpenColumnReader(fieldID uint64, index uint32) (Reader, error)
}
