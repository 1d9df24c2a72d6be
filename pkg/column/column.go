package column

import (
	"encoding/binary"

	serrors "github.com/ajitpratap0/strata/pkg/errors"
)

// Column moves elements of one physical column between a field's in-memory
// representation and a page store. A column is connected to exactly one sink
// or one source; the packed kind is fixed at construction, the in-memory
// type may be wider than the packed type on the read path.
type Column struct {
	kind  Kind
	mem   MemType
	index uint32

	fieldID uint64
	writer  Writer
	reader  Reader

	nWritten uint64

	packBuf []byte
	memBuf  []byte
}

// New creates an unconnected column for the given packed kind, in-memory
// element type, and position within the owning field's representation.
func New(kind Kind, mem MemType, index uint32) *Column {
	return &Column{
		kind:    kind,
		mem:     mem,
		index:   index,
		packBuf: make([]byte, kind.PackedSize()),
		memBuf:  make([]byte, mem.Size()),
	}
}

func (c *Column) Kind() Kind       { return c.kind }
func (c *Column) MemType() MemType { return c.mem }
func (c *Column) Index() uint32    { return c.index }

// NElements returns the number of elements appended through this column.
func (c *Column) NElements() uint64 { return c.nWritten }

// ConnectSink registers the column with the sink and prepares it for
// appending.
func (c *Column) ConnectSink(fieldID uint64, sink Sink, firstElement uint64) error {
	if c.writer != nil || c.reader != nil {
		return serrors.New(serrors.ErrorTypeMisuse, "column is already connected")
	}
	w, err := sink.OpenColumn(fieldID, c.kind, c.index, firstElement)
	if err != nil {
		return err
	}
	c.fieldID = fieldID
	c.writer = w
	c.nWritten = firstElement
	return nil
}

// ConnectSource opens the on-disk column for reading. The caller has already
// matched the on-disk kinds against the field's read set, so a kind mismatch
// here is a store defect.
func (c *Column) ConnectSource(fieldID uint64, source Source) error {
	if c.writer != nil || c.reader != nil {
		return serrors.New(serrors.ErrorTypeMisuse, "column is already connected")
	}
	r, err := source.OpenColumnReader(fieldID, c.index)
	if err != nil {
		return err
	}
	if r.Kind() != c.kind {
		return serrors.Newf(serrors.ErrorTypeData,
			"on-disk column kind %s does not match connected kind %s", r.Kind(), c.kind)
	}
	c.fieldID = fieldID
	c.reader = r
	return nil
}

// Append packs one in-memory element and hands it to the sink.
func (c *Column) Append(elem []byte) {
	pack(c.kind, c.mem, elem, c.packBuf)
	c.writer.AppendPacked(c.packBuf)
	c.nWritten++
}

// AppendV packs n consecutive in-memory elements and hands them to the sink.
func (c *Column) AppendV(elems []byte, n int) {
	ms, ps := c.mem.Size(), c.kind.PackedSize()
	if cap(c.packBuf) < n*ps {
		c.packBuf = make([]byte, n*ps)
	}
	buf := c.packBuf[:n*ps]
	for i := 0; i < n; i++ {
		pack(c.kind, c.mem, elems[i*ms:(i+1)*ms], buf[i*ps:(i+1)*ps])
	}
	c.writer.AppendPackedV(buf, n)
	c.nWritten += uint64(n)
}

// AppendIndex appends one element to an index column.
func (c *Column) AppendIndex(v uint64) {
	binary.LittleEndian.PutUint64(c.memBuf, v)
	c.Append(c.memBuf)
}

// AppendSwitch appends one element to a switch column.
func (c *Column) AppendSwitch(s Switch) {
	s.pack(c.memBuf)
	c.Append(c.memBuf)
}

// AppendBit appends one element to a bit column.
func (c *Column) AppendBit(set bool) {
	if set {
		c.memBuf[0] = 1
	} else {
		c.memBuf[0] = 0
	}
	c.Append(c.memBuf)
}

// Read fills out with the in-memory form of the element at the global index.
func (c *Column) Read(global uint64, out []byte) error {
	if err := c.reader.ReadPacked(global, c.packBuf); err != nil {
		return err
	}
	unpack(c.kind, c.mem, c.packBuf, out)
	return nil
}

// ReadV fills out with n consecutive in-memory elements starting at the
// global index.
func (c *Column) ReadV(global uint64, n int, out []byte) error {
	ms, ps := c.mem.Size(), c.kind.PackedSize()
	if cap(c.packBuf) < n*ps {
		c.packBuf = make([]byte, n*ps)
	}
	buf := c.packBuf[:n*ps]
	if err := c.reader.ReadPackedV(global, n, buf); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		unpack(c.kind, c.mem, buf[i*ps:(i+1)*ps], out[i*ms:(i+1)*ms])
	}
	return nil
}

// ReadCluster reads the element addressed relative to a cluster start.
func (c *Column) ReadCluster(ci ClusterIndex, out []byte) error {
	base, err := c.reader.ClusterStart(ci.Cluster)
	if err != nil {
		return err
	}
	return c.Read(base+ci.Index, out)
}

// ReadClusterV reads n consecutive elements starting at a cluster-relative
// index.
func (c *Column) ReadClusterV(ci ClusterIndex, n int, out []byte) error {
	base, err := c.reader.ClusterStart(ci.Cluster)
	if err != nil {
		return err
	}
	return c.ReadV(base+ci.Index, n, out)
}

// ReadBit reads one element of a bit column.
func (c *Column) ReadBit(global uint64) (bool, error) {
	if err := c.Read(global, c.memBuf[:1]); err != nil {
		return false, err
	}
	return c.memBuf[0] != 0, nil
}

// ReadIndex reads one element of an index column.
func (c *Column) ReadIndex(global uint64) (uint64, error) {
	if err := c.Read(global, c.memBuf[:8]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(c.memBuf), nil
}

// GetCollectionInfo decodes the offset column element at the global index
// into the cluster-relative start of the collection's items and its size.
// Offsets are cumulative within a cluster, so the start is the previous
// element's value, or zero at a cluster boundary.
func (c *Column) GetCollectionInfo(global uint64) (ClusterIndex, uint64, error) {
	cluster, clusterStart, err := c.reader.ClusterOf(global)
	if err != nil {
		return ClusterIndex{}, 0, err
	}
	cur, err := c.ReadIndex(global)
	if err != nil {
		return ClusterIndex{}, 0, err
	}
	var prev uint64
	if global > clusterStart {
		if prev, err = c.ReadIndex(global - 1); err != nil {
			return ClusterIndex{}, 0, err
		}
	}
	return ClusterIndex{Cluster: cluster, Index: prev}, cur - prev, nil
}

// GetSwitchInfo decodes the switch element at the global index into the
// cluster-relative index of the stored value and the alternative tag.
func (c *Column) GetSwitchInfo(global uint64) (ClusterIndex, uint32, error) {
	cluster, _, err := c.reader.ClusterOf(global)
	if err != nil {
		return ClusterIndex{}, 0, err
	}
	if err := c.Read(global, c.memBuf); err != nil {
		return ClusterIndex{}, 0, err
	}
	sw := unpackSwitch(c.memBuf)
	return ClusterIndex{Cluster: cluster, Index: sw.Index}, sw.Tag, nil
}

// GlobalOf translates a cluster-relative index back into the global element
// index for this column.
func (c *Column) GlobalOf(ci ClusterIndex) (uint64, error) {
	base, err := c.reader.ClusterStart(ci.Cluster)
	if err != nil {
		return 0, err
	}
	return base + ci.Index, nil
}

// ClusterIndexOf translates a global element index into the cluster-relative
// form for this column.
func (c *Column) ClusterIndexOf(global uint64) (ClusterIndex, error) {
	cluster, clusterStart, err := c.reader.ClusterOf(global)
	if err != nil {
		return ClusterIndex{}, err
	}
	return ClusterIndex{Cluster: cluster, Index: global - clusterStart}, nil
}

// Flush seals the sink-side open page.
func (c *Column) Flush() error {
	if c.writer == nil {
		return nil
	}
	return c.writer.Flush()
}
