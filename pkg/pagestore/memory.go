// Package pagestore implements an in-memory page store. It is both a sink
// and a source: a field tree writes packed elements into open pages, pages
// are sealed (byte-shuffled for split kinds, then compressed) when full or
// at cluster boundaries, and a read-side tree decodes them back on demand.
package pagestore

import (
	"sort"
	"sync"

	"github.com/ajitpratap0/strata/pkg/column"
	"github.com/ajitpratap0/strata/pkg/compression"
	"github.com/ajitpratap0/strata/pkg/descriptor"
	serrors "github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/logger"
	"github.com/ajitpratap0/strata/pkg/metrics"
	"go.uber.org/zap"
)

type colKey struct {
	fieldID uint64
	index   uint32
}

// page is a sealed run of elements. Data is stored in its on-store form:
// bit-packed for bit columns, byte-shuffled for split kinds, and compressed
// when the store compresses.
type page struct {
	first      uint64
	count      int
	data       []byte
	rawSize    int
	compressed bool
}

// physical is the storage of one column: sealed pages plus one open page.
type physical struct {
	kind       column.Kind
	packedSize int

	pages []*page

	open      []byte
	openFirst uint64
	openCount int

	nElements     uint64
	clusterStarts []uint64

	// decoded read cache for the most recently touched sealed page
	cachedPage *page
	cachedData []byte

	sealErr error
}

// MemoryStore keeps a whole dataset in memory. One goroutine may append
// while others read sealed state; the maps are guarded, element buffers
// follow the single-writer discipline of the column layer.
type MemoryStore struct {
	mu      sync.RWMutex
	opts    *column.WriteOptions
	pool    *compression.CompressorPool
	columns map[colKey]*physical
	schema  *descriptor.Schema
	log     *zap.Logger
}

// NewMemoryStore creates an empty store. A nil options argument selects the
// defaults.
func NewMemoryStore(opts *column.WriteOptions) *MemoryStore {
	if opts == nil {
		opts = column.DefaultWriteOptions()
	}
	var pool *compression.CompressorPool
	if opts.Compression != compression.None {
		pool = compression.NewCompressorPool(&compression.Config{
			Algorithm: opts.Compression,
			Level:     opts.CompressionLevel,
		})
	}
	return &MemoryStore{
		opts:    opts,
		pool:    pool,
		columns: make(map[colKey]*physical),
		schema:  descriptor.NewSchema(),
		log:     logger.Get().Named("pagestore"),
	}
}

// Options implements column.Sink.
func (s *MemoryStore) Options() *column.WriteOptions { return s.opts }

// Schema returns the catalog populated during connect.
func (s *MemoryStore) Schema() *descriptor.Schema { return s.schema }

// PutField implements column.Sink.
func (s *MemoryStore) PutField(fieldID uint64, name, typeName string, typeVersion uint32, parentID uint64) error {
	s.schema.PutField(descriptor.FieldDescriptor{
		ID:          fieldID,
		Name:        name,
		TypeName:    typeName,
		TypeVersion: typeVersion,
		ParentID:    parentID,
	})
	return nil
}

// OpenColumn implements column.Sink.
func (s *MemoryStore) OpenColumn(fieldID uint64, kind column.Kind, index uint32, firstElement uint64) (column.Writer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := colKey{fieldID: fieldID, index: index}
	if _, ok := s.columns[key]; ok {
		return nil, serrors.Newf(serrors.ErrorTypeMisuse,
			"column %d of field %d is already open", index, fieldID)
	}
	if firstElement != 0 {
		return nil, serrors.Newf(serrors.ErrorTypeMisuse,
			"memory store columns start at element 0, got %d", firstElement)
	}
	phys := &physical{
		kind:          kind,
		packedSize:    kind.PackedSize(),
		clusterStarts: []uint64{0},
	}
	s.columns[key] = phys
	s.schema.AddColumn(fieldID, kind, index)
	s.log.Debug("column opened",
		zap.Uint64("field_id", fieldID),
		zap.Uint32("column_index", index),
		zap.String("kind", kind.String()))
	return &writer{store: s, phys: phys, kind: kind.String()}, nil
}

// ColumnKinds implements column.Source.
func (s *MemoryStore) ColumnKinds(fieldID uint64) []column.Kind {
	return s.schema.ColumnKinds(fieldID)
}

// TypeVersion implements column.Source.
func (s *MemoryStore) TypeVersion(fieldID uint64) (uint32, bool) {
	fd, ok := s.schema.Field(fieldID)
	if !ok {
		return 0, false
	}
	return fd.TypeVersion, true
}

// OpenColumnReader implements column.Source.
func (s *MemoryStore) OpenColumnReader(fieldID uint64, index uint32) (column.Reader, error) {
	s.mu.RLock()
	phys, ok := s.columns[colKey{fieldID: fieldID, index: index}]
	s.mu.RUnlock()
	if !ok {
		return nil, serrors.Newf(serrors.ErrorTypeData,
			"no column %d for field %d", index, fieldID)
	}
	return &reader{store: s, phys: phys}, nil
}

// CommitCluster seals the open page of every column and starts a new
// cluster. Elements appended afterwards belong to the next cluster.
func (s *MemoryStore) CommitCluster() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, phys := range s.columns {
		if err := s.seal(phys); err != nil && firstErr == nil {
			firstErr = err
		}
		phys.clusterStarts = append(phys.clusterStarts, phys.nElements)
	}
	metrics.ClustersCommitted.Inc()
	return firstErr
}

// Flush seals all open pages without closing the running cluster.
func (s *MemoryStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, phys := range s.columns {
		if err := s.seal(phys); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Stats summarizes the physical state of the store.
type Stats struct {
	Columns           int    `json:"columns"`
	Pages             int    `json:"pages"`
	Clusters          int    `json:"clusters"`
	Elements          uint64 `json:"elements"`
	UncompressedBytes uint64 `json:"uncompressed_bytes"`
	CompressedBytes   uint64 `json:"compressed_bytes"`
}

// Stats reports sealed page totals. Open page bytes are not counted.
func (s *MemoryStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st Stats
	st.Columns = len(s.columns)
	for _, phys := range s.columns {
		st.Pages += len(phys.pages)
		st.Elements += phys.nElements
		if n := len(phys.clusterStarts); n > st.Clusters {
			st.Clusters = n
		}
		for _, p := range phys.pages {
			st.UncompressedBytes += uint64(p.rawSize)
			st.CompressedBytes += uint64(len(p.data))
		}
	}
	return st
}

// seal turns the open page of phys into a sealed page. Safe to call with an
// empty open page.
func (s *MemoryStore) seal(phys *physical) error {
	if phys.openCount == 0 {
		return nil
	}
	raw := phys.open
	rawSize := len(raw)
	if phys.kind.IsSplit() {
		raw = shuffle(raw, phys.packedSize)
	}
	data := raw
	compressed := false
	if s.pool != nil {
		out, err := s.pool.Compress(raw)
		if err != nil {
			phys.sealErr = serrors.Wrap(err, serrors.ErrorTypeInternal, "page compression failed")
			return phys.sealErr
		}
		// Keep the page uncompressed when compression does not shrink it.
		if len(out) < len(raw) {
			data = out
			compressed = true
		}
		metrics.PageBytesUncompressed.WithLabelValues(string(s.opts.Compression)).Add(float64(rawSize))
		metrics.PageBytesCompressed.WithLabelValues(string(s.opts.Compression)).Add(float64(len(data)))
	}
	phys.pages = append(phys.pages, &page{
		first:      phys.openFirst,
		count:      phys.openCount,
		data:       data,
		rawSize:    rawSize,
		compressed: compressed,
	})
	metrics.PagesSealed.WithLabelValues(phys.kind.String()).Inc()
	phys.open = nil
	phys.openFirst = phys.nElements
	phys.openCount = 0
	return nil
}

// shuffle rearranges a page of fixed-width elements so that all first bytes
// come before all second bytes and so on, which groups similar bytes for the
// compressor.
func shuffle(in []byte, width int) []byte {
	n := len(in) / width
	out := make([]byte, len(in))
	for i := 0; i < n; i++ {
		for b := 0; b < width; b++ {
			out[b*n+i] = in[i*width+b]
		}
	}
	return out
}

func unshuffle(in []byte, width int) []byte {
	n := len(in) / width
	out := make([]byte, len(in))
	for i := 0; i < n; i++ {
		for b := 0; b < width; b++ {
			out[i*width+b] = in[b*n+i]
		}
	}
	return out
}

// writer implements column.Writer for one physical column.
type writer struct {
	store *MemoryStore
	phys  *physical
	kind  string
}

func (w *writer) AppendPacked(elem []byte) {
	phys := w.phys
	if phys.kind == column.KindBit {
		bit := phys.nElements - phys.openFirst
		if bit%8 == 0 {
			phys.open = append(phys.open, 0)
		}
		if elem[0] != 0 {
			phys.open[bit/8] |= 1 << (bit % 8)
		}
	} else {
		phys.open = append(phys.open, elem[:phys.packedSize]...)
	}
	phys.nElements++
	phys.openCount++
	metrics.ElementsAppended.WithLabelValues(w.kind).Inc()
	if phys.openCount >= w.store.opts.PageSize {
		w.store.mu.Lock()
		_ = w.store.seal(phys)
		w.store.mu.Unlock()
	}
}

func (w *writer) AppendPackedV(elems []byte, n int) {
	ps := w.phys.packedSize
	for i := 0; i < n; i++ {
		w.AppendPacked(elems[i*ps : (i+1)*ps])
	}
}

func (w *writer) Flush() error {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	if err := w.store.seal(w.phys); err != nil {
		return err
	}
	return w.phys.sealErr
}

// reader implements column.Reader for one physical column.
type reader struct {
	store *MemoryStore
	phys  *physical
}

func (r *reader) Kind() column.Kind { return r.phys.kind }

func (r *reader) NElements() uint64 { return r.phys.nElements }

func (r *reader) ReadPacked(i uint64, out []byte) error {
	phys := r.phys
	if i >= phys.nElements {
		return serrors.Newf(serrors.ErrorTypeData,
			"element %d out of range, column has %d elements", i, phys.nElements)
	}
	timer := metrics.NewTimer()
	data, first, err := r.pageBytes(i)
	if err != nil {
		return err
	}
	local := i - first
	if phys.kind == column.KindBit {
		out[0] = (data[local/8] >> (local % 8)) & 1
	} else {
		ps := uint64(phys.packedSize)
		copy(out, data[local*ps:(local+1)*ps])
	}
	metrics.PageReadLatency.Observe(float64(timer.Stop().Nanoseconds()))
	return nil
}

func (r *reader) ReadPackedV(i uint64, n int, out []byte) error {
	ps := r.phys.packedSize
	var one [16]byte
	for j := 0; j < n; j++ {
		if err := r.ReadPacked(i+uint64(j), one[:ps]); err != nil {
			return err
		}
		copy(out[j*ps:(j+1)*ps], one[:ps])
	}
	return nil
}

func (r *reader) ClusterOf(i uint64) (uint64, uint64, error) {
	phys := r.phys
	if i >= phys.nElements {
		return 0, 0, serrors.Newf(serrors.ErrorTypeData,
			"element %d out of range, column has %d elements", i, phys.nElements)
	}
	starts := phys.clusterStarts
	c := sort.Search(len(starts), func(k int) bool { return starts[k] > i }) - 1
	return uint64(c), starts[c], nil
}

func (r *reader) ClusterStart(cluster uint64) (uint64, error) {
	starts := r.phys.clusterStarts
	if cluster >= uint64(len(starts)) {
		return 0, serrors.Newf(serrors.ErrorTypeData,
			"cluster %d out of range, column has %d clusters", cluster, len(starts))
	}
	return starts[cluster], nil
}

// pageBytes returns the decoded bytes of the page holding element i along
// with the page's first element index. Open page bytes are served directly.
func (r *reader) pageBytes(i uint64) ([]byte, uint64, error) {
	phys := r.phys
	if i >= phys.openFirst {
		return phys.open, phys.openFirst, nil
	}
	pages := phys.pages
	k := sort.Search(len(pages), func(j int) bool { return pages[j].first > i }) - 1
	p := pages[k]
	if phys.cachedPage == p {
		return phys.cachedData, p.first, nil
	}
	data := p.data
	if p.compressed {
		out, err := r.store.pool.Decompress(data)
		if err != nil {
			return nil, 0, serrors.Wrap(err, serrors.ErrorTypeData, "page decompression failed")
		}
		data = out
	}
	if phys.kind.IsSplit() {
		data = unshuffle(data, phys.packedSize)
	}
	phys.cachedPage = p
	phys.cachedData = data
	return data, p.first, nil
}
