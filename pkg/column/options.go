package column

import "github.com/ajitpratap0/strata/pkg/compression"

// WriteOptions controls how a sink lays out and compresses pages. Fields
// consult the sink's options while negotiating their write representation.
type WriteOptions struct {
	// Compression selects the page compression algorithm. None disables
	// byte-split encodings as well, since splitting only pays off before
	// a compressor.
	Compression compression.Algorithm

	// CompressionLevel tunes the selected algorithm.
	CompressionLevel compression.Level

	// PageSize is the number of elements per page before a page is sealed.
	PageSize int

	// SmallClusters promises that no cluster will hold more collection
	// bytes than a 32-bit offset can address, letting offset columns use
	// 32-bit index encodings.
	SmallClusters bool
}

// DefaultWriteOptions returns the options used when a store is created
// without explicit configuration.
func DefaultWriteOptions() *WriteOptions {
	return &WriteOptions{
		Compression:      compression.Zstd,
		CompressionLevel: compression.Default,
		PageSize:         4096,
	}
}
