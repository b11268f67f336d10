package compress

// ZstdCompressor provides Zstandard compression.
//
// This compressor favors compression ratio over speed and is a reasonable
// choice for a chunk codec when storage cost matters more than CPU time;
// internal/codec defaults to CompressionFlate, but a store can opt into
// this one instead via internal/codec.New.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd compressor with default settings.
//
// Returns:
//   - ZstdCompressor: New Zstd compressor instance
//
// Example:
//
//	compressor := NewZstdCompressor()
//	compressed, err := compressor.Compress(data)
//	if err != nil {
//		return err
//	}
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
