// Package compress provides the pluggable compression codecs used by
// internal/codec to compress individual chunks of stored content.
//
// # Overview
//
// Every codec implements the same narrow interface:
//
//	type Compressor interface {
//	    Compress(data []byte) ([]byte, error)
//	}
//
//	type Decompressor interface {
//	    Decompress(data []byte) ([]byte, error)
//	}
//
//	type Codec interface {
//	    Compressor
//	    Decompressor
//	}
//
// internal/codec holds exactly one Codec per stream and applies it
// independently to every chunk, falling back to a raw (uncompressed) frame
// whenever compression does not shrink the chunk.
//
// # Supported algorithms
//
//   - None (format.CompressionNone): pass-through, zero overhead.
//   - Flate (format.CompressionFlate): the default. klauspost/compress/flate
//     at BestSpeed — good ratio at low CPU cost, the right trade-off for a
//     store that compresses every chunk on the write path.
//   - Zstd (format.CompressionZstd): best compression ratio, moderate speed.
//     Backed by gozstd under cgo, klauspost/compress/zstd otherwise.
//   - S2 (format.CompressionS2): Snappy-derived, favors throughput over ratio.
//   - LZ4 (format.CompressionLZ4): very fast decompression, moderate ratio.
//
// # Memory management
//
// Implementations pool their compressor/decompressor state (sync.Pool of
// writers, readers, or codec handles) to keep the common case allocation-free
// beyond the returned byte slice, which callers own.
//
// # Thread safety
//
// All codec implementations are safe for concurrent use; internal/codec's
// worker pool shares one Codec instance across its workers.
package compress
