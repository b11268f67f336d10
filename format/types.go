// Package format defines the small set of wire-level enums shared by the
// codec and content store packages.
package format

// CompressionType selects which Compressor a chunk codec uses. The chunked
// container format itself (see internal/codec) does not depend on which
// algorithm produced a compressed frame; the flag byte only distinguishes
// raw from compressed payload. CompressionType exists so a codec can be
// configured explicitly, and so tests can exercise every algorithm wired
// into the compress package.
type CompressionType uint8

const (
	CompressionNone  CompressionType = 0x1 // No compression.
	CompressionFlate CompressionType = 0x2 // deflate/gzip-class, spec default.
	CompressionZstd  CompressionType = 0x3 // Zstandard.
	CompressionS2    CompressionType = 0x4 // Snappy-family S2.
	CompressionLZ4   CompressionType = 0x5 // LZ4.
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionFlate:
		return "Flate"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}
