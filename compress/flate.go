package compress

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/klauspost/compress/flate"
)

// flateWriterPool pools *flate.Writer at BestSpeed, the "fast deflate/gzip-class"
// setting the chunked codec's per-chunk policy calls for.
var flateWriterPool = sync.Pool{
	New: func() any {
		w, err := flate.NewWriter(nil, flate.BestSpeed)
		if err != nil {
			panic(fmt.Sprintf("failed to create flate writer for pool: %v", err))
		}
		return w
	},
}

// FlateCompressor is the default chunk compressor: a fast, general-purpose
// deflate implementation, used by internal/codec for every chunk frame
// unless a store opts into a different algorithm.
type FlateCompressor struct{}

var _ Codec = (*FlateCompressor)(nil)

// NewFlateCompressor creates a new flate compressor at BestSpeed.
func NewFlateCompressor() FlateCompressor {
	return FlateCompressor{}
}

// Compress compresses data with a pooled flate.Writer at BestSpeed.
func (c FlateCompressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	w, _ := flateWriterPool.Get().(*flate.Writer)
	defer flateWriterPool.Put(w)

	w.Reset(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("flate compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("flate compress: %w", err)
	}

	return buf.Bytes(), nil
}

// Decompress decompresses flate-compressed data. The original chunk length
// is not passed in, so the output is read into a growable buffer.
func (c FlateCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()

	var out bytes.Buffer
	if _, err := out.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("flate decompress: %w", err)
	}

	return out.Bytes(), nil
}
