// Package codec implements linastore's chunked, framed compression
// container: the format internal/store uses to turn an arbitrary byte blob
// into a sequence of independently compressed frames, and back.
package codec

import (
	"fmt"
	"runtime"

	"github.com/linastore/linastore/compress"
	"github.com/linastore/linastore/endian"
	"github.com/linastore/linastore/format"
	"github.com/linastore/linastore/internal/options"
	"github.com/linastore/linastore/internal/pool"
)

// byteOrder is the frame header's fixed little-endian length field order.
var byteOrder = endian.GetLittleEndianEngine()

const (
	// frameHeaderSize is the flag(1) + length(2 LE) header preceding every
	// frame's payload.
	frameHeaderSize = 3

	// maxChunkSize is the largest chunk size a Codec may be configured with:
	// a compressed frame's length field is 16 bits, so a frame must stay
	// strictly under 65536 bytes of payload even before accounting for
	// the chance that compression doesn't shrink the chunk at all.
	maxChunkSize = 65536 - 1024

	// DefaultChunkSize is used when no WithChunkSize option is given.
	DefaultChunkSize = maxChunkSize

	// DefaultWorkers is the worker pool size used when no WithWorkers
	// option is given.
	DefaultWorkers = 4

	flagRaw        byte = 0x0
	flagCompressed byte = 0x1
)

// Codec encodes byte streams into the frame container and decodes them back.
// A Codec is safe for concurrent use; callers typically hold one per store
// instance and share it across goroutines.
type Codec struct {
	compressionType format.CompressionType
	algo            compress.Codec
	chunkSize       int
	workers         int
}

// New creates a Codec using the given compression type for chunk payloads.
// By default it chunks at DefaultChunkSize and parallelizes across
// DefaultWorkers goroutines; both can be overridden with options.
func New(compressionType format.CompressionType, opts ...options.Option[*Codec]) (*Codec, error) {
	algo, err := compress.CreateCodec(compressionType, "codec")
	if err != nil {
		return nil, err
	}

	c := &Codec{
		compressionType: compressionType,
		algo:            algo,
		chunkSize:       DefaultChunkSize,
		workers:         DefaultWorkers,
	}

	if err := options.Apply(c, opts...); err != nil {
		return nil, err
	}

	return c, nil
}

// WithChunkSize overrides the chunk size used to partition input on Encode.
// Values above the 65536-1024 ceiling are rejected.
func WithChunkSize(n int) options.Option[*Codec] {
	return options.New(func(c *Codec) error {
		if n <= 0 || n > maxChunkSize {
			return fmt.Errorf("codec: chunk size %d out of range (1..%d)", n, maxChunkSize)
		}
		c.chunkSize = n
		return nil
	})
}

// WithWorkers overrides the worker pool size used for chunk-level
// parallelism. A value <= 0 falls back to runtime.GOMAXPROCS(0).
func WithWorkers(n int) options.Option[*Codec] {
	return options.NoError(func(c *Codec) {
		if n <= 0 {
			n = runtime.GOMAXPROCS(0)
		}
		c.workers = n
	})
}

// job pairs a chunk with its position so parallel workers can write results
// back in input order regardless of completion order.
type job struct {
	index int
	data  []byte
}

type result struct {
	index int
	frame []byte
	err   error
}

// Encode partitions data into chunks of at most c.chunkSize bytes, compresses
// each chunk in parallel, and concatenates the resulting frames in input
// order. Empty input encodes to an empty, frame-less output.
func (c *Codec) Encode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	chunks := chunkify(data, c.chunkSize)
	results := c.runParallel(chunks, c.encodeOne)

	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
	}

	bb := pool.GetBlobBuffer()
	defer pool.PutBlobBuffer(bb)

	for _, r := range results {
		bb.Write(r.frame)
	}

	out := make([]byte, len(bb.B))
	copy(out, bb.B)

	return out, nil
}

func (c *Codec) encodeOne(chunk []byte) ([]byte, error) {
	compressed, err := c.algo.Compress(chunk)
	if err != nil {
		return nil, fmt.Errorf("codec: compress chunk: %w", err)
	}

	flag := flagCompressed
	payload := compressed
	if len(compressed) >= len(chunk) || len(compressed) >= 1<<16 {
		flag = flagRaw
		payload = chunk
	}
	if len(payload) >= 1<<16 {
		return nil, fmt.Errorf("codec: %w: chunk produced a %d-byte frame", ErrOverlongFrame, len(payload))
	}

	frame := make([]byte, frameHeaderSize+len(payload))
	frame[0] = flag
	byteOrder.PutUint16(frame[1:3], uint16(len(payload)))
	copy(frame[3:], payload)

	return frame, nil
}

// Decode walks the concatenated frames in data, decompressing compressed
// frames and passing raw frames through unchanged, and returns the
// reassembled original bytes. expectedSize is the original size recorded
// alongside the blob; Decode does not enforce it beyond using it to
// pre-size the output buffer, since the canonical encoder never pads.
func (c *Codec) Decode(data []byte, expectedSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	frames, err := splitFrames(data)
	if err != nil {
		return nil, err
	}

	results := c.runParallel(frames, c.decodeOne)
	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
	}

	if expectedSize < 0 {
		expectedSize = 0
	}

	bb := pool.GetBlobBuffer()
	defer pool.PutBlobBuffer(bb)
	bb.Grow(expectedSize)

	for _, r := range results {
		bb.Write(r.frame)
	}

	out := make([]byte, len(bb.B))
	copy(out, bb.B)

	return out, nil
}

func (c *Codec) decodeOne(frame []byte) ([]byte, error) {
	flag := frame[0]
	payload := frame[3:]

	switch flag {
	case flagRaw:
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil
	case flagCompressed:
		out, err := c.algo.Decompress(payload)
		if err != nil {
			return nil, fmt.Errorf("codec: %w: %v", ErrCompressorFailed, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("codec: %w: 0x%02x", ErrUnknownFlag, flag)
	}
}

// runParallel runs fn over items across c.workers goroutines, preserving
// the input order of items in the returned result slice.
func (c *Codec) runParallel(items [][]byte, fn func([]byte) ([]byte, error)) []result {
	n := len(items)
	results := make([]result, n)

	workers := c.workers
	if workers <= 0 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	jobs := make(chan job, n)
	for i, item := range items {
		jobs <- job{index: i, data: item}
	}
	close(jobs)

	done := make(chan struct{}, workers)
	for range workers {
		go func() {
			for j := range jobs {
				frame, err := fn(j.data)
				results[j.index] = result{index: j.index, frame: frame, err: err}
			}
			done <- struct{}{}
		}()
	}
	for range workers {
		<-done
	}

	return results
}

// chunkify splits data into consecutive slices of at most size bytes. The
// returned slices alias data; callers must not mutate them concurrently with
// reading from data.
func chunkify(data []byte, size int) [][]byte {
	if size <= 0 {
		size = DefaultChunkSize
	}

	n := (len(data) + size - 1) / size
	chunks := make([][]byte, 0, n)
	for start := 0; start < len(data); start += size {
		end := start + size
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[start:end])
	}

	return chunks
}

// splitFrames walks the frame header sequence in data and returns each
// frame (header + payload) as a slice aliasing data.
func splitFrames(data []byte) ([][]byte, error) {
	var frames [][]byte

	pos := 0
	for pos < len(data) {
		if pos+frameHeaderSize > len(data) {
			return nil, fmt.Errorf("codec: %w: header truncated at offset %d", ErrTruncatedFrame, pos)
		}

		length := int(byteOrder.Uint16(data[pos+1 : pos+3]))
		end := pos + frameHeaderSize + length
		if end > len(data) {
			return nil, fmt.Errorf("codec: %w: payload truncated at offset %d", ErrTruncatedFrame, pos)
		}

		frames = append(frames, data[pos:end])
		pos = end
	}

	return frames, nil
}
