// Package wire implements linastore's binary request/response framing for
// the TCP front end: flags, a fixed-width identifier, a length-prefixed
// body, and a CRC32 checksum over the rest of the frame.
package wire

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/linastore/linastore/endian"
	"github.com/linastore/linastore/internal/broker"
)

// byteOrder is the wire's fixed little-endian field order for the length
// and checksum words.
var byteOrder = endian.GetLittleEndianEngine()

// IdentifierSize is the fixed width N of the identifier field, a
// compile-time constant per spec.
const IdentifierSize = broker.NameSize

// headerSize is flags/status(1) + identifier(N) + length(4) + checksum(4).
const headerSize = 1 + IdentifierSize + 4 + 4

// Flag nibble values, high bits select the operation, low bits are
// modifiers.
const (
	OpDelete byte = 0xC0
	OpWrite  byte = 0x80
	OpRead   byte = 0x40
	OpAuth   byte = 0x30
	opMask   byte = 0xF0

	FlagCover    byte = 0x02
	FlagCompress byte = 0x01
)

// Status mirrors broker.Status on the wire; kept as a distinct type so wire
// encoding doesn't leak broker internals into the protocol's vocabulary.
type Status byte

const (
	StatusSuccess         Status = 0
	StatusFileNotFound    Status = 1
	StatusStoreFailed     Status = 2
	StatusFileNameInvalid Status = 3
	StatusInternalError   Status = 127
	StatusNone            Status = 255
)

// Request is a decoded binary-protocol request frame.
type Request struct {
	Flags      byte
	Identifier [IdentifierSize]byte
	Data       []byte
}

// Response is an encoded binary-protocol response frame.
type Response struct {
	Status     Status
	Identifier [IdentifierSize]byte
	Data       []byte
}

// Op extracts the operation nibble (OpDelete/OpWrite/OpRead/OpAuth) from
// flags.
func Op(flags byte) byte {
	return flags & opMask
}

// checksum computes the CRC32 (IEEE) over identifier || length_le || data,
// matching the field order normatively fixed by the protocol.
func checksum(identifier [IdentifierSize]byte, data []byte) uint32 {
	h := crc32.NewIEEE()
	h.Write(identifier[:])
	h.Write(byteOrder.AppendUint32(nil, uint32(len(data))))
	h.Write(data)
	return h.Sum32()
}

// ErrPayloadTooLarge is returned by ReadRequest when the wire-reported
// length exceeds the caller's maxPayloadSize, before any of the data region
// is read or allocated.
var ErrPayloadTooLarge = errors.New("wire: payload exceeds max size")

// ReadRequest reads one request frame from r. maxPayloadSize bounds the
// data region's length field: a client-reported length above it is
// rejected before the data is allocated or read, so an oversized length
// can't force a large allocation ahead of any size check.
func ReadRequest(r io.Reader, maxPayloadSize int64) (Request, error) {
	var flags [1]byte
	if _, err := io.ReadFull(r, flags[:]); err != nil {
		return Request{}, fmt.Errorf("wire: read flags: %w", err)
	}

	var identifier [IdentifierSize]byte
	if _, err := io.ReadFull(r, identifier[:]); err != nil {
		return Request{}, fmt.Errorf("wire: read identifier: %w", err)
	}

	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Request{}, fmt.Errorf("wire: read length: %w", err)
	}
	length := byteOrder.Uint32(lenBuf[:])

	if maxPayloadSize >= 0 && int64(length) > maxPayloadSize {
		return Request{}, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, length, maxPayloadSize)
	}

	var checksumBuf [4]byte
	if _, err := io.ReadFull(r, checksumBuf[:]); err != nil {
		return Request{}, fmt.Errorf("wire: read checksum: %w", err)
	}
	wantChecksum := byteOrder.Uint32(checksumBuf[:])

	data := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, data); err != nil {
			return Request{}, fmt.Errorf("wire: read data: %w", err)
		}
	}

	if got := checksum(identifier, data); got != wantChecksum {
		return Request{}, fmt.Errorf("wire: checksum mismatch: got 0x%08x, want 0x%08x", got, wantChecksum)
	}

	return Request{Flags: flags[0], Identifier: identifier, Data: data}, nil
}

// WriteResponse serializes and writes resp to w.
func WriteResponse(w io.Writer, resp Response) error {
	buf := make([]byte, 0, headerSize+len(resp.Data))

	buf = append(buf, byte(resp.Status))
	buf = append(buf, resp.Identifier[:]...)
	buf = byteOrder.AppendUint32(buf, uint32(len(resp.Data)))
	buf = byteOrder.AppendUint32(buf, checksum(resp.Identifier, resp.Data))
	buf = append(buf, resp.Data...)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("wire: write response: %w", err)
	}
	return nil
}

// StatusFromBroker maps a broker.Status onto its wire equivalent.
func StatusFromBroker(s broker.Status) Status {
	switch s {
	case broker.StatusSuccess:
		return StatusSuccess
	case broker.StatusFileNotFound:
		return StatusFileNotFound
	case broker.StatusStoreFailed:
		return StatusStoreFailed
	case broker.StatusFileNameInvalid:
		return StatusFileNameInvalid
	default:
		return StatusInternalError
	}
}
