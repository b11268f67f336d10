package codec

import "errors"

// Sentinel errors describing the decode-contract failure modes named in
// the frame format: a header or payload that runs past the end of input,
// a flag byte that is neither raw nor compressed, a frame whose would-be
// compressed length can't fit the 16-bit length field, and a compressor
// that rejected or mangled a frame it previously produced.
var (
	ErrTruncatedFrame   = errors.New("truncated frame")
	ErrUnknownFlag      = errors.New("unknown frame flag")
	ErrOverlongFrame    = errors.New("frame payload is 65536 bytes or more")
	ErrCompressorFailed = errors.New("underlying compressor failed")
)
