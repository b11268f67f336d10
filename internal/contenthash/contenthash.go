// Package contenthash computes the content-addressing digest stored as
// Source.hash256, used to deduplicate identical payloads across names.
package contenthash

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

// Size is the digest length in bytes.
const Size = 32

// Sum returns the BLAKE3-256 digest of data as a lowercase hex string, the
// form stored in the catalogue's source.hash256 column.
func Sum(data []byte) string {
	digest := blake3.Sum256(data)
	return hex.EncodeToString(digest[:])
}
