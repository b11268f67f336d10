// Package hash provides the cheap, non-cryptographic fingerprint that the
// front ends log per request — distinct from internal/contenthash, which
// computes the cryptographic digest the catalogue addresses blobs by.
package hash

import "github.com/cespare/xxhash/v2"

// ID computes the xxHash64 fingerprint of data. Collisions are acceptable
// here: the value is used for diagnostics only, never to decide content
// identity.
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}
