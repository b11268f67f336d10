package broker

import "github.com/linastore/linastore/internal/hash"

// QuickHash returns a cheap, non-cryptographic fingerprint of a Content
// payload. The front ends log it alongside each order's uni_id; it does not
// affect whether or how a request is enqueued, and it is not a substitute
// for the store's content-addressing hash256.
func QuickHash(c Content) uint64 {
	return hash.ID(string(c.Data))
}
