// Package cache provides content-addressed storage for bank blobs.
//
// Keys are OCI digests of the complete bank. Because keys are content
// digests, a hit can be verified against the key without trusting the
// store.
package cache

import (
	"github.com/opencontainers/go-digest"
)

// Cache stores bank blobs by digest.
//
// Implementations must be safe for concurrent use and handle their own
// size limits and eviction.
type Cache interface {
	// Get retrieves content by digest. It returns nil, false on a miss.
	Get(dgst digest.Digest) ([]byte, bool)

	// Put stores content under dgst.
	Put(dgst digest.Digest, content []byte) error
}

// Verified returns the cached content for dgst if present and intact.
// Corrupt entries are reported as misses.
func Verified(c Cache, dgst digest.Digest) ([]byte, bool) {
	data, ok := c.Get(dgst)
	if !ok {
		return nil, false
	}
	if err := dgst.Validate(); err != nil {
		return nil, false
	}
	if dgst.Algorithm().FromBytes(data) != dgst {
		return nil, false
	}
	return data, true
}
