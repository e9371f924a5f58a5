package bank

import "unicode/utf16"

const (
	fnvOffset32 uint32 = 0x811c9dc5
	fnvPrime32  uint32 = 0x01000193
)

// Hash32 returns the 32-bit FNV-1a hash of name used by the bank index.
//
// The hash runs over UTF-16 code units rather than bytes so that banks
// produced by other AURB tooling hash non-ASCII names identically. For
// ASCII names the result equals the byte-oriented FNV-1a.
func Hash32(name string) uint32 {
	h := fnvOffset32
	for _, r := range name {
		if r < 0x10000 {
			h ^= uint32(r) //nolint:gosec // r is a BMP code point
			h *= fnvPrime32
			continue
		}
		r1, r2 := utf16.EncodeRune(r)
		h ^= uint32(r1) //nolint:gosec // surrogate halves are < 0x10000
		h *= fnvPrime32
		h ^= uint32(r2) //nolint:gosec // surrogate halves are < 0x10000
		h *= fnvPrime32
	}
	return h
}
