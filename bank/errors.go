package bank

import "errors"

// Sentinel errors.
var (
	// ErrFormat is returned when a blob is not a valid bank (bad magic,
	// unsupported version, truncated or inconsistent index).
	ErrFormat = errors.New("bank: invalid format")

	// ErrUnsupportedCodec is returned when an asset's codec cannot be inferred.
	ErrUnsupportedCodec = errors.New("bank: unsupported codec")

	// ErrEmptyBank is returned when encoding a bank without assets.
	ErrEmptyBank = errors.New("bank: no assets")

	// ErrDuplicateID is returned when two assets share a logical id.
	ErrDuplicateID = errors.New("bank: duplicate asset id")

	// ErrInvalidName is returned when an asset id is empty or too long to encode.
	ErrInvalidName = errors.New("bank: invalid asset id")

	// ErrSizeOverflow is returned when the index does not fit the 32-bit header fields.
	ErrSizeOverflow = errors.New("bank: size overflow")

	// ErrNotFound is returned when a bank has no entry with the requested id.
	ErrNotFound = errors.New("bank: entry not found")

	// ErrDigestMismatch is returned when bank bytes do not match the metadata digest.
	ErrDigestMismatch = errors.New("bank: digest mismatch")
)
