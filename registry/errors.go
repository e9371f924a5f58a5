package registry

import "errors"

// Sentinel errors for registry operations.
var (
	// ErrNotFound is returned when a bank, manifest or layer does not exist.
	ErrNotFound = errors.New("registry: not found")

	// ErrInvalidReference is returned when a reference string is malformed.
	ErrInvalidReference = errors.New("registry: invalid reference")

	// ErrInvalidManifest is returned when a manifest does not describe a bank.
	ErrInvalidManifest = errors.New("registry: invalid bank manifest")

	// ErrInvalidDescriptor is returned when a descriptor is nil or has invalid fields.
	ErrInvalidDescriptor = errors.New("registry: invalid descriptor")

	// ErrDigestMismatch is returned when fetched content does not match its descriptor.
	ErrDigestMismatch = errors.New("registry: digest mismatch")

	// ErrUnauthorized is returned when authentication fails.
	ErrUnauthorized = errors.New("registry: unauthorized")

	// ErrForbidden is returned when access is denied.
	ErrForbidden = errors.New("registry: forbidden")
)
