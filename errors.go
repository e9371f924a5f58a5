package aurb

import (
	"github.com/meigma/aurb/bank"
	"github.com/meigma/aurb/decode"
	"github.com/meigma/aurb/fetch"
	"github.com/meigma/aurb/loader"
	"github.com/meigma/aurb/manifest"
	"github.com/meigma/aurb/registry"
	"github.com/meigma/aurb/stream"
)

// Errors re-exported from bank.
var (
	// ErrFormat is returned when a blob is not a valid bank.
	ErrFormat = bank.ErrFormat

	// ErrUnsupportedCodec is returned when an asset's codec cannot be inferred.
	ErrUnsupportedCodec = bank.ErrUnsupportedCodec

	// ErrDuplicateID is returned when two assets share an id.
	ErrDuplicateID = bank.ErrDuplicateID

	// ErrBankDigestMismatch is returned when bank bytes do not match the metadata digest.
	ErrBankDigestMismatch = bank.ErrDigestMismatch
)

// Errors re-exported from manifest.
var (
	// ErrInvalidBankManifest is returned when a bank manifest fails validation.
	ErrInvalidBankManifest = manifest.ErrManifest
)

// Errors re-exported from loader.
var (
	// ErrNotLoaded is returned when an id is not in the cache.
	ErrNotLoaded = loader.ErrNotLoaded

	// ErrClipNotFound is returned when a sprite or clip does not exist.
	ErrClipNotFound = loader.ErrNotFound

	// ErrClosed is returned by loads on a closed client.
	ErrClosed = loader.ErrClosed
)

// Errors re-exported from fetch, decode and stream.
var (
	// ErrTransport is returned when a fetch fails after all retries.
	ErrTransport = fetch.ErrTransport

	// ErrDecode is returned when content cannot be decoded.
	ErrDecode = decode.ErrDecode

	// ErrDetached is returned by reads on a detached media handle.
	ErrDetached = stream.ErrDetached
)

// Errors re-exported from registry.
var (
	// ErrNotFound is returned when a bank does not exist at the reference.
	ErrNotFound = registry.ErrNotFound

	// ErrInvalidReference is returned when a reference string is malformed.
	ErrInvalidReference = registry.ErrInvalidReference

	// ErrInvalidManifest is returned when an OCI manifest is not a bank artifact.
	ErrInvalidManifest = registry.ErrInvalidManifest

	// ErrDigestMismatch is returned when registry content does not match its descriptor.
	ErrDigestMismatch = registry.ErrDigestMismatch

	// ErrUnauthorized is returned when the registry rejects the credentials.
	ErrUnauthorized = registry.ErrUnauthorized
)
