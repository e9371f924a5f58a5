package registry

import (
	"fmt"
	"strings"

	orasregistry "oras.land/oras-go/v2/registry"
)

// Scheme is the URL scheme of registry-hosted banks.
const Scheme = "oci"

// reference is a parsed bank reference.
type reference struct {
	// repoRef is the reference in the form ORAS expects, without a scheme.
	repoRef string
	// tagOrDigest is the tag or digest part, possibly empty.
	tagOrDigest string
}

// parseRef parses "[oci://]host/repository[:tag|@digest]".
func parseRef(ref string) (reference, error) {
	trimmed := strings.TrimPrefix(ref, Scheme+"://")
	r, err := orasregistry.ParseReference(trimmed)
	if err != nil {
		return reference{}, fmt.Errorf("%w: %q: %v", ErrInvalidReference, ref, err)
	}
	return reference{repoRef: trimmed, tagOrDigest: r.Reference}, nil
}

// isDigest reports whether a reference part is a digest rather than a tag.
func isDigest(ref string) bool {
	return strings.Contains(ref, ":")
}
