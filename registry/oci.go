package registry

import (
	"context"
	"io"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// OCIClient defines the low-level OCI registry operations the Client needs.
// The default implementation is backed by ORAS.
type OCIClient interface {
	// PushBlob pushes a blob described by desc, reading exactly desc.Size bytes from r.
	PushBlob(ctx context.Context, repoRef string, desc *ocispec.Descriptor, r io.Reader) error

	// FetchBlob fetches a blob. The caller closes the returned reader.
	FetchBlob(ctx context.Context, repoRef string, desc *ocispec.Descriptor) (io.ReadCloser, error)

	// PushManifest pushes a manifest and tags it.
	PushManifest(ctx context.Context, repoRef, tag string, manifest *ocispec.Manifest) (ocispec.Descriptor, error)

	// FetchManifest fetches a manifest by descriptor and returns it with its raw bytes.
	FetchManifest(ctx context.Context, repoRef string, expected *ocispec.Descriptor) (ocispec.Manifest, []byte, error)

	// Resolve resolves a tag or digest to a descriptor.
	Resolve(ctx context.Context, repoRef, ref string) (ocispec.Descriptor, error)

	// Tag points tag at an existing manifest.
	Tag(ctx context.Context, repoRef string, desc *ocispec.Descriptor, tag string) error
}
