package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2/errdef"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
	"oras.land/oras-go/v2/registry/remote/errcode"
	"oras.land/oras-go/v2/registry/remote/retry"
)

// maxManifestSize bounds manifests fetched without a known size.
const maxManifestSize = 4 << 20

// orasClient implements OCIClient with ORAS remote repositories.
type orasClient struct {
	plainHTTP  bool
	authClient *auth.Client
}

func newORASClient(plainHTTP bool, userAgent string, store credentials.Store) *orasClient {
	return &orasClient{
		plainHTTP: plainHTTP,
		authClient: &auth.Client{
			Client: retry.DefaultClient,
			Cache:  auth.NewCache(),
			Credential: func(ctx context.Context, hostport string) (auth.Credential, error) {
				if store == nil {
					return auth.EmptyCredential, nil
				}
				return store.Get(ctx, hostport)
			},
			Header: http.Header{
				"User-Agent": []string{userAgent},
			},
		},
	}
}

// repository creates a Repository sharing the client's token cache.
func (c *orasClient) repository(ref string) (*remote.Repository, error) {
	repo, err := remote.NewRepository(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidReference, ref, err)
	}
	repo.PlainHTTP = c.plainHTTP
	repo.Client = c.authClient
	return repo, nil
}

func (c *orasClient) PushBlob(ctx context.Context, repoRef string, desc *ocispec.Descriptor, r io.Reader) error {
	if err := validateDescriptor(desc); err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("%w: content reader is nil", ErrInvalidDescriptor)
	}
	repo, err := c.repository(repoRef)
	if err != nil {
		return err
	}
	if err := repo.Push(ctx, *desc, r); err != nil && !errors.Is(err, errdef.ErrAlreadyExists) {
		return mapError(err)
	}
	return nil
}

func (c *orasClient) FetchBlob(ctx context.Context, repoRef string, desc *ocispec.Descriptor) (io.ReadCloser, error) {
	if err := validateDescriptor(desc); err != nil {
		return nil, err
	}
	repo, err := c.repository(repoRef)
	if err != nil {
		return nil, err
	}
	rc, err := repo.Fetch(ctx, *desc)
	if err != nil {
		return nil, mapError(err)
	}
	return rc, nil
}

func (c *orasClient) PushManifest(ctx context.Context, repoRef, tag string, manifest *ocispec.Manifest) (ocispec.Descriptor, error) {
	if manifest == nil {
		return ocispec.Descriptor{}, fmt.Errorf("%w: manifest is nil", ErrInvalidManifest)
	}
	repo, err := c.repository(repoRef)
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	raw, err := json.Marshal(manifest)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("marshal manifest: %w", err)
	}
	desc := ocispec.Descriptor{
		MediaType:    ocispec.MediaTypeImageManifest,
		ArtifactType: manifest.ArtifactType,
		Digest:       digest.FromBytes(raw),
		Size:         int64(len(raw)),
	}
	if err := repo.PushReference(ctx, desc, bytes.NewReader(raw), tag); err != nil {
		return ocispec.Descriptor{}, mapError(err)
	}
	return desc, nil
}

func (c *orasClient) FetchManifest(ctx context.Context, repoRef string, expected *ocispec.Descriptor) (ocispec.Manifest, []byte, error) {
	if err := validateDescriptor(expected); err != nil {
		return ocispec.Manifest{}, nil, err
	}
	if expected.MediaType != "" && expected.MediaType != ocispec.MediaTypeImageManifest {
		return ocispec.Manifest{}, nil, fmt.Errorf("%w: unsupported media type %s", ErrInvalidManifest, expected.MediaType)
	}
	repo, err := c.repository(repoRef)
	if err != nil {
		return ocispec.Manifest{}, nil, err
	}

	_, rc, err := repo.FetchReference(ctx, expected.Digest.String())
	if err != nil {
		return ocispec.Manifest{}, nil, mapError(err)
	}
	defer rc.Close()

	limit := expected.Size
	if limit <= 0 {
		limit = maxManifestSize
	}
	raw, err := io.ReadAll(io.LimitReader(rc, limit))
	if err != nil {
		return ocispec.Manifest{}, nil, fmt.Errorf("read manifest: %w", err)
	}
	if got := digest.FromBytes(raw); got != expected.Digest {
		return ocispec.Manifest{}, nil, fmt.Errorf("%w: manifest %s read as %s", ErrDigestMismatch, expected.Digest, got)
	}

	var manifest ocispec.Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return ocispec.Manifest{}, nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return manifest, raw, nil
}

func (c *orasClient) Resolve(ctx context.Context, repoRef, ref string) (ocispec.Descriptor, error) {
	repo, err := c.repository(repoRef)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	desc, err := repo.Resolve(ctx, ref)
	if err != nil {
		return ocispec.Descriptor{}, mapError(err)
	}
	return desc, nil
}

func (c *orasClient) Tag(ctx context.Context, repoRef string, desc *ocispec.Descriptor, tag string) error {
	if err := validateDescriptor(desc); err != nil {
		return err
	}
	repo, err := c.repository(repoRef)
	if err != nil {
		return err
	}
	return mapError(repo.Tag(ctx, *desc, tag))
}

// validateDescriptor checks that a descriptor is usable.
func validateDescriptor(desc *ocispec.Descriptor) error {
	if desc == nil {
		return fmt.Errorf("%w: descriptor is nil", ErrInvalidDescriptor)
	}
	if desc.Size < 0 {
		return fmt.Errorf("%w: negative size %d", ErrInvalidDescriptor, desc.Size)
	}
	if err := desc.Digest.Validate(); err != nil {
		return fmt.Errorf("%w: invalid digest %q: %v", ErrInvalidDescriptor, desc.Digest, err)
	}
	return nil
}

// mapError maps ORAS errors to the package sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, errdef.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	var errResp *errcode.ErrorResponse
	if errors.As(err, &errResp) {
		switch errResp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrForbidden, err)
		}
	}
	return err
}
