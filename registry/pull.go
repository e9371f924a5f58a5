package registry

import (
	"context"
	"fmt"
	"io"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/meigma/aurb/bank"
)

// Bank is a pulled bank.
type Bank struct {
	Manifest *BankManifest
	Blob     []byte

	// Metadata is nil when the bank was published without it.
	Metadata *bank.Metadata
}

// Fetch resolves ref and returns its bank manifest without downloading layers.
func (c *Client) Fetch(ctx context.Context, ref string) (*BankManifest, error) {
	r, err := parseRef(ref)
	if err != nil {
		return nil, err
	}
	if r.tagOrDigest == "" {
		return nil, fmt.Errorf("%w: %q must include a tag or digest", ErrInvalidReference, ref)
	}

	var desc ocispec.Descriptor
	if isDigest(r.tagOrDigest) {
		d, err := digest.Parse(r.tagOrDigest)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidReference, ref, err)
		}
		desc = ocispec.Descriptor{Digest: d}
		c.log().Debug("resolving reference", "ref", ref, "type", "digest")
	} else {
		c.log().Debug("resolving reference", "ref", ref, "type", "tag")
		desc, err = c.oci.Resolve(ctx, r.repoRef, r.tagOrDigest)
		if err != nil {
			return nil, mapError(err)
		}
	}

	raw, _, err := c.oci.FetchManifest(ctx, r.repoRef, &desc)
	if err != nil {
		return nil, mapError(err)
	}
	return parseBankManifest(&raw, desc.Digest)
}

// Pull downloads the bank and metadata published under ref. Both layers are
// verified against their descriptors, and the blob against the metadata.
func (c *Client) Pull(ctx context.Context, ref string) (*Bank, error) {
	m, err := c.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	r, _ := parseRef(ref)

	blob, err := c.fetchLayer(ctx, r.repoRef, m.BankDescriptor())
	if err != nil {
		return nil, fmt.Errorf("pull bank: %w", err)
	}
	out := &Bank{Manifest: m, Blob: blob}

	if desc, ok := m.MetadataDescriptor(); ok {
		meta, err := c.fetchMetadata(ctx, r.repoRef, desc)
		if err != nil {
			return nil, err
		}
		if err := meta.Verify(blob); err != nil {
			return nil, err
		}
		out.Metadata = meta
	}

	c.log().Debug("bank pulled", "ref", ref, "digest", m.Digest(), "size", len(blob))
	return out, nil
}

// PullBlob downloads only the bank blob published under ref.
func (c *Client) PullBlob(ctx context.Context, ref string) ([]byte, error) {
	m, err := c.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	r, _ := parseRef(ref)
	return c.fetchLayer(ctx, r.repoRef, m.BankDescriptor())
}

// PullMetadata downloads only the metadata published under ref. It fails
// with ErrNotFound when the bank has none.
func (c *Client) PullMetadata(ctx context.Context, ref string) (*bank.Metadata, error) {
	m, err := c.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	desc, ok := m.MetadataDescriptor()
	if !ok {
		return nil, fmt.Errorf("%w: %s has no metadata layer", ErrNotFound, ref)
	}
	r, _ := parseRef(ref)
	return c.fetchMetadata(ctx, r.repoRef, desc)
}

func (c *Client) fetchMetadata(ctx context.Context, repoRef string, desc ocispec.Descriptor) (*bank.Metadata, error) {
	data, err := c.fetchLayer(ctx, repoRef, desc)
	if err != nil {
		return nil, fmt.Errorf("pull metadata: %w", err)
	}
	return bank.ParseMetadata(data)
}

// fetchLayer downloads a layer and checks its size and digest.
func (c *Client) fetchLayer(ctx context.Context, repoRef string, desc ocispec.Descriptor) ([]byte, error) {
	rc, err := c.oci.FetchBlob(ctx, repoRef, &desc)
	if err != nil {
		return nil, mapError(err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, desc.Size+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", desc.Digest, err)
	}
	if int64(len(data)) != desc.Size {
		return nil, fmt.Errorf("%w: %s is %d bytes, expected %d", ErrDigestMismatch, desc.Digest, len(data), desc.Size)
	}
	verifier := desc.Digest.Verifier()
	if _, err := verifier.Write(data); err != nil {
		return nil, err
	}
	if !verifier.Verified() {
		return nil, fmt.Errorf("%w: content does not match %s", ErrDigestMismatch, desc.Digest)
	}
	return data, nil
}
