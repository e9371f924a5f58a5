package aurb

import (
	"context"
	"strings"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/meigma/aurb/registry"
)

// Push publishes a binary bank and its optional metadata under ref, which
// must carry a tag.
func (c *Client) Push(ctx context.Context, ref string, blob []byte, meta *Metadata, opts ...PushOption) (ocispec.Descriptor, error) {
	return c.registry.Push(ctx, ref, blob, meta, opts...)
}

// PushAssets encodes assets into a bank and publishes it under ref.
func (c *Client) PushAssets(ctx context.Context, ref string, assets []BankAsset, encOpts []EncodeOption, pushOpts ...PushOption) (ocispec.Descriptor, error) {
	blob, meta, err := Encode(assets, encOpts...)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	return c.registry.Push(ctx, ref, blob, meta, pushOpts...)
}

// Pull downloads the bank published under ref without loading it.
func (c *Client) Pull(ctx context.Context, ref string) (*Bank, error) {
	return c.registry.Pull(ctx, ref)
}

// LoadRef loads the bank published under an oci:// reference. Published
// metadata, when present, names the bank and lets a cached copy be reused.
func (c *Client) LoadRef(ctx context.Context, ref string) error {
	if !strings.HasPrefix(ref, registry.Scheme+"://") {
		ref = registry.Scheme + "://" + ref
	}
	m, err := c.registry.Fetch(ctx, ref)
	if err != nil {
		return err
	}
	var metaURL string
	if _, ok := m.MetadataDescriptor(); ok {
		metaURL = ref + "#" + registry.MetadataFragment
	}
	return c.LoadBankBinary(ctx, ref, metaURL)
}
