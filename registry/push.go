package registry

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/opencontainers/image-spec/specs-go"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/meigma/aurb/bank"
)

// PushOption configures a Push.
type PushOption func(*pushConfig)

type pushConfig struct {
	tags        []string
	annotations map[string]string
}

// WithTags applies additional tags after the primary tag.
func WithTags(tags ...string) PushOption {
	return func(cfg *pushConfig) {
		cfg.tags = append(cfg.tags, tags...)
	}
}

// WithAnnotations sets manifest annotations. They override the defaults.
func WithAnnotations(annotations map[string]string) PushOption {
	return func(cfg *pushConfig) {
		if cfg.annotations == nil {
			cfg.annotations = make(map[string]string)
		}
		maps.Copy(cfg.annotations, annotations)
	}
}

// Push publishes a bank and its optional metadata under ref, which must
// include a tag. The blob must parse as a bank and, with metadata, match
// the recorded digest. It returns the manifest descriptor.
func (c *Client) Push(ctx context.Context, ref string, blob []byte, meta *bank.Metadata, opts ...PushOption) (ocispec.Descriptor, error) {
	cfg := pushConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	r, err := parseRef(ref)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	if r.tagOrDigest == "" || isDigest(r.tagOrDigest) {
		return ocispec.Descriptor{}, fmt.Errorf("%w: %q must include a tag", ErrInvalidReference, ref)
	}

	cat, err := bank.Parse(blob)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	if meta != nil {
		if err := meta.Verify(blob); err != nil {
			return ocispec.Descriptor{}, err
		}
	}

	configDesc, err := c.pushContent(ctx, r.repoRef, ocispec.MediaTypeEmptyJSON, ocispec.DescriptorEmptyJSON.Data)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("push config: %w", err)
	}
	bankDesc, err := c.pushContent(ctx, r.repoRef, MediaTypeBank, blob)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("push bank: %w", err)
	}
	layers := []ocispec.Descriptor{bankDesc}

	annotations := map[string]string{
		ocispec.AnnotationCreated: time.Now().UTC().Format(time.RFC3339),
		AnnotationBankVersion:     cat.Header().VersionString(),
	}
	if meta != nil {
		var buf bytes.Buffer
		if _, err := meta.WriteTo(&buf); err != nil {
			return ocispec.Descriptor{}, fmt.Errorf("encode metadata: %w", err)
		}
		metaDesc, err := c.pushContent(ctx, r.repoRef, MediaTypeMetadata, buf.Bytes())
		if err != nil {
			return ocispec.Descriptor{}, fmt.Errorf("push metadata: %w", err)
		}
		layers = append(layers, metaDesc)
		if meta.BankID != "" {
			annotations[AnnotationBankID] = meta.BankID
		}
	}
	maps.Copy(annotations, cfg.annotations)

	manifest := ocispec.Manifest{
		Versioned:    specs.Versioned{SchemaVersion: 2},
		MediaType:    ocispec.MediaTypeImageManifest,
		ArtifactType: ArtifactType,
		Config:       configDesc,
		Layers:       layers,
		Annotations:  annotations,
	}
	manifestDesc, err := c.oci.PushManifest(ctx, r.repoRef, r.tagOrDigest, &manifest)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("push manifest: %w", mapError(err))
	}

	for _, tag := range cfg.tags {
		if err := c.oci.Tag(ctx, r.repoRef, &manifestDesc, tag); err != nil {
			return ocispec.Descriptor{}, fmt.Errorf("tag %q: %w", tag, mapError(err))
		}
	}

	c.log().Info("bank pushed",
		"ref", ref,
		"digest", manifestDesc.Digest,
		"size", len(blob),
		"entries", cat.Len())
	return manifestDesc, nil
}

func (c *Client) pushContent(ctx context.Context, repoRef, mediaType string, content []byte) (ocispec.Descriptor, error) {
	desc := ocispec.Descriptor{
		MediaType: mediaType,
		Digest:    digest.FromBytes(content),
		Size:      int64(len(content)),
	}
	if err := c.oci.PushBlob(ctx, repoRef, &desc, bytes.NewReader(content)); err != nil {
		return ocispec.Descriptor{}, mapError(err)
	}
	return desc, nil
}
