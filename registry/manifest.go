package registry

import (
	"fmt"
	"time"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// BankManifest wraps the OCI manifest of a published bank.
type BankManifest struct {
	raw      ocispec.Manifest
	digest   digest.Digest
	bankDesc ocispec.Descriptor
	metaDesc *ocispec.Descriptor
	created  time.Time
}

// Digest returns the manifest digest.
func (m *BankManifest) Digest() digest.Digest {
	return m.digest
}

// BankDescriptor returns the descriptor of the AURB blob layer.
func (m *BankManifest) BankDescriptor() ocispec.Descriptor {
	return m.bankDesc
}

// MetadataDescriptor returns the descriptor of the metadata layer, if any.
func (m *BankManifest) MetadataDescriptor() (ocispec.Descriptor, bool) {
	if m.metaDesc == nil {
		return ocispec.Descriptor{}, false
	}
	return *m.metaDesc, true
}

// BankID returns the bank id annotation.
func (m *BankManifest) BankID() string {
	return m.raw.Annotations[AnnotationBankID]
}

// Annotations returns the manifest annotations.
func (m *BankManifest) Annotations() map[string]string {
	return m.raw.Annotations
}

// Created returns the creation time, or the zero time if it is not recorded.
func (m *BankManifest) Created() time.Time {
	return m.created
}

// Raw returns the underlying OCI manifest.
func (m *BankManifest) Raw() ocispec.Manifest {
	return m.raw
}

// parseBankManifest checks that manifest describes a bank: the bank artifact
// type, exactly one bank layer and at most one metadata layer.
func parseBankManifest(manifest *ocispec.Manifest, dgst digest.Digest) (*BankManifest, error) {
	if manifest.MediaType != ocispec.MediaTypeImageManifest {
		return nil, fmt.Errorf("%w: unexpected manifest media type %q", ErrInvalidManifest, manifest.MediaType)
	}
	if manifest.ArtifactType != ArtifactType {
		return nil, fmt.Errorf("%w: unexpected artifact type %q", ErrInvalidManifest, manifest.ArtifactType)
	}

	m := &BankManifest{raw: *manifest, digest: dgst}
	foundBank := false
	for _, layer := range manifest.Layers {
		switch layer.MediaType {
		case MediaTypeBank:
			if foundBank {
				return nil, fmt.Errorf("%w: multiple bank layers", ErrInvalidManifest)
			}
			m.bankDesc = layer
			foundBank = true
		case MediaTypeMetadata:
			if m.metaDesc != nil {
				return nil, fmt.Errorf("%w: multiple metadata layers", ErrInvalidManifest)
			}
			m.metaDesc = &layer
		default:
			return nil, fmt.Errorf("%w: unexpected layer media type %q", ErrInvalidManifest, layer.MediaType)
		}
	}
	if !foundBank {
		return nil, fmt.Errorf("%w: missing bank layer", ErrInvalidManifest)
	}

	if ts, ok := manifest.Annotations[ocispec.AnnotationCreated]; ok {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			m.created = t
		}
	}
	return m, nil
}
