package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// mockOCIClient is an in-memory registry. Func fields override individual
// operations.
type mockOCIClient struct {
	PushBlobFunc     func(ctx context.Context, repoRef string, desc *ocispec.Descriptor, r io.Reader) error
	FetchBlobFunc    func(ctx context.Context, repoRef string, desc *ocispec.Descriptor) (io.ReadCloser, error)
	PushManifestFunc func(ctx context.Context, repoRef, tag string, manifest *ocispec.Manifest) (ocispec.Descriptor, error)

	mu        sync.Mutex
	blobs     map[digest.Digest][]byte
	manifests map[digest.Digest][]byte
	tags      map[string]ocispec.Descriptor
	pushed    []ocispec.Descriptor
}

func newMockOCIClient() *mockOCIClient {
	return &mockOCIClient{
		blobs:     make(map[digest.Digest][]byte),
		manifests: make(map[digest.Digest][]byte),
		tags:      make(map[string]ocispec.Descriptor),
	}
}

func (m *mockOCIClient) PushBlob(ctx context.Context, repoRef string, desc *ocispec.Descriptor, r io.Reader) error {
	if m.PushBlobFunc != nil {
		return m.PushBlobFunc(ctx, repoRef, desc, r)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if digest.FromBytes(data) != desc.Digest || int64(len(data)) != desc.Size {
		return fmt.Errorf("mock: content does not match %s", desc.Digest)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[desc.Digest] = data
	m.pushed = append(m.pushed, *desc)
	return nil
}

func (m *mockOCIClient) FetchBlob(ctx context.Context, repoRef string, desc *ocispec.Descriptor) (io.ReadCloser, error) {
	if m.FetchBlobFunc != nil {
		return m.FetchBlobFunc(ctx, repoRef, desc)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[desc.Digest]
	if !ok {
		return nil, fmt.Errorf("%w: blob %s", ErrNotFound, desc.Digest)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *mockOCIClient) PushManifest(ctx context.Context, repoRef, tag string, manifest *ocispec.Manifest) (ocispec.Descriptor, error) {
	if m.PushManifestFunc != nil {
		return m.PushManifestFunc(ctx, repoRef, tag, manifest)
	}
	raw, err := json.Marshal(manifest)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	desc := ocispec.Descriptor{
		MediaType: ocispec.MediaTypeImageManifest,
		Digest:    digest.FromBytes(raw),
		Size:      int64(len(raw)),
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manifests[desc.Digest] = raw
	m.tags[repoName(repoRef)+":"+tag] = desc
	return desc, nil
}

func (m *mockOCIClient) FetchManifest(_ context.Context, _ string, expected *ocispec.Descriptor) (ocispec.Manifest, []byte, error) {
	m.mu.Lock()
	raw, ok := m.manifests[expected.Digest]
	m.mu.Unlock()
	if !ok {
		return ocispec.Manifest{}, nil, fmt.Errorf("%w: manifest %s", ErrNotFound, expected.Digest)
	}
	var manifest ocispec.Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return ocispec.Manifest{}, nil, err
	}
	return manifest, raw, nil
}

func (m *mockOCIClient) Resolve(_ context.Context, repoRef, ref string) (ocispec.Descriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	desc, ok := m.tags[repoName(repoRef)+":"+ref]
	if !ok {
		return ocispec.Descriptor{}, fmt.Errorf("%w: tag %s", ErrNotFound, ref)
	}
	return desc, nil
}

func (m *mockOCIClient) Tag(_ context.Context, repoRef string, desc *ocispec.Descriptor, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags[repoName(repoRef)+":"+tag] = *desc
	return nil
}

func (m *mockOCIClient) setManifest(repo, tag string, manifest *ocispec.Manifest) {
	raw, _ := json.Marshal(manifest)
	desc := ocispec.Descriptor{MediaType: ocispec.MediaTypeImageManifest, Digest: digest.FromBytes(raw), Size: int64(len(raw))}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manifests[desc.Digest] = raw
	m.tags[repo+":"+tag] = desc
}

// repoName strips the tag or digest from a reference.
func repoName(ref string) string {
	r, err := parseRef(ref)
	if err != nil {
		return ref
	}
	name := r.repoRef
	if i := strings.LastIndex(name, "@"); i >= 0 {
		return name[:i]
	}
	if r.tagOrDigest != "" {
		return name[:len(name)-len(r.tagOrDigest)-1]
	}
	return name
}
