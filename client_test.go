package aurb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/aurb/cache"
	"github.com/meigma/aurb/internal/testutil"
)

// memRegistry is a single-repository in-memory OCIClient.
type memRegistry struct {
	mu      sync.Mutex
	content map[digest.Digest][]byte
	tags    map[string]ocispec.Descriptor
	fetches int
}

func newMemRegistry() *memRegistry {
	return &memRegistry{
		content: make(map[digest.Digest][]byte),
		tags:    make(map[string]ocispec.Descriptor),
	}
}

func (r *memRegistry) PushBlob(_ context.Context, _ string, desc *ocispec.Descriptor, rd io.Reader) error {
	data, err := io.ReadAll(rd)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.content[desc.Digest] = data
	return nil
}

func (r *memRegistry) FetchBlob(_ context.Context, _ string, desc *ocispec.Descriptor) (io.ReadCloser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.content[desc.Digest]
	if !ok {
		return nil, ErrNotFound
	}
	r.fetches++
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (r *memRegistry) PushManifest(_ context.Context, _, tag string, m *ocispec.Manifest) (ocispec.Descriptor, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	desc := ocispec.Descriptor{MediaType: ocispec.MediaTypeImageManifest, Digest: digest.FromBytes(raw), Size: int64(len(raw))}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.content[desc.Digest] = raw
	r.tags[tag] = desc
	return desc, nil
}

func (r *memRegistry) FetchManifest(_ context.Context, _ string, expected *ocispec.Descriptor) (ocispec.Manifest, []byte, error) {
	r.mu.Lock()
	raw, ok := r.content[expected.Digest]
	r.mu.Unlock()
	if !ok {
		return ocispec.Manifest{}, nil, ErrNotFound
	}
	var m ocispec.Manifest
	err := json.Unmarshal(raw, &m)
	return m, raw, err
}

func (r *memRegistry) Resolve(_ context.Context, _, ref string) (ocispec.Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	desc, ok := r.tags[ref]
	if !ok {
		return ocispec.Descriptor{}, ErrNotFound
	}
	return desc, nil
}

func (r *memRegistry) Tag(_ context.Context, _ string, desc *ocispec.Descriptor, tag string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tags[tag] = *desc
	return nil
}

func drumAssets() []BankAsset {
	return []BankAsset{
		{ID: "kick", Path: "kick.wav", Data: testutil.SineWAV(8000, 800)},
		{ID: "snare", Path: "snare.wav", Data: testutil.SineWAV(8000, 400)},
	}
}

func TestNewClientDefaults(t *testing.T) {
	t.Parallel()

	c, err := NewClient()
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NotNil(t, c.Loader)
	require.NotNil(t, c.Registry())
	assert.Nil(t, c.bankCache)
	assert.Equal(t, Stats{}, c.Stats())
}

func TestClientOptionErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opt     Option
		wantErr string
	}{
		{"empty cache dir", WithCacheDir(""), "cache dir is empty"},
		{"credentials without host", WithStaticCredentials("", "u", "p"), "registry host"},
		{"token without host", WithStaticToken("", "t"), "registry host"},
		{"negative retries", WithRetry(-1, time.Second), "attempts must be non-negative"},
		{"negative backoff", WithRetry(1, -time.Second), "backoff must be non-negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewClient(tt.opt)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWithCacheDirServesRepeatLoads(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blob, meta, err := Encode(drumAssets(), WithBankID("drums"), WithCompression(CompressionZstd))
	require.NoError(t, err)
	bankPath := filepath.Join(dir, "drums.aurb")
	metaPath := filepath.Join(dir, "drums.json")
	require.NoError(t, os.WriteFile(bankPath, blob, 0o644))
	var buf bytes.Buffer
	_, err = meta.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(metaPath, buf.Bytes(), 0o644))

	c, err := NewClient(WithCacheDir(filepath.Join(dir, "cache")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	require.NoError(t, c.LoadBankBinary(ctx, bankPath, metaPath))
	assert.True(t, c.Has("kick"))

	// The second load must come from the cache.
	require.NoError(t, os.Remove(bankPath))
	c.Unload("drums")
	require.NoError(t, c.LoadBankBinary(ctx, bankPath, metaPath))
	assert.True(t, c.Has("snare"))
}

func TestPushAssetsThenLoadRef(t *testing.T) {
	t.Parallel()

	reg := newMemRegistry()
	mem := cache.NewMemory(0)
	c, err := NewClient(WithOCIClient(reg), WithBankCache(mem))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	_, err = c.PushAssets(ctx, "oci://registry.example.com/audio/drums:v1", drumAssets(),
		[]EncodeOption{WithBankID("drums")})
	require.NoError(t, err)

	require.NoError(t, c.LoadRef(ctx, "registry.example.com/audio/drums:v1"))
	assert.True(t, c.Has("kick"))
	buf := c.Buffer("kick")
	require.NotNil(t, buf)
	assert.Equal(t, 100*time.Millisecond, buf.Duration())
	members, ok := c.Group("drums")
	require.True(t, ok)
	assert.Equal(t, []string{"kick", "snare"}, members)
	assert.Equal(t, 1, mem.Len())

	pulled, err := c.Pull(ctx, "oci://registry.example.com/audio/drums:v1")
	require.NoError(t, err)
	assert.Equal(t, "drums", pulled.Manifest.BankID())
	require.NotNil(t, pulled.Metadata)
}

func TestLoadRefMissing(t *testing.T) {
	t.Parallel()

	c, err := NewClient(WithOCIClient(newMemRegistry()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	err = c.LoadRef(context.Background(), "oci://registry.example.com/audio/none:v1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}
