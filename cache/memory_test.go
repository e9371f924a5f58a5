package cache

import (
	"bytes"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryEvictsByBytes(t *testing.T) {
	t.Parallel()

	m := NewMemory(10)
	a := bytes.Repeat([]byte("a"), 6)
	b := bytes.Repeat([]byte("b"), 6)
	require.NoError(t, m.Put(digest.FromBytes(a), a))
	require.NoError(t, m.Put(digest.FromBytes(b), b))

	_, ok := m.Get(digest.FromBytes(a))
	assert.False(t, ok, "oldest blob evicted")
	got, ok := m.Get(digest.FromBytes(b))
	require.True(t, ok)
	assert.Equal(t, b, got)
	assert.Equal(t, int64(6), m.SizeBytes())
	assert.Equal(t, 1, m.Len())

	huge := bytes.Repeat([]byte("h"), 11)
	require.NoError(t, m.Put(digest.FromBytes(huge), huge))
	_, ok = m.Get(digest.FromBytes(huge))
	assert.False(t, ok, "blobs over the bound are not cached")
}

func TestMemoryUnbounded(t *testing.T) {
	t.Parallel()

	m := NewMemory(0)
	for i := range 5 {
		data := bytes.Repeat([]byte{byte(i)}, 1000)
		require.NoError(t, m.Put(digest.FromBytes(data), data))
	}
	assert.Equal(t, 5, m.Len())
	assert.Equal(t, int64(5000), m.SizeBytes())
}

func TestVerified(t *testing.T) {
	t.Parallel()

	m := NewMemory(0)
	good := []byte("good bank")
	dgst := digest.FromBytes(good)
	require.NoError(t, m.Put(dgst, good))

	got, ok := Verified(m, dgst)
	require.True(t, ok)
	assert.Equal(t, good, got)

	bad := digest.FromString("other")
	require.NoError(t, m.Put(bad, good))
	_, ok = Verified(m, bad)
	assert.False(t, ok, "content that does not match its key is a miss")

	_, ok = Verified(m, digest.FromString("absent"))
	assert.False(t, ok)
}
