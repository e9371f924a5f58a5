package cache

import (
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/opencontainers/go-digest"
)

// Memory is an in-process Cache bounded by total bytes. The least recently
// used blobs are evicted first.
type Memory struct {
	mu       sync.Mutex
	lru      *lru.Cache
	maxBytes int64
	size     int64
}

// NewMemory creates a Memory cache holding at most maxBytes.
// Zero means unbounded.
func NewMemory(maxBytes int64) *Memory {
	m := &Memory{
		lru:      lru.New(0),
		maxBytes: maxBytes,
	}
	m.lru.OnEvicted = func(_ lru.Key, value any) {
		m.size -= int64(len(value.([]byte)))
	}
	return m
}

// Get retrieves content by digest.
func (m *Memory) Get(dgst digest.Digest) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.lru.Get(dgst)
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

// Put stores content under dgst. Blobs larger than the bound are ignored.
func (m *Memory) Put(dgst digest.Digest, content []byte) error {
	size := int64(len(content))
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.maxBytes > 0 && size > m.maxBytes {
		return nil
	}
	if _, ok := m.lru.Get(dgst); ok {
		return nil
	}
	m.lru.Add(dgst, content)
	m.size += size
	for m.maxBytes > 0 && m.size > m.maxBytes {
		m.lru.RemoveOldest()
	}
	return nil
}

// SizeBytes returns the bytes currently held.
func (m *Memory) SizeBytes() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size
}

// Len returns the number of cached blobs.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}
