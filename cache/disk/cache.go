// Package disk provides a disk-backed bank cache.
package disk

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/opencontainers/go-digest"
)

const (
	defaultShardPrefixLen = 2
	defaultDirPerm        = 0o700
)

// Cache implements cache.Cache using the local filesystem. Blobs live at
// <dir>/<algorithm>/<shard>/<encoded>. Content is verified against its
// digest on read, and the least recently used blobs are evicted once the
// cache grows past its bound.
type Cache struct {
	dir            string
	shardPrefixLen int
	dirPerm        os.FileMode
	maxBytes       int64

	mu    sync.Mutex
	usage *usage
}

// Option configures a disk cache.
type Option func(*Cache)

// WithShardPrefixLen sets the number of hex characters used for sharding.
// Use 0 to disable sharding. Defaults to 2.
func WithShardPrefixLen(n int) Option {
	return func(c *Cache) {
		c.shardPrefixLen = n
	}
}

// WithDirPerm sets the directory permissions used for cache directories.
func WithDirPerm(mode os.FileMode) Option {
	return func(c *Cache) {
		c.dirPerm = mode
	}
}

// WithMaxBytes bounds the cache size. After each Put the oldest blobs are
// pruned until the cache fits. Zero means unbounded.
func WithMaxBytes(n int64) Option {
	return func(c *Cache) {
		c.maxBytes = n
	}
}

// New creates a disk-backed cache rooted at dir.
func New(dir string, opts ...Option) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("cache dir is empty")
	}
	c := &Cache{
		dir:            dir,
		shardPrefixLen: defaultShardPrefixLen,
		dirPerm:        defaultDirPerm,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.shardPrefixLen < 0 {
		return nil, errors.New("shard prefix length must be >= 0")
	}
	if c.maxBytes < 0 {
		return nil, errors.New("max bytes must be >= 0")
	}
	if err := os.MkdirAll(dir, c.dirPerm); err != nil {
		return nil, err
	}
	c.usage = newUsage(c.removeFile)
	found, err := scan(dir)
	if err != nil {
		return nil, err
	}
	for _, b := range found {
		c.usage.add(b.dgst, b.size)
	}
	if c.maxBytes > 0 {
		c.usage.shrink(c.maxBytes)
	}
	return c, nil
}

// Get retrieves content by digest. A blob whose content no longer matches
// its digest is deleted and reported as a miss.
func (c *Cache) Get(dgst digest.Digest) ([]byte, bool) {
	path, err := c.path(dgst)
	if err != nil {
		return nil, false
	}
	data, err := os.ReadFile(path) //nolint:gosec // path is derived from the digest, not user input
	if err != nil {
		c.mu.Lock()
		c.usage.order.Remove(dgst)
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if dgst.Algorithm().FromBytes(data) != dgst {
		if c.usage.has(dgst) {
			c.usage.order.Remove(dgst)
		} else {
			c.removeFile(dgst)
		}
		return nil, false
	}
	// Blobs written by another process since New join the index here.
	c.usage.add(dgst, int64(len(data)))
	return data, true
}

// Put stores content under dgst using a temp file and rename. Blobs larger
// than the bound are not stored.
func (c *Cache) Put(dgst digest.Digest, content []byte) error {
	path, err := c.path(dgst)
	if err != nil {
		return err
	}
	size := int64(len(content))
	if c.maxBytes > 0 && size > c.maxBytes {
		return nil
	}
	c.mu.Lock()
	tracked := c.usage.has(dgst)
	c.mu.Unlock()
	if tracked {
		return nil
	}

	if err := c.write(path, content); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.usage.add(dgst, size)
	if c.maxBytes > 0 {
		c.usage.shrink(c.maxBytes)
	}
	return nil
}

func (c *Cache) write(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, c.dirPerm); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		if _, statErr := os.Stat(path); statErr == nil {
			return nil
		}
		return err
	}
	return nil
}

// Delete removes the blob for dgst. Missing blobs are not an error.
func (c *Cache) Delete(dgst digest.Digest) error {
	path, err := c.path(dgst)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.usage.order.Remove(dgst)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// MaxBytes returns the configured size limit (0 = unlimited).
func (c *Cache) MaxBytes() int64 {
	return c.maxBytes
}

// SizeBytes returns the total size of the blobs in the cache.
func (c *Cache) SizeBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage.total
}

// Len returns the number of cached blobs.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage.order.Len()
}

// Prune evicts the least recently used blobs until the cache is at or
// below targetBytes. It returns the number of bytes freed.
func (c *Cache) Prune(targetBytes int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage.shrink(max(targetBytes, 0))
}

// removeFile deletes the file for an evicted blob.
func (c *Cache) removeFile(dgst digest.Digest) {
	if path, err := c.path(dgst); err == nil {
		_ = os.Remove(path)
	}
}

func (c *Cache) path(dgst digest.Digest) (string, error) {
	if err := dgst.Validate(); err != nil {
		return "", err
	}
	encoded := dgst.Encoded()
	base := filepath.Join(c.dir, string(dgst.Algorithm()))
	if c.shardPrefixLen <= 0 {
		return filepath.Join(base, encoded), nil
	}
	prefixLen := min(c.shardPrefixLen, len(encoded))
	return filepath.Join(base, encoded[:prefixLen], encoded), nil
}
