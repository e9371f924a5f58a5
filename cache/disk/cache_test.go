package disk

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"
)

func TestCachePutGet(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	content := []byte("bank bytes")
	dgst := digest.FromBytes(content)

	if err := c.Put(dgst, content); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, ok := c.Get(dgst)
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("Get() content = %q, want %q", got, content)
	}

	encoded := dgst.Encoded()
	path := filepath.Join(dir, "sha256", encoded[:defaultShardPrefixLen], encoded)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected cache file at %s: %v", path, err)
	}

	if err := c.Put(dgst, content); err != nil {
		t.Fatalf("second Put() error = %v", err)
	}
}

func TestCacheMissAndInvalidDigest(t *testing.T) {
	t.Parallel()

	c, err := New(t.TempDir(), WithShardPrefixLen(0))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := c.Get(digest.FromString("missing")); ok {
		t.Fatal("Get() ok = true for missing blob")
	}
	if _, ok := c.Get(digest.Digest("sha256:../../etc/passwd")); ok {
		t.Fatal("Get() ok = true for invalid digest")
	}
	if err := c.Put(digest.Digest("nope"), []byte("x")); err == nil {
		t.Fatal("Put() with invalid digest should fail")
	}
}

func TestCacheDelete(t *testing.T) {
	t.Parallel()

	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	content := []byte("delete me")
	dgst := digest.FromBytes(content)
	if err := c.Put(dgst, content); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := c.Delete(dgst); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := c.Get(dgst); ok {
		t.Fatal("Get() ok = true after Delete")
	}
	if err := c.Delete(dgst); err != nil {
		t.Fatalf("Delete() of missing blob error = %v", err)
	}
}

func TestCacheMaxBytesPrunesOldest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c, err := New(dir, WithMaxBytes(20))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	old := bytes.Repeat([]byte("a"), 12)
	oldDgst := digest.FromBytes(old)
	if err := c.Put(oldDgst, old); err != nil {
		t.Fatalf("Put(old) error = %v", err)
	}
	path, _ := c.path(oldDgst)
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}

	newer := bytes.Repeat([]byte("b"), 12)
	newDgst := digest.FromBytes(newer)
	if err := c.Put(newDgst, newer); err != nil {
		t.Fatalf("Put(new) error = %v", err)
	}

	if _, ok := c.Get(oldDgst); ok {
		t.Fatal("oldest blob should have been pruned")
	}
	if _, ok := c.Get(newDgst); !ok {
		t.Fatal("newest blob should remain")
	}
	if got := c.SizeBytes(); got != 12 {
		t.Fatalf("SizeBytes() = %d, want 12", got)
	}
	if c.MaxBytes() != 20 {
		t.Fatalf("MaxBytes() = %d, want 20", c.MaxBytes())
	}
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	if _, err := New(""); err == nil {
		t.Fatal("New(\"\") should fail")
	}
	if _, err := New(t.TempDir(), WithShardPrefixLen(-1)); err == nil {
		t.Fatal("negative shard prefix should fail")
	}
	if _, err := New(t.TempDir(), WithMaxBytes(-1)); err == nil {
		t.Fatal("negative max bytes should fail")
	}
}

func TestCacheEvictsLeastRecentlyRead(t *testing.T) {
	t.Parallel()

	c, err := New(t.TempDir(), WithMaxBytes(30))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	put := func(b byte) digest.Digest {
		content := bytes.Repeat([]byte{b}, 12)
		dgst := digest.FromBytes(content)
		if err := c.Put(dgst, content); err != nil {
			t.Fatalf("Put(%c) error = %v", b, err)
		}
		return dgst
	}

	a := put('a')
	b := put('b')
	if _, ok := c.Get(a); !ok {
		t.Fatal("Get(a) ok = false")
	}
	put('c')

	if _, ok := c.Get(b); ok {
		t.Fatal("b was read least recently and should have been evicted")
	}
	if _, ok := c.Get(a); !ok {
		t.Fatal("a should remain after being read")
	}
	if got := c.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}
	if got := c.SizeBytes(); got != 24 {
		t.Fatalf("SizeBytes() = %d, want 24", got)
	}
}

func TestCacheReopenRestoresUsage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	old := []byte("older bank")
	newer := []byte("newer bank!")
	oldDgst, newDgst := digest.FromBytes(old), digest.FromBytes(newer)
	for _, blob := range [][]byte{old, newer} {
		if err := c.Put(digest.FromBytes(blob), blob); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}
	oldPath, _ := c.path(oldDgst)
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(oldPath, past, past); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}
	leftover := filepath.Join(filepath.Dir(oldPath), tempPrefix+"123")
	if err := os.WriteFile(leftover, []byte("partial"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	reopened, err := New(dir, WithMaxBytes(int64(len(newer))))
	if err != nil {
		t.Fatalf("New() reopen error = %v", err)
	}
	if got := reopened.SizeBytes(); got != int64(len(newer)) {
		t.Fatalf("SizeBytes() = %d, want %d", got, len(newer))
	}
	if _, ok := reopened.Get(oldDgst); ok {
		t.Fatal("oldest blob should be evicted when reopening over the bound")
	}
	if _, ok := reopened.Get(newDgst); !ok {
		t.Fatal("newest blob should survive reopening")
	}
	if _, err := os.Stat(leftover); !os.IsNotExist(err) {
		t.Fatalf("temp file should be removed on open, stat err = %v", err)
	}
}

func TestCacheDropsCorruptBlob(t *testing.T) {
	t.Parallel()

	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	content := []byte("bank bytes")
	dgst := digest.FromBytes(content)
	if err := c.Put(dgst, content); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	path, _ := c.path(dgst)
	if err := os.WriteFile(path, []byte("tampered!!"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, ok := c.Get(dgst); ok {
		t.Fatal("Get() ok = true for corrupt blob")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("corrupt blob should be removed, stat err = %v", err)
	}
	if got := c.SizeBytes(); got != 0 {
		t.Fatalf("SizeBytes() = %d, want 0", got)
	}
}

func TestCachePrune(t *testing.T) {
	t.Parallel()

	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for _, s := range []string{"first blob", "second blob"} {
		if err := c.Put(digest.FromString(s), []byte(s)); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}
	if freed := c.Prune(0); freed != int64(len("first blob")+len("second blob")) {
		t.Fatalf("Prune(0) freed = %d", freed)
	}
	if c.Len() != 0 || c.SizeBytes() != 0 {
		t.Fatalf("cache not empty after Prune(0): len=%d size=%d", c.Len(), c.SizeBytes())
	}
}
