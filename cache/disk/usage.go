package disk

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/golang/groupcache/lru"
	"github.com/opencontainers/go-digest"
)

// tempPrefix marks files still being written by Put.
const tempPrefix = "cache-"

// usage tracks which blobs are on disk, their total size, and the order in
// which they were last stored or read. Callers hold Cache.mu.
type usage struct {
	order   *lru.Cache
	total   int64
	onEvict func(digest.Digest)
}

func newUsage(onEvict func(digest.Digest)) *usage {
	u := &usage{order: lru.New(0), onEvict: onEvict}
	u.order.OnEvicted = func(key lru.Key, value any) {
		u.total -= value.(int64)
		u.onEvict(key.(digest.Digest))
	}
	return u
}

func (u *usage) add(dgst digest.Digest, size int64) {
	if _, ok := u.order.Get(dgst); ok {
		return
	}
	u.order.Add(dgst, size)
	u.total += size
}

func (u *usage) has(dgst digest.Digest) bool {
	_, ok := u.order.Get(dgst)
	return ok
}

// shrink evicts least recently used blobs until at most target bytes remain.
func (u *usage) shrink(target int64) (freed int64) {
	for u.total > target && u.order.Len() > 0 {
		before := u.total
		u.order.RemoveOldest()
		freed += before - u.total
	}
	return freed
}

// scanned is a blob found on disk when the cache is opened.
type scanned struct {
	dgst    digest.Digest
	size    int64
	modTime time.Time
}

// scan lists the blobs under root, oldest modification first. Leftover
// temp files are removed and files whose path is not a digest are skipped.
func scan(root string) ([]scanned, error) {
	var found []scanned
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if strings.HasPrefix(d.Name(), tempPrefix) {
			_ = os.Remove(path)
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		alg, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
		dgst := digest.NewDigestFromEncoded(digest.Algorithm(alg), d.Name())
		if dgst.Validate() != nil {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		found = append(found, scanned{dgst: dgst, size: info.Size(), modTime: info.ModTime()})
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	slices.SortFunc(found, func(a, b scanned) int {
		return a.modTime.Compare(b.modTime)
	})
	return found, err
}
