// Package stream provides lazily buffering media handles.
//
// A [Media] is bound to a source URL but opens nothing until the first read.
// Reads are served in fixed-size blocks kept in a bounded LRU, and
// concurrent reads of the same block share one fetch. [Media.Detach] drops
// the source and every buffered block.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"sync"

	"github.com/golang/groupcache/lru"
	"golang.org/x/sync/singleflight"
)

// ErrDetached is returned by reads on a detached Media.
var ErrDetached = errors.New("stream: media detached")

// Source provides random access to media bytes.
type Source interface {
	io.ReaderAt

	// Size returns the total size of the media in bytes.
	Size() int64
}

// contextReaderAt is implemented by sources whose reads honor a context.
type contextReaderAt interface {
	ReadAtContext(ctx context.Context, p []byte, off int64) (int, error)
}

// Opener opens the Source behind a Media. It is called at most once per
// successful open.
type Opener func(ctx context.Context) (Source, error)

// Defaults for block buffering.
const (
	DefaultBlockSize int64 = 64 << 10
	DefaultMaxBlocks       = 16
)

// Option configures a Media.
type Option func(*Media)

// WithBlockSize sets the size of each buffered block.
func WithBlockSize(n int64) Option {
	return func(m *Media) {
		if n > 0 {
			m.blockSize = n
		}
	}
}

// WithMaxBlocks bounds the number of buffered blocks. Zero means unbounded.
func WithMaxBlocks(n int) Option {
	return func(m *Media) {
		if n >= 0 {
			m.maxBlocks = n
		}
	}
}

// WithLogger sets the logger for open and detach events.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Media) {
		m.logger = logger
	}
}

// Media is a lazily buffering handle over a streamed source.
// It is safe for concurrent use.
type Media struct {
	open      Opener
	blockSize int64
	maxBlocks int
	logger    *slog.Logger

	group singleflight.Group

	mu       sync.Mutex
	src      string
	source   Source
	blocks   *lru.Cache
	buffered int64
	detached bool
}

// New creates a Media for src. No I/O happens until the first read.
func New(src string, open Opener, opts ...Option) *Media {
	m := &Media{
		open:      open,
		src:       src,
		blockSize: DefaultBlockSize,
		maxBlocks: DefaultMaxBlocks,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.blocks = lru.New(m.maxBlocks)
	m.blocks.OnEvicted = func(_ lru.Key, value any) {
		m.buffered -= int64(len(value.([]byte)))
	}
	return m
}

func (m *Media) log() *slog.Logger {
	if m.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return m.logger
}

// Src returns the bound source URL, or "" once detached.
func (m *Media) Src() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.src
}

// Opened reports whether the underlying source has been opened.
func (m *Media) Opened() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.source != nil
}

// Detached reports whether Detach has been called.
func (m *Media) Detached() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detached
}

// Buffered returns the number of bytes currently held in memory.
func (m *Media) Buffered() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buffered
}

// Size opens the source if needed and returns its size.
func (m *Media) Size(ctx context.Context) (int64, error) {
	src, err := m.ensureOpen(ctx)
	if err != nil {
		return 0, err
	}
	return src.Size(), nil
}

// Reader returns a sequential reader over the whole media.
func (m *Media) Reader(ctx context.Context) (*io.SectionReader, error) {
	size, err := m.Size(ctx)
	if err != nil {
		return nil, err
	}
	return io.NewSectionReader(readerAtFunc(func(p []byte, off int64) (int, error) {
		return m.ReadAtContext(ctx, p, off)
	}), 0, size), nil
}

// ReadAt implements io.ReaderAt.
func (m *Media) ReadAt(p []byte, off int64) (int, error) {
	return m.ReadAtContext(context.Background(), p, off)
}

// ReadAtContext reads len(p) bytes at off through the block buffer.
func (m *Media) ReadAtContext(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 {
		return 0, fmt.Errorf("read at %d: negative offset", off)
	}
	src, err := m.ensureOpen(ctx)
	if err != nil {
		return 0, err
	}
	size := src.Size()
	if off >= size {
		return 0, io.EOF
	}

	expected := int64(len(p))
	if off+expected > size {
		expected = size - off
	}

	startBlock := off / m.blockSize
	endBlock := (off + expected - 1) / m.blockSize

	var n int64
	for blockIndex := startBlock; blockIndex <= endBlock; blockIndex++ {
		blockStart := blockIndex * m.blockSize
		blockEnd := min(blockStart+m.blockSize, size)

		data, err := m.block(ctx, src, blockIndex, blockStart, blockEnd-blockStart)
		if err != nil {
			return int(n), err
		}

		copyStart := max(off, blockStart)
		copyEnd := min(off+expected, blockEnd)
		length := copyEnd - copyStart
		if length > 0 {
			copy(p[copyStart-off:copyStart-off+length], data[copyStart-blockStart:copyStart-blockStart+length])
			n += length
		}
	}

	if expected < int64(len(p)) {
		return int(n), io.EOF
	}
	return int(n), nil
}

// Detach clears the source and drops every buffered block. Later reads
// fail with ErrDetached. A source implementing io.Closer is closed.
func (m *Media) Detach() {
	m.mu.Lock()
	if m.detached {
		m.mu.Unlock()
		return
	}
	src := m.src
	source := m.source
	m.detached = true
	m.src = ""
	m.source = nil
	m.blocks.Clear()
	m.buffered = 0
	m.mu.Unlock()

	if c, ok := source.(io.Closer); ok {
		_ = c.Close()
	}
	m.log().Debug("media detached", "src", src)
}

func (m *Media) ensureOpen(ctx context.Context) (Source, error) {
	m.mu.Lock()
	if m.detached {
		m.mu.Unlock()
		return nil, ErrDetached
	}
	if m.source != nil {
		src := m.source
		m.mu.Unlock()
		return src, nil
	}
	srcURL := m.src
	m.mu.Unlock()

	v, err, _ := m.group.Do("open", func() (any, error) {
		m.mu.Lock()
		if m.source != nil {
			src := m.source
			m.mu.Unlock()
			return src, nil
		}
		m.mu.Unlock()

		src, err := m.open(ctx)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", srcURL, err)
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.detached {
			if c, ok := src.(io.Closer); ok {
				_ = c.Close()
			}
			return nil, ErrDetached
		}
		m.source = src
		m.log().Debug("media opened", "src", srcURL, "size", src.Size())
		return src, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Source), nil
}

func (m *Media) block(ctx context.Context, src Source, index, off, length int64) ([]byte, error) {
	m.mu.Lock()
	if m.detached {
		m.mu.Unlock()
		return nil, ErrDetached
	}
	if v, ok := m.blocks.Get(index); ok {
		m.mu.Unlock()
		return v.([]byte), nil
	}
	m.mu.Unlock()

	v, err, _ := m.group.Do(strconv.FormatInt(index, 10), func() (any, error) {
		data, err := readBlock(ctx, src, off, length)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.detached {
			return nil, ErrDetached
		}
		if _, ok := m.blocks.Get(index); !ok {
			m.blocks.Add(index, data)
			m.buffered += int64(len(data))
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func readBlock(ctx context.Context, src Source, off, length int64) ([]byte, error) {
	if length > math.MaxInt {
		return nil, errors.New("stream: block length exceeds max int")
	}
	buf := make([]byte, int(length))
	var (
		n   int
		err error
	)
	if cr, ok := src.(contextReaderAt); ok {
		n, err = cr.ReadAtContext(ctx, buf, off)
	} else {
		n, err = src.ReadAt(buf, off)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if int64(n) != length {
		return nil, io.ErrUnexpectedEOF
	}
	return buf, nil
}

type readerAtFunc func(p []byte, off int64) (int, error)

func (f readerAtFunc) ReadAt(p []byte, off int64) (int, error) { return f(p, off) }
