package bank

import (
	"bytes"
	"fmt"
	"io"
	"iter"
)

// Catalog is a decoded bank.
//
// Chunk slices returned by Slice alias the buffer passed to Parse; callers
// must not modify that buffer while the catalog is in use.
type Catalog struct {
	header  Header
	entries []Entry
	byName  map[string]int
	byHash  map[uint32]int
	data    []byte
}

// Parse decodes a bank.
//
// The header, every index entry and every chunk range are bounds-checked
// against data. Any violation yields an error wrapping ErrFormat and no
// catalog.
func Parse(data []byte) (*Catalog, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrFormat, len(data))
	}
	hdr := unmarshalHeader(data[:HeaderSize])
	if hdr.Magic != Magic {
		return nil, fmt.Errorf("%w: bad magic 0x%08x", ErrFormat, hdr.Magic)
	}
	if hdr.Major() != uint8(Version>>8) {
		return nil, fmt.Errorf("%w: unsupported version %s", ErrFormat, versionString(hdr.Version))
	}

	size := uint64(len(data))
	if hdr.IndexOffset < HeaderSize {
		return nil, fmt.Errorf("%w: index offset %d overlaps header", ErrFormat, hdr.IndexOffset)
	}
	chunks := hdr.ChunksOffset()
	if chunks > size {
		return nil, fmt.Errorf("%w: index [%d,%d) exceeds %d bytes", ErrFormat, hdr.IndexOffset, chunks, size)
	}
	if hdr.FileSize > size {
		return nil, fmt.Errorf("%w: file size %d exceeds %d bytes", ErrFormat, hdr.FileSize, size)
	}
	if hdr.FileSize < chunks {
		return nil, fmt.Errorf("%w: file size %d ends inside the index", ErrFormat, hdr.FileSize)
	}
	// Every entry needs at least the fixed prefix.
	if uint64(hdr.EntryCount)*EntryFixedSize > uint64(hdr.IndexLength) {
		return nil, fmt.Errorf("%w: %d entries cannot fit in %d index bytes", ErrFormat, hdr.EntryCount, hdr.IndexLength)
	}

	c := &Catalog{
		header:  hdr,
		entries: make([]Entry, 0, hdr.EntryCount),
		byName:  make(map[string]int, hdr.EntryCount),
		byHash:  make(map[uint32]int, hdr.EntryCount),
		data:    data,
	}

	index := data[hdr.IndexOffset:chunks]
	pos := 0
	for i := range hdr.EntryCount {
		e, n, err := unmarshalEntry(index[pos:])
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		pos += n
		if e.Offset < chunks || e.End() < e.Offset || e.End() > hdr.FileSize {
			return nil, fmt.Errorf("%w: entry %q range [%d,+%d) outside chunk region [%d,%d)",
				ErrFormat, e.Name, e.Offset, e.Length, chunks, hdr.FileSize)
		}
		if _, dup := c.byName[e.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate entry %q", ErrFormat, e.Name)
		}
		idx := len(c.entries)
		c.entries = append(c.entries, e)
		c.byName[e.Name] = idx
		c.byHash[e.Hash] = idx
	}
	if pos != len(index) {
		return nil, fmt.Errorf("%w: index has %d trailing bytes", ErrFormat, len(index)-pos)
	}
	return c, nil
}

// Header returns the decoded header.
func (c *Catalog) Header() Header {
	return c.header
}

// Bytes returns the buffer the catalog was parsed from.
func (c *Catalog) Bytes() []byte {
	return c.data
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Lookup returns the entry named name.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// LookupHash returns the last entry in index order whose hash is h.
// Hashes can collide; Lookup is authoritative.
func (c *Catalog) LookupHash(h uint32) (Entry, bool) {
	i, ok := c.byHash[h]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Entries returns an iterator over all entries in index order.
func (c *Catalog) Entries() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, e := range c.entries {
			if !yield(e) {
				return
			}
		}
	}
}

// Slice returns the raw chunk bytes for name without copying.
// For compressed entries this is the compressed form; see Read.
func (c *Catalog) Slice(name string) ([]byte, bool) {
	e, ok := c.Lookup(name)
	if !ok {
		return nil, false
	}
	return c.data[e.Offset:e.End():e.End()], true
}

// Read returns the content of name, decompressing it if needed.
// Uncompressed content aliases the catalog buffer.
func (c *Catalog) Read(name string) ([]byte, error) {
	e, ok := c.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	raw := c.data[e.Offset:e.End():e.End()]
	if !e.Compressed() {
		return raw, nil
	}
	return decompressChunk(raw)
}

// Section returns a reader over the raw chunk bytes of name.
func (c *Catalog) Section(name string) (*io.SectionReader, bool) {
	e, ok := c.Lookup(name)
	if !ok {
		return nil, false
	}
	return io.NewSectionReader(bytes.NewReader(c.data), int64(e.Offset), int64(e.Length)), true //nolint:gosec // bounded by len(data)
}
