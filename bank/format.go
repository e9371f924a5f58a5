package bank

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

// Format constants.
const (
	// Magic identifies a bank ("AURB" read as a little-endian uint32).
	Magic uint32 = 0x41555242

	// Version is the format version written by Encode (major 1, minor 0).
	Version uint16 = 0x0100

	// HeaderSize is the fixed size of the bank header in bytes.
	HeaderSize = 64

	// EntryFixedSize is the size of an index entry excluding its name bytes.
	EntryFixedSize = 26

	// MaxNameLength is the longest UTF-8 name an index entry can carry.
	MaxNameLength = math.MaxUint16
)

// Header flags.
const (
	// FlagCompressed marks a bank where at least one chunk is zstd-compressed.
	FlagCompressed uint16 = 1 << 0
)

// Entry flags.
const (
	// EntryFlagZstd marks a chunk stored zstd-compressed.
	EntryFlagZstd uint8 = 1 << 0
)

// Header is the fixed 64-byte bank header.
type Header struct {
	Magic       uint32
	Version     uint16
	Flags       uint16
	EntryCount  uint32
	IndexOffset uint32
	IndexLength uint32

	// FileSize is stored on disk as two 32-bit halves.
	FileSize uint64
}

// ChunksOffset returns the offset of the first chunk byte.
func (h Header) ChunksOffset() uint64 {
	return uint64(h.IndexOffset) + uint64(h.IndexLength)
}

// Major returns the major component of the version.
func (h Header) Major() uint8 {
	return uint8(h.Version >> 8)
}

// VersionString returns the version as "major.minor".
func (h Header) VersionString() string {
	return versionString(h.Version)
}

func (h *Header) marshal(dst []byte) {
	_ = dst[HeaderSize-1]
	binary.LittleEndian.PutUint32(dst[0:4], h.Magic)
	binary.LittleEndian.PutUint16(dst[4:6], h.Version)
	binary.LittleEndian.PutUint16(dst[6:8], h.Flags)
	binary.LittleEndian.PutUint32(dst[8:12], h.EntryCount)
	binary.LittleEndian.PutUint32(dst[12:16], h.IndexOffset)
	binary.LittleEndian.PutUint32(dst[16:20], h.IndexLength)
	lo, hi := splitUint64(h.FileSize)
	binary.LittleEndian.PutUint32(dst[20:24], lo)
	binary.LittleEndian.PutUint32(dst[24:28], hi)
	clear(dst[28:HeaderSize])
}

func unmarshalHeader(src []byte) Header {
	_ = src[HeaderSize-1]
	return Header{
		Magic:       binary.LittleEndian.Uint32(src[0:4]),
		Version:     binary.LittleEndian.Uint16(src[4:6]),
		Flags:       binary.LittleEndian.Uint16(src[6:8]),
		EntryCount:  binary.LittleEndian.Uint32(src[8:12]),
		IndexOffset: binary.LittleEndian.Uint32(src[12:16]),
		IndexLength: binary.LittleEndian.Uint32(src[16:20]),
		FileSize: joinUint64(
			binary.LittleEndian.Uint32(src[20:24]),
			binary.LittleEndian.Uint32(src[24:28]),
		),
	}
}

// Entry describes one asset in the bank index.
type Entry struct {
	// Hash is the FNV-1a hash of Name. It is not unique; Name is the key.
	Hash uint32

	// Offset is the absolute byte offset of the chunk within the bank.
	Offset uint64

	// Length is the chunk length in bytes. For compressed chunks this is
	// the compressed length.
	Length uint64

	// Codec is the wire codec tag.
	Codec Codec

	// Flags holds per-entry flags (see EntryFlagZstd).
	Flags uint8

	// Name is the logical asset id.
	Name string
}

// Compressed reports whether the chunk is stored zstd-compressed.
func (e Entry) Compressed() bool {
	return e.Flags&EntryFlagZstd != 0
}

// End returns the offset one past the last chunk byte.
func (e Entry) End() uint64 {
	return e.Offset + e.Length
}

// encodedSize returns the serialized size of the entry in the index.
func (e *Entry) encodedSize() int {
	return EntryFixedSize + len(e.Name)
}

// marshal writes the entry into dst and returns the bytes written.
// The caller must size dst to at least encodedSize.
func (e *Entry) marshal(dst []byte) int {
	binary.LittleEndian.PutUint32(dst[0:4], e.Hash)
	offLo, offHi := splitUint64(e.Offset)
	binary.LittleEndian.PutUint32(dst[4:8], offLo)
	binary.LittleEndian.PutUint32(dst[8:12], offHi)
	lenLo, lenHi := splitUint64(e.Length)
	binary.LittleEndian.PutUint32(dst[12:16], lenLo)
	binary.LittleEndian.PutUint32(dst[16:20], lenHi)
	dst[20] = uint8(e.Codec)
	dst[21] = e.Flags
	dst[22] = 0
	dst[23] = 0
	binary.LittleEndian.PutUint16(dst[24:26], uint16(len(e.Name))) //nolint:gosec // name length validated by the encoder
	copy(dst[EntryFixedSize:], e.Name)
	return e.encodedSize()
}

// unmarshalEntry parses one entry from the start of src.
// It returns the entry and the number of bytes consumed.
func unmarshalEntry(src []byte) (Entry, int, error) {
	if len(src) < EntryFixedSize {
		return Entry{}, 0, fmt.Errorf("%w: truncated index entry", ErrFormat)
	}
	nameLen := int(binary.LittleEndian.Uint16(src[24:26]))
	size := EntryFixedSize + nameLen
	if len(src) < size {
		return Entry{}, 0, fmt.Errorf("%w: truncated entry name", ErrFormat)
	}
	name := src[EntryFixedSize:size]
	if !utf8.Valid(name) {
		return Entry{}, 0, fmt.Errorf("%w: entry name is not valid UTF-8", ErrFormat)
	}
	return Entry{
		Hash: binary.LittleEndian.Uint32(src[0:4]),
		Offset: joinUint64(
			binary.LittleEndian.Uint32(src[4:8]),
			binary.LittleEndian.Uint32(src[8:12]),
		),
		Length: joinUint64(
			binary.LittleEndian.Uint32(src[12:16]),
			binary.LittleEndian.Uint32(src[16:20]),
		),
		Codec: Codec(src[20]),
		Flags: src[21],
		Name:  string(name),
	}, size, nil
}

func splitUint64(v uint64) (lo, hi uint32) {
	return uint32(v), uint32(v >> 32) //nolint:gosec // intentional truncation into halves
}

func joinUint64(lo, hi uint32) uint64 {
	return uint64(hi)<<32 | uint64(lo)
}
