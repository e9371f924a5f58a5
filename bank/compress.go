package bank

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Compression identifies how chunks are stored.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
)

// String returns the name written into Metadata.Compression.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// ParseCompression parses a compression name.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("bank: unknown compression %q", name)
	}
}

// DefaultMaxDecoderMemory caps the memory a single chunk decompression may use.
const DefaultMaxDecoderMemory = 256 << 20

// EncodeAll and DecodeAll are safe for concurrent use, so one encoder and one
// decoder serve the whole process.
var (
	zstdEncoder = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil,
			zstd.WithEncoderConcurrency(1),
			zstd.WithLowerEncoderMem(true))
	})
	zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(DefaultMaxDecoderMemory))
	})
)

// compressChunk returns the zstd encoding of data and whether it is smaller
// than the input. Callers store the raw bytes when ok is false.
func compressChunk(data []byte) (out []byte, ok bool, err error) {
	enc, err := zstdEncoder()
	if err != nil {
		return nil, false, err
	}
	out = enc.EncodeAll(data, make([]byte, 0, len(data)))
	if len(out) >= len(data) {
		return nil, false, nil
	}
	return out, true, nil
}

func decompressChunk(data []byte) ([]byte, error) {
	dec, err := zstdDecoder()
	if err != nil {
		return nil, err
	}
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("bank: decompress chunk: %w", err)
	}
	return out, nil
}
