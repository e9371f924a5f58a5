package bank

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/opencontainers/go-digest"
)

// Asset is one input to the encoder.
type Asset struct {
	// ID is the logical name stored in the index. It must be unique.
	ID string

	// Path is an optional file name or URL used as a codec hint when the
	// content has no recognizable signature.
	Path string

	// Data is the encoded audio content.
	Data []byte
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithBankID sets the bank id recorded in the companion metadata.
func WithBankID(id string) Option {
	return func(e *Encoder) {
		e.bankID = id
	}
}

// WithCompression sets the chunk compression. Chunks that do not shrink
// are stored uncompressed.
func WithCompression(c Compression) Option {
	return func(e *Encoder) {
		e.compression = c
	}
}

// WithLogger sets the logger for codec mismatch warnings and progress.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Encoder) {
		e.logger = logger
	}
}

// Encoder builds banks from ordered assets.
type Encoder struct {
	bankID      string
	compression Compression
	logger      *slog.Logger
}

// NewEncoder creates an Encoder with the given options.
func NewEncoder(opts ...Option) *Encoder {
	e := &Encoder{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Encoder) log() *slog.Logger {
	if e.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.logger
}

// Encode builds a bank from assets and returns the blob with its metadata.
func Encode(assets []Asset, opts ...Option) ([]byte, *Metadata, error) {
	return NewEncoder(opts...).Encode(assets)
}

// EncodeTo streams a bank for assets to w and returns its metadata.
func EncodeTo(ctx context.Context, w io.Writer, assets []Asset, opts ...Option) (*Metadata, error) {
	return NewEncoder(opts...).EncodeTo(ctx, w, assets)
}

// Encode builds a bank from assets and returns the blob with its metadata.
func (e *Encoder) Encode(assets []Asset) ([]byte, *Metadata, error) {
	var buf bytes.Buffer
	meta, err := e.EncodeTo(context.Background(), &buf, assets)
	if err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), meta, nil
}

// plannedAsset is an asset after codec inference and optional compression.
type plannedAsset struct {
	entry  Entry
	format string
	chunk  []byte
}

// EncodeTo streams a bank for assets to w and returns its metadata.
//
// The header, index and chunks are written in file order. The digest in the
// returned metadata covers every byte written.
func (e *Encoder) EncodeTo(ctx context.Context, w io.Writer, assets []Asset) (*Metadata, error) {
	planned, hdr, err := e.plan(ctx, assets)
	if err != nil {
		return nil, err
	}

	digester := digest.Canonical.Digester()
	out := io.MultiWriter(w, digester.Hash())

	head := make([]byte, int(hdr.ChunksOffset()))
	hdr.marshal(head[:HeaderSize])
	pos := HeaderSize
	for i := range planned {
		pos += planned[i].entry.marshal(head[pos:])
	}
	if _, err := out.Write(head); err != nil {
		return nil, fmt.Errorf("write bank index: %w", err)
	}

	for i := range planned {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := out.Write(planned[i].chunk); err != nil {
			return nil, fmt.Errorf("write chunk %q: %w", planned[i].entry.Name, err)
		}
	}

	meta := &Metadata{
		BankID:      e.bankID,
		Version:     MetadataVersion(versionString(hdr.Version)),
		Compression: e.compression.String(),
		Digest:      digester.Digest(),
		Assets:      make([]MetadataAsset, 0, len(planned)),
	}
	for i := range planned {
		p := &planned[i]
		meta.Assets = append(meta.Assets, MetadataAsset{
			ID:         p.entry.Name,
			Offset:     p.entry.Offset,
			Length:     p.entry.Length,
			Codec:      p.format,
			Mode:       SuggestedMode(p.format),
			Compressed: p.entry.Compressed(),
		})
	}

	e.log().Debug("bank encoded",
		"bank", e.bankID,
		"entries", hdr.EntryCount,
		"size", hdr.FileSize,
		"digest", meta.Digest)
	return meta, nil
}

// plan infers codecs, compresses chunks and lays out the index and chunk
// region. No bytes are written until the whole layout is known.
func (e *Encoder) plan(ctx context.Context, assets []Asset) ([]plannedAsset, Header, error) {
	if len(assets) == 0 {
		return nil, Header{}, ErrEmptyBank
	}
	if uint64(len(assets)) > math.MaxUint32 {
		return nil, Header{}, fmt.Errorf("%w: %d entries", ErrSizeOverflow, len(assets))
	}

	seen := make(map[string]struct{}, len(assets))
	planned := make([]plannedAsset, len(assets))
	indexLen := 0
	var flags uint16

	for i, a := range assets {
		if err := ctx.Err(); err != nil {
			return nil, Header{}, err
		}
		if a.ID == "" {
			return nil, Header{}, fmt.Errorf("%w: asset %d has an empty id", ErrInvalidName, i)
		}
		if len(a.ID) > MaxNameLength {
			return nil, Header{}, fmt.Errorf("%w: id of asset %d is %d bytes", ErrInvalidName, i, len(a.ID))
		}
		if _, dup := seen[a.ID]; dup {
			return nil, Header{}, fmt.Errorf("%w: %q", ErrDuplicateID, a.ID)
		}
		seen[a.ID] = struct{}{}

		hint := a.Path
		if hint == "" {
			hint = a.ID
		}
		format, err := InferFormat(hint, a.Data, e.log())
		if err != nil {
			return nil, Header{}, err
		}

		p := plannedAsset{
			entry: Entry{
				Hash:  Hash32(a.ID),
				Codec: CodecForFormat(format),
				Name:  a.ID,
			},
			format: format,
			chunk:  a.Data,
		}
		if e.compression == CompressionZstd {
			compressed, ok, err := compressChunk(a.Data)
			if err != nil {
				return nil, Header{}, fmt.Errorf("compress %q: %w", a.ID, err)
			}
			if ok {
				p.chunk = compressed
				p.entry.Flags |= EntryFlagZstd
				flags |= FlagCompressed
			}
		}
		p.entry.Length = uint64(len(p.chunk))
		indexLen += p.entry.encodedSize()
		planned[i] = p
	}

	if uint64(HeaderSize+indexLen) > math.MaxUint32 {
		return nil, Header{}, fmt.Errorf("%w: index is %d bytes", ErrSizeOverflow, indexLen)
	}

	hdr := Header{
		Magic:       Magic,
		Version:     Version,
		Flags:       flags,
		EntryCount:  uint32(len(planned)), //nolint:gosec // bounded above
		IndexOffset: HeaderSize,
		IndexLength: uint32(indexLen), //nolint:gosec // bounded above
	}
	cursor := hdr.ChunksOffset()
	for i := range planned {
		planned[i].entry.Offset = cursor
		cursor += planned[i].entry.Length
	}
	hdr.FileSize = cursor
	return planned, hdr, nil
}

func versionString(v uint16) string {
	return fmt.Sprintf("%d.%d", v>>8, v&0xff)
}
