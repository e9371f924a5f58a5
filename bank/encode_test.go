package bank

import (
	"bytes"
	"context"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/aurb/internal/testutil"
)

func kickSnare() []Asset {
	return []Asset{
		{ID: "kick", Path: "kick.wav", Data: testutil.FakeWAV(500)},
		{ID: "snare", Path: "snare.ogg", Data: testutil.FakeOgg(700)},
	}
}

func TestEncodeKickSnare(t *testing.T) {
	t.Parallel()

	assets := kickSnare()
	blob, meta, err := Encode(assets, WithBankID("drums"))
	require.NoError(t, err)

	wantSize := 64 + (26 + 4) + (26 + 5) + 500 + 700
	assert.Len(t, blob, wantSize)

	hdr := unmarshalHeader(blob[:HeaderSize])
	assert.Equal(t, Magic, hdr.Magic)
	assert.Equal(t, Version, hdr.Version)
	assert.Equal(t, uint32(2), hdr.EntryCount)
	assert.Equal(t, uint32(HeaderSize), hdr.IndexOffset)
	assert.Equal(t, uint32(30+31), hdr.IndexLength)
	assert.Equal(t, uint64(wantSize), hdr.FileSize)
	assert.Equal(t, make([]byte, 36), blob[28:64], "reserved header bytes must be zero")

	cat, err := Parse(blob)
	require.NoError(t, err)
	for _, a := range assets {
		got, ok := cat.Slice(a.ID)
		require.True(t, ok, "entry %q not found", a.ID)
		assert.Equal(t, a.Data, got)
	}

	kick, _ := cat.Lookup("kick")
	snare, _ := cat.Lookup("snare")
	assert.Equal(t, CodecWAV, kick.Codec)
	assert.Equal(t, CodecOGG, snare.Codec)
	assert.Equal(t, uint64(64+61), kick.Offset)
	assert.Equal(t, kick.End(), snare.Offset)

	require.NotNil(t, meta)
	assert.Equal(t, "drums", meta.BankID)
	assert.Equal(t, MetadataVersion("1.0"), meta.Version)
	assert.Equal(t, "none", meta.Compression)
	assert.Equal(t, digest.FromBytes(blob), meta.Digest)
	require.Len(t, meta.Assets, 2)
	assert.Equal(t, MetadataAsset{ID: "kick", Offset: 125, Length: 500, Codec: "wav", Mode: ModePreload}, meta.Assets[0])
	assert.Equal(t, MetadataAsset{ID: "snare", Offset: 625, Length: 700, Codec: "ogg", Mode: ModeLazy}, meta.Assets[1])
}

func TestEncodeWireLayout(t *testing.T) {
	t.Parallel()

	blob, _, err := Encode([]Asset{{ID: "kick", Data: testutil.FakeWAV(16)}})
	require.NoError(t, err)

	le := binary.LittleEndian
	assert.Equal(t, []byte("BRUA"), blob[0:4])
	assert.Equal(t, uint16(0x0100), le.Uint16(blob[4:6]))
	assert.Equal(t, uint32(len(blob)), le.Uint32(blob[20:24]))
	assert.Equal(t, uint32(0), le.Uint32(blob[24:28]))

	entry := blob[HeaderSize:]
	assert.Equal(t, Hash32("kick"), le.Uint32(entry[0:4]))
	assert.Equal(t, uint32(HeaderSize+EntryFixedSize+4), le.Uint32(entry[4:8]))
	assert.Equal(t, uint32(0), le.Uint32(entry[8:12]))
	assert.Equal(t, uint32(16), le.Uint32(entry[12:16]))
	assert.Equal(t, uint32(0), le.Uint32(entry[16:20]))
	assert.Equal(t, byte(CodecWAV), entry[20])
	assert.Equal(t, []byte{0, 0, 0}, entry[21:24])
	assert.Equal(t, uint16(4), le.Uint16(entry[24:26]))
	assert.Equal(t, "kick", string(entry[26:30]))
}

func TestEncodeStructuralIntegrity(t *testing.T) {
	t.Parallel()

	assets := []Asset{
		{ID: "ui/click", Data: testutil.FakeWAV(33)},
		{ID: "música/tema", Path: "tema.ogg", Data: testutil.FakeOgg(1024)},
		{ID: "voice", Path: "voice.m4a", Data: []byte("\x00\x00\x00\x18ftypM4A payload")},
		{ID: "\U0001F3B5", Path: "note.mp3", Data: []byte("ID3\x04\x00\x00frames")},
	}
	blob, _, err := Encode(assets)
	require.NoError(t, err)

	cat, err := Parse(blob)
	require.NoError(t, err)
	hdr := cat.Header()
	assert.Equal(t, int(hdr.EntryCount), cat.Len())

	indexLen := 0
	cursor := hdr.ChunksOffset()
	i := 0
	for e := range cat.Entries() {
		assert.Equal(t, assets[i].ID, e.Name, "entries must keep insertion order")
		assert.Equal(t, Hash32(e.Name), e.Hash)
		indexLen += EntryFixedSize + len(e.Name)
		assert.Equal(t, cursor, e.Offset, "chunk %q must start where the previous ended", e.Name)
		cursor = e.End()
		i++
	}
	assert.Equal(t, int(hdr.IndexLength), indexLen)
	assert.Equal(t, hdr.FileSize, cursor)
	assert.Equal(t, uint64(len(blob)), hdr.FileSize)

	voice, _ := cat.Lookup("voice")
	assert.Equal(t, CodecAAC, voice.Codec)
	note, _ := cat.Lookup("\U0001F3B5")
	assert.Equal(t, CodecOther, note.Codec)
}

func TestEncodeErrors(t *testing.T) {
	t.Parallel()

	_, _, err := Encode(nil)
	require.ErrorIs(t, err, ErrEmptyBank)

	_, _, err = Encode([]Asset{{ID: "notes", Path: "notes.txt", Data: []byte("text")}})
	require.ErrorIs(t, err, ErrUnsupportedCodec)

	_, _, err = Encode([]Asset{
		{ID: "kick", Data: testutil.FakeWAV(8)},
		{ID: "kick", Data: testutil.FakeWAV(9)},
	})
	require.ErrorIs(t, err, ErrDuplicateID)

	_, _, err = Encode([]Asset{{ID: "", Data: testutil.FakeWAV(8)}})
	require.ErrorIs(t, err, ErrInvalidName)

	_, _, err = Encode([]Asset{{ID: strings.Repeat("x", MaxNameLength+1), Data: testutil.FakeWAV(8)}})
	require.ErrorIs(t, err, ErrInvalidName)
}

func TestEncodeToCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	_, err := EncodeTo(ctx, &buf, kickSnare())
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, buf.Len())
}

func TestEncodeCompressed(t *testing.T) {
	t.Parallel()

	// Highly compressible chunk followed by one that cannot shrink.
	loud := append(testutil.FakeWAV(12), bytes.Repeat([]byte{0x7f}, 4096)...)
	tiny := testutil.FakeOgg(4)
	assets := []Asset{
		{ID: "loud", Data: loud},
		{ID: "tiny", Data: tiny},
	}

	blob, meta, err := Encode(assets, WithCompression(CompressionZstd))
	require.NoError(t, err)
	assert.Equal(t, "zstd", meta.Compression)
	assert.Less(t, len(blob), len(loud))

	cat, err := Parse(blob)
	require.NoError(t, err)
	assert.NotZero(t, cat.Header().Flags&FlagCompressed)

	e, _ := cat.Lookup("loud")
	assert.True(t, e.Compressed())
	assert.True(t, meta.Assets[0].Compressed)
	got, err := cat.Read("loud")
	require.NoError(t, err)
	assert.Equal(t, loud, got)

	e, _ = cat.Lookup("tiny")
	assert.False(t, e.Compressed(), "chunks that do not shrink are stored raw")
	got, err = cat.Read("tiny")
	require.NoError(t, err)
	assert.Equal(t, tiny, got)
}
