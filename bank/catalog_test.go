package bank

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/aurb/internal/testutil"
)

func encodeKickSnare(t *testing.T) ([]byte, *Metadata) {
	t.Helper()
	blob, meta, err := Encode(kickSnare(), WithBankID("drums"))
	require.NoError(t, err)
	return blob, meta
}

func TestParseLookups(t *testing.T) {
	t.Parallel()

	blob, _ := encodeKickSnare(t)
	cat, err := Parse(blob)
	require.NoError(t, err)

	e, ok := cat.LookupHash(Hash32("snare"))
	require.True(t, ok)
	assert.Equal(t, "snare", e.Name)

	_, ok = cat.Lookup("hat")
	assert.False(t, ok)
	_, ok = cat.Slice("hat")
	assert.False(t, ok)
	_, err = cat.Read("hat")
	require.ErrorIs(t, err, ErrNotFound)

	sec, ok := cat.Section("kick")
	require.True(t, ok)
	data, err := io.ReadAll(sec)
	require.NoError(t, err)
	assert.Equal(t, testutil.FakeWAV(500), data)

	assert.Same(t, &blob[0], &cat.Bytes()[0])
}

func TestParseSliceAliasesBuffer(t *testing.T) {
	t.Parallel()

	blob, _ := encodeKickSnare(t)
	cat, err := Parse(blob)
	require.NoError(t, err)

	e, _ := cat.Lookup("kick")
	s, _ := cat.Slice("kick")
	assert.Same(t, &blob[e.Offset], &s[0])
	assert.Equal(t, len(s), cap(s), "slice must not expose the next chunk")
}

func TestParseHashCollisionLastWins(t *testing.T) {
	t.Parallel()

	blob, _ := encodeKickSnare(t)
	// Force both entries to share a hash.
	binary.LittleEndian.PutUint32(blob[HeaderSize:], 0xdeadbeef)
	binary.LittleEndian.PutUint32(blob[HeaderSize+EntryFixedSize+4:], 0xdeadbeef)

	cat, err := Parse(blob)
	require.NoError(t, err)

	e, ok := cat.LookupHash(0xdeadbeef)
	require.True(t, ok)
	assert.Equal(t, "snare", e.Name)

	kick, ok := cat.Lookup("kick")
	require.True(t, ok, "name lookups are unaffected by hash collisions")
	assert.Equal(t, "kick", kick.Name)
}

func TestParseRejectsCorruptInput(t *testing.T) {
	t.Parallel()

	blob, _ := encodeKickSnare(t)
	le := binary.LittleEndian

	corrupt := func(mutate func(b []byte) []byte) []byte {
		return mutate(bytes.Clone(blob))
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", blob[:HeaderSize-1]},
		{"bad magic", corrupt(func(b []byte) []byte { b[0] ^= 0xff; return b })},
		{"version 2", corrupt(func(b []byte) []byte { le.PutUint16(b[4:], 0x0200); return b })},
		{"truncated chunks", blob[:len(blob)-1]},
		{"index past end", corrupt(func(b []byte) []byte { le.PutUint32(b[16:], 1<<20); return b })},
		{"index inside header", corrupt(func(b []byte) []byte { le.PutUint32(b[12:], 8); return b })},
		{"too many entries", corrupt(func(b []byte) []byte { le.PutUint32(b[8:], 3); return b })},
		{"too few entries", corrupt(func(b []byte) []byte { le.PutUint32(b[8:], 1); return b })},
		{"name overruns index", corrupt(func(b []byte) []byte { le.PutUint16(b[HeaderSize+24:], 200); return b })},
		{"chunk past file size", corrupt(func(b []byte) []byte { le.PutUint32(b[HeaderSize+12:], 10_000); return b })},
		{"chunk in index", corrupt(func(b []byte) []byte { le.PutUint32(b[HeaderSize+4:], 70); return b })},
		{"file size high word", corrupt(func(b []byte) []byte { le.PutUint32(b[24:], 1); return b })},
		{"invalid utf8 name", corrupt(func(b []byte) []byte { b[HeaderSize+26] = 0xff; return b })},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cat, err := Parse(tt.data)
			require.ErrorIs(t, err, ErrFormat)
			assert.Nil(t, cat)
		})
	}
}

func TestParseAcceptsMinorVersion(t *testing.T) {
	t.Parallel()

	blob, _ := encodeKickSnare(t)
	binary.LittleEndian.PutUint16(blob[4:], 0x0107)

	cat, err := Parse(blob)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), cat.Header().Major())
}

func TestMetadataRoundTrip(t *testing.T) {
	t.Parallel()

	blob, meta := encodeKickSnare(t)

	var buf bytes.Buffer
	_, err := meta.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"bankId": "drums"`)

	parsed, err := ParseMetadata(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, meta, parsed)

	a, ok := parsed.Asset("snare")
	require.True(t, ok)
	assert.Equal(t, ModeLazy, a.Mode)

	require.NoError(t, parsed.Verify(blob))
	cat, err := Parse(blob)
	require.NoError(t, err)
	require.NoError(t, parsed.Check(cat))

	tampered := bytes.Clone(blob)
	tampered[len(tampered)-1] ^= 1
	require.ErrorIs(t, parsed.Verify(tampered), ErrDigestMismatch)

	parsed.Assets[0].Length++
	require.ErrorIs(t, parsed.Check(cat), ErrFormat)
}

func TestParseMetadataErrors(t *testing.T) {
	t.Parallel()

	_, err := ParseMetadata([]byte("{"))
	require.Error(t, err)

	_, err = ParseMetadata([]byte(`{"version":"1.0","digest":"sha256:nothex","assets":[]}`))
	require.Error(t, err)

	m, err := ParseMetadata([]byte(`{"version":"1.0","compression":"none","assets":[]}`))
	require.NoError(t, err)
	require.NoError(t, m.Verify([]byte("anything")))

	_, err = ParseMetadata([]byte(`{"version":true,"assets":[]}`))
	require.Error(t, err)
}

func TestParseMetadataNumericVersion(t *testing.T) {
	t.Parallel()

	blob, _ := encodeKickSnare(t)
	cat, err := Parse(blob)
	require.NoError(t, err)
	kick, _ := cat.Lookup("kick")
	snare, _ := cat.Lookup("snare")

	doc := fmt.Sprintf(`{
  "version": 1,
  "compression": "none",
  "assets": [
    {"id": "kick", "offset": %d, "length": %d, "codec": "wav", "mode": "preload"},
    {"id": "snare", "offset": %d, "length": %d, "codec": "wav", "mode": "preload"}
  ]
}`, kick.Offset, kick.Length, snare.Offset, snare.Length)

	m, err := ParseMetadata([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, MetadataVersion("1"), m.Version)
	assert.Empty(t, m.BankID)
	assert.Empty(t, m.Digest)
	require.NoError(t, m.Check(cat))
}
