//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/aurb"
)

// --- Error Scenarios ---

func TestError_NotFound(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	ref := testRef(getRegistry(t), "nonexistent-bank-12345")

	_, err := client.Pull(context.Background(), ref)
	require.Error(t, err)
	assert.ErrorIs(t, err, aurb.ErrNotFound)

	err = client.LoadRef(context.Background(), ref)
	assert.ErrorIs(t, err, aurb.ErrNotFound)
}

func TestError_InvalidReference(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	addr := getRegistry(t)
	for _, ref := range []string{
		"not-a-valid-ref",
		"oci://" + addr + "/UPPER/case:v1",
		"",
	} {
		t.Run(ref, func(t *testing.T) {
			t.Parallel()
			_, err := client.Registry().Fetch(context.Background(), ref)
			assert.Error(t, err)
		})
	}
}

func TestError_PushRejectsNonBank(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	ref := testRef(getRegistry(t), "push-junk")

	_, err := client.Push(context.Background(), ref, []byte("definitely not a bank"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, aurb.ErrFormat)
}

func TestError_PushRequiresTag(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	blob, meta := encodeKit(t, "drums")
	_, err := client.Push(context.Background(), "oci://"+getRegistry(t)+"/test/untagged", blob, meta)
	assert.ErrorIs(t, err, aurb.ErrInvalidReference)
}

func TestError_PushRejectsMismatchedMetadata(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	ref := testRef(getRegistry(t), "push-mismatch")
	blob, _ := encodeKit(t, "drums")
	_, otherMeta := encodeKit(t, "other", aurb.WithCompression(aurb.CompressionZstd))

	_, err := client.Push(context.Background(), ref, blob, otherMeta)
	assert.ErrorIs(t, err, aurb.ErrBankDigestMismatch)
}
