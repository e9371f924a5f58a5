package registry

import (
	"bytes"
	"context"
	"strings"
)

// MetadataFragment selects the metadata layer in an oci:// URL.
const MetadataFragment = "metadata"

// Transport serves published banks to the loader's fetch pipeline.
//
// "oci://host/repo:tag" yields the bank blob and
// "oci://host/repo:tag#metadata" yields its metadata JSON.
type Transport struct {
	client *Client
}

// Transport returns a fetch transport backed by c.
func (c *Client) Transport() *Transport {
	return &Transport{client: c}
}

// Fetch implements fetch.Transport.
func (t *Transport) Fetch(ctx context.Context, url string) ([]byte, error) {
	ref, fragment, _ := strings.Cut(url, "#")
	if fragment != MetadataFragment {
		return t.client.PullBlob(ctx, ref)
	}
	meta, err := t.client.PullMetadata(ctx, ref)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := meta.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
