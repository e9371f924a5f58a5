package bank

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/opencontainers/go-digest"
)

// Metadata is the companion JSON document written next to a bank.
type Metadata struct {
	BankID      string          `json:"bankId,omitempty"`
	Version     MetadataVersion `json:"version"`
	Compression string          `json:"compression"`
	Digest      digest.Digest   `json:"digest,omitempty"`
	Assets      []MetadataAsset `json:"assets"`
}

// MetadataVersion is the metadata format version. Older packers write a
// bare number such as 1; Encode writes "major.minor".
type MetadataVersion string

// UnmarshalJSON accepts a JSON string or number.
func (v *MetadataVersion) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = MetadataVersion(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("version must be a string or number: %w", err)
	}
	*v = MetadataVersion(n.String())
	return nil
}

// MetadataAsset describes one chunk in the companion metadata.
type MetadataAsset struct {
	ID         string `json:"id"`
	Offset     uint64 `json:"offset"`
	Length     uint64 `json:"length"`
	Codec      string `json:"codec"`
	Mode       string `json:"mode"`
	Compressed bool   `json:"compressed,omitempty"`
}

// ParseMetadata decodes companion metadata.
func ParseMetadata(data []byte) (*Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("bank: parse metadata: %w", err)
	}
	if m.Digest != "" {
		if err := m.Digest.Validate(); err != nil {
			return nil, fmt.Errorf("bank: metadata digest: %w", err)
		}
	}
	return &m, nil
}

// WriteTo writes the metadata as indented JSON.
func (m *Metadata) WriteTo(w io.Writer) (int64, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	n, err := w.Write(data)
	return int64(n), err
}

// Asset returns the metadata for id.
func (m *Metadata) Asset(id string) (MetadataAsset, bool) {
	for _, a := range m.Assets {
		if a.ID == id {
			return a, true
		}
	}
	return MetadataAsset{}, false
}

// Verify checks blob against the recorded digest. Metadata without a
// digest verifies any blob.
func (m *Metadata) Verify(blob []byte) error {
	if m.Digest == "" {
		return nil
	}
	verifier := m.Digest.Verifier()
	if _, err := verifier.Write(blob); err != nil {
		return err
	}
	if !verifier.Verified() {
		return fmt.Errorf("%w: expected %s", ErrDigestMismatch, m.Digest)
	}
	return nil
}

// Check reports whether the metadata describes the same layout as c.
func (m *Metadata) Check(c *Catalog) error {
	if len(m.Assets) != c.Len() {
		return fmt.Errorf("%w: metadata lists %d assets, bank has %d", ErrFormat, len(m.Assets), c.Len())
	}
	for _, a := range m.Assets {
		e, ok := c.Lookup(a.ID)
		if !ok {
			return fmt.Errorf("%w: metadata asset %q not in bank", ErrFormat, a.ID)
		}
		if e.Offset != a.Offset || e.Length != a.Length {
			return fmt.Errorf("%w: metadata asset %q range [%d,+%d) differs from index [%d,+%d)",
				ErrFormat, a.ID, a.Offset, a.Length, e.Offset, e.Length)
		}
	}
	return nil
}
