package aurb

import (
	"github.com/meigma/aurb/bank"
	"github.com/meigma/aurb/manifest"
)

// Encode packs assets into a binary bank and returns it with its metadata.
func Encode(assets []BankAsset, opts ...EncodeOption) ([]byte, *Metadata, error) {
	return bank.Encode(assets, opts...)
}

// Parse decodes a binary bank. The catalog aliases data.
func Parse(data []byte) (*Catalog, error) {
	return bank.Parse(data)
}

// ParseManifest decodes a JSON or JSONC bank manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	return manifest.Parse(data)
}

// WithBankID sets the bank id recorded in the metadata.
func WithBankID(id string) EncodeOption {
	return bank.WithBankID(id)
}

// WithCompression sets the chunk compression.
func WithCompression(c Compression) EncodeOption {
	return bank.WithCompression(c)
}
