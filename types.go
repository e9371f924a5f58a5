package aurb

import (
	"github.com/meigma/aurb/bank"
	"github.com/meigma/aurb/decode"
	"github.com/meigma/aurb/loader"
	"github.com/meigma/aurb/manifest"
	"github.com/meigma/aurb/registry"
)

// --- Re-exports from manifest ---

// Manifest is a bank manifest.
type Manifest = manifest.Manifest

// Asset is a manifest entry: a Single or a Sprite.
type Asset = manifest.Asset

// AssetDescriptor holds the fields shared by every asset kind.
type AssetDescriptor = manifest.Descriptor

// Single is a one-sound asset.
type Single = manifest.Single

// Sprite is an asset holding named clips.
type Sprite = manifest.Sprite

// Group names a set of asset ids released together.
type Group = manifest.Group

// Mode is an asset loading strategy.
type Mode = manifest.Mode

// Loading modes.
const (
	ModePreload = manifest.ModePreload
	ModeStream  = manifest.ModeStream
	ModeLazy    = manifest.ModeLazy
)

// --- Re-exports from bank ---

// BankAsset is one input to the bank encoder.
type BankAsset = bank.Asset

// Catalog is a parsed binary bank.
type Catalog = bank.Catalog

// Metadata is the companion document of a binary bank.
type Metadata = bank.Metadata

// Compression identifies how bank chunks are stored.
type Compression = bank.Compression

// Compression constants.
const (
	CompressionNone = bank.CompressionNone
	CompressionZstd = bank.CompressionZstd
)

// EncodeOption configures bank encoding.
type EncodeOption = bank.Option

// --- Re-exports from loader, decode and registry ---

// Clip is a sprite region in seconds.
type Clip = loader.Clip

// Stats is a snapshot of loader state.
type Stats = loader.Stats

// Buffer is decoded PCM audio.
type Buffer = decode.Buffer

// Bank is a bank pulled from a registry.
type Bank = registry.Bank

// PushOption configures Push.
type PushOption = registry.PushOption
