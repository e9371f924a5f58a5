// Package manifest models bank manifests: the loader-facing description of
// a bank's assets, their loading modes and their groups.
//
// Manifests are authored as JSON (comments and trailing commas allowed) or
// YAML. An asset is either a Single or a Sprite; only sprites carry clips.
package manifest

import (
	"errors"
	"fmt"
	"slices"
)

// ErrManifest is returned for malformed or invalid manifests.
var ErrManifest = errors.New("manifest: invalid manifest")

// Mode is an asset loading strategy.
type Mode string

const (
	// ModePreload fetches and decodes the asset at load time.
	ModePreload Mode = "preload"
	// ModeStream binds a buffering media handle without fetching up front.
	ModeStream Mode = "stream"
	// ModeLazy records the source and decodes on first EnsureReady.
	ModeLazy Mode = "lazy"
)

// Valid reports whether m names a known mode. The empty mode is not valid.
func (m Mode) Valid() bool {
	switch m {
	case ModePreload, ModeStream, ModeLazy:
		return true
	default:
		return false
	}
}

// Kind discriminates asset variants.
type Kind string

const (
	KindSingle Kind = "single"
	KindSprite Kind = "sprite"
)

// Descriptor holds the fields common to every asset kind.
type Descriptor struct {
	// ID is the cache key for the asset.
	ID string

	// Src is the primary source path or URL.
	Src string

	// Mode is the requested loading mode. Empty means "use the defaults".
	Mode Mode

	// Fallback lists alternative extensions tried when the primary source
	// cannot be decoded, in order of preference.
	Fallback []string

	// PreDecode forces preload regardless of Mode.
	PreDecode bool
}

// Asset is a Single or a Sprite.
type Asset interface {
	Kind() Kind
	Common() Descriptor
	isAsset()
}

// Single is a standalone sound.
type Single struct {
	Descriptor
}

// Kind returns KindSingle.
func (Single) Kind() Kind { return KindSingle }

// Common returns the shared descriptor fields.
func (s Single) Common() Descriptor { return s.Descriptor }

func (Single) isAsset() {}

// Clip is a region of a sprite in milliseconds.
type Clip struct {
	StartMs    float64
	DurationMs float64
}

// Seconds returns the clip bounds in seconds.
func (c Clip) Seconds() (start, end float64) {
	return c.StartMs / 1000, (c.StartMs + c.DurationMs) / 1000
}

// Sprite is one source holding many named clips.
type Sprite struct {
	Descriptor
	Clips map[string]Clip
}

// Kind returns KindSprite.
func (Sprite) Kind() Kind { return KindSprite }

// Common returns the shared descriptor fields.
func (s Sprite) Common() Descriptor { return s.Descriptor }

func (Sprite) isAsset() {}

// Group is a named set of asset ids that share one extra reference.
type Group struct {
	ID       string
	Includes []string
}

// Manifest describes a bank for the loader.
type Manifest struct {
	BankID      string
	Version     string
	DefaultMode Mode
	Assets      []Asset
	Groups      []Group
}

// ResolveMode returns the effective loading mode for d: PreDecode forces
// preload, then the asset's own mode, then def, then preload.
func ResolveMode(d Descriptor, def Mode) Mode {
	switch {
	case d.PreDecode:
		return ModePreload
	case d.Mode != "":
		return d.Mode
	case def != "":
		return def
	default:
		return ModePreload
	}
}

// ModeFor returns the effective loading mode of a within m.
func (m *Manifest) ModeFor(a Asset) Mode {
	return ResolveMode(a.Common(), m.DefaultMode)
}

// Asset returns the asset with the given id.
func (m *Manifest) Asset(id string) (Asset, bool) {
	for _, a := range m.Assets {
		if a.Common().ID == id {
			return a, true
		}
	}
	return nil, false
}

// Validate checks structural invariants: a bank id, unique non-empty asset
// ids with sources, known modes, non-negative clips, and group ids that do
// not shadow asset ids.
func (m *Manifest) Validate() error {
	if m.BankID == "" {
		return fmt.Errorf("%w: bankId is required", ErrManifest)
	}
	if m.DefaultMode != "" && !m.DefaultMode.Valid() {
		return fmt.Errorf("%w: unknown default loading mode %q", ErrManifest, m.DefaultMode)
	}

	ids := make(map[string]struct{}, len(m.Assets))
	for i, a := range m.Assets {
		if a == nil {
			return fmt.Errorf("%w: asset %d is nil", ErrManifest, i)
		}
		d := a.Common()
		if d.ID == "" {
			return fmt.Errorf("%w: asset %d has no id", ErrManifest, i)
		}
		if _, dup := ids[d.ID]; dup {
			return fmt.Errorf("%w: duplicate asset id %q", ErrManifest, d.ID)
		}
		ids[d.ID] = struct{}{}
		if d.Src == "" {
			return fmt.Errorf("%w: asset %q has no src", ErrManifest, d.ID)
		}
		if d.Mode != "" && !d.Mode.Valid() {
			return fmt.Errorf("%w: asset %q has unknown loading mode %q", ErrManifest, d.ID, d.Mode)
		}
		if s, ok := a.(Sprite); ok {
			if len(s.Clips) == 0 {
				return fmt.Errorf("%w: sprite %q has no clips", ErrManifest, d.ID)
			}
			for name, c := range s.Clips {
				if c.StartMs < 0 || c.DurationMs < 0 {
					return fmt.Errorf("%w: sprite %q clip %q has a negative bound", ErrManifest, d.ID, name)
				}
			}
		}
	}

	groups := make(map[string]struct{}, len(m.Groups))
	for i, g := range m.Groups {
		if g.ID == "" {
			return fmt.Errorf("%w: group %d has no id", ErrManifest, i)
		}
		if _, dup := groups[g.ID]; dup {
			return fmt.Errorf("%w: duplicate group id %q", ErrManifest, g.ID)
		}
		groups[g.ID] = struct{}{}
		if _, clash := ids[g.ID]; clash {
			return fmt.Errorf("%w: group id %q shadows an asset id", ErrManifest, g.ID)
		}
		if slices.Contains(g.Includes, "") {
			return fmt.Errorf("%w: group %q includes an empty id", ErrManifest, g.ID)
		}
	}
	return nil
}
