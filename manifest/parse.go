package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// wireManifest is the on-disk shape shared by JSON and YAML.
type wireManifest struct {
	BankID   string       `json:"bankId" yaml:"bankId"`
	Version  version      `json:"version,omitempty" yaml:"version,omitempty"`
	Defaults *wireDefault `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	Audios   []wireAsset  `json:"audios" yaml:"audios"`
	Groups   []wireGroup  `json:"groups,omitempty" yaml:"groups,omitempty"`
}

type wireDefault struct {
	LoadingMode Mode `json:"loadingMode,omitempty" yaml:"loadingMode,omitempty"`
}

type wireAsset struct {
	Type        Kind                  `json:"type" yaml:"type"`
	ID          string                `json:"id" yaml:"id"`
	Src         string                `json:"src" yaml:"src"`
	LoadingMode Mode                  `json:"loadingMode,omitempty" yaml:"loadingMode,omitempty"`
	SpriteMap   map[string][2]float64 `json:"spriteMap,omitempty" yaml:"spriteMap,omitempty"`
	Fallback    []string              `json:"fallback,omitempty" yaml:"fallback,omitempty"`
	PreDecode   bool                  `json:"preDecode,omitempty" yaml:"preDecode,omitempty"`
}

type wireGroup struct {
	ID       string   `json:"id" yaml:"id"`
	Includes []string `json:"includes" yaml:"includes"`
}

// version accepts both numeric and string versions.
type version string

func (v *version) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = version(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("version must be a string or number: %w", err)
	}
	*v = version(n.String())
	return nil
}

func (v *version) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: version must be a scalar", node.Line)
	}
	*v = version(node.Value)
	return nil
}

// Parse decodes a manifest, detecting JSON (with comments) or YAML from
// the first significant byte, and validates it.
func Parse(data []byte) (*Manifest, error) {
	trimmed := bytes.TrimSpace(jsonc.ToJSON(data))
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return ParseJSON(data)
	}
	return ParseYAML(data)
}

// ParseJSON decodes and validates a JSON manifest. Comments and trailing
// commas are accepted.
func ParseJSON(data []byte) (*Manifest, error) {
	var w wireManifest
	if err := json.Unmarshal(jsonc.ToJSON(data), &w); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifest, err)
	}
	return fromWire(&w)
}

// ParseYAML decodes and validates a YAML manifest.
func ParseYAML(data []byte) (*Manifest, error) {
	var w wireManifest
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifest, err)
	}
	return fromWire(&w)
}

// ReadFile reads and parses a manifest, choosing the format by extension.
func ReadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // caller-supplied manifest path
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var m *Manifest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		m, err = ParseYAML(data)
	case ".json", ".jsonc":
		m, err = ParseJSON(data)
	default:
		m, err = Parse(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func fromWire(w *wireManifest) (*Manifest, error) {
	m := &Manifest{
		BankID:  w.BankID,
		Version: string(w.Version),
		Assets:  make([]Asset, 0, len(w.Audios)),
		Groups:  make([]Group, 0, len(w.Groups)),
	}
	if w.Defaults != nil {
		m.DefaultMode = w.Defaults.LoadingMode
	}

	for i, wa := range w.Audios {
		d := Descriptor{
			ID:        wa.ID,
			Src:       wa.Src,
			Mode:      wa.LoadingMode,
			Fallback:  compact(wa.Fallback),
			PreDecode: wa.PreDecode,
		}
		switch wa.Type {
		case KindSingle, "":
			if len(wa.SpriteMap) > 0 {
				return nil, fmt.Errorf("%w: single asset %q has a spriteMap", ErrManifest, wa.ID)
			}
			m.Assets = append(m.Assets, Single{Descriptor: d})
		case KindSprite:
			clips := make(map[string]Clip, len(wa.SpriteMap))
			for name, span := range wa.SpriteMap {
				clips[name] = Clip{StartMs: span[0], DurationMs: span[1]}
			}
			m.Assets = append(m.Assets, Sprite{Descriptor: d, Clips: clips})
		default:
			return nil, fmt.Errorf("%w: asset %d has unknown type %q", ErrManifest, i, wa.Type)
		}
	}

	for _, wg := range w.Groups {
		m.Groups = append(m.Groups, Group{ID: wg.ID, Includes: wg.Includes})
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// MarshalJSON encodes the manifest in its wire form.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	w := wireManifest{
		BankID:  m.BankID,
		Version: version(m.Version),
		Audios:  make([]wireAsset, 0, len(m.Assets)),
	}
	if m.DefaultMode != "" {
		w.Defaults = &wireDefault{LoadingMode: m.DefaultMode}
	}
	for _, a := range m.Assets {
		d := a.Common()
		wa := wireAsset{
			Type:        a.Kind(),
			ID:          d.ID,
			Src:         d.Src,
			LoadingMode: d.Mode,
			Fallback:    d.Fallback,
			PreDecode:   d.PreDecode,
		}
		if s, ok := a.(Sprite); ok {
			wa.SpriteMap = make(map[string][2]float64, len(s.Clips))
			for name, c := range s.Clips {
				wa.SpriteMap[name] = [2]float64{c.StartMs, c.DurationMs}
			}
		}
		w.Audios = append(w.Audios, wa)
	}
	for _, g := range m.Groups {
		w.Groups = append(w.Groups, wireGroup(g))
	}
	return json.Marshal(w)
}

// MarshalJSON writes numeric versions as numbers.
func (v version) MarshalJSON() ([]byte, error) {
	var n json.Number
	if err := json.Unmarshal([]byte(v), &n); err == nil {
		return []byte(v), nil
	}
	return json.Marshal(string(v))
}

func compact(exts []string) []string {
	out := exts[:0:0]
	for _, e := range exts {
		e = strings.TrimPrefix(strings.TrimSpace(e), ".")
		if e != "" {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
