package bank

import (
	"bytes"
	"fmt"
	"log/slog"
	"path"
	"strings"
)

// Codec is the one-byte codec tag stored in each index entry.
type Codec uint8

const (
	CodecWAV Codec = iota
	CodecOGG
	CodecAAC
	CodecOther
)

// String returns the human-readable name of the codec tag.
func (c Codec) String() string {
	switch c {
	case CodecWAV:
		return "wav"
	case CodecOGG:
		return "ogg"
	case CodecAAC:
		return "aac"
	case CodecOther:
		return "other"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// Container format names recognized by codec inference. A format is finer
// grained than a Codec: mp3, opus and aiff all travel as CodecOther.
const (
	FormatWAV  = "wav"
	FormatOGG  = "ogg"
	FormatOpus = "opus"
	FormatAAC  = "aac"
	FormatMP3  = "mp3"
	FormatAIFF = "aiff"
)

// Loading mode suggestions written into Metadata.
const (
	ModePreload = "preload"
	ModeLazy    = "lazy"
)

// CodecForFormat maps a format name to its wire codec tag.
func CodecForFormat(format string) Codec {
	switch format {
	case FormatWAV:
		return CodecWAV
	case FormatOGG:
		return CodecOGG
	case FormatAAC:
		return CodecAAC
	default:
		return CodecOther
	}
}

// FormatForCodec returns the format implied by a codec tag, or "" for CodecOther.
func FormatForCodec(c Codec) string {
	switch c {
	case CodecWAV:
		return FormatWAV
	case CodecOGG:
		return FormatOGG
	case CodecAAC:
		return FormatAAC
	default:
		return ""
	}
}

// SuggestedMode returns the default loading mode for a format: formats that
// stream well are deferred, everything else is preloaded.
func SuggestedMode(format string) string {
	switch format {
	case FormatOGG, FormatOpus:
		return ModeLazy
	default:
		return ModePreload
	}
}

// FormatFromExt infers a format from a file name or URL extension.
// Query strings and fragments are ignored. It returns "" when unknown.
func FormatFromExt(name string) string {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	switch ext {
	case "wav", "wave":
		return FormatWAV
	case "ogg", "oga":
		return FormatOGG
	case "aac", "m4a", "mp4":
		return FormatAAC
	case "opus":
		return FormatOpus
	case "mp3":
		return FormatMP3
	case "aif", "aiff", "aifc":
		return FormatAIFF
	default:
		return ""
	}
}

// SniffFormat infers a format from the leading bytes of data.
// It returns "" when no known signature matches.
func SniffFormat(data []byte) string {
	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return FormatWAV
	case len(data) >= 4 && bytes.Equal(data[0:4], []byte("OggS")):
		if len(data) >= 36 && bytes.Equal(data[28:36], []byte("OpusHead")) {
			return FormatOpus
		}
		return FormatOGG
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("FORM")) &&
		(bytes.Equal(data[8:12], []byte("AIFF")) || bytes.Equal(data[8:12], []byte("AIFC"))):
		return FormatAIFF
	case len(data) >= 3 && bytes.Equal(data[0:3], []byte("ID3")):
		return FormatMP3
	case len(data) >= 8 && bytes.Equal(data[4:8], []byte("ftyp")):
		return FormatAAC
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xF6 == 0xF0:
		// ADTS: 12-bit sync, layer bits zero.
		return FormatAAC
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0 && data[1]&0x06 != 0:
		// MPEG audio frame sync with a non-reserved layer.
		return FormatMP3
	default:
		return ""
	}
}

// InferFormat determines the format of an asset from its content, falling
// back to the extension of name. When both are known and disagree, the
// content wins and a warning is logged. Unknown formats fail with
// ErrUnsupportedCodec.
func InferFormat(name string, data []byte, logger *slog.Logger) (string, error) {
	extFormat := FormatFromExt(name)
	headerFormat := SniffFormat(data)

	if headerFormat != "" {
		if extFormat != "" && extFormat != headerFormat && logger != nil {
			logger.Warn("codec mismatch",
				"name", name,
				"extension", extFormat,
				"header", headerFormat)
		}
		return headerFormat, nil
	}
	if extFormat != "" {
		return extFormat, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedCodec, name)
}
