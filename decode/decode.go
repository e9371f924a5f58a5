// Package decode turns encoded audio into PCM buffers.
//
// [PCM] is the default [Decoder]. It handles WAV, AIFF, Ogg Vorbis and MP3;
// AAC and Opus content fails with [ErrDecode].
package decode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/meigma/aurb/bank"
)

// ErrDecode is returned when content cannot be decoded.
var ErrDecode = errors.New("decode: cannot decode audio")

// Buffer is decoded audio: interleaved float32 samples in [-1, 1].
type Buffer struct {
	SampleRate int
	Channels   int
	Samples    []float32
}

// Frames returns the number of sample frames.
func (b *Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the playback length of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// Decoder converts encoded audio bytes into a Buffer. The hint is a format
// name (see bank.FormatWAV and friends) used when the content itself does
// not identify its format.
type Decoder interface {
	Decode(ctx context.Context, data []byte, hint string) (*Buffer, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(ctx context.Context, data []byte, hint string) (*Buffer, error)

// Decode calls f.
func (f DecoderFunc) Decode(ctx context.Context, data []byte, hint string) (*Buffer, error) {
	return f(ctx, data, hint)
}

type formatDecoder func(data []byte) (*Buffer, error)

var formatDecoders = map[string]formatDecoder{
	bank.FormatWAV:  decodeWAV,
	bank.FormatAIFF: decodeAIFF,
	bank.FormatOGG:  decodeVorbis,
	bank.FormatMP3:  decodeMP3,
}

// PCM is the default Decoder.
type PCM struct{}

// Decode sniffs the format of data, falling back to hint, and decodes it.
// Malformed input never panics; third-party parser panics become ErrDecode.
func (PCM) Decode(ctx context.Context, data []byte, hint string) (buf *Buffer, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	format := bank.SniffFormat(data)
	if format == "" {
		format = strings.ToLower(hint)
	}
	dec, ok := formatDecoders[format]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported format %q", ErrDecode, format)
	}
	defer func() {
		if r := recover(); r != nil {
			buf = nil
			err = fmt.Errorf("%w: %s: %v", ErrDecode, format, r)
		}
	}()
	buf, err = dec(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, format, err)
	}
	if buf.Channels <= 0 || buf.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: %s: invalid layout %d ch @ %d Hz", ErrDecode, format, buf.Channels, buf.SampleRate)
	}
	return buf, nil
}

var mimeByExt = map[string]string{
	"aac":  "audio/aac",
	"aif":  "audio/aiff",
	"aiff": "audio/aiff",
	"flac": "audio/flac",
	"m4a":  "audio/mp4",
	"mp3":  "audio/mpeg",
	"mp4":  "audio/mp4",
	"oga":  "audio/ogg",
	"ogg":  "audio/ogg",
	"opus": `audio/ogg; codecs="opus"`,
	"wav":  "audio/wav",
	"weba": "audio/webm",
	"webm": "audio/webm",
}

// MIMEType returns the audio MIME type for a file extension, or "".
func MIMEType(ext string) string {
	return mimeByExt[strings.ToLower(strings.TrimPrefix(ext, "."))]
}

// CanDecode reports whether PCM can decode files with the given extension.
func CanDecode(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if MIMEType(ext) == "" {
		return false
	}
	_, ok := formatDecoders[bank.FormatFromExt("x."+ext)]
	return ok
}

// normalize converts integer PCM of the given bit depth to float32.
func normalize(data []int, bitDepth int) []float32 {
	if bitDepth <= 0 || bitDepth > 32 {
		bitDepth = 16
	}
	scale := float32(int64(1) << (bitDepth - 1))
	out := make([]float32, len(data))
	for i, v := range data {
		out[i] = float32(v) / scale
	}
	return out
}
