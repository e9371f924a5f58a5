package decode

import (
	"bytes"
	"errors"
	"io"

	"github.com/go-audio/aiff"
	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

func decodeWAV(data []byte) (*Buffer, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, errors.New("not a valid WAV file")
	}
	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if pcm.Format == nil {
		return nil, errors.New("missing WAV format chunk")
	}
	return &Buffer{
		SampleRate: pcm.Format.SampleRate,
		Channels:   pcm.Format.NumChannels,
		Samples:    normalize(pcm.Data, int(d.BitDepth)),
	}, nil
}

func decodeAIFF(data []byte) (*Buffer, error) {
	d := aiff.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, errors.New("not a valid AIFF file")
	}
	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if pcm.Format == nil {
		return nil, errors.New("missing AIFF COMM chunk")
	}
	return &Buffer{
		SampleRate: pcm.Format.SampleRate,
		Channels:   pcm.Format.NumChannels,
		Samples:    normalize(pcm.Data, int(d.BitDepth)),
	}, nil
}

func decodeVorbis(data []byte) (*Buffer, error) {
	samples, format, err := oggvorbis.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &Buffer{
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
		Samples:    samples,
	}, nil
}

// go-mp3 always produces 16-bit little-endian stereo.
func decodeMP3(data []byte) (*Buffer, error) {
	d, err := gomp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, err
	}
	samples := make([]float32, len(raw)/2)
	for i := range samples {
		v := int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8) //nolint:gosec // reinterpreting PCM bits
		samples[i] = float32(v) / 32768
	}
	return &Buffer{
		SampleRate: d.SampleRate(),
		Channels:   2,
		Samples:    samples,
	}, nil
}
