// Package testutil provides audio fixtures and scripted collaborators for tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// MockByteSource implements a simple in-memory byte source for tests.
type MockByteSource struct {
	mu    sync.Mutex
	data  []byte
	reads int
}

// NewMockByteSource returns a byte source backed by the provided data.
func NewMockByteSource(data []byte) *MockByteSource {
	return &MockByteSource{data: data}
}

// ReadAt implements io.ReaderAt semantics over the backing slice.
func (m *MockByteSource) ReadAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	m.reads++
	m.mu.Unlock()
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the total size of the backing data.
func (m *MockByteSource) Size() int64 {
	return int64(len(m.data))
}

// Reads returns the number of ReadAt calls served.
func (m *MockByteSource) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// FakeWAV returns size bytes starting with a RIFF/WAVE signature.
// The payload is not playable; it only satisfies codec sniffing.
func FakeWAV(size int) []byte {
	return fakeAudio(size, []byte("RIFF\x00\x00\x00\x00WAVE"))
}

// FakeOgg returns size bytes starting with an Ogg page signature.
func FakeOgg(size int) []byte {
	return fakeAudio(size, []byte("OggS"))
}

func fakeAudio(size int, magic []byte) []byte {
	if size < len(magic) {
		size = len(magic)
	}
	data := make([]byte, size)
	copy(data, magic)
	for i := len(magic); i < size; i++ {
		data[i] = byte(i * 31)
	}
	return data
}

// SineWAV returns a playable 16-bit mono PCM WAV file holding frames samples
// of a 440 Hz tone.
func SineWAV(sampleRate, frames int) []byte {
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, frames),
		SourceBitDepth: 16,
	}
	for i := range buf.Data {
		v := math.Sin(2 * math.Pi * 440 * float64(i) / float64(sampleRate))
		buf.Data[i] = int(v * 0.5 * math.MaxInt16)
	}

	ws := &writeSeeker{}
	enc := wav.NewEncoder(ws, sampleRate, 16, 1, 1)
	if err := enc.Write(buf); err != nil {
		panic(fmt.Sprintf("testutil: encode wav: %v", err))
	}
	if err := enc.Close(); err != nil {
		panic(fmt.Sprintf("testutil: close wav: %v", err))
	}
	return ws.buf
}

// writeSeeker is an in-memory io.WriteSeeker for the WAV encoder, which
// rewrites the header sizes on Close.
type writeSeeker struct {
	buf []byte
	pos int
}

func (w *writeSeeker) Write(p []byte) (int, error) {
	if end := w.pos + len(p); end > len(w.buf) {
		w.buf = append(w.buf, make([]byte, end-len(w.buf))...)
	}
	n := copy(w.buf[w.pos:], p)
	w.pos += n
	return n, nil
}

func (w *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(w.pos) + offset
	case io.SeekEnd:
		abs = int64(len(w.buf)) + offset
	default:
		return 0, errors.New("testutil: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("testutil: negative position")
	}
	w.pos = int(abs)
	return abs, nil
}

// ErrScripted is returned by ScriptedTransport for scripted failures.
var ErrScripted = errors.New("testutil: scripted failure")

// ScriptedTransport serves fixed content per URL, failing the first
// Failures calls for each URL. It counts every call.
type ScriptedTransport struct {
	mu       sync.Mutex
	content  map[string][]byte
	failures map[string]int
	calls    map[string]int

	// Gate, when non-nil, blocks every Fetch until it is closed.
	Gate chan struct{}
}

// NewScriptedTransport returns a transport serving content.
func NewScriptedTransport(content map[string][]byte) *ScriptedTransport {
	if content == nil {
		content = make(map[string][]byte)
	}
	return &ScriptedTransport{
		content:  content,
		failures: make(map[string]int),
		calls:    make(map[string]int),
	}
}

// Set registers content for url.
func (s *ScriptedTransport) Set(url string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content[url] = data
}

// FailFirst makes the next n calls for url fail with ErrScripted.
func (s *ScriptedTransport) FailFirst(url string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[url] = n
}

// Fetch returns the content registered for url.
func (s *ScriptedTransport) Fetch(ctx context.Context, url string) ([]byte, error) {
	if s.Gate != nil {
		select {
		case <-s.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[url]++
	if s.failures[url] > 0 {
		s.failures[url]--
		return nil, fmt.Errorf("%w: %s", ErrScripted, url)
	}
	data, ok := s.content[url]
	if !ok {
		return nil, fmt.Errorf("%w: no content for %s", ErrScripted, url)
	}
	return data, nil
}

// Calls returns the number of Fetch calls for url.
func (s *ScriptedTransport) Calls(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[url]
}

// TotalCalls returns the number of Fetch calls across all URLs.
func (s *ScriptedTransport) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}
