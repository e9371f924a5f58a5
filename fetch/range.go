package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strconv"
	"strings"
)

// ErrRangeUnsupported is returned when a server ignores range requests.
var ErrRangeUnsupported = errors.New("fetch: range requests not supported")

// RangeSource implements random access reads via HTTP range requests.
// It satisfies stream.Source (io.ReaderAt plus Size).
type RangeSource struct {
	url  string
	cfg  httpConfig
	size int64
	etag string
}

// NewRangeSource creates a RangeSource for url.
// It probes the remote with a one-byte range request to learn the size.
func NewRangeSource(ctx context.Context, url string, opts ...HTTPOption) (*RangeSource, error) {
	s := &RangeSource{
		url: url,
		cfg: newHTTPConfig(opts),
	}
	if err := s.probe(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// URL returns the remote URL.
func (s *RangeSource) URL() string {
	return s.url
}

// Size returns the total size of the remote content.
func (s *RangeSource) Size() int64 {
	return s.size
}

// ETag returns the validator reported by the server, if any.
func (s *RangeSource) ETag() string {
	return s.etag
}

// ReadAt implements io.ReaderAt.
func (s *RangeSource) ReadAt(p []byte, off int64) (int, error) {
	return s.ReadAtContext(context.Background(), p, off)
}

// ReadAtContext reads len(p) bytes at off with a single range request.
// If fewer bytes are available than requested, it returns the bytes read
// along with io.EOF.
func (s *RangeSource) ReadAtContext(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 {
		return 0, fmt.Errorf("read at %d: negative offset", off)
	}
	if off >= s.size {
		return 0, io.EOF
	}

	end := off + int64(len(p)) - 1
	expected := len(p)
	if end >= s.size {
		end = s.size - 1
		expected = int(end - off + 1)
	}

	resp, err := s.rangeRequest(ctx, off, end)
	if err != nil {
		return 0, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // best-effort drain for connection reuse
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case nethttp.StatusPartialContent:
	case nethttp.StatusRequestedRangeNotSatisfiable:
		return 0, io.EOF
	case nethttp.StatusOK:
		return 0, ErrRangeUnsupported
	default:
		return 0, &HTTPError{URL: s.url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	n, err := io.ReadFull(resp.Body, p[:expected])
	if err != nil {
		return n, err
	}
	if expected < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// probe verifies range support and extracts the size from Content-Range.
func (s *RangeSource) probe(ctx context.Context) error {
	resp, err := s.rangeRequest(ctx, 0, 0)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // best-effort drain for connection reuse
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case nethttp.StatusPartialContent:
	case nethttp.StatusOK:
		return ErrRangeUnsupported
	default:
		return &HTTPError{URL: s.url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	crange := resp.Header.Get("Content-Range")
	if crange == "" {
		return errors.New("fetch: range probe missing Content-Range")
	}
	size, err := parseContentRange(crange)
	if err != nil {
		return err
	}
	s.size = size
	s.etag = resp.Header.Get("ETag")
	return nil
}

func (s *RangeSource) rangeRequest(ctx context.Context, off, end int64) (*nethttp.Response, error) {
	req, err := s.cfg.newRequest(ctx, nethttp.MethodGet, s.url)
	if err != nil {
		return nil, err
	}
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "identity")
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, end))
	return s.cfg.client.Do(req)
}

// parseContentRange extracts the total size from "bytes start-end/size".
func parseContentRange(value string) (int64, error) {
	value = strings.TrimSpace(value)
	rest, ok := strings.CutPrefix(value, "bytes ")
	if !ok {
		return 0, fmt.Errorf("fetch: invalid Content-Range %q", value)
	}
	_, total, ok := strings.Cut(rest, "/")
	if !ok || total == "*" {
		return 0, fmt.Errorf("fetch: invalid Content-Range %q", value)
	}
	size, err := strconv.ParseInt(total, 10, 64)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("fetch: invalid Content-Range %q", value)
	}
	return size, nil
}
