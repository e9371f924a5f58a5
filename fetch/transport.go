package fetch

import (
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Transport fetches the full content at a URL.
type Transport interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, url string) ([]byte, error)

// Fetch calls f.
func (f TransportFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// httpConfig is shared by HTTPTransport and RangeSource.
type httpConfig struct {
	client  *nethttp.Client
	headers nethttp.Header
}

func newHTTPConfig(opts []HTTPOption) httpConfig {
	var c httpConfig
	for _, opt := range opts {
		opt(&c)
	}
	if c.client == nil {
		c.client = nethttp.DefaultClient
	}
	return c
}

func (c *httpConfig) newRequest(ctx context.Context, method, url string) (*nethttp.Request, error) {
	req, err := nethttp.NewRequestWithContext(ctx, method, url, nethttp.NoBody)
	if err != nil {
		return nil, err
	}
	for key, values := range c.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	return req, nil
}

// HTTPOption configures HTTP access.
type HTTPOption func(*httpConfig)

// WithClient sets the HTTP client used for requests.
func WithClient(client *nethttp.Client) HTTPOption {
	return func(c *httpConfig) {
		c.client = client
	}
}

// WithHeader sets a header on each request.
func WithHeader(key, value string) HTTPOption {
	return func(c *httpConfig) {
		if c.headers == nil {
			c.headers = make(nethttp.Header)
		}
		c.headers.Set(key, value)
	}
}

// HTTPTransport fetches resources with HTTP GET.
type HTTPTransport struct {
	cfg httpConfig
}

// NewHTTPTransport creates an HTTPTransport.
func NewHTTPTransport(opts ...HTTPOption) *HTTPTransport {
	return &HTTPTransport{cfg: newHTTPConfig(opts)}
}

// Fetch performs a GET and returns the body. Non-2xx responses yield *HTTPError.
func (t *HTTPTransport) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := t.cfg.newRequest(ctx, nethttp.MethodGet, url)
	if err != nil {
		return nil, err
	}
	resp, err := t.cfg.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // best-effort drain for connection reuse
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", url, err)
	}
	return data, nil
}

// FileTransport reads local files. It accepts plain paths and file:// URLs;
// relative paths resolve against Root when set.
type FileTransport struct {
	Root string
}

// Fetch reads the file named by url.
func (t FileTransport) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := rawURL
	if strings.HasPrefix(rawURL, "file:") {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", rawURL, err)
		}
		path = u.Path
		if path == "" {
			path = u.Opaque
		}
	}
	path = filepath.FromSlash(path)
	if t.Root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(t.Root, path)
	}
	return os.ReadFile(path) //nolint:gosec // reading caller-selected asset paths is the purpose
}

// Mux dispatches fetches by URL scheme. URLs without a scheme use the
// transport registered for "".
type Mux struct {
	mu         sync.RWMutex
	transports map[string]Transport
}

// NewMux creates an empty Mux.
func NewMux() *Mux {
	return &Mux{transports: make(map[string]Transport)}
}

// DefaultMux returns a Mux serving http, https, file and plain paths.
func DefaultMux(opts ...HTTPOption) *Mux {
	m := NewMux()
	h := NewHTTPTransport(opts...)
	m.Handle("http", h)
	m.Handle("https", h)
	m.Handle("file", FileTransport{})
	m.Handle("", FileTransport{})
	return m
}

// Handle registers t for scheme, replacing any previous registration.
func (m *Mux) Handle(scheme string, t Transport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transports[strings.ToLower(scheme)] = t
}

// Fetch routes url to the transport registered for its scheme.
func (m *Mux) Fetch(ctx context.Context, url string) ([]byte, error) {
	scheme := Scheme(url)
	m.mu.RLock()
	t, ok := m.transports[scheme]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", ErrUnsupportedScheme, scheme, url)
	}
	return t.Fetch(ctx, url)
}

// Scheme returns the lower-cased scheme of url, or "" for plain paths.
// Single-letter schemes are treated as Windows drive letters.
func Scheme(url string) string {
	i := strings.Index(url, ":")
	if i <= 1 {
		return ""
	}
	for j, r := range url[:i] {
		isAlpha := ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
		if !isAlpha && (j == 0 || !(('0' <= r && r <= '9') || r == '+' || r == '-' || r == '.')) {
			return ""
		}
	}
	return strings.ToLower(url[:i])
}

// Join resolves ref against base. Absolute URLs (any scheme) and an empty
// base return ref unchanged; otherwise slashes at the seam are collapsed.
func Join(base, ref string) string {
	if base == "" || Scheme(ref) != "" {
		return ref
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(ref, "/")
}
