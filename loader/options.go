package loader

import (
	"log/slog"
	"time"

	"github.com/meigma/aurb/cache"
	"github.com/meigma/aurb/decode"
	"github.com/meigma/aurb/fetch"
	"github.com/meigma/aurb/stream"
)

// DefaultMaxParallel is the default number of concurrent loads per batch.
const DefaultMaxParallel = 4

// Probe reports whether the platform can decode files with an extension.
type Probe func(ext string) bool

// Option configures a Loader.
type Option func(*Loader)

// WithTransport replaces the default transport. Streamed sources are then
// fetched whole through it instead of with HTTP range requests.
func WithTransport(t fetch.Transport) Option {
	return func(l *Loader) {
		l.transport = t
	}
}

// WithSchemeTransport registers t for a URL scheme on the default transport,
// for example "oci" for registry-hosted banks. It has no effect together
// with WithTransport.
func WithSchemeTransport(scheme string, t fetch.Transport) Option {
	return func(l *Loader) {
		if l.schemes == nil {
			l.schemes = make(map[string]fetch.Transport)
		}
		l.schemes[scheme] = t
	}
}

// WithHTTPOptions configures the default HTTP transport and range sources.
func WithHTTPOptions(opts ...fetch.HTTPOption) Option {
	return func(l *Loader) {
		l.httpOpts = append(l.httpOpts, opts...)
	}
}

// WithDecoder sets the decoder. Defaults to decode.PCM.
func WithDecoder(d decode.Decoder) Option {
	return func(l *Loader) {
		l.decoder = d
	}
}

// WithProbe sets the decodability probe used to pick fallback sources.
// Defaults to decode.CanDecode.
func WithProbe(p Probe) Option {
	return func(l *Loader) {
		l.probe = p
	}
}

// WithMaxParallel sets the batch size for bank loads. Values below 1 are
// treated as 1.
func WithMaxParallel(n int) Option {
	return func(l *Loader) {
		l.maxParallel = max(n, 1)
	}
}

// WithRetry sets the fetch retry policy: attempts retries after the first
// try, the nth waiting n*backoff.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(l *Loader) {
		l.attempts = attempts
		l.backoff = backoff
	}
}

// WithBaseURL resolves relative sources against base.
func WithBaseURL(base string) Option {
	return func(l *Loader) {
		l.baseURL = base
	}
}

// WithLogger sets the logger. If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithBankCache caches binary banks by digest so repeated loads skip the
// network.
func WithBankCache(c cache.Cache) Option {
	return func(l *Loader) {
		l.bankCache = c
	}
}

// WithStreamOptions configures the media handles of streamed entries.
func WithStreamOptions(opts ...stream.Option) Option {
	return func(l *Loader) {
		l.streamOpts = append(l.streamOpts, opts...)
	}
}
