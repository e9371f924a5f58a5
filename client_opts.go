package aurb

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/meigma/aurb/cache"
	"github.com/meigma/aurb/cache/disk"
	"github.com/meigma/aurb/decode"
	"github.com/meigma/aurb/loader"
	"github.com/meigma/aurb/registry"
)

// Option configures a Client.
type Option func(*Client) error

// DefaultBankCacheSize bounds the disk cache created by WithCacheDir.
const DefaultBankCacheSize int64 = 512 << 20 // 512 MB

// --- Authentication Options ---

// WithDockerConfig enables reading credentials from ~/.docker/config.json.
func WithDockerConfig() Option {
	return func(c *Client) error {
		c.registryOpts = append(c.registryOpts, registry.WithDockerConfig())
		return nil
	}
}

// WithStaticCredentials sets static username/password credentials for a registry.
// The registry parameter should be the registry host (e.g., "ghcr.io").
func WithStaticCredentials(registryHost, username, password string) Option {
	return func(c *Client) error {
		if registryHost == "" {
			return errors.New("static credentials require a registry host")
		}
		c.registryOpts = append(c.registryOpts, registry.WithStaticCredentials(registryHost, username, password))
		return nil
	}
}

// WithStaticToken sets a static bearer token for a registry.
func WithStaticToken(registryHost, token string) Option {
	return func(c *Client) error {
		if registryHost == "" {
			return errors.New("static token requires a registry host")
		}
		c.registryOpts = append(c.registryOpts, registry.WithStaticToken(registryHost, token))
		return nil
	}
}

// WithPlainHTTP enables plain HTTP (no TLS) for registries.
// Use only for local development registries.
func WithPlainHTTP(enabled bool) Option {
	return func(c *Client) error {
		c.registryOpts = append(c.registryOpts, registry.WithPlainHTTP(enabled))
		return nil
	}
}

// WithUserAgent sets the User-Agent header for registry requests.
func WithUserAgent(ua string) Option {
	return func(c *Client) error {
		c.registryOpts = append(c.registryOpts, registry.WithUserAgent(ua))
		return nil
	}
}

// WithOCIClient replaces the registry transport. It is intended for tests.
func WithOCIClient(oci registry.OCIClient) Option {
	return func(c *Client) error {
		c.registryOpts = append(c.registryOpts, registry.WithOCIClient(oci))
		return nil
	}
}

// --- Cache Options ---

// WithCacheDir caches binary banks by digest in dir, bounded by
// DefaultBankCacheSize.
func WithCacheDir(dir string) Option {
	return func(c *Client) error {
		if dir == "" {
			return errors.New("cache dir is empty")
		}
		dc, err := disk.New(dir, disk.WithMaxBytes(DefaultBankCacheSize))
		if err != nil {
			return fmt.Errorf("create bank cache: %w", err)
		}
		c.bankCache = dc
		return nil
	}
}

// WithBankCache sets a custom bank cache implementation.
func WithBankCache(bc cache.Cache) Option {
	return func(c *Client) error {
		c.bankCache = bc
		return nil
	}
}

// --- Loader Options ---

// WithBaseURL resolves relative asset sources against base.
func WithBaseURL(base string) Option {
	return WithLoaderOptions(loader.WithBaseURL(base))
}

// WithRetry sets the fetch retry policy: attempts retries after the first
// try, the nth waiting n*backoff.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Client) error {
		if attempts < 0 {
			return errors.New("retry attempts must be non-negative")
		}
		if backoff < 0 {
			return errors.New("retry backoff must be non-negative")
		}
		c.loaderOpts = append(c.loaderOpts, loader.WithRetry(attempts, backoff))
		return nil
	}
}

// WithMaxParallel sets how many assets of a bank load concurrently.
func WithMaxParallel(n int) Option {
	return WithLoaderOptions(loader.WithMaxParallel(n))
}

// WithDecoder replaces the PCM decoder.
func WithDecoder(d decode.Decoder) Option {
	return WithLoaderOptions(loader.WithDecoder(d))
}

// WithLoaderOptions passes options straight to the loader. They apply after
// the client's own loader settings.
func WithLoaderOptions(opts ...loader.Option) Option {
	return func(c *Client) error {
		c.loaderOpts = append(c.loaderOpts, opts...)
		return nil
	}
}

// --- Logging Options ---

// WithLogger sets a logger for the loader and the registry client.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}
