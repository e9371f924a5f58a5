package registry

import (
	"log/slog"

	"oras.land/oras-go/v2/registry/remote/credentials"
)

// DefaultUserAgent is sent with every registry request.
const DefaultUserAgent = "aurb/1.0"

// Client pushes and pulls banks.
type Client struct {
	oci       OCIClient
	plainHTTP bool
	userAgent string
	credStore credentials.Store
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithOCIClient replaces the ORAS-backed OCI client.
func WithOCIClient(oci OCIClient) Option {
	return func(c *Client) {
		c.oci = oci
	}
}

// WithPlainHTTP talks to registries over plain HTTP, for local registries.
func WithPlainHTTP(enabled bool) Option {
	return func(c *Client) {
		c.plainHTTP = enabled
	}
}

// WithCredentialStore sets the credential store for authentication.
func WithCredentialStore(store credentials.Store) Option {
	return func(c *Client) {
		c.credStore = store
	}
}

// WithStaticCredentials authenticates to registry with a username and password.
func WithStaticCredentials(registry, username, password string) Option {
	return func(c *Client) {
		c.credStore = StaticCredentials(registry, username, password)
	}
}

// WithStaticToken authenticates to registry with a bearer token.
func WithStaticToken(registry, token string) Option {
	return func(c *Client) {
		c.credStore = StaticToken(registry, token)
	}
}

// WithDockerConfig reads credentials from the Docker config. If it cannot
// be loaded the client stays anonymous.
func WithDockerConfig() Option {
	return func(c *Client) {
		if store, err := DefaultCredentialStore(); err == nil {
			c.credStore = store
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger. If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client. Without WithOCIClient an ORAS-backed client is
// built from the connection options.
func New(opts ...Option) *Client {
	c := &Client{userAgent: DefaultUserAgent}
	for _, opt := range opts {
		opt(c)
	}
	if c.oci == nil {
		c.oci = newORASClient(c.plainHTTP, c.userAgent, c.credStore)
	}
	return c
}

func (c *Client) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}
