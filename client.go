package aurb

import (
	"log/slog"

	"github.com/meigma/aurb/cache"
	"github.com/meigma/aurb/loader"
	"github.com/meigma/aurb/registry"
)

// Client loads banks into an asset cache and moves banks in and out of OCI
// registries.
//
// The embedded Loader provides the cache operations (Load, LoadBank,
// Release, Buffer and so on). Sources with the oci:// scheme are fetched
// through the client's registry connection.
type Client struct {
	*loader.Loader

	registry *registry.Client

	// Registry connection options, collected before the client is built.
	registryOpts []registry.Option
	loaderOpts   []loader.Option
	bankCache    cache.Cache
	logger       *slog.Logger
}

// NewClient creates a client with the given options.
//
// If no authentication is configured, anonymous access is used.
// Use [WithDockerConfig] to read credentials from ~/.docker/config.json.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	regOpts := c.registryOpts
	if c.logger != nil {
		regOpts = append(regOpts, registry.WithLogger(c.logger))
	}
	c.registry = registry.New(regOpts...)

	loaderOpts := []loader.Option{
		loader.WithSchemeTransport(registry.Scheme, c.registry.Transport()),
	}
	if c.logger != nil {
		loaderOpts = append(loaderOpts, loader.WithLogger(c.logger))
	}
	if c.bankCache != nil {
		loaderOpts = append(loaderOpts, loader.WithBankCache(c.bankCache))
	}
	c.Loader = loader.New(append(loaderOpts, c.loaderOpts...)...)
	return c, nil
}

// Registry returns the underlying registry client.
func (c *Client) Registry() *registry.Client {
	return c.registry
}
