package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/meigma/aurb/bank"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateLoader(); err != nil {
		return err
	}
	if err := c.validateEncoder(); err != nil {
		return err
	}
	if err := c.validateRegistry(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCache() error {
	if c.Cache.MaxMiB < 0 {
		return errors.New("cache.max_mib must be zero or positive")
	}
	if c.Cache.Enabled && c.Cache.Dir == "" {
		return errors.New("cache.dir must be set when cache.enabled is true")
	}
	return nil
}

func (c *Config) validateLoader() error {
	if c.Loader.MaxParallel < 1 {
		return errors.New("loader.max_parallel must be at least 1")
	}
	if c.Loader.RetryAttempts < 0 {
		return errors.New("loader.retry_attempts must be zero or positive")
	}
	if c.Loader.RetryBackoffMS < 0 {
		return errors.New("loader.retry_backoff_ms must be zero or positive")
	}
	if c.Loader.RequestTimeout < 0 {
		return errors.New("loader.request_timeout must be zero or positive")
	}
	if c.Loader.BlockSizeKiB < 1 {
		return errors.New("loader.block_size_kib must be at least 1")
	}
	if c.Loader.MaxBlocks < 1 {
		return errors.New("loader.max_blocks must be at least 1")
	}
	return nil
}

func (c *Config) validateEncoder() error {
	if _, err := bank.ParseCompression(c.Encoder.Compression); err != nil {
		return fmt.Errorf("encoder.compression: %w", err)
	}
	return nil
}

func (c *Config) validateRegistry() error {
	hasBasic := c.Registry.Username != "" || c.Registry.Password != ""
	if hasBasic && c.Registry.Token != "" {
		return errors.New("registry: set either username/password or token, not both")
	}
	if (hasBasic || c.Registry.Token != "") && c.Registry.Host == "" {
		return errors.New("registry.host must be set when credentials are configured")
	}
	if c.Registry.Username != "" && c.Registry.Password == "" {
		return errors.New("registry.password must be set when registry.username is set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
