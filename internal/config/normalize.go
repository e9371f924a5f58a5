package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizeLoader()
	c.normalizeEncoder()
	c.normalizeRegistry()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeCache() error {
	if strings.TrimSpace(c.Cache.Dir) == "" {
		c.Cache.Dir = defaultCacheDir
	}
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" && c.Cache.Dir == defaultCacheDir {
		c.Cache.Dir = filepath.Join(base, "aurb", "banks")
	}
	var err error
	if c.Cache.Dir, err = expandPath(c.Cache.Dir); err != nil {
		return fmt.Errorf("cache.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLoader() {
	c.Loader.BaseURL = strings.TrimSpace(c.Loader.BaseURL)
	if c.Loader.MaxParallel == 0 {
		c.Loader.MaxParallel = defaultMaxParallel
	}
	if c.Loader.BlockSizeKiB == 0 {
		c.Loader.BlockSizeKiB = defaultBlockSizeKiB
	}
	if c.Loader.MaxBlocks == 0 {
		c.Loader.MaxBlocks = defaultMaxBlocks
	}
}

func (c *Config) normalizeEncoder() {
	c.Encoder.Compression = strings.ToLower(strings.TrimSpace(c.Encoder.Compression))
	if c.Encoder.Compression == "" {
		c.Encoder.Compression = defaultCompression
	}
}

func (c *Config) normalizeRegistry() {
	c.Registry.Host = strings.TrimSpace(c.Registry.Host)
	c.Registry.UserAgent = strings.TrimSpace(c.Registry.UserAgent)
	if c.Registry.UserAgent == "" {
		c.Registry.UserAgent = defaultUserAgent
	}
	if c.Registry.Username == "" {
		if value, ok := os.LookupEnv("AURB_REGISTRY_USERNAME"); ok {
			c.Registry.Username = value
		}
	}
	if c.Registry.Password == "" {
		if value, ok := os.LookupEnv("AURB_REGISTRY_PASSWORD"); ok {
			c.Registry.Password = value
		}
	}
	if c.Registry.Token == "" {
		if value, ok := os.LookupEnv("AURB_REGISTRY_TOKEN"); ok {
			c.Registry.Token = value
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
