package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Cache configures the on-disk bank cache.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
	MaxMiB  int    `toml:"max_mib"`
}

// Loader configures asset loading.
type Loader struct {
	BaseURL        string `toml:"base_url"`
	MaxParallel    int    `toml:"max_parallel"`
	RetryAttempts  int    `toml:"retry_attempts"`
	RetryBackoffMS int    `toml:"retry_backoff_ms"`
	RequestTimeout int    `toml:"request_timeout"`
	BlockSizeKiB   int    `toml:"block_size_kib"`
	MaxBlocks      int    `toml:"max_blocks"`
}

// Encoder configures bank packing.
type Encoder struct {
	Compression string `toml:"compression"`
}

// Registry configures OCI registry access.
type Registry struct {
	PlainHTTP  bool   `toml:"plain_http"`
	UserAgent  string `toml:"user_agent"`
	Host       string `toml:"host"`
	Username   string `toml:"username"`
	Password   string `toml:"password"`
	Token      string `toml:"token"`
	DockerAuth bool   `toml:"docker_auth"`
}

// Logging configures log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config holds every setting the CLI reads.
//
// Sections:
//   - Cache: on-disk bank cache
//   - Loader: fetch, retry, and streaming behaviour
//   - Encoder: pack defaults
//   - Registry: OCI registry connection and credentials
//   - Logging: log format and level
type Config struct {
	Cache    Cache    `toml:"cache"`
	Loader   Loader   `toml:"loader"`
	Encoder  Encoder  `toml:"encoder"`
	Registry Registry `toml:"registry"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path of the default config file.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/aurb/config.toml")
}

// Load locates, parses, and validates a configuration file. A missing file
// yields the defaults. The resolved path and whether it exists are returned
// alongside the config.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("aurb.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// RetryBackoff returns the retry base delay.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.Loader.RetryBackoffMS) * time.Millisecond
}

// RequestTimeout returns the per-request HTTP timeout. Zero disables it.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Loader.RequestTimeout) * time.Second
}

// CacheMaxBytes returns the cache size limit in bytes.
func (c *Config) CacheMaxBytes() int64 {
	return int64(c.Cache.MaxMiB) << 20
}

// EnsureDirectories creates the cache directory when caching is enabled.
func (c *Config) EnsureDirectories() error {
	if !c.Cache.Enabled {
		return nil
	}
	if err := os.MkdirAll(c.Cache.Dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory %q: %w", c.Cache.Dir, err)
	}
	return nil
}

// Marshal renders the config as TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
