package config

const (
	defaultCacheDir        = "~/.cache/aurb/banks"
	defaultCacheMaxMiB     = 512
	defaultMaxParallel     = 4
	defaultRetryAttempts   = 2
	defaultRetryBackoffMS  = 350
	defaultBlockSizeKiB    = 64
	defaultMaxBlocks       = 64
	defaultCompression     = "zstd"
	defaultUserAgent       = "aurb/1.0"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultRequestTimeoutS = 30
)

// Default returns a Config populated with defaults.
func Default() Config {
	return Config{
		Cache: Cache{
			Enabled: true,
			Dir:     defaultCacheDir,
			MaxMiB:  defaultCacheMaxMiB,
		},
		Loader: Loader{
			MaxParallel:    defaultMaxParallel,
			RetryAttempts:  defaultRetryAttempts,
			RetryBackoffMS: defaultRetryBackoffMS,
			RequestTimeout: defaultRequestTimeoutS,
			BlockSizeKiB:   defaultBlockSizeKiB,
			MaxBlocks:      defaultMaxBlocks,
		},
		Encoder: Encoder{
			Compression: defaultCompression,
		},
		Registry: Registry{
			UserAgent: defaultUserAgent,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
