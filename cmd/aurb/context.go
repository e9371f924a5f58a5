package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/meigma/aurb"
	"github.com/meigma/aurb/cache/disk"
	"github.com/meigma/aurb/fetch"
	"github.com/meigma/aurb/internal/config"
	"github.com/meigma/aurb/loader"
	"github.com/meigma/aurb/stream"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	// logOutput receives log records; nil means stderr.
	logOutput io.Writer
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() *slog.Logger {
	cfg, err := c.ensureConfig()
	if err != nil {
		def := config.Default()
		cfg = &def
	}
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		level = slog.LevelInfo
	}
	if c.verbose != nil && *c.verbose {
		level = slog.LevelDebug
	}
	out := c.logOutput
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}

// newClient builds a client from the [registry], [loader] and [cache]
// sections. plainHTTP forces plain HTTP when set by a flag.
func (c *commandContext) newClient(plainHTTP bool) (*aurb.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger := c.logger()

	opts := []aurb.Option{
		aurb.WithLogger(logger),
		aurb.WithPlainHTTP(plainHTTP || cfg.Registry.PlainHTTP),
		aurb.WithUserAgent(cfg.Registry.UserAgent),
		aurb.WithBaseURL(cfg.Loader.BaseURL),
		aurb.WithMaxParallel(cfg.Loader.MaxParallel),
		aurb.WithRetry(cfg.Loader.RetryAttempts, cfg.RetryBackoff()),
		aurb.WithLoaderOptions(
			loader.WithHTTPOptions(fetch.WithClient(&http.Client{Timeout: cfg.RequestTimeout()})),
			loader.WithStreamOptions(
				stream.WithBlockSize(int64(cfg.Loader.BlockSizeKiB)<<10),
				stream.WithMaxBlocks(cfg.Loader.MaxBlocks),
				stream.WithLogger(logger),
			),
		),
	}
	switch {
	case cfg.Registry.Token != "":
		opts = append(opts, aurb.WithStaticToken(cfg.Registry.Host, cfg.Registry.Token))
	case cfg.Registry.Username != "":
		opts = append(opts, aurb.WithStaticCredentials(cfg.Registry.Host, cfg.Registry.Username, cfg.Registry.Password))
	case cfg.Registry.DockerAuth:
		opts = append(opts, aurb.WithDockerConfig())
	}
	if cfg.Cache.Enabled {
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, err
		}
		bankCache, err := disk.New(cfg.Cache.Dir, disk.WithMaxBytes(cfg.CacheMaxBytes()))
		if err != nil {
			return nil, fmt.Errorf("open bank cache: %w", err)
		}
		opts = append(opts, aurb.WithBankCache(bankCache))
	}
	return aurb.NewClient(opts...)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
