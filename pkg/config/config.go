// Package config loads the Strata configuration from files, environment
// variables, and defaults, in that order of increasing precedence. Settings
// cover the storage layer (page layout, compression) and logging.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/ajitpratap0/strata/pkg/column"
	"github.com/ajitpratap0/strata/pkg/compression"
	serrors "github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/logger"
)

// Config is the top-level Strata configuration.
type Config struct {
	Storage StorageConfig `mapstructure:"storage" json:"storage"`
	Logging LoggingConfig `mapstructure:"logging" json:"logging"`
}

// StorageConfig controls how sinks lay out and compress pages.
type StorageConfig struct {
	// Compression selects the page compression algorithm: none, snappy,
	// s2, lz4, or zstd.
	Compression string `mapstructure:"compression" json:"compression"`
	// CompressionLevel tunes the algorithm, 1 (fastest) to 9 (best).
	CompressionLevel int `mapstructure:"compression_level" json:"compression_level"`
	// PageSize is the number of elements per page.
	PageSize int `mapstructure:"page_size" json:"page_size"`
	// SmallClusters lets offset columns use 32-bit encodings.
	SmallClusters bool `mapstructure:"small_clusters" json:"small_clusters"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level       string `mapstructure:"level" json:"level"`
	Development bool   `mapstructure:"development" json:"development"`
	Encoding    string `mapstructure:"encoding" json:"encoding"`
}

// Default returns the configuration used when nothing is specified.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Compression:      string(compression.Zstd),
			CompressionLevel: int(compression.Default),
			PageSize:         4096,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
	}
}

// Load reads the configuration from the given file if non-empty, overlaying
// STRATA_* environment variables on the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	defaults := Default()
	v.SetDefault("storage.compression", defaults.Storage.Compression)
	v.SetDefault("storage.compression_level", defaults.Storage.CompressionLevel)
	v.SetDefault("storage.page_size", defaults.Storage.PageSize)
	v.SetDefault("storage.small_clusters", defaults.Storage.SmallClusters)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.development", defaults.Logging.Development)
	v.SetDefault("logging.encoding", defaults.Logging.Encoding)

	v.SetEnvPrefix("STRATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, serrors.Wrap(err, serrors.ErrorTypeConfig, "failed to read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, serrors.Wrap(err, serrors.ErrorTypeConfig, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values against their acceptable ranges.
func (c *Config) Validate() error {
	switch compression.Algorithm(c.Storage.Compression) {
	case compression.None, compression.Snappy, compression.S2,
		compression.LZ4, compression.Zstd:
	default:
		return serrors.Newf(serrors.ErrorTypeConfig,
			"unknown compression algorithm %q", c.Storage.Compression)
	}
	if c.Storage.CompressionLevel < int(compression.Fastest) ||
		c.Storage.CompressionLevel > int(compression.Best) {
		return serrors.Newf(serrors.ErrorTypeConfig,
			"compression level %d out of range", c.Storage.CompressionLevel)
	}
	if c.Storage.PageSize <= 0 {
		return serrors.New(serrors.ErrorTypeConfig, "page_size must be positive")
	}
	return nil
}

// WriteOptions converts the storage section into sink write options.
func (c *Config) WriteOptions() *column.WriteOptions {
	return &column.WriteOptions{
		Compression:      compression.Algorithm(c.Storage.Compression),
		CompressionLevel: compression.Level(c.Storage.CompressionLevel),
		PageSize:         c.Storage.PageSize,
		SmallClusters:    c.Storage.SmallClusters,
	}
}

// LoggerConfig converts the logging section into logger initialization
// options.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:       c.Logging.Level,
		Development: c.Logging.Development,
		Encoding:    c.Logging.Encoding,
	}
}
