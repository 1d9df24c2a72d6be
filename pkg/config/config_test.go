package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/strata/pkg/compression"
	serrors "github.com/ajitpratap0/strata/pkg/errors"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, string(compression.Zstd), cfg.Storage.Compression)
	assert.Equal(t, 4096, cfg.Storage.PageSize)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Storage, cfg.Storage)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "strata.yaml")
	content := `
storage:
  compression: lz4
  compression_level: 1
  page_size: 128
  small_clusters: true
logging:
  level: debug
  encoding: console
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "lz4", cfg.Storage.Compression)
	assert.Equal(t, 128, cfg.Storage.PageSize)
	assert.True(t, cfg.Storage.SmallClusters)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, serrors.IsType(err, serrors.ErrorTypeConfig))
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown algorithm", func(c *Config) { c.Storage.Compression = "brotli" }},
		{"level too low", func(c *Config) { c.Storage.CompressionLevel = 0 }},
		{"level too high", func(c *Config) { c.Storage.CompressionLevel = 10 }},
		{"zero page size", func(c *Config) { c.Storage.PageSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, serrors.IsType(err, serrors.ErrorTypeConfig))
		})
	}
}

func TestWriteOptionsMapping(t *testing.T) {
	cfg := Default()
	cfg.Storage.Compression = "snappy"
	cfg.Storage.PageSize = 64
	cfg.Storage.SmallClusters = true

	opts := cfg.WriteOptions()
	assert.Equal(t, compression.Snappy, opts.Compression)
	assert.Equal(t, 64, opts.PageSize)
	assert.True(t, opts.SmallClusters)
}
