package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/directional-star/diggit/pkg/config"
)

func TestLoadConfig_ValidFile_Unmarshals(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `cache:
  backend: memory
  path: /var/cache/diggit.db
logging:
  level: warn
  format: json
pipeline:
  max_files_changed: 80
  work_dir: /var/tmp/diggit
mining:
  algorithm: apriori
  workers: 4
  max_items: 10
  min_support: 3
  limit: 500
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, config.CacheConfig{Backend: "memory", Path: "/var/cache/diggit.db"}, cfg.Cache)
	assert.Equal(t, config.LoggingConfig{Level: "warn", Format: "json"}, cfg.Logging)
	assert.Equal(t, config.PipelineConfig{WorkDir: "/var/tmp/diggit", MaxFilesChanged: 80}, cfg.Pipeline)
	assert.Equal(t, config.MiningConfig{
		Algorithm:  "apriori",
		Workers:    4,
		MaxItems:   10,
		MinSupport: 3,
		Limit:      500,
	}, cfg.Mining)
}

func TestLoadConfig_PartialFile_KeepsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, "mining:\n  workers: 2\n"))
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Mining.Workers)
	assert.Equal(t, config.DefaultMiningAlgorithm, cfg.Mining.Algorithm)
	assert.Equal(t, config.DefaultMiningMaxItems, cfg.Mining.MaxItems)
	assert.Equal(t, config.DefaultCacheBackend, cfg.Cache.Backend)
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mining: [unterminated\n"), 0o600))

	_, err := config.LoadConfig(path)
	require.ErrorContains(t, err, "failed to read config file")
}
