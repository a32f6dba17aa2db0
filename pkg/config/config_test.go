package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/directional-star/diggit/pkg/config"
	"github.com/directional-star/diggit/pkg/observability"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "diggit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, config.DefaultCacheBackend, cfg.Cache.Backend)
	assert.Equal(t, config.DefaultCachePath, cfg.Cache.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, config.LogFormatText, cfg.Logging.Format)
	assert.Equal(t, 50, cfg.Pipeline.MaxFilesChanged)
	assert.Empty(t, cfg.Pipeline.WorkDir)
	assert.Equal(t, "fp-growth", cfg.Mining.Algorithm)
	assert.Equal(t, 25, cfg.Mining.MaxItems)
	assert.Equal(t, 5, cfg.Mining.MinSupport)
	assert.Equal(t, 10000, cfg.Mining.Limit)
	assert.Zero(t, cfg.Mining.Workers)
	assert.Empty(t, cfg.Observability.OTLPEndpoint)
	assert.Empty(t, cfg.Observability.MetricsAddr)
	assert.InDelta(t, 1.0, cfg.Observability.SampleRatio, 1e-9)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("DIGGIT_CACHE_BACKEND", "memory")
	t.Setenv("DIGGIT_PIPELINE_MAX_FILES_CHANGED", "12")
	t.Setenv("DIGGIT_MINING_ALGORITHM", "apriori")
	t.Setenv("DIGGIT_OBSERVABILITY_OTLP_ENDPOINT", "localhost:4317")

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 12, cfg.Pipeline.MaxFilesChanged)
	assert.Equal(t, "apriori", cfg.Mining.Algorithm)
	assert.Equal(t, "localhost:4317", cfg.Observability.OTLPEndpoint)
}

func TestLoadConfigEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "mining:\n  max_items: 7\n")

	t.Setenv("DIGGIT_MINING_MAX_ITEMS", "9")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Mining.MaxItems)
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"unknown_backend", "cache:\n  backend: redis\n", config.ErrInvalidBackend},
		{"bolt_without_path", "cache:\n  backend: bolt\n  path: \"\"\n", config.ErrInvalidCachePath},
		{"log_level", "logging:\n  level: loud\n", config.ErrInvalidLogLevel},
		{"log_format", "logging:\n  format: xml\n", config.ErrInvalidLogFormat},
		{"max_files_changed", "pipeline:\n  max_files_changed: 0\n", config.ErrInvalidMaxFilesChanged},
		{"algorithm", "mining:\n  algorithm: eclat\n", config.ErrInvalidAlgorithm},
		{"workers", "mining:\n  workers: -1\n", config.ErrInvalidWorkers},
		{"max_items", "mining:\n  max_items: 0\n", config.ErrInvalidMaxItems},
		{"min_support", "mining:\n  min_support: 0\n", config.ErrInvalidMinSupport},
		{"limit", "mining:\n  limit: -5\n", config.ErrInvalidLimit},
		{"sample_ratio", "observability:\n  sample_ratio: 1.5\n", config.ErrInvalidSampleRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTelemetry(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, `
logging:
  level: debug
  format: json
observability:
  otlp_endpoint: collector:4317
  otlp_insecure: true
  metrics_addr: ":9090"
  environment: staging
  sample_ratio: 0.25
`))
	require.NoError(t, err)

	tel := cfg.Telemetry(observability.ModeBatch, "1.2.3")

	assert.Equal(t, "diggit", tel.ServiceName)
	assert.Equal(t, "1.2.3", tel.ServiceVersion)
	assert.Equal(t, "staging", tel.Environment)
	assert.Equal(t, observability.ModeBatch, tel.Mode)
	assert.Equal(t, "collector:4317", tel.OTLPEndpoint)
	assert.True(t, tel.OTLPInsecure)
	assert.True(t, tel.Prometheus)
	assert.True(t, tel.LogJSON)
	assert.Equal(t, slog.LevelDebug, tel.LogLevel)
	assert.InDelta(t, 0.25, tel.SampleRatio, 1e-9)
}

func TestTelemetryDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	tel := cfg.Telemetry(observability.ModeCLI, "")

	assert.False(t, tel.Prometheus)
	assert.False(t, tel.LogJSON)
	assert.Empty(t, tel.OTLPEndpoint)
	assert.Equal(t, slog.LevelInfo, tel.LogLevel)
}
