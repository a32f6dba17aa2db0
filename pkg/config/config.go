// Package config provides configuration loading and validation for diggit.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/directional-star/diggit/pkg/cache"
	"github.com/directional-star/diggit/pkg/itemset"
	"github.com/directional-star/diggit/pkg/observability"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Sentinel validation errors.
var (
	ErrInvalidBackend         = errors.New("invalid cache backend")
	ErrInvalidCachePath       = errors.New("bolt cache needs a path")
	ErrInvalidLogLevel        = errors.New("invalid log level")
	ErrInvalidLogFormat       = errors.New("invalid log format")
	ErrInvalidMaxFilesChanged = errors.New("max files changed must be positive")
	ErrInvalidAlgorithm       = errors.New("invalid mining algorithm")
	ErrInvalidWorkers         = errors.New("mining workers must not be negative")
	ErrInvalidMaxItems        = errors.New("mining max items must be positive")
	ErrInvalidMinSupport      = errors.New("mining min support must be positive")
	ErrInvalidLimit           = errors.New("mining limit must be positive")
	ErrInvalidSampleRatio     = errors.New("sample ratio must be within [0, 1]")
)

// Config holds all configuration for diggit.
type Config struct {
	Cache         CacheConfig         `mapstructure:"cache"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Mining        MiningConfig        `mapstructure:"mining"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// CacheConfig selects the changeset/itemset store.
type CacheConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PipelineConfig holds analysis run configuration.
type PipelineConfig struct {
	WorkDir         string `mapstructure:"work_dir"`
	MaxFilesChanged int    `mapstructure:"max_files_changed"`
}

// MiningConfig holds itemset mining configuration.
type MiningConfig struct {
	Algorithm  string `mapstructure:"algorithm"`
	Workers    int    `mapstructure:"workers"`
	MaxItems   int    `mapstructure:"max_items"`
	MinSupport int    `mapstructure:"min_support"`
	Limit      int    `mapstructure:"limit"`
}

// ObservabilityConfig holds telemetry export configuration.
type ObservabilityConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	MetricsAddr  string  `mapstructure:"metrics_addr"`
	Environment  string  `mapstructure:"environment"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
}

// LoadConfig loads configuration from file and environment variables.
// An empty configPath searches for diggit.yaml in ., ./config and /etc/diggit;
// not finding one there is not an error.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("diggit")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/diggit")
	}

	viperCfg.SetEnvPrefix("DIGGIT")
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// Telemetry maps the configuration onto observability settings.
func (c *Config) Telemetry(mode observability.AppMode, serviceVersion string) observability.Config {
	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = serviceVersion
	cfg.Environment = c.Observability.Environment
	cfg.Mode = mode
	cfg.OTLPEndpoint = c.Observability.OTLPEndpoint
	cfg.OTLPInsecure = c.Observability.OTLPInsecure
	cfg.Prometheus = c.Observability.MetricsAddr != ""
	cfg.SampleRatio = c.Observability.SampleRatio
	cfg.LogJSON = c.Logging.Format == LogFormatJSON

	level, err := parseLevel(c.Logging.Level)
	if err == nil {
		cfg.LogLevel = level
	}

	return cfg
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("cache.backend", DefaultCacheBackend)
	viperCfg.SetDefault("cache.path", DefaultCachePath)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("pipeline.max_files_changed", DefaultPipelineMaxFilesChanged)
	viperCfg.SetDefault("pipeline.work_dir", DefaultPipelineWorkDir)

	viperCfg.SetDefault("mining.algorithm", DefaultMiningAlgorithm)
	viperCfg.SetDefault("mining.workers", DefaultMiningWorkers)
	viperCfg.SetDefault("mining.max_items", DefaultMiningMaxItems)
	viperCfg.SetDefault("mining.min_support", DefaultMiningMinSupport)
	viperCfg.SetDefault("mining.limit", DefaultMiningLimit)

	viperCfg.SetDefault("observability.otlp_endpoint", DefaultOTLPEndpoint)
	viperCfg.SetDefault("observability.otlp_insecure", DefaultOTLPInsecure)
	viperCfg.SetDefault("observability.metrics_addr", DefaultMetricsAddr)
	viperCfg.SetDefault("observability.environment", DefaultEnvironment)
	viperCfg.SetDefault("observability.sample_ratio", DefaultSampleRatio)
}

// validateConfig validates the configuration.
func validateConfig(config *Config) error {
	switch config.Cache.Backend {
	case cache.BackendBolt:
		if config.Cache.Path == "" {
			return ErrInvalidCachePath
		}
	case cache.BackendMemory:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBackend, config.Cache.Backend)
	}

	_, err := parseLevel(config.Logging.Level)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, config.Logging.Level)
	}

	if config.Logging.Format != LogFormatText && config.Logging.Format != LogFormatJSON {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	if config.Pipeline.MaxFilesChanged <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxFilesChanged, config.Pipeline.MaxFilesChanged)
	}

	err = validateMining(config)
	if err != nil {
		return err
	}

	if config.Observability.SampleRatio < 0 || config.Observability.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, config.Observability.SampleRatio)
	}

	return nil
}

func validateMining(config *Config) error {
	if config.Mining.Algorithm != itemset.AlgorithmFPGrowth && config.Mining.Algorithm != itemset.AlgorithmApriori {
		return fmt.Errorf("%w: %q", ErrInvalidAlgorithm, config.Mining.Algorithm)
	}

	if config.Mining.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, config.Mining.Workers)
	}

	if config.Mining.MaxItems <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxItems, config.Mining.MaxItems)
	}

	if config.Mining.MinSupport <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMinSupport, config.Mining.MinSupport)
	}

	if config.Mining.Limit <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLimit, config.Mining.Limit)
	}

	return nil
}

func parseLevel(name string) (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(name))

	return level, err
}
