package config

import (
	"github.com/directional-star/diggit/pkg/cache"
	"github.com/directional-star/diggit/pkg/itemset"
	"github.com/directional-star/diggit/pkg/pipeline"
)

// Cache defaults.
const (
	DefaultCacheBackend = cache.BackendBolt
	DefaultCachePath    = "/tmp/diggit/cache.db"
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = LogFormatText
)

// Pipeline defaults.
const (
	DefaultPipelineMaxFilesChanged = pipeline.DefaultMaxFilesChanged
	DefaultPipelineWorkDir         = ""
)

// Mining defaults, used by the batch commands.
const (
	DefaultMiningAlgorithm  = itemset.AlgorithmFPGrowth
	DefaultMiningWorkers    = 0
	DefaultMiningMaxItems   = 25
	DefaultMiningMinSupport = 5
	DefaultMiningLimit      = 10000
)

// Observability defaults.
const (
	DefaultOTLPEndpoint = ""
	DefaultOTLPInsecure = false
	DefaultMetricsAddr  = ""
	DefaultEnvironment  = ""
	DefaultSampleRatio  = 1.0
)
