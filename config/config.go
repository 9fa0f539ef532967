// Package config loads repostream's tunables from environment variables and
// an optional .env file. Grounded on adred-codev-ws_poc/ws/config.go's
// godotenv+caarlos0/env pattern (env vars win over .env file, which wins
// over struct defaults), generalized with a preset layer: REPOSTREAM_PRESET
// selects one of four named configurations from spec.md §6 before
// individual REPOSTREAM_* variables are applied on top.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/repostream/queuecore/internal/logging"
	"github.com/repostream/queuecore/producer"
	"github.com/repostream/queuecore/queue"
)

// Preset names accepted by the REPOSTREAM_PRESET environment variable.
const (
	PresetDevelopment    = "development"
	PresetBalanced       = "balanced"
	PresetHighThroughput = "high_throughput"
	PresetLowMemory      = "low_memory"
)

// Env holds the raw environment-variable-driven overrides; it is parsed on
// top of whichever preset REPOSTREAM_PRESET selects. Fields left at their
// zero value do not override the preset (see applyOverrides).
type Env struct {
	Preset string `env:"REPOSTREAM_PRESET" envDefault:"balanced"`

	ScanID string `env:"REPOSTREAM_SCAN_ID" envDefault:"default"`
	Root   string `env:"REPOSTREAM_ROOT" envDefault:"."`

	MaxQueueSize         int           `env:"REPOSTREAM_MAX_QUEUE_SIZE"`
	MemoryThresholdBytes int64         `env:"REPOSTREAM_MEMORY_THRESHOLD_BYTES"`
	GCInterval           time.Duration `env:"REPOSTREAM_GC_INTERVAL"`
	ConsumerTimeout      time.Duration `env:"REPOSTREAM_CONSUMER_TIMEOUT"`
	GCBatchSize          int           `env:"REPOSTREAM_GC_BATCH_SIZE"`

	BatchSize            int           `env:"REPOSTREAM_BATCH_SIZE"`
	BufferSize           int           `env:"REPOSTREAM_BUFFER_SIZE"`
	BatchTimeout         time.Duration `env:"REPOSTREAM_BATCH_TIMEOUT"`
	MaxAdaptiveBatchSize int           `env:"REPOSTREAM_MAX_ADAPTIVE_BATCH_SIZE"`

	LogLevel  string `env:"REPOSTREAM_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"REPOSTREAM_LOG_FORMAT" envDefault:"json"`

	MetricsAddr string `env:"REPOSTREAM_METRICS_ADDR" envDefault:":9090"`
}

// AppConfig is the fully resolved configuration the CLI entrypoint wires
// up: a preset applied first, then individual Env overrides layered on top.
type AppConfig struct {
	ScanID string
	Root   string

	Queue    queue.MultiConsumerConfig
	Producer producer.Config

	LogLevel  logging.Level
	LogFormat logging.Format

	MetricsAddr string
}

// Load reads .env (if present) then environment variables, applies the
// selected preset, and layers non-zero Env overrides on top. A missing .env
// file is not an error — it is expected in containerized deployments that
// set real environment variables directly.
func Load(logger *zerolog.Logger) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		if logger != nil {
			logger.Info().Msg("no .env file found, using environment variables only")
		}
	} else if logger != nil {
		logger.Info().Msg("loaded configuration overrides from .env file")
	}

	var e Env
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}

	cfg, err := presetFor(e.Preset)
	if err != nil {
		return nil, err
	}

	applyOverrides(cfg, &e)
	return cfg, nil
}

func presetFor(name string) (*AppConfig, error) {
	switch name {
	case "", PresetDevelopment:
		return Development(), nil
	case PresetBalanced:
		return Balanced(), nil
	case PresetHighThroughput:
		return HighThroughput(), nil
	case PresetLowMemory:
		return LowMemory(), nil
	default:
		return nil, fmt.Errorf("config: unknown REPOSTREAM_PRESET %q", name)
	}
}

// applyOverrides layers non-zero fields from e on top of cfg, in place.
// Zero-valued fields (the Go zero value for their type) are treated as "not
// set" and leave the preset's value untouched, matching spec.md §6's "a
// preset selects every tunable at once; individual tunables may override".
func applyOverrides(cfg *AppConfig, e *Env) {
	if e.ScanID != "" {
		cfg.ScanID = e.ScanID
	}
	if e.Root != "" {
		cfg.Root = e.Root
	}
	if e.MaxQueueSize != 0 {
		cfg.Queue.MaxQueueSize = e.MaxQueueSize
	}
	if e.MemoryThresholdBytes != 0 {
		cfg.Queue.MemoryThresholdBytes = e.MemoryThresholdBytes
	}
	if e.GCInterval != 0 {
		cfg.Queue.GCInterval = e.GCInterval
	}
	if e.ConsumerTimeout != 0 {
		cfg.Queue.ConsumerTimeout = e.ConsumerTimeout
	}
	if e.GCBatchSize != 0 {
		cfg.Queue.GCBatchSize = e.GCBatchSize
	}
	if e.BatchSize != 0 {
		cfg.Producer.BatchSize = e.BatchSize
	}
	if e.BufferSize != 0 {
		cfg.Producer.BufferSize = e.BufferSize
	}
	if e.BatchTimeout != 0 {
		cfg.Producer.BatchTimeout = e.BatchTimeout
	}
	if e.MaxAdaptiveBatchSize != 0 {
		cfg.Producer.MaxAdaptiveBatchSize = e.MaxAdaptiveBatchSize
	}
	if e.LogLevel != "" {
		cfg.LogLevel = logging.Level(e.LogLevel)
	}
	if e.LogFormat != "" {
		cfg.LogFormat = logging.Format(e.LogFormat)
	}
	if e.MetricsAddr != "" {
		cfg.MetricsAddr = e.MetricsAddr
	}
}

// Development favors fast feedback: small bounds, verbose debug logging.
func Development() *AppConfig {
	return &AppConfig{
		ScanID:      "dev",
		Root:        ".",
		Queue:       queue.DevelopmentConfig(),
		Producer:    producer.Config{BatchSize: 16, BufferSize: 64, BatchTimeout: 50 * time.Millisecond, AdaptiveBatching: true, MaxAdaptiveBatchSize: 32},
		LogLevel:    logging.LevelDebug,
		LogFormat:   logging.FormatConsole,
		MetricsAddr: ":9090",
	}
}

// Balanced is the default: moderate bounds, JSON logging.
func Balanced() *AppConfig {
	return &AppConfig{
		ScanID:      "default",
		Root:        ".",
		Queue:       queue.BalancedConfig(),
		Producer:    producer.DefaultConfig(),
		LogLevel:    logging.LevelInfo,
		LogFormat:   logging.FormatJSON,
		MetricsAddr: ":9090",
	}
}

// HighThroughput favors sustained ingestion rate: large bounds, large
// batches.
func HighThroughput() *AppConfig {
	return &AppConfig{
		ScanID:      "default",
		Root:        ".",
		Queue:       queue.HighThroughputConfig(),
		Producer:    producer.Config{BatchSize: 512, BufferSize: 4096, BatchTimeout: 200 * time.Millisecond, AdaptiveBatching: true, MaxAdaptiveBatchSize: 2048},
		LogLevel:    logging.LevelInfo,
		LogFormat:   logging.FormatJSON,
		MetricsAddr: ":9090",
	}
}

// LowMemory favors a tight memory footprint: small bounds, aggressive
// backoff/drop.
func LowMemory() *AppConfig {
	return &AppConfig{
		ScanID:      "default",
		Root:        ".",
		Queue:       queue.LowMemoryConfig(),
		Producer:    producer.Config{BatchSize: 16, BufferSize: 32, BatchTimeout: 50 * time.Millisecond, AdaptiveBatching: true, MaxAdaptiveBatchSize: 16},
		LogLevel:    logging.LevelWarn,
		LogFormat:   logging.FormatJSON,
		MetricsAddr: ":9090",
	}
}
