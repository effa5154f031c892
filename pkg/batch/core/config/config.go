package config

// Package config provides structures and utilities for managing application configuration.

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
// This is used when loading configuration from an embedded source (e.g., a compiled binary).
type EmbeddedConfig []byte

// SchedulerConfig holds configuration specific to the dispatch loop.
type SchedulerConfig struct {
	// TickIntervalSeconds is the scheduler polling interval in seconds.
	TickIntervalSeconds int `yaml:"tick_interval_seconds"`
	// DefaultChunkSize is the chunk size used when a job definition leaves it unset.
	DefaultChunkSize int `yaml:"default_chunk_size"`
	// DefaultParallelism is the per-instance chunk concurrency used when a job definition leaves it unset.
	DefaultParallelism int `yaml:"default_parallelism"`
	// MaxConcurrentInstances bounds how many instances may run at once across all jobs. Zero means unbounded.
	MaxConcurrentInstances int `yaml:"max_concurrent_instances"`
	// Retry is the engine-level retry pacing configuration.
	Retry RetryConfig `yaml:"retry"`
}

// RetryConfig holds backoff pacing for per-record retries.
type RetryConfig struct {
	// InitialIntervalMillis is the initial backoff interval in milliseconds.
	InitialIntervalMillis int `yaml:"initial_interval"`
	// MaxIntervalMillis is the maximum backoff interval in milliseconds.
	MaxIntervalMillis int `yaml:"max_interval"`
	// Factor is the factor by which the interval increases (e.g., 2.0 for exponential backoff).
	Factor float64 `yaml:"factor"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG", "TRACE").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the application timezone (e.g., "UTC", "Asia/Tokyo").
	// Cron expressions are evaluated in this timezone.
	Timezone string `yaml:"timezone"`
	// Logging is the logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// InfrastructureConfig holds logical dependency settings for infrastructure components.
type InfrastructureConfig struct {
	// RepositoryDBRef is the name of the database connection used by the
	// engine's repositories (e.g., "metadata"). Empty selects the in-memory
	// repository.
	RepositoryDBRef string `yaml:"repository_db_ref"`
}

// SwellConfig holds all configuration under the "swell" top-level key.
type SwellConfig struct {
	// Scheduler contains dispatch loop configurations.
	Scheduler SchedulerConfig `yaml:"scheduler"`
	// System contains system-wide configurations.
	System SystemConfig `yaml:"system"`
	// Infrastructure contains infrastructure-related configurations.
	Infrastructure InfrastructureConfig `yaml:"infrastructure"`
	// AdaptorConfigs holds configurations for database connections, keyed by
	// logical connection name.
	AdaptorConfigs map[string]interface{} `yaml:"database"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Swell SwellConfig `yaml:"swell"`
	// EmbeddedConfig holds configuration loaded from an embedded source, not from YAML.
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// NewConfig returns a new instance of Config with default values.
func NewConfig() *Config {
	return &Config{
		Swell: SwellConfig{
			Scheduler: SchedulerConfig{
				TickIntervalSeconds: 30,
				DefaultChunkSize:    100,
				DefaultParallelism:  1,
				Retry: RetryConfig{
					InitialIntervalMillis: 100,
					MaxIntervalMillis:     5000,
					Factor:                2.0,
				},
			},
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO"},
			},
		},
	}
}
