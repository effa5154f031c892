package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/swell/pkg/batch/support/util/exception"
	"github.com/tigerroll/swell/pkg/batch/support/util/logger"

	"go.uber.org/fx"
)

// Package config provides utilities for loading and managing application configuration
// from YAML files and environment variables.

const moduleName = "config"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig // EmbeddedConfig contains the raw bytes of the configuration file.
	EnvFilePath    string         `name:"envFilePath" optional:"true"` // EnvFilePath is the path to the .env file, if any.
}

// loadConfig loads configuration from a file and environment variables.
// This function is intended to be called only once during application startup.
func loadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else {
		if err := godotenv.Load(); err != nil {
			logger.Debugf(".env file not found or could not be loaded: %v", err)
		}
	}

	// 1. Defaults from NewConfig()
	cfg := NewConfig()

	// 2. Parse embedded YAML into a temporary Config struct.
	var yamlConfig Config
	if err := yaml.Unmarshal(embeddedConfig, &yamlConfig); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to unmarshal embedded config", err, false, false)
	}

	// 3. Merge YAML values over the defaults.
	mergeConfig(cfg, &yamlConfig)

	// 4. Override with environment variables.
	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to load config from environment variables", err, false, false)
	}
	return cfg, nil
}

// NewConfigProvider is an Fx provider that loads and provides *Config.
// It initializes the application configuration by loading defaults, merging
// from embedded YAML, and overriding with environment variables. It also sets
// the global logger level.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := loadConfig(params.EnvFilePath, params.EmbeddedConfig)
	if err != nil {
		return nil, err
	}

	logger.SetLogLevel(cfg.Swell.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.Swell.System.Logging.Level)

	return cfg, nil
}

// LoadConfig loads configuration from configuration files and environment variables.
// This function is expected to be called only once during application startup.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	return loadConfig(envFilePath, embeddedConfig)
}

// mergeConfig performs a deep merge from sourceConfig into destConfig.
// Values in sourceConfig overwrite corresponding values in destConfig if they
// are not zero/empty values for their type.
func mergeConfig(destConfig, sourceConfig *Config) {
	mergeSwellConfig(&destConfig.Swell, &sourceConfig.Swell)
}

// mergeSwellConfig merges source into dest.
func mergeSwellConfig(dest, source *SwellConfig) {
	if source.Scheduler.TickIntervalSeconds != 0 {
		dest.Scheduler.TickIntervalSeconds = source.Scheduler.TickIntervalSeconds
	}
	if source.Scheduler.DefaultChunkSize != 0 {
		dest.Scheduler.DefaultChunkSize = source.Scheduler.DefaultChunkSize
	}
	if source.Scheduler.DefaultParallelism != 0 {
		dest.Scheduler.DefaultParallelism = source.Scheduler.DefaultParallelism
	}
	if source.Scheduler.MaxConcurrentInstances != 0 {
		dest.Scheduler.MaxConcurrentInstances = source.Scheduler.MaxConcurrentInstances
	}
	mergeRetryConfig(&dest.Scheduler.Retry, &source.Scheduler.Retry)

	if source.System.Timezone != "" {
		dest.System.Timezone = source.System.Timezone
	}
	if source.System.Logging.Level != "" {
		dest.System.Logging.Level = source.System.Logging.Level
	}

	if source.Infrastructure.RepositoryDBRef != "" {
		dest.Infrastructure.RepositoryDBRef = source.Infrastructure.RepositoryDBRef
	}

	if source.AdaptorConfigs != nil {
		if dest.AdaptorConfigs == nil {
			dest.AdaptorConfigs = make(map[string]interface{})
		}
		for key, value := range source.AdaptorConfigs {
			dest.AdaptorConfigs[key] = value
		}
	}
}

// mergeRetryConfig merges source into dest.
func mergeRetryConfig(dest, source *RetryConfig) {
	if source.InitialIntervalMillis != 0 {
		dest.InitialIntervalMillis = source.InitialIntervalMillis
	}
	if source.MaxIntervalMillis != 0 {
		dest.MaxIntervalMillis = source.MaxIntervalMillis
	}
	if source.Factor != 0 {
		dest.Factor = source.Factor
	}
}

// loadStructFromEnv recursively loads configuration values into a struct from
// environment variables. It uses the "yaml" tag to determine the environment
// variable name (e.g., SWELL_SCHEDULER_TICK_INTERVAL_SECONDS).
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}

		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// setField sets the value of a reflect.Value field based on its kind.
// It handles string, int, float, and bool types.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		// Maps and slices are populated from YAML only.
	}
	return nil
}
