package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"
)

// Config holds all configuration for the engine and its wrappers.
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Storage configuration
	Storage StorageConfig `mapstructure:"storage"`

	// Analytics configuration
	Analytics AnalyticsConfig `mapstructure:"analytics"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// StorageConfig holds the embedded database configuration
type StorageConfig struct {
	// Path is the badger directory. Empty means in-memory only.
	Path string `mapstructure:"path"`
	// SyncWrites trades throughput for durability on every commit.
	SyncWrites bool `mapstructure:"sync_writes"`
}

// AnalyticsConfig holds analytics tuning knobs
type AnalyticsConfig struct {
	// MaxExactNodes is the ceiling above which exact betweenness and
	// closeness refuse to run.
	MaxExactNodes int `mapstructure:"max_exact_nodes"`
	// SampleSize is the pivot count for sampled centrality.
	SampleSize int `mapstructure:"sample_size"`
	// Concurrency caps worker parallelism; zero means NumCPU.
	Concurrency int `mapstructure:"concurrency"`
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	ParquetPath string `mapstructure:"parquet_path"`
}

// Default returns a configuration with every field at its default value,
// without consulting config files or the environment.
func Default() *Config {
	return &Config{
		Log:    LogConfig{Level: "info", Format: "text"},
		Server: ServerConfig{Host: "localhost", Port: 8080, Mode: "debug"},
		Storage: StorageConfig{
			Path:       "./tapestry_db",
			SyncWrites: false,
		},
		Analytics: AnalyticsConfig{
			MaxExactNodes: 10000,
			SampleSize:    256,
		},
	}
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")

	// Storage defaults
	viper.SetDefault("storage.path", "./tapestry_db")
	viper.SetDefault("storage.sync_writes", false)

	// Analytics defaults
	viper.SetDefault("analytics.max_exact_nodes", 10000)
	viper.SetDefault("analytics.sample_size", 256)
	viper.SetDefault("analytics.concurrency", 0)

	// Telemetry defaults
	home, err := os.UserHomeDir()
	if err == nil {
		viper.SetDefault("telemetry.parquet_path", fmt.Sprintf("%s/.tapestry/telemetry", home))
	}
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	if path := os.Getenv("TAPESTRY_DB_PATH"); path != "" {
		config.Storage.Path = path
	}
	if host := os.Getenv("TAPESTRY_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("TAPESTRY_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if level := os.Getenv("TAPESTRY_LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
	if path := os.Getenv("TAPESTRY_TELEMETRY_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}
}
