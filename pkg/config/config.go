package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config represents the complete file server configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (FILESERVER_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
//
// Storage follows the type-specific section pattern: Storage.Type selects the
// backend and only the matching section (e.g. storage.local) is decoded.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server contains the RPC listener, access and lifecycle settings
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Storage selects the storage backend for directory roots
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Telemetry configures tracing and profiling
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Directories lists the named roots exposed to clients
	Directories []DirectoryConfig `mapstructure:"directories" yaml:"directories" validate:"required,min=1,dive"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// ServerConfig contains the RPC server settings.
type ServerConfig struct {
	// Port is the TCP port of the RPC listener
	Port int `mapstructure:"port" yaml:"port" validate:"required,min=1,max=65535"`

	// BindAddress is the interface to listen on
	BindAddress string `mapstructure:"bind_address" yaml:"bind_address" validate:"required,ip"`

	// AllowedIPs lists client addresses or CIDR ranges allowed to connect
	AllowedIPs []string `mapstructure:"allowed_ips" yaml:"allowed_ips"`

	// User and Group name the identity to switch to after startup when
	// running as root. Each is a name or a numeric id.
	User  string `mapstructure:"user" yaml:"user,omitempty"`
	Group string `mapstructure:"group" yaml:"group,omitempty"`

	// MaxConnections limits concurrent connections (0 = unlimited)
	MaxConnections int `mapstructure:"max_connections" yaml:"max_connections" validate:"min=0"`

	// MaxMessageSize bounds a single RPC message in bytes
	MaxMessageSize int `mapstructure:"max_message_size" yaml:"max_message_size" validate:"min=0"`

	// MaxWriteSize bounds the bytes accepted by one write transfer
	// (0 = unlimited)
	MaxWriteSize uint64 `mapstructure:"max_write_size" yaml:"max_write_size"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"required,gt=0"`

	// ConfineSymlinks resolves symlinks when checking that a path stays
	// inside its directory root
	ConfineSymlinks bool `mapstructure:"confine_symlinks" yaml:"confine_symlinks"`

	// RateLimit throttles calls across all clients
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// RateLimitConfig configures the shared request token bucket.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate (0 = unlimited)
	RequestsPerSecond uint `mapstructure:"requests_per_second" yaml:"requests_per_second"`

	// Burst is the bucket size
	Burst uint `mapstructure:"burst" yaml:"burst"`
}

// MetricsConfig configures Prometheus metrics exposure.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" yaml:"port" validate:"min=0,max=65535"`
}

// StorageConfig specifies the storage backend.
type StorageConfig struct {
	// Type specifies which storage implementation to use
	// Valid values: local
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=local"`

	// Local contains local filesystem options
	// Only used when Type = "local"
	Local map[string]any `mapstructure:"local" yaml:"local"`
}

// TelemetryConfig configures OpenTelemetry tracing and Pyroscope profiling.
type TelemetryConfig struct {
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled"`
	Endpoint   string  `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure   bool    `mapstructure:"insecure" yaml:"insecure"`
	SampleRate float64 `mapstructure:"sample_rate" yaml:"sample_rate" validate:"gte=0,lte=1"`

	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig configures continuous profiling.
type ProfilingConfig struct {
	Enabled      bool     `mapstructure:"enabled" yaml:"enabled"`
	Endpoint     string   `mapstructure:"endpoint" yaml:"endpoint"`
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// DirectoryConfig defines one exposed directory root.
type DirectoryConfig struct {
	// Name is the first segment of client virtual paths
	Name string `mapstructure:"name" yaml:"name" validate:"required"`

	// Path is the directory on the host
	Path string `mapstructure:"path" yaml:"path" validate:"required"`

	// Permissions is "read-only" or "read-write"
	Permissions string `mapstructure:"permissions" yaml:"permissions" validate:"required,oneof=read-only read-write"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (FILESERVER_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath, "FILESERVER", "config")

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration, failing with instructions when no
// configuration file exists.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !ConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  fileserverd init\n\n"+
				"Or specify a custom config file:\n"+
				"  fileserverd start --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  fileserverd init --config %s",
			configPath, configPath)
	}

	return Load(configPath)
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath, envPrefix, configName string) {
	// Example: FILESERVER_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// $XDG_CONFIG_HOME/fileserver/<configName>.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is acceptable - use defaults
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// decodeHooks parses durations such as "30s" and comma-separated lists
// (allowed_ips from the environment).
func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "fileserver")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "fileserver")
}

// GetDefaultConfigPath returns the default server configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
