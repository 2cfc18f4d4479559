package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Directories and the allowlist have no defaults; they must be configured
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyStorageDefaults(&cfg.Storage)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyDirectoryDefaults(cfg.Directories)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Port == 0 {
		cfg.Port = 50051
	}
	if cfg.BindAddress == "" {
		cfg.BindAddress = "0.0.0.0"
	}
	if cfg.AllowedIPs == nil {
		cfg.AllowedIPs = []string{}
	}
	// MaxConnections 0 means unlimited
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = 4 << 20 // 4MB
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.RateLimit.RequestsPerSecond > 0 && cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = cfg.RateLimit.RequestsPerSecond
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}

func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.Type == "" {
		cfg.Type = "local"
	}
	if cfg.Local == nil {
		cfg.Local = make(map[string]any)
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	// An unset rate means sample everything; disable tracing to sample nothing.
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	if cfg.Profiling.Endpoint == "" {
		cfg.Profiling.Endpoint = "http://localhost:4040"
	}
	if len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = []string{"cpu", "alloc_space", "inuse_space", "goroutines"}
	}
}

func applyDirectoryDefaults(dirs []DirectoryConfig) {
	for i := range dirs {
		dirs[i].Permissions = strings.ToLower(strings.TrimSpace(dirs[i].Permissions))
		if dirs[i].Permissions == "" {
			dirs[i].Permissions = "read-only"
		}
	}
}

// GetDefaultConfig returns a Config with all default values applied and a
// sample directory, used to generate the initial configuration file.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{
			AllowedIPs: []string{"127.0.0.1", "::1"},
		},
		Directories: []DirectoryConfig{
			{Name: "public", Path: "/srv/fileserver/public", Permissions: "read-only"},
			{Name: "uploads", Path: "/srv/fileserver/uploads", Permissions: "read-write"},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
