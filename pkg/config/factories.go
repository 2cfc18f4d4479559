package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"

	"github.com/bert42/fileserver/internal/telemetry"
	"github.com/bert42/fileserver/internal/version"
	"github.com/bert42/fileserver/pkg/access"
	"github.com/bert42/fileserver/pkg/adapter/rpc"
	"github.com/bert42/fileserver/pkg/fserrors"
	"github.com/bert42/fileserver/pkg/privilege"
	"github.com/bert42/fileserver/pkg/storage"
	"github.com/bert42/fileserver/pkg/storage/local"
	"github.com/bert42/fileserver/pkg/transfer"
	"github.com/mitchellh/mapstructure"
)

// CreateStore creates the storage backend selected by cfg.Type.
//
// The type-specific section is decoded with mapstructure into the backend's
// own Config type. File modes may be given as numbers or octal strings
// ("0750").
//
// Supported types:
//   - "local": pkg/storage/local (host filesystem)
func CreateStore(cfg *StorageConfig) (storage.Store, error) {
	switch cfg.Type {
	case "local":
		var localCfg local.Config
		if err := decodeOptions(cfg.Local, &localCfg); err != nil {
			return nil, fserrors.Wrap(fserrors.Config, err, "invalid storage.local config")
		}
		return local.New(localCfg), nil
	default:
		return nil, fserrors.New(fserrors.Config, "unknown storage type: %q", cfg.Type)
	}
}

func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       fileModeDecodeHook(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(options)
}

// fileModeDecodeHook parses octal strings into os.FileMode.
func fileModeDecodeHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(os.FileMode(0)) || from.Kind() != reflect.String {
			return data, nil
		}
		mode, err := strconv.ParseUint(data.(string), 8, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid file mode %q: %w", data, err)
		}
		return os.FileMode(mode), nil
	}
}

// NewAccessEngine builds the authorization engine from the directory table
// and allowlist.
func NewAccessEngine(cfg *Config) (*access.Engine, error) {
	allow, err := access.ParseAllowlist(cfg.Server.AllowedIPs)
	if err != nil {
		return nil, fserrors.Wrap(fserrors.Config, err, "server.allowed_ips")
	}

	roots := make([]access.DirectoryRoot, 0, len(cfg.Directories))
	for i, dir := range cfg.Directories {
		perm, err := access.ParsePermission(dir.Permissions)
		if err != nil {
			return nil, fserrors.Wrap(fserrors.Config, err, "directories[%d]", i)
		}
		roots = append(roots, access.DirectoryRoot{
			Name:       dir.Name,
			Path:       dir.Path,
			Permission: perm,
		})
	}

	return access.New(roots, allow, access.Options{ConfineSymlinks: cfg.Server.ConfineSymlinks})
}

// PrivilegeTarget returns the identity to drop to after startup.
func PrivilegeTarget(cfg *Config) privilege.Target {
	return privilege.Target{User: cfg.Server.User, Group: cfg.Server.Group}
}

// TransferConfig returns the transfer engine tunables.
func TransferConfig(cfg *Config) transfer.Config {
	return transfer.Config{MaxWriteSize: cfg.Server.MaxWriteSize}
}

// RPCConfig returns the transport settings for the RPC adapter.
func RPCConfig(cfg *Config) rpc.Config {
	return rpc.Config{
		BindAddress:     cfg.Server.BindAddress,
		Port:            cfg.Server.Port,
		MaxConnections:  cfg.Server.MaxConnections,
		MaxMessageSize:  cfg.Server.MaxMessageSize,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		RateLimit: rpc.RateLimitConfig{
			RequestsPerSecond: cfg.Server.RateLimit.RequestsPerSecond,
			Burst:             cfg.Server.RateLimit.Burst,
		},
	}
}

// TracingConfig returns the OpenTelemetry settings.
func TracingConfig(cfg *Config) telemetry.Config {
	return telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "fileserverd",
		ServiceVersion: version.Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
}

// ProfilingSettings returns the Pyroscope settings.
func ProfilingSettings(cfg *Config) telemetry.ProfilingConfig {
	return telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "fileserverd",
		ServiceVersion: version.Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	}
}
