package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configHeader = `# File Server Configuration File
#
# Values may be overridden with FILESERVER_* environment variables, e.g.
#   FILESERVER_LOGGING_LEVEL=DEBUG
#   FILESERVER_SERVER_PORT=50052
#
# directories: each entry exposes a host directory under a name. Clients
# address files as "<name>/<relative path>". permissions is read-only or
# read-write.
#
# server.allowed_ips: client addresses or CIDR ranges allowed to connect.
# server.user / server.group: identity to switch to when started as root.

`

// InitConfig writes a sample configuration to the default location.
//
// Returns the path written, or an error if a file already exists and force
// is false.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration to path.
func InitConfigToPath(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(GetDefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, append([]byte(configHeader), data...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
