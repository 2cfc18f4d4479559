package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// ClientConfig is the configuration of the command-line client.
type ClientConfig struct {
	Server ClientServerConfig `mapstructure:"server" yaml:"server"`
	Client ClientOptions      `mapstructure:"client" yaml:"client"`
}

// ClientServerConfig locates the file server.
type ClientServerConfig struct {
	Host string `mapstructure:"host" yaml:"host" validate:"required"`
	Port int    `mapstructure:"port" yaml:"port" validate:"required,min=1,max=65535"`
}

// ClientOptions tunes call behavior.
type ClientOptions struct {
	// TimeoutSeconds bounds each unary call and the connection attempt
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds" validate:"required,min=1"`

	// RetryAttempts is the number of attempts for retryable unary calls
	RetryAttempts int `mapstructure:"retry_attempts" yaml:"retry_attempts" validate:"required,min=1"`
}

// Address returns host:port.
func (c *ClientConfig) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// Timeout returns the per-call timeout.
func (c *ClientConfig) Timeout() time.Duration {
	return time.Duration(c.Client.TimeoutSeconds) * time.Second
}

// LoadClient loads client configuration from file, environment
// (FILESERVER_CLIENT_*), and defaults. A missing file is not an error when
// configPath is empty.
func LoadClient(configPath string) (*ClientConfig, error) {
	v := viper.New()
	setupViper(v, configPath, "FILESERVER_CLIENT", "client")

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal client config: %w", err)
	}

	ApplyClientDefaults(&cfg)

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("client configuration validation failed: %w", formatValidationError(err))
	}

	return &cfg, nil
}

// ApplyClientDefaults fills unset client fields.
func ApplyClientDefaults(cfg *ClientConfig) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 50051
	}
	if cfg.Client.TimeoutSeconds == 0 {
		cfg.Client.TimeoutSeconds = 30
	}
	if cfg.Client.RetryAttempts == 0 {
		cfg.Client.RetryAttempts = 3
	}
}

// GetDefaultClientConfigPath returns the default client configuration path.
func GetDefaultClientConfigPath() string {
	return filepath.Join(getConfigDir(), "client.yaml")
}
