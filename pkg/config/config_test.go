package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	docs := t.TempDir()
	uploads := t.TempDir()

	path := writeConfig(t, `
logging:
  level: debug
  format: json
server:
  port: 6000
  bind_address: 127.0.0.1
  allowed_ips: ["127.0.0.1", "10.0.0.0/8"]
  user: nobody
  max_connections: 16
  shutdown_timeout: 5s
  confine_symlinks: true
  rate_limit:
    requests_per_second: 100
  metrics:
    enabled: true
    port: 9100
directories:
  - name: docs
    path: `+docs+`
    permissions: read-only
  - name: uploads
    path: `+uploads+`
    permissions: READ-WRITE
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)

	assert.Equal(t, 6000, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.BindAddress)
	assert.Equal(t, []string{"127.0.0.1", "10.0.0.0/8"}, cfg.Server.AllowedIPs)
	assert.Equal(t, "nobody", cfg.Server.User)
	assert.Empty(t, cfg.Server.Group)
	assert.Equal(t, 16, cfg.Server.MaxConnections)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.True(t, cfg.Server.ConfineSymlinks)
	assert.Equal(t, uint(100), cfg.Server.RateLimit.RequestsPerSecond)
	assert.Equal(t, uint(100), cfg.Server.RateLimit.Burst)
	assert.True(t, cfg.Server.Metrics.Enabled)
	assert.Equal(t, 9100, cfg.Server.Metrics.Port)

	assert.Equal(t, "local", cfg.Storage.Type)

	require.Len(t, cfg.Directories, 2)
	assert.Equal(t, "docs", cfg.Directories[0].Name)
	assert.Equal(t, "read-write", cfg.Directories[1].Permissions)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	dir := t.TempDir()
	// viper only overrides keys present in the file
	path := writeConfig(t, `
logging:
  level: info
server:
  port: 6000
  allowed_ips: ["127.0.0.1"]
directories:
  - {name: data, path: `+dir+`, permissions: read-only}
`)

	t.Setenv("FILESERVER_SERVER_PORT", "7000")
	t.Setenv("FILESERVER_LOGGING_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "WARN", cfg.Logging.Level)
}

func TestLoad_TOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 6001
allowed_ips = ["192.168.1.0/24"]

[[directories]]
name = "data"
path = "`+filepath.ToSlash(dir)+`"
permissions = "read-write"
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6001, cfg.Server.Port)
	assert.Equal(t, "read-write", cfg.Directories[0].Permissions)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		body string
	}{
		{"no directories", "server:\n  allowed_ips: [\"127.0.0.1\"]\n"},
		{"bad permission", "server:\n  allowed_ips: [\"127.0.0.1\"]\ndirectories:\n  - {name: d, path: " + dir + ", permissions: everything}\n"},
		{"bad allowlist", "server:\n  allowed_ips: [\"not-an-ip\"]\ndirectories:\n  - {name: d, path: " + dir + ", permissions: read-only}\n"},
		{"missing path", "server:\n  allowed_ips: [\"127.0.0.1\"]\ndirectories:\n  - {name: d, path: " + filepath.Join(dir, "absent") + ", permissions: read-only}\n"},
		{"malformed yaml", "server: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestMustLoad_MissingFile(t *testing.T) {
	_, err := MustLoad(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fileserverd init --config")
}

func TestGetConfigDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, filepath.Join("/tmp/xdg", "fileserver"), GetConfigDir())
	assert.Equal(t, filepath.Join("/tmp/xdg", "fileserver", "config.yaml"), GetDefaultConfigPath())
}
