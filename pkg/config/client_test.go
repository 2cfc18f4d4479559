package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadClient_Defaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := LoadClient("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:50051", cfg.Address())
	assert.Equal(t, 30*time.Second, cfg.Timeout())
	assert.Equal(t, 3, cfg.Client.RetryAttempts)
}

func TestLoadClient_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  host: files.example.com
  port: 6000
client:
  timeout_seconds: 5
  retry_attempts: 1
`), 0644))

	cfg, err := LoadClient(path)
	require.NoError(t, err)
	assert.Equal(t, "files.example.com:6000", cfg.Address())
	assert.Equal(t, 5*time.Second, cfg.Timeout())
	assert.Equal(t, 1, cfg.Client.RetryAttempts)
}

func TestLoadClient_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 99999\n"), 0644))

	_, err := LoadClient(path)
	assert.Error(t, err)
}
