package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestInitConfig_Success(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	configPath, err := InitConfig(false)
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfigPath(), configPath)

	content, err := os.ReadFile(configPath)
	require.NoError(t, err)

	contentStr := string(content)
	for _, section := range []string{
		"# File Server Configuration File",
		"logging:",
		"server:",
		"allowed_ips:",
		"storage:",
		"telemetry:",
		"directories:",
	} {
		assert.True(t, strings.Contains(contentStr, section), "config file missing %q", section)
	}

	var cfg Config
	require.NoError(t, yaml.Unmarshal(content, &cfg))
	assert.Len(t, cfg.Directories, 2)
	assert.Equal(t, 50051, cfg.Server.Port)
}

func TestInitConfig_AlreadyExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, err := InitConfig(false)
	require.NoError(t, err)

	_, err = InitConfig(false)
	assert.Error(t, err)

	_, err = InitConfig(true)
	assert.NoError(t, err)
}

func TestInitConfigToPath_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "server.yaml")
	require.NoError(t, InitConfigToPath(path, false))

	// the sample directories do not exist on the test host
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}
