package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "WARN", "text")
	t.Cleanup(func() { InitWithWriter(os.Stdout, "INFO", "text") })

	Debug("debug %d", 1)
	Info("info %d", 2)
	Warn("warn %d", 3)
	Error("error %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "debug 1")
	assert.NotContains(t, out, "info 2")
	assert.Contains(t, out, "warn 3")
	assert.Contains(t, out, "error 4")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "DEBUG", "json")
	t.Cleanup(func() { InitWithWriter(os.Stdout, "INFO", "text") })

	Info("origin %s rejected", "10.1.2.3")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "origin 10.1.2.3 rejected", rec["msg"])
	assert.Equal(t, "INFO", rec["level"])
}

func TestInitFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	require.NoError(t, Init(Config{Level: "info", Format: "text", Output: path}))
	t.Cleanup(func() { _ = Init(Config{Output: "stdout", Level: "INFO", Format: "text"}) })

	Info("written to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestSetLevelIgnoresInvalid(t *testing.T) {
	SetLevel("ERROR")
	SetLevel("verbose")
	assert.Equal(t, LevelError, Level(currentLevel.Load()))
	SetLevel("INFO")
}
