package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "./huecircle-data", c.StorePath)
	assert.False(t, c.InMemory)
	assert.Equal(t, "huecircle", c.Scheme)
	assert.Equal(t, "info", c.LogLevel)
	assert.True(t, c.ShareDisplayName)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()
	os.Args = []string{"huecircle"}

	c := LoadConfig()
	require.NotNil(t, c)
	assert.Equal(t, "./huecircle-data", c.StorePath)
	assert.Equal(t, "huecircle", c.Scheme)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoadConfig_EnvOverridesDefaults(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()
	os.Args = []string{"huecircle"}

	t.Setenv("HUECIRCLE_STORE_PATH", "/var/lib/huecircle")
	t.Setenv("HUECIRCLE_LOG_LEVEL", "debug")
	t.Setenv("HUECIRCLE_IN_MEMORY", "true")

	c := LoadConfig()
	assert.Equal(t, "/var/lib/huecircle", c.StorePath)
	assert.Equal(t, "debug", c.LogLevel)
	assert.True(t, c.InMemory)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	t.Setenv("HUECIRCLE_LOG_LEVEL", "debug")
	os.Args = []string{"huecircle", "-l", "error", "-m", "-s", "wellness-dev"}

	c := LoadConfig()
	assert.Equal(t, "error", c.LogLevel)
	assert.Equal(t, "wellness-dev", c.Scheme)
	assert.True(t, c.InMemory)
}

func TestParseJSON_OverlaysPartialFile(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	path := filepath.Join(t.TempDir(), "conf.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"log_level":"warn","in_memory":true}`), 0o600))
	os.Args = []string{"huecircle", "-c", path}

	var c Config
	c.LoadDefaults()
	parseJSON(&c)

	assert.Equal(t, "warn", c.LogLevel)
	assert.True(t, c.InMemory)
	// Fields absent from the file keep their defaults.
	assert.Equal(t, "./huecircle-data", c.StorePath)
	assert.Equal(t, "huecircle", c.Scheme)
}

func TestParseJSON_BadFilePanics(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	path := filepath.Join(t.TempDir(), "conf.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))
	os.Args = []string{"huecircle", "-c", path}

	var c Config
	c.LoadDefaults()
	assert.Panics(t, func() { parseJSON(&c) })
}
