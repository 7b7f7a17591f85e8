package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0600))
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), cfg)
}

func TestLoadConfig_Providers(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
default-provider: graph
providers:
  - name: graph
    grant-type: authorization-code
    client-id: graph-client
    refresh: true
    extra-auth-params:
      prompt: select_account
  - name: mimecast
    grant-type: client-credentials
    base-url: https://api.services.mimecast.com
    client-id: app-id
    client-secret: app-key
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "graph", cfg.DefaultProvider)

	graph, err := cfg.Provider("graph")
	require.NoError(t, err)
	assert.Equal(t, GrantTypeAuthorizationCode, graph.GrantType)
	assert.True(t, graph.Refresh)
	assert.Equal(t, "select_account", graph.ExtraAuthParams["prompt"])

	mimecast, err := cfg.Provider("mimecast")
	require.NoError(t, err)
	assert.Equal(t, "https://api.services.mimecast.com", mimecast.BaseURL)
	assert.Equal(t, "app-key", mimecast.ResolveClientSecret())
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "providers:\n  - name: graph\n\tclient-id: x\n")

	_, err := LoadConfig(dir)
	var cfgErr ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "parse", cfgErr.ErrorType)
	assert.Contains(t, cfgErr.DetailedError(), "Suggestions:")
}

func TestLoadConfig_InvalidProvider(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
providers:
  - name: mimecast
    grant-type: client-credentials
    client-id: app-id
`)

	_, err := LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base-url")
	assert.Contains(t, err.Error(), "client-secret")
}

func TestGetDefaultConfigPath(t *testing.T) {
	t.Run("env override", func(t *testing.T) {
		t.Setenv(ConfigPathEnv, "/tmp/sak-test")
		dir, err := GetDefaultConfigPath()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/sak-test", dir)
	})

	t.Run("home directory", func(t *testing.T) {
		t.Setenv(ConfigPathEnv, "")
		original := osUserHomeDir
		defer func() { osUserHomeDir = original }()
		osUserHomeDir = func() (string, error) { return "/home/tester", nil }

		dir, err := GetDefaultConfigPath()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("/home/tester", ".config", "sak"), dir)
	})
}

func TestYamlErrorLine(t *testing.T) {
	assert.Equal(t, 3, yamlErrorLine("yaml: line 3: found character that cannot start any token"))
	assert.Equal(t, 0, yamlErrorLine("yaml: unmarshal errors"))
}
