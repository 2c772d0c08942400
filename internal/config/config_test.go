package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvProvider, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "hyperbolic", cfg.DefaultProvider)
	assert.Equal(t, "meta-llama/Meta-Llama-3.1-405B-Instruct", cfg.Providers["hyperbolic"].DefaultModel())
	assert.Equal(t, "nousresearch/hermes-3-llama-3.1-405b", cfg.Providers["openrouter"].DefaultModel())
	assert.Equal(t, 2048, cfg.Generation.MaxTokens)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.True(t, cfg.HistoryEnabled())

	for id, p := range cfg.Providers {
		assert.Equal(t, id, p.ID)
	}
}

func TestLoad_YAMLOverlay(t *testing.T) {
	t.Setenv(EnvProvider, "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default_provider: openrouter
providers:
  openrouter:
    models: [a/b, c/d]
  local:
    family: ollama
    base_url: http://gpu-box:11434/
    models: [qwen2.5-coder]
generation:
  timeout: 30s
retry:
  max_attempts: 5
history:
  enabled: false
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "openrouter", cfg.DefaultProvider)
	assert.Equal(t, []string{"a/b", "c/d"}, cfg.Providers["openrouter"].Models)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.Providers["openrouter"].BaseURL)
	assert.Equal(t, "http://gpu-box:11434", cfg.Providers["local"].BaseURL)
	assert.Equal(t, "local", cfg.Providers["local"].ID)
	assert.Equal(t, 30*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, 0.7, cfg.Generation.Temperature)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.False(t, cfg.HistoryEnabled())
}

func TestLoad_TOML(t *testing.T) {
	t.Setenv(EnvProvider, "")
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
default_provider = "anthropic"
backup_suffix = ".orig"

[providers.anthropic]
models = ["claude-3-opus-latest"]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.DefaultProvider)
	assert.Equal(t, "claude-3-opus-latest", cfg.Providers["anthropic"].DefaultModel())
	assert.Equal(t, ".orig", cfg.BackupSuffix)
}

func TestLoad_EnvProviderOverride(t *testing.T) {
	t.Setenv(EnvProvider, "ollama")
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.DefaultProvider)
}

func TestLoad_InvalidFamily(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("providers:\n  x:\n    family: carrier-pigeon\n    base_url: http://x\n"), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "unknown family")
}

func TestSave_DoesNotPersistTokens(t *testing.T) {
	cfg := Default()
	cfg.Providers["hyperbolic"].Token = "sk-secret"
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, Save(path, cfg))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-secret")

	t.Setenv(EnvProvider, "")
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Providers["hyperbolic"].Models, loaded.Providers["hyperbolic"].Models)
}

func TestTokenEnv(t *testing.T) {
	assert.Equal(t, "OPENROUTER_API_KEY", (&Provider{ID: "openrouter"}).TokenEnv())
	assert.Equal(t, "MY_LLM_API_KEY", (&Provider{ID: "my-llm"}).TokenEnv())
	assert.Equal(t, "CUSTOM", (&Provider{ID: "x", APIKeyEnv: "CUSTOM"}).TokenEnv())
}
