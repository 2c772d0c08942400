package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCredentials(t *testing.T, env map[string]string, dotenv string) *Credentials {
	t.Helper()
	dir := t.TempDir()
	dotEnvPath := ""
	if dotenv != "" {
		dotEnvPath = filepath.Join(dir, ".env")
		require.NoError(t, os.WriteFile(dotEnvPath, []byte(dotenv), 0o600))
	}
	c, err := NewCredentials(filepath.Join(dir, "keys"), dotEnvPath)
	require.NoError(t, err)
	c.getenv = func(k string) string { return env[k] }
	return c
}

func TestCredentials_LookupOrder(t *testing.T) {
	p := &Provider{ID: "hyperbolic", APIKey: "from-config"}

	c := newTestCredentials(t, map[string]string{"HYPERBOLIC_API_KEY": "from-env"}, "HYPERBOLIC_API_KEY=from-dotenv\n")
	got, err := c.Lookup(p)
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)

	c = newTestCredentials(t, nil, "HYPERBOLIC_API_KEY=from-dotenv\n")
	got, err = c.Lookup(p)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", got)

	c = newTestCredentials(t, nil, "")
	got, err = c.Lookup(p)
	require.NoError(t, err)
	assert.Equal(t, "from-config", got)

	require.NoError(t, c.Save("hyperbolic", "  from-file\n"))
	got, err = c.Lookup(&Provider{ID: "hyperbolic"})
	require.NoError(t, err)
	assert.Equal(t, "from-file", got)
}

func TestCredentials_SaveIsOwnerOnly(t *testing.T) {
	c := newTestCredentials(t, nil, "")
	require.NoError(t, c.Save("OpenRouter", "sk-1"))

	info, err := os.Stat(c.KeyPath("openrouter"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	assert.Error(t, c.Save("openrouter", "   "))
}

func TestCredentials_Resolve(t *testing.T) {
	cfg := Default()
	cfg.finalize()
	c := newTestCredentials(t, map[string]string{"ANTHROPIC_API_KEY": "ant"}, "")

	require.NoError(t, c.Resolve(cfg))
	assert.Equal(t, "ant", cfg.Providers["anthropic"].Token)
	assert.Empty(t, cfg.Providers["hyperbolic"].Token)
}
