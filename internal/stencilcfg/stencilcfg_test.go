package stencilcfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFiles(t *testing.T, config, secrets string) string {
	t.Helper()
	dir := t.TempDir()
	if config != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.stencil.json"), []byte(config), 0o644))
	}
	if secrets != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "secrets.stencil.json"), []byte(secrets), 0o600))
	}
	return dir
}

func TestLoad(t *testing.T) {
	t.Run("merges config and secrets", func(t *testing.T) {
		dir := writeConfigFiles(t,
			`{"normalStoreUrl":"https://store.example.com","apiHost":"https://api.example.com"}`,
			`{"accessToken":"token-1"}`,
		)

		cfg, err := NewLoader().Load(dir)
		require.NoError(t, err)
		assert.Equal(t, "https://store.example.com", cfg.NormalStoreURL)
		assert.Equal(t, "token-1", cfg.AccessToken)
		assert.Equal(t, "https://api.example.com", cfg.APIHost)
	})

	t.Run("missing config file is a ConfigReadError", func(t *testing.T) {
		_, err := NewLoader().Load(t.TempDir())

		var cerr *ConfigReadError
		require.ErrorAs(t, err, &cerr)
		assert.Contains(t, cerr.Path, "config.stencil.json")
	})

	t.Run("missing secrets are tolerated when the token comes from the environment", func(t *testing.T) {
		t.Setenv("STENCIL_ACCESS_TOKEN", "env-token")
		dir := writeConfigFiles(t, `{"normalStoreUrl":"https://store.example.com"}`, "")

		cfg, err := NewLoader().Load(dir)
		require.NoError(t, err)
		assert.Equal(t, "env-token", cfg.AccessToken)
	})

	t.Run("missing token everywhere is a ConfigReadError", func(t *testing.T) {
		dir := writeConfigFiles(t, `{"normalStoreUrl":"https://store.example.com"}`, "")

		_, err := NewLoader().Load(dir)

		var cerr *ConfigReadError
		require.ErrorAs(t, err, &cerr)
	})

	t.Run("missing store URL is a ConfigReadError", func(t *testing.T) {
		dir := writeConfigFiles(t, `{}`, `{"accessToken":"token-1"}`)

		_, err := NewLoader().Load(dir)

		var cerr *ConfigReadError
		require.ErrorAs(t, err, &cerr)
	})

	t.Run("environment overrides file values", func(t *testing.T) {
		t.Setenv("STENCIL_STORE_URL", "https://env.example.com")
		dir := writeConfigFiles(t,
			`{"normalStoreUrl":"https://store.example.com"}`,
			`{"accessToken":"token-1"}`,
		)

		cfg, err := NewLoader().Load(dir)
		require.NoError(t, err)
		assert.Equal(t, "https://env.example.com", cfg.NormalStoreURL)
	})
}
