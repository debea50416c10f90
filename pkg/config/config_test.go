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
	path := filepath.Join(t.TempDir(), "primeword.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Definitions.LookupTimeout)
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	path := writeConfig(t, `
server:
  addr: ":8080"
  static_dir: ./public
sources:
  corpus: ./testdata/words.txt
  common: ""
definitions:
  lookup_timeout: 750ms
  workers: 4
  cache_ttl: 2h
log:
  level: debug
  format: text
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "./public", cfg.Server.StaticDir)
	assert.Equal(t, "./testdata/words.txt", cfg.Sources.Corpus)
	assert.Empty(t, cfg.Sources.Common)
	assert.Equal(t, 750*time.Millisecond, cfg.Definitions.LookupTimeout)
	assert.Equal(t, 4, cfg.Definitions.Workers)
	assert.Equal(t, 2*time.Hour, cfg.Definitions.CacheTTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	// untouched keys keep their defaults
	assert.Equal(t, Default().Definitions.BaseURL, cfg.Definitions.BaseURL)
	assert.Equal(t, Default().Server.ShutdownTimeout, cfg.Server.ShutdownTimeout)
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestPortEnvOverride(t *testing.T) {
	t.Setenv("PORT", "4321")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":4321", cfg.Server.Addr)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("PORT", "")
	tests := map[string]string{
		"zero lookup timeout": "definitions:\n  lookup_timeout: 0s\n",
		"bad log level":       "log:\n  level: loud\n",
		"bad base url":        "definitions:\n  base_url: not a url\n",
		"no workers":          "definitions:\n  workers: 0\n",
		"negative max length": "query:\n  max_length: -1\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestExampleConfigMatchesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	cfg, err := Load(filepath.Join("..", "..", "primeword.example.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
