package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvAPIKey, EnvBaseURL, EnvDBPath, EnvModel, EnvMaxSteps, EnvLogLevel} {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")

	cfg := DefaultConfig()
	assert.Equal(t, filepath.Join("/data", "coding-agent", "memory.db"), cfg.DBPath)
	assert.Equal(t, "gpt-5-nano", cfg.Model)
	assert.Equal(t, 20, cfg.MaxSteps)
	assert.Equal(t, 2, cfg.WindDownAt)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/conf")
	assert.Equal(t, filepath.Join("/conf", "coding-agent", "config.yaml"), DefaultConfigPath())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Model, cfg.Model)
	assert.Equal(t, 20, cfg.MaxSteps)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: gpt-4.1-mini\nmax_steps: 8\ndb_path: /tmp/a.db\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1-mini", cfg.Model)
	assert.Equal(t, 8, cfg.MaxSteps)
	assert.Equal(t, "/tmp/a.db", cfg.DBPath)
	assert.Equal(t, 2, cfg.WindDownAt, "unset keys keep their defaults")

	t.Setenv(EnvModel, "gpt-5")
	t.Setenv(EnvMaxSteps, "12")
	t.Setenv(EnvAPIKey, "sk-test")

	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-5", cfg.Model)
	assert.Equal(t, 12, cfg.MaxSteps)
	assert.Equal(t, "sk-test", cfg.APIKey)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("max_steps: [1"), 0644))
	_, err := Load(bad)
	assert.Error(t, err)

	t.Setenv(EnvMaxSteps, "many")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"no db path", func(c *Config) { c.DBPath = "" }},
		{"no model", func(c *Config) { c.Model = "" }},
		{"zero steps", func(c *Config) { c.MaxSteps = 0 }},
		{"negative wind-down", func(c *Config) { c.WindDownAt = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CODING_AGENT_MODEL=from-dotenv\nCODING_AGENT_LOG_LEVEL=debug\n"), 0644))

	t.Setenv(EnvModel, "")
	require.NoError(t, os.Unsetenv(EnvModel))
	t.Setenv(EnvLogLevel, "info")

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "from-dotenv", os.Getenv(EnvModel))
	assert.Equal(t, "info", os.Getenv(EnvLogLevel), "existing variables win over .env")
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Model = "gpt-4.1"
	cfg.APIKey = "secret"
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1", loaded.Model)
}
