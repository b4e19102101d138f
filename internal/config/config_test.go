package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Default()
	cfg.LLM.APIKey = "test-key"
	return cfg
}

func TestDefaultRequiresAPIKey(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")

	cfg.LLM.Provider = "static"
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"zero retries", func(c *Config) { c.Retry.MaxRetries = 0 }, "max retries"},
		{"too many retries", func(c *Config) { c.Retry.MaxRetries = 11 }, "max retries"},
		{"short timeout", func(c *Config) { c.Retry.Timeout = 4 * time.Second }, "timeout"},
		{"long timeout", func(c *Config) { c.Retry.Timeout = 301 * time.Second }, "timeout"},
		{"small input limit", func(c *Config) { c.Workers.MaxInputLength = 99 }, "max input length"},
		{"no modes", func(c *Config) { c.Workers.AllowedModes = nil }, "allowed modes"},
		{"unknown mode", func(c *Config) { c.Workers.AllowedModes = []string{"general", "poetry"} }, "poetry"},
		{"bad provider", func(c *Config) { c.LLM.Provider = "openai" }, "unsupported LLM provider"},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "log level"},
		{"bad port", func(c *Config) { c.HTTPPort = 0 }, "HTTP port"},
		{"max below base delay", func(c *Config) { c.Retry.MaxDelay = time.Second }, "max delay"},
		{"bad cache backend", func(c *Config) { c.Cache.Backend = "disk" }, "cache backend"},
		{"redis without addr", func(c *Config) { c.Events.Backend = "redis"; c.Redis.Addr = "" }, "redis address"},
		{"nats without url", func(c *Config) { c.Events.Backend = "nats"; c.NATS.URL = "" }, "NATS URL"},
		{"cpu threshold", func(c *Config) { c.Health.MaxCPUPercent = 120 }, "CPU"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromLayersFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taskorch.yaml")
	content := `
log_level: debug
llm:
  provider: static
retry:
  max_retries: 5
  timeout: 45s
workers:
  max_input_length: 500
  allowed_modes: [general, quality]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("MAX_RETRIES", "7")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "static", cfg.LLM.Provider)
	assert.Equal(t, 7, cfg.Retry.MaxRetries, "environment overrides the file")
	assert.Equal(t, 45*time.Second, cfg.Retry.Timeout)
	assert.Equal(t, 500, cfg.Workers.MaxInputLength)
	assert.Equal(t, []string{"general", "quality"}, cfg.Workers.AllowedModes)
	assert.Equal(t, 8080, cfg.HTTPPort, "untouched keys keep their defaults")
}

func TestLoadFromRejectsInvalid(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "static")
	t.Setenv("TIMEOUT", "1s")

	_, err := LoadFrom("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestLoadFromMissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestIsKnownMode(t *testing.T) {
	assert.True(t, IsKnownMode("comparative"))
	assert.True(t, IsKnownMode(" Technical "))
	assert.False(t, IsKnownMode("poetry"))
}
