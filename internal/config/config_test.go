package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const codeHash = "3d8c1b0ab7a1a8bdd4a2f4d9c5e7b1f0e2a3c4d5e6f708192a3b4c5d6e7f8091"

func validConfig() *Config {
	cfg := NewConfig()
	cfg.Raffle.OracleAddress = "0:1111111111111111111111111111111111111111111111111111111111111111"
	cfg.Raffle.CodeHash = codeHash
	return cfg
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, DefaultTonapiURL, cfg.Tonapi.URL)
	assert.Equal(t, 2*time.Second, cfg.Tonapi.RateLimitBackoff)
	assert.Equal(t, 1.0, cfg.Tonapi.RequestsPerSecond)
	assert.Equal(t, 100, cfg.Raffle.TracePageLimit)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Log.Console)
	assert.Empty(t, cfg.Export.Database)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "prefixed upper case hash", mutate: func(c *Config) { c.Raffle.CodeHash = "0x" + strings.ToUpper(codeHash) }},
		{name: "throttling disabled", mutate: func(c *Config) { c.Tonapi.RequestsPerSecond = 0 }},
		{name: "missing oracle", mutate: func(c *Config) { c.Raffle.OracleAddress = "" }, wantErr: "oracle address"},
		{name: "missing code hash", mutate: func(c *Config) { c.Raffle.CodeHash = "" }, wantErr: "code hash is required"},
		{name: "short code hash", mutate: func(c *Config) { c.Raffle.CodeHash = "abcd" }, wantErr: "32 hex"},
		{name: "non hex code hash", mutate: func(c *Config) { c.Raffle.CodeHash = strings.Repeat("z", 64) }, wantErr: "32 hex"},
		{name: "page limit", mutate: func(c *Config) { c.Raffle.TracePageLimit = -1 }, wantErr: "page limit"},
		{name: "backoff", mutate: func(c *Config) { c.Tonapi.RateLimitBackoff = 0 }, wantErr: "backoff"},
		{name: "negative rate", mutate: func(c *Config) { c.Tonapi.RequestsPerSecond = -1 }, wantErr: "requests per second"},
		{name: "log level", mutate: func(c *Config) { c.Log.Level = "trace" }, wantErr: "log level"},
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

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
tonapi:
  url: https://testnet.tonapi.io
  rate_limit_backoff: 3s
  requests_per_second: 0.5
raffle:
  oracle_address: "0:2222222222222222222222222222222222222222222222222222222222222222"
  code_hash: ` + codeHash + `
  trace_page_limit: 25
export:
  database: snapshots.db
log:
  level: debug
  console: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := NewConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "https://testnet.tonapi.io", cfg.Tonapi.URL)
	assert.Equal(t, 3*time.Second, cfg.Tonapi.RateLimitBackoff)
	assert.Equal(t, 0.5, cfg.Tonapi.RequestsPerSecond)
	assert.Equal(t, 25, cfg.Raffle.TracePageLimit)
	assert.Equal(t, codeHash, cfg.Raffle.CodeHash)
	assert.Equal(t, "snapshots.db", cfg.Export.Database)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Log.Console)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile_Errors(t *testing.T) {
	cfg := NewConfig()
	assert.Error(t, cfg.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")))

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("raffle: [unterminated"), 0o600))
	assert.Error(t, cfg.LoadFromFile(path))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TONAPI_URL", "http://localhost:8081")
	t.Setenv("TONAPI_TOKEN", "secret")
	t.Setenv("RATE_LIMIT_BACKOFF", "750ms")
	t.Setenv("REQUESTS_PER_SECOND", "4")
	t.Setenv("ORACLE_ADDRESS", "0:3333333333333333333333333333333333333333333333333333333333333333")
	t.Setenv("RAFFLE_CODE_HASH", codeHash)
	t.Setenv("TRACE_PAGE_LIMIT", "50")
	t.Setenv("HTTP_ADDRESS", "127.0.0.1:9000")
	t.Setenv("EXPORT_DATABASE", "export.db")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FILE", "raffles.log")
	t.Setenv("LOG_ERROR_FILE", "raffles.err.log")
	t.Setenv("LOG_CONSOLE", "false")

	cfg := NewConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "http://localhost:8081", cfg.Tonapi.URL)
	assert.Equal(t, "secret", cfg.Tonapi.Token)
	assert.Equal(t, 750*time.Millisecond, cfg.Tonapi.RateLimitBackoff)
	assert.Equal(t, 4.0, cfg.Tonapi.RequestsPerSecond)
	assert.Equal(t, 50, cfg.Raffle.TracePageLimit)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Address)
	assert.Equal(t, "export.db", cfg.Export.Database)
	assert.Equal(t, LogConfig{Level: "warn", File: "raffles.log", ErrorFile: "raffles.err.log", Console: false}, cfg.Log)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	for _, key := range []string{"RATE_LIMIT_BACKOFF", "REQUESTS_PER_SECOND", "TRACE_PAGE_LIMIT", "LOG_CONSOLE"} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, "not-a-value")

			err := NewConfig().LoadFromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("raffle:\n  trace_page_limit: 25\nhttp:\n  address: \":7000\"\n"), 0o600))
	t.Setenv("TRACE_PAGE_LIMIT", "10")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Raffle.TracePageLimit)
	assert.Equal(t, ":7000", cfg.HTTP.Address)
	assert.Equal(t, DefaultTonapiURL, cfg.Tonapi.URL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
