package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTonapiURL         = "https://tonapi.io"
	DefaultTracePageLimit    = 100
	DefaultRateLimitBackoff  = 2 * time.Second
	DefaultRequestsPerSecond = 1.0
	DefaultHTTPAddress       = ":8080"
	DefaultLogLevel          = "info"
)

// Config holds the settings of the raffle reconstruction worker.
type Config struct {
	Tonapi TonapiConfig `yaml:"tonapi"`
	Raffle RaffleConfig `yaml:"raffle"`
	HTTP   HTTPConfig   `yaml:"http"`
	Export ExportConfig `yaml:"export"`
	Log    LogConfig    `yaml:"log"`
}

type TonapiConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
	// RateLimitBackoff is the fixed wait after a rate-limited call.
	RateLimitBackoff time.Duration `yaml:"rate_limit_backoff"`
	// RequestsPerSecond spaces upstream calls. Zero disables client side throttling.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type RaffleConfig struct {
	OracleAddress  string `yaml:"oracle_address"`
	CodeHash       string `yaml:"code_hash"`
	TracePageLimit int    `yaml:"trace_page_limit"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
}

// ExportConfig enables the sqlite snapshot sink when Database is set.
type ExportConfig struct {
	Database string `yaml:"database"`
}

type LogConfig struct {
	Level     string `yaml:"level"`
	File      string `yaml:"file"`
	ErrorFile string `yaml:"error_file"`
	Console   bool   `yaml:"console"`
}

// NewConfig returns a config filled with defaults.
func NewConfig() *Config {
	c := &Config{Log: LogConfig{Console: true}}
	c.Tonapi.RequestsPerSecond = DefaultRequestsPerSecond
	c.SetDefaults()
	return c
}

// SetDefaults fills the settings left empty.
func (c *Config) SetDefaults() {
	if c.Tonapi.URL == "" {
		c.Tonapi.URL = DefaultTonapiURL
	}
	if c.Tonapi.RateLimitBackoff == 0 {
		c.Tonapi.RateLimitBackoff = DefaultRateLimitBackoff
	}
	if c.Raffle.TracePageLimit == 0 {
		c.Raffle.TracePageLimit = DefaultTracePageLimit
	}
	if c.HTTP.Address == "" {
		c.HTTP.Address = DefaultHTTPAddress
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

// LoadFromFile merges a YAML file into the config.
func (c *Config) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	return nil
}

// LoadFromEnv applies environment overrides.
func (c *Config) LoadFromEnv() error {
	if url := os.Getenv("TONAPI_URL"); url != "" {
		c.Tonapi.URL = url
	}
	if token := os.Getenv("TONAPI_TOKEN"); token != "" {
		c.Tonapi.Token = token
	}
	if backoff := os.Getenv("RATE_LIMIT_BACKOFF"); backoff != "" {
		duration, err := time.ParseDuration(backoff)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_BACKOFF: %w", err)
		}
		c.Tonapi.RateLimitBackoff = duration
	}
	if rps := os.Getenv("REQUESTS_PER_SECOND"); rps != "" {
		val, err := strconv.ParseFloat(rps, 64)
		if err != nil {
			return fmt.Errorf("invalid REQUESTS_PER_SECOND: %w", err)
		}
		c.Tonapi.RequestsPerSecond = val
	}

	if oracle := os.Getenv("ORACLE_ADDRESS"); oracle != "" {
		c.Raffle.OracleAddress = oracle
	}
	if codeHash := os.Getenv("RAFFLE_CODE_HASH"); codeHash != "" {
		c.Raffle.CodeHash = codeHash
	}
	if limit := os.Getenv("TRACE_PAGE_LIMIT"); limit != "" {
		val, err := strconv.Atoi(limit)
		if err != nil {
			return fmt.Errorf("invalid TRACE_PAGE_LIMIT: %w", err)
		}
		c.Raffle.TracePageLimit = val
	}

	if address := os.Getenv("HTTP_ADDRESS"); address != "" {
		c.HTTP.Address = address
	}
	if database := os.Getenv("EXPORT_DATABASE"); database != "" {
		c.Export.Database = database
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if file := os.Getenv("LOG_FILE"); file != "" {
		c.Log.File = file
	}
	if file := os.Getenv("LOG_ERROR_FILE"); file != "" {
		c.Log.ErrorFile = file
	}
	if console := os.Getenv("LOG_CONSOLE"); console != "" {
		val, err := strconv.ParseBool(console)
		if err != nil {
			return fmt.Errorf("invalid LOG_CONSOLE: %w", err)
		}
		c.Log.Console = val
	}

	return nil
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	if c.Raffle.OracleAddress == "" {
		return errors.New("oracle address is required")
	}

	codeHash := strings.TrimPrefix(strings.ToLower(c.Raffle.CodeHash), "0x")
	if codeHash == "" {
		return errors.New("raffle code hash is required")
	}
	if decoded, err := hex.DecodeString(codeHash); err != nil || len(decoded) != 32 {
		return fmt.Errorf("raffle code hash %q must be 32 hex encoded bytes", c.Raffle.CodeHash)
	}

	if c.Raffle.TracePageLimit <= 0 {
		return errors.New("trace page limit must be positive")
	}
	if c.Tonapi.RateLimitBackoff <= 0 {
		return errors.New("rate limit backoff must be positive")
	}
	if c.Tonapi.RequestsPerSecond < 0 {
		return errors.New("requests per second must not be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Log.Level)
	}

	return nil
}

// Load reads .env (when present), then configFile (when given), then the environment, and fills
// defaults. Validation is left to the caller so command line flags can still override.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := NewConfig()

	if configFile != "" {
		if err := cfg.LoadFromFile(configFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	cfg.SetDefaults()

	return cfg, nil
}
