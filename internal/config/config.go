package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

// FileEnvVar names the environment variable pointing at an optional YAML
// configuration file.
const FileEnvVar = "TASKORCH_CONFIG_FILE"

// Known worker modes. AllowedModes must be a non-empty subset.
var (
	ResearchModes   = []string{"general", "factual", "analytical", "comparative"}
	ContentModes    = []string{"explanation", "summary", "analysis", "creative", "technical"}
	ValidationModes = []string{"safety", "quality", "technical", "comprehensive"}
)

// Config holds all configuration for the task orchestrator
type Config struct {
	// Server configuration
	HTTPPort int    `env:"TASKORCH_HTTP_PORT" yaml:"http_port"`
	GRPCPort int    `env:"TASKORCH_GRPC_PORT" yaml:"grpc_port"`
	LogLevel string `env:"LOG_LEVEL" yaml:"log_level"`

	LLM      LLMConfig     `yaml:"llm"`
	Retry    RetryConfig   `yaml:"retry"`
	Workers  WorkerConfig  `yaml:"workers"`
	Cache    CacheConfig   `yaml:"cache"`
	Events   EventsConfig  `yaml:"events"`
	Redis    RedisConfig   `yaml:"redis"`
	NATS     NATSConfig    `yaml:"nats"`
	Health   HealthConfig  `yaml:"health"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// LLMConfig holds reasoning collaborator configuration
type LLMConfig struct {
	Provider  string `env:"LLM_PROVIDER" yaml:"provider"`
	APIKey    string `env:"LLM_API_KEY" yaml:"api_key"`
	Model     string `env:"LLM_MODEL" yaml:"model"`
	MaxTokens int    `env:"LLM_MAX_TOKENS" yaml:"max_tokens"`
}

// RetryConfig holds the retry policy applied to every collaborator call
type RetryConfig struct {
	MaxRetries    int           `env:"MAX_RETRIES" yaml:"max_retries"`
	BaseDelay     time.Duration `env:"RETRY_BASE_DELAY" yaml:"base_delay"`
	MaxDelay      time.Duration `env:"RETRY_MAX_DELAY" yaml:"max_delay"`
	Timeout       time.Duration `env:"TIMEOUT" yaml:"timeout"`
	HealthTimeout time.Duration `env:"HEALTH_TIMEOUT" yaml:"health_timeout"`
}

// WorkerConfig holds settings shared by all workers
type WorkerConfig struct {
	MaxInputLength     int      `env:"MAX_INPUT_LENGTH" yaml:"max_input_length"`
	AllowedModes       []string `env:"ALLOWED_MODES" envSeparator:"," yaml:"allowed_modes"`
	FilterOutput       bool     `env:"FILTER_OUTPUT" yaml:"filter_output"`
	MinContentLength   int      `env:"MIN_CONTENT_LENGTH" yaml:"min_content_length"`
	CollaboratorReview bool     `env:"COLLABORATOR_REVIEW" yaml:"collaborator_review"`
}

// CacheConfig selects the research result cache
type CacheConfig struct {
	Backend string        `env:"CACHE_BACKEND" yaml:"backend"`
	TTL     time.Duration `env:"CACHE_TTL" yaml:"ttl"`
}

// EventsConfig selects the workflow event bus
type EventsConfig struct {
	Backend string `env:"EVENTS_BACKEND" yaml:"backend"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" yaml:"addr"`
	Password string `env:"REDIS_PASS" yaml:"password"`
	DB       int    `env:"REDIS_DB" yaml:"db"`

	PoolSize     int           `env:"REDIS_POOL_SIZE" yaml:"pool_size"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" yaml:"min_idle_conns"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" yaml:"dial_timeout"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" yaml:"read_timeout"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" yaml:"write_timeout"`
}

// NATSConfig holds NATS connection configuration
type NATSConfig struct {
	URL           string `env:"NATS_URL" yaml:"url"`
	SubjectPrefix string `env:"NATS_SUBJECT_PREFIX" yaml:"subject_prefix"`
}

// HealthConfig holds the system health thresholds
type HealthConfig struct {
	Interval      time.Duration `env:"HEALTH_INTERVAL" yaml:"interval"`
	MinMemoryGB   float64       `env:"HEALTH_MIN_MEMORY_GB" yaml:"min_memory_gb"`
	MinDiskGB     float64       `env:"HEALTH_MIN_DISK_GB" yaml:"min_disk_gb"`
	MaxCPUPercent float64       `env:"HEALTH_MAX_CPU_PERCENT" yaml:"max_cpu_percent"`
	DiskPath      string        `env:"HEALTH_DISK_PATH" yaml:"disk_path"`
	WorkDir       string        `env:"WORK_DIR" yaml:"work_dir"`
}

// TimeoutConfig holds process lifecycle timeouts
type TimeoutConfig struct {
	ShutdownTimeout time.Duration `env:"TIMEOUT_SHUTDOWN" yaml:"shutdown"`
}

// Default returns the configuration used when neither a file nor the
// environment overrides a value.
func Default() *Config {
	modes := make([]string, 0, len(ResearchModes)+len(ContentModes)+len(ValidationModes))
	modes = append(modes, ResearchModes...)
	modes = append(modes, ContentModes...)
	modes = append(modes, ValidationModes...)

	return &Config{
		HTTPPort: 8080,
		GRPCPort: 9090,
		LogLevel: "info",
		LLM: LLMConfig{
			Provider:  "anthropic",
			Model:     "claude-3-5-sonnet-20241022",
			MaxTokens: 1000,
		},
		Retry: RetryConfig{
			MaxRetries:    3,
			BaseDelay:     4 * time.Second,
			MaxDelay:      10 * time.Second,
			Timeout:       30 * time.Second,
			HealthTimeout: 10 * time.Second,
		},
		Workers: WorkerConfig{
			MaxInputLength:     10000,
			AllowedModes:       modes,
			FilterOutput:       true,
			MinContentLength:   10,
			CollaboratorReview: true,
		},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     time.Hour,
		},
		Events: EventsConfig{
			Backend: "memory",
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			SubjectPrefix: "taskorch",
		},
		Health: HealthConfig{
			Interval:      30 * time.Second,
			MinMemoryGB:   1,
			MinDiskGB:     1,
			MaxCPUPercent: 90,
			DiskPath:      "/",
			WorkDir:       os.TempDir(),
		},
		Timeouts: TimeoutConfig{
			ShutdownTimeout: 30 * time.Second,
		},
	}
}

// Load reads configuration from the file named by TASKORCH_CONFIG_FILE (if
// any) and the environment, then validates it.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv(FileEnvVar))
}

// LoadFrom layers defaults, the YAML file at path (skipped when empty) and
// environment variables, in that order.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	switch c.LLM.Provider {
	case "anthropic":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("LLM API key is required")
		}
	case "static":
	default:
		return fmt.Errorf("unsupported LLM provider: %s (must be anthropic or static)", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("LLM model is required")
	}
	if c.LLM.MaxTokens < 1 {
		return fmt.Errorf("LLM max tokens must be positive")
	}

	if c.Retry.MaxRetries < 1 || c.Retry.MaxRetries > 10 {
		return fmt.Errorf("max retries must be between 1 and 10, got %d", c.Retry.MaxRetries)
	}
	if c.Retry.Timeout < 5*time.Second || c.Retry.Timeout > 300*time.Second {
		return fmt.Errorf("timeout must be between 5s and 300s, got %s", c.Retry.Timeout)
	}
	if c.Retry.BaseDelay <= 0 {
		return fmt.Errorf("retry base delay must be positive")
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		return fmt.Errorf("retry max delay %s is below base delay %s", c.Retry.MaxDelay, c.Retry.BaseDelay)
	}
	if c.Retry.HealthTimeout <= 0 {
		return fmt.Errorf("health timeout must be positive")
	}

	if c.Workers.MaxInputLength < 100 {
		return fmt.Errorf("max input length must be at least 100, got %d", c.Workers.MaxInputLength)
	}
	if len(c.Workers.AllowedModes) == 0 {
		return fmt.Errorf("allowed modes must not be empty")
	}
	for _, m := range c.Workers.AllowedModes {
		if !IsKnownMode(m) {
			return fmt.Errorf("unknown mode in allowed modes: %q", m)
		}
	}
	if c.Workers.MinContentLength < 0 {
		return fmt.Errorf("min content length must not be negative")
	}

	switch c.Cache.Backend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("invalid cache backend: %s (must be memory, redis, or none)", c.Cache.Backend)
	}
	switch c.Events.Backend {
	case "memory", "redis", "nats":
	default:
		return fmt.Errorf("invalid events backend: %s (must be memory, redis, or nats)", c.Events.Backend)
	}
	if c.UsesRedis() && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}
	if c.Events.Backend == "nats" && c.NATS.URL == "" {
		return fmt.Errorf("NATS URL is required")
	}

	if c.Health.Interval <= 0 {
		return fmt.Errorf("health interval must be positive")
	}
	if c.Health.MinMemoryGB < 0 || c.Health.MinDiskGB < 0 {
		return fmt.Errorf("health thresholds must not be negative")
	}
	if c.Health.MaxCPUPercent <= 0 || c.Health.MaxCPUPercent > 100 {
		return fmt.Errorf("max CPU percent must be in (0, 100], got %.1f", c.Health.MaxCPUPercent)
	}
	if c.Health.WorkDir == "" {
		return fmt.Errorf("work directory is required")
	}

	return nil
}

// IsKnownMode reports whether mode belongs to any worker's mode set.
func IsKnownMode(mode string) bool {
	mode = strings.ToLower(strings.TrimSpace(mode))
	for _, set := range [][]string{ResearchModes, ContentModes, ValidationModes} {
		for _, m := range set {
			if m == mode {
				return true
			}
		}
	}
	return false
}

// UsesRedis reports whether any backend needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Cache.Backend == "redis" || c.Events.Backend == "redis"
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}
