package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Providers ProvidersConfig `yaml:"providers" validate:"required"`
	Audio     AudioConfig     `yaml:"audio"`
	Server    ServerConfig    `yaml:"server" validate:"required"`
	Storage   StorageConfig   `yaml:"storage" validate:"required"`
	Limits    Limits          `yaml:"limits" validate:"required"`
}

type ProvidersConfig struct {
	Primary  ProviderConfig `yaml:"primary"`
	Fallback ProviderConfig `yaml:"fallback"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
}

type AudioConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	VoiceID string `yaml:"voice_id"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr" validate:"required"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type StorageConfig struct {
	InsightsDir string `yaml:"insights_dir" validate:"required"`
	UploadLimit int64  `yaml:"upload_limit_bytes" validate:"min=0"`
}

type Limits struct {
	RequestTimeout     time.Duration   `yaml:"request_timeout" validate:"required,min=1m,max=1h"`
	MaxRetries         int             `yaml:"max_retries" validate:"min=0,max=10"`
	MaxConcurrentRuns  int64           `yaml:"max_concurrent_runs" validate:"required,min=1,max=64"`
	ProgressCacheGrace time.Duration   `yaml:"progress_cache_grace" validate:"required,min=10s,max=10m"`
	RateLimit          RateLimitConfig `yaml:"rate_limit" validate:"required"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" validate:"required,min=1,max=1000"`
	BurstSize         int `yaml:"burst_size" validate:"required,min=1,max=100"`
}

func DefaultLimits() Limits {
	return Limits{
		// Long-form generation over large books is slow; per-call
		// timeouts are measured in minutes.
		RequestTimeout:     5 * time.Minute,
		MaxRetries:         2,
		MaxConcurrentRuns:  4,
		ProgressCacheGrace: 60 * time.Second,
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 30,
			BurstSize:         10,
		},
	}
}

// Load reads the YAML config (if present), applies defaults, and overlays
// API credentials from the environment. A missing config file is not an
// error; the defaults plus environment variables form a working setup.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()

	configPath := getConfigPath()
	data, err := os.ReadFile(configPath)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Providers: ProvidersConfig{
			Primary:  ProviderConfig{Model: "claude-3-5-sonnet-20241022"},
			Fallback: ProviderConfig{Model: "gpt-4o-mini"},
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Storage: StorageConfig{
			InsightsDir: defaultDataDir("insights"),
			UploadLimit: 50 << 20,
		},
		Limits: DefaultLimits(),
	}
}

func (c *Config) applyEnv() {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.Providers.Primary.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.Providers.Fallback.APIKey = key
	}
	if key := os.Getenv("SPEECH_API_KEY"); key != "" {
		c.Audio.APIKey = key
	}
	if url := os.Getenv("SPEECH_BASE_URL"); url != "" {
		c.Audio.BaseURL = url
	}
	if addr := os.Getenv("INSIGHTATLAS_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
}

func (c *Config) applyDefaults() {
	if c.Providers.Primary.Model == "" {
		c.Providers.Primary.Model = "claude-3-5-sonnet-20241022"
	}
	if c.Providers.Fallback.Model == "" {
		c.Providers.Fallback.Model = "gpt-4o-mini"
	}
	if c.Audio.VoiceID == "" {
		c.Audio.VoiceID = "narrator-default"
	}
	if c.Storage.InsightsDir == "" {
		c.Storage.InsightsDir = defaultDataDir("insights")
	}
	if c.Limits.MaxConcurrentRuns == 0 {
		c.Limits = DefaultLimits()
	}
}

func (c *Config) validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func getConfigPath() string {
	if path := os.Getenv("INSIGHTATLAS_CONFIG"); path != "" {
		return path
	}
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "insightatlas", "config.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "insightatlas", "config.yaml")
}

func defaultDataDir(sub string) string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "insightatlas", sub)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "insightatlas", sub)
}
