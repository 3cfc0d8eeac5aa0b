// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type PubSubConfig struct {
	JobsTopic   string `yaml:"jobs_topic"`
	StreamTopic string `yaml:"stream_topic"`
}

type WorkerConfig struct {
	Concurrency int           `yaml:"concurrency"` // jobs processed in parallel
	LockTTL     time.Duration `yaml:"lock_ttl"`    // in-flight job lock, 0 disables
}

type ProviderCredentials struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// LLMConfig is the explicit configuration value handed to the provider
// factory, context builder and llm service.
type LLMConfig struct {
	DefaultProvider       string              `yaml:"default_provider"`
	DefaultModel          string              `yaml:"default_model"`
	ContextWindowMessages int                 `yaml:"context_window_messages"`
	Temperature           float64             `yaml:"temperature"`
	StreamTimeout         time.Duration       `yaml:"stream_timeout"`
	ConcurrentLimit       int                 `yaml:"concurrent_limit"` // max concurrent provider streams
	TokenEncoding         string              `yaml:"token_encoding"`
	OpenAI                ProviderCredentials `yaml:"openai"`
	Gemini                ProviderCredentials `yaml:"gemini"`
	Anthropic             ProviderCredentials `yaml:"anthropic"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Admin    AdminConfig    `yaml:"admin"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	PubSub   PubSubConfig   `yaml:"pubsub"`
	Worker   WorkerConfig   `yaml:"worker"`
	LLM      LLMConfig      `yaml:"llm"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path. ${VAR} references are expanded from
// the environment before parsing so credentials can stay out of the file.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse decodes raw YAML, applies defaults and validates required fields.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return nil, fmt.Errorf("llm.temperature must be within [0,2], got %v", cfg.LLM.Temperature)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Admin.Port == 0 {
		cfg.Admin.Port = 9090
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.PubSub.JobsTopic == "" {
		cfg.PubSub.JobsTopic = "project_workspace_jobs"
	}
	if cfg.PubSub.StreamTopic == "" {
		cfg.PubSub.StreamTopic = "project_workspace_stream"
	}
	if cfg.Worker.Concurrency <= 0 {
		cfg.Worker.Concurrency = 8
	}
	if cfg.Worker.LockTTL < 0 {
		cfg.Worker.LockTTL = 0
	}

	cfg.LLM.DefaultProvider = strings.ToLower(strings.TrimSpace(cfg.LLM.DefaultProvider))
	if cfg.LLM.DefaultProvider == "" {
		cfg.LLM.DefaultProvider = "openai"
	}
	if cfg.LLM.DefaultModel == "" {
		cfg.LLM.DefaultModel = "gpt-4o-mini"
	}
	if cfg.LLM.ContextWindowMessages <= 0 {
		cfg.LLM.ContextWindowMessages = 20
	}
	if cfg.LLM.ConcurrentLimit <= 0 {
		cfg.LLM.ConcurrentLimit = 16
	}
	if cfg.LLM.TokenEncoding == "" {
		cfg.LLM.TokenEncoding = "cl100k_base"
	}
	if cfg.LLM.StreamTimeout < 0 {
		cfg.LLM.StreamTimeout = 0
	}
}
