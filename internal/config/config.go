package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type AdminConfig struct {
	APIKey        string        `yaml:"api_key"`
	SessionSecret string        `yaml:"session_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type QueueConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	Backoff      time.Duration `yaml:"backoff"`
	Lease        time.Duration `yaml:"lease"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type WorkerConfig struct {
	Concurrency         int  `yaml:"concurrency"`
	SerializePerContact bool `yaml:"serialize_per_contact"`
	MetricsPort         int  `yaml:"metrics_port"`
}

type AIConfig struct {
	GeminiKey    string `yaml:"gemini_key"`
	GeminiURL    string `yaml:"gemini_url"`
	OpenAIKey    string `yaml:"openai_key"`
	OpenAIURL    string `yaml:"openai_url"`
	Model        string `yaml:"model"`
	MaxRounds    int    `yaml:"max_rounds"`
	HistoryLimit int    `yaml:"history_limit"`
	MaxOutTokens int    `yaml:"max_out_tokens"`
}

type MessengerConfig struct {
	Key     string `yaml:"key"`
	BaseURL string `yaml:"base_url"`
}

type ERPConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type WhitelistConfig struct {
	Enabled bool     `yaml:"enabled"`
	Numbers []string `yaml:"numbers"`
}

type MediaConfig struct {
	Dir          string `yaml:"dir"`
	PublicPrefix string `yaml:"public_prefix"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Admin     AdminConfig     `yaml:"admin"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Queue     QueueConfig     `yaml:"queue"`
	Worker    WorkerConfig    `yaml:"worker"`
	AI        AIConfig        `yaml:"ai"`
	Messenger MessengerConfig `yaml:"messenger"`
	ERP       ERPConfig       `yaml:"erp"`
	Whitelist WhitelistConfig `yaml:"whitelist"`
	Media     MediaConfig     `yaml:"media"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3003
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = 30 * time.Minute
	}
	if cfg.Queue.MaxAttempts <= 0 {
		cfg.Queue.MaxAttempts = 3
	}
	if cfg.Queue.Backoff <= 0 {
		cfg.Queue.Backoff = 5 * time.Second
	}
	if cfg.Queue.Lease <= 0 {
		cfg.Queue.Lease = 30 * time.Second
	}
	if cfg.Queue.PollInterval <= 0 {
		cfg.Queue.PollInterval = 500 * time.Millisecond
	}
	if cfg.Worker.Concurrency <= 0 {
		cfg.Worker.Concurrency = 5
	}
	if cfg.Worker.MetricsPort == 0 {
		cfg.Worker.MetricsPort = 9091
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gemini-2.0-flash"
	}
	if cfg.AI.MaxRounds <= 0 {
		cfg.AI.MaxRounds = 5
	}
	if cfg.AI.HistoryLimit <= 0 {
		cfg.AI.HistoryLimit = 10
	}
	if cfg.AI.MaxOutTokens <= 0 {
		cfg.AI.MaxOutTokens = 2048
	}
	if cfg.Messenger.BaseURL == "" {
		cfg.Messenger.BaseURL = "https://notifapi.com"
	}
	if cfg.ERP.BaseURL == "" {
		cfg.ERP.BaseURL = "http://localhost:3002/jubelio-api"
	}
	if cfg.ERP.Timeout <= 0 {
		cfg.ERP.Timeout = 8 * time.Second
	}
	if cfg.Media.Dir == "" {
		cfg.Media.Dir = "/var/www/shofiya-media"
	}
	if cfg.Media.PublicPrefix == "" {
		cfg.Media.PublicPrefix = "/media"
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
