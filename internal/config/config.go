package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the engine gateway configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Engine  EngineConfig  `yaml:"engine"`
	Sink    SinkConfig    `yaml:"sink"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// AuthConfig contains authentication settings
type AuthConfig struct {
	APIKeys []APIKey `yaml:"api_keys"`
}

// APIKey represents an API key for authentication
type APIKey struct {
	Name string `yaml:"name"`
	Key  string `yaml:"key"`
}

// EngineConfig contains execution engine settings
type EngineConfig struct {
	MaxConcurrency     int           `yaml:"max_concurrency"`      // jobs per run executing at once
	MaxOutputBytes     int64         `yaml:"max_output_bytes"`     // per-step output cap
	GracePeriod        time.Duration `yaml:"grace_period"`         // SIGTERM-to-SIGKILL window
	DefaultStepTimeout time.Duration `yaml:"default_step_timeout"` // 0 disables the deadline
	Workdir            string        `yaml:"workdir"`
	SupersedeOnPush    bool          `yaml:"supersede_on_push"` // cancel older runs on a newer push to the same ref
}

// SinkConfig contains result sink settings. With no brokers configured
// results go to the structured log only.
type SinkConfig struct {
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`
}

// StoreConfig contains run history store settings. An empty DSN selects
// the in-memory store.
type StoreConfig struct {
	PostgresDSN string `yaml:"postgres_dsn"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables in the config
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills in defaults for unset fields
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Engine.MaxConcurrency == 0 {
		c.Engine.MaxConcurrency = 4
	}
	if c.Engine.MaxOutputBytes == 0 {
		c.Engine.MaxOutputBytes = 1 << 20
	}
	if c.Engine.GracePeriod == 0 {
		c.Engine.GracePeriod = 5 * time.Second
	}
	if c.Sink.KafkaTopic == "" {
		c.Sink.KafkaTopic = "run-results"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}
