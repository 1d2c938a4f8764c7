package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g. PLANTLOG_DB_PATH
const EnvPrefix = "PLANTLOG"

// Config holds the application configuration
type Config struct {
	DBPath        string        `yaml:"db_path,omitempty" envconfig:"DB_PATH"`
	Remote        RemoteConfig  `yaml:"remote,omitempty" envconfig:"REMOTE"`
	Session       SessionConfig `yaml:"session,omitempty" envconfig:"SESSION"`
	MQTT          MQTTConfig    `yaml:"mqtt,omitempty" envconfig:"MQTT"`
	HomeAssistant HAConfig      `yaml:"home_assistant,omitempty" envconfig:"HA"`
	Log           LogConfig     `yaml:"log,omitempty" envconfig:"LOG"`
	Server        ServerConfig  `yaml:"server,omitempty" envconfig:"SERVER"`
}

// RemoteConfig holds the PostgreSQL mirror settings
type RemoteConfig struct {
	Enabled         bool          `yaml:"enabled" envconfig:"ENABLED"`
	DSN             string        `yaml:"dsn" envconfig:"DSN" validate:"required_if=Enabled true"`
	BreakerFailures uint32        `yaml:"breaker_failures,omitempty" envconfig:"BREAKER_FAILURES"`
	BreakerTimeout  time.Duration `yaml:"breaker_timeout,omitempty" envconfig:"BREAKER_TIMEOUT"`
}

// SessionConfig holds the key used to sign session tokens
type SessionConfig struct {
	SigningKey string `yaml:"signing_key,omitempty" envconfig:"SIGNING_KEY" validate:"omitempty,min=16"`
}

// MQTTConfig holds MQTT broker configuration
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled" envconfig:"ENABLED"`
	Broker      string `yaml:"broker" envconfig:"BROKER" validate:"required_if=Enabled true"` // host:port
	Username    string `yaml:"username,omitempty" envconfig:"USERNAME"`
	Password    string `yaml:"password,omitempty" envconfig:"PASSWORD"`
	TopicPrefix string `yaml:"topic_prefix,omitempty" envconfig:"TOPIC_PREFIX"`
}

// HAConfig holds Home Assistant HTTP API configuration
type HAConfig struct {
	Enabled  bool   `yaml:"enabled" envconfig:"ENABLED"`
	URL      string `yaml:"url" envconfig:"URL" validate:"required_if=Enabled true"`             // e.g., "http://yourdomain.local:5050"
	Token    string `yaml:"token" envconfig:"TOKEN" validate:"required_if=Enabled true"`         // Long-lived access token
	EntityID string `yaml:"entity_id" envconfig:"ENTITY_ID" validate:"required_if=Enabled true"` // e.g., "sensor.plant_net_export"
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level       string `yaml:"level,omitempty" envconfig:"LEVEL" validate:"omitempty,oneof=debug info warn error"`
	Development bool   `yaml:"development,omitempty" envconfig:"DEVELOPMENT"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Port int `yaml:"port,omitempty" envconfig:"PORT" validate:"omitempty,min=1,max=65535"`
}

// Load reads the config file, then applies .env and PLANTLOG_* environment
// overrides and validates the result.
func Load(configPath string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Empty config if the file doesn't exist
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// GetDBPath returns the SQLite path with a default of plantlog.db
func (c *Config) GetDBPath() string {
	if c.DBPath == "" {
		return "plantlog.db"
	}
	return c.DBPath
}

// GetBreakerFailures returns the consecutive failures that open the breaker (default 3)
func (c *Config) GetBreakerFailures() uint32 {
	if c.Remote.BreakerFailures == 0 {
		return 3
	}
	return c.Remote.BreakerFailures
}

// GetBreakerTimeout returns how long the breaker stays open (default 30s)
func (c *Config) GetBreakerTimeout() time.Duration {
	if c.Remote.BreakerTimeout <= 0 {
		return 30 * time.Second
	}
	return c.Remote.BreakerTimeout
}

// GetSigningKey returns the session signing key. An unset key falls back to a
// fixed local key, which only protects against accidental edits.
func (c *Config) GetSigningKey() string {
	if c.Session.SigningKey == "" {
		return "plantlog-local-session-key"
	}
	return c.Session.SigningKey
}

// GetTopicPrefix returns the MQTT topic prefix (default plantlog)
func (c *Config) GetTopicPrefix() string {
	if c.MQTT.TopicPrefix == "" {
		return "plantlog"
	}
	return c.MQTT.TopicPrefix
}

// GetLogLevel returns the log level (default info)
func (c *Config) GetLogLevel() string {
	if c.Log.Level == "" {
		return "info"
	}
	return c.Log.Level
}

// GetPort returns the HTTP API port (default 8080)
func (c *Config) GetPort() int {
	if c.Server.Port == 0 {
		return 8080
	}
	return c.Server.Port
}
