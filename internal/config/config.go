// Package config provides environment-variable-first configuration loading
// with optional YAML file fallback for the mail sender.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultConnectTimeout bounds the initial TCP dial to the relay.
const defaultConnectTimeout = Duration(10 * time.Second)

// defaultReadTimeout bounds every protocol read after the dial.
const defaultReadTimeout = Duration(30 * time.Second)

// Duration wraps time.Duration so YAML values can use "10s"-style strings.
type Duration time.Duration

// UnmarshalYAML decodes a duration string such as "10s" or "1m30s".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds the complete application configuration.
type Config struct {
	Provider string        `yaml:"provider"`
	Relay    RelayConfig   `yaml:"relay"`
	SES      SESConfig     `yaml:"ses"`
	Logging  LoggingConfig `yaml:"logging"`
}

// RelayConfig holds SMTP relay connection settings and the sender identity.
type RelayConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	Username           string        `yaml:"username"`
	Password           string        `yaml:"password"`
	Sender             string        `yaml:"sender"`
	HeloDomain         string        `yaml:"helo_domain"`
	ConnectTimeout     Duration `yaml:"connect_timeout"`
	ReadTimeout        Duration `yaml:"read_timeout"`
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify"`
}

// SESConfig holds AWS SES API configuration.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Sender          string `yaml:"sender"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	cfg.applyEnvVars()

	return cfg, nil
}

// RelayConfigured returns true if the relay host, credentials, and sender
// identity are all set.
func (c *Config) RelayConfigured() bool {
	return c.Relay.Host != "" &&
		c.Relay.Username != "" &&
		c.Relay.Password != "" &&
		c.Relay.Sender != ""
}

// SESConfigured returns true if the SES region and sender are set.
func (c *Config) SESConfigured() bool {
	return c.SES.Region != "" && c.SES.Sender != ""
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.Relay.Port = 587
	c.Relay.HeloDomain = "localhost"
	c.Relay.ConnectTimeout = defaultConnectTimeout
	c.Relay.ReadTimeout = defaultReadTimeout
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("PROVIDER"); v != "" {
		c.Provider = strings.ToLower(v)
	}

	if v := os.Getenv("RELAY_HOST"); v != "" {
		c.Relay.Host = v
	}
	if v := os.Getenv("RELAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Relay.Port = port
		}
	}
	if v := os.Getenv("RELAY_USERNAME"); v != "" {
		c.Relay.Username = v
	}
	if v := os.Getenv("RELAY_PASSWORD"); v != "" {
		c.Relay.Password = v
	}
	if v := os.Getenv("RELAY_SENDER"); v != "" {
		c.Relay.Sender = v
	}
	if v := os.Getenv("RELAY_HELO_DOMAIN"); v != "" {
		c.Relay.HeloDomain = v
	}
	if v := os.Getenv("RELAY_CONNECT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Relay.ConnectTimeout = Duration(d)
		}
	}
	if v := os.Getenv("RELAY_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Relay.ReadTimeout = Duration(d)
		}
	}

	if v := os.Getenv("SES_REGION"); v != "" {
		c.SES.Region = v
	}
	if v := os.Getenv("SES_ACCESS_KEY_ID"); v != "" {
		c.SES.AccessKeyID = v
	}
	if v := os.Getenv("SES_SECRET_ACCESS_KEY"); v != "" {
		c.SES.SecretAccessKey = v
	}
	if v := os.Getenv("SES_SENDER"); v != "" {
		c.SES.Sender = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}
