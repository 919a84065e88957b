// Package config provides environment-variable-first configuration loading
// with optional YAML file fallback for the outreach service.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	SendLog   SendLogConfig   `yaml:"send_log"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds the HTTP API server configuration.
type ServerConfig struct {
	Listen   string `yaml:"listen"`
	TLS      bool   `yaml:"tls"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// TransportConfig selects and configures the mail delivery backend.
type TransportConfig struct {
	// Provider is "gmail" or "stdout". Empty means gmail.
	Provider string `yaml:"provider"`

	// Sender is the address the stdout transport reports as its own;
	// the gmail transport resolves the real one from the profile endpoint.
	Sender string `yaml:"sender"`
}

// SendLogConfig holds the send-log file location.
type SendLogConfig struct {
	Path string `yaml:"path"`
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

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.Server.Listen = ":8080"
	c.Transport.Provider = "gmail"
	c.SendLog.Path = "sent_log.json"
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("SERVER_LISTEN"); v != "" {
		c.Server.Listen = v
	}
	if v := os.Getenv("SERVER_TLS"); v != "" {
		c.Server.TLS = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("TLS_CERT_FILE"); v != "" {
		c.Server.CertFile = v
	}
	if v := os.Getenv("TLS_KEY_FILE"); v != "" {
		c.Server.KeyFile = v
	}

	if v := os.Getenv("PROVIDER"); v != "" {
		c.Transport.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("SENDER"); v != "" {
		c.Transport.Sender = v
	}

	if v := os.Getenv("SENDLOG_PATH"); v != "" {
		c.SendLog.Path = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}
