// Package config loads keyforge's deployment configuration: database
// connection, KMS adapter selection, the encryption engine's rotation
// policy, server listen addresses, and logging. YAML is the primary
// format, with environment variables (loaded via godotenv for local
// development) able to override secrets that shouldn't live in a
// checked-in file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for both the
// keyforge-server and keyforge-client binaries.
type Config struct {
	Environment string          `yaml:"environment"`
	Database    *DatabaseConfig `yaml:"database"`
	KMS         *KMSConfig      `yaml:"kms"`
	Encryption  *EncryptionConfig `yaml:"encryption"`
	DataServer  *ServerConfig   `yaml:"data_server"`
	ControlServer *ServerConfig `yaml:"control_server"`
	Client      *ClientConfig   `yaml:"client"`
	Logging     *LoggingConfig  `yaml:"logging"`
	Metrics     *MetricsConfig  `yaml:"metrics"`
	Health      *HealthConfig   `yaml:"health"`
}

// DatabaseConfig configures the Postgres-backed repository store.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password" json:"-"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// KMSConfig selects and configures the adapter that wraps cluster keys.
type KMSConfig struct {
	Type     string        `yaml:"type"` // "dummy" or "remote"
	Endpoint string        `yaml:"endpoint"`
	KeyID    string        `yaml:"key_id"`
	Token    string        `yaml:"token" json:"-"`
	Timeout  time.Duration `yaml:"timeout"`
}

// EncryptionConfig configures the envelope encryption engine's
// rotation policy.
type EncryptionConfig struct {
	RotateInDays int64  `yaml:"rotate_in_days"`
	Algorithm    string `yaml:"algorithm"`
	KeepInDays   int64  `yaml:"keep_in_days"`
}

// ServerConfig configures one of the data-plane or control-plane
// listeners.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ClientConfig configures the signing client's connection to the
// server's data plane.
type ClientConfig struct {
	BaseURL     string `yaml:"base_url"`
	Token       string `yaml:"token" json:"-"`
	Concurrency int64  `yaml:"concurrency"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Output string `yaml:"output"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// HealthConfig configures the health-check endpoint.
type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LoadFromFile loads configuration from path, trying YAML first and
// falling back to JSON, then overlays any given .env files so local
// secrets never need to be committed alongside the rest of the
// configuration.
func LoadFromFile(path string, envFiles ...string) (*Config, error) {
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: load env file %s: %w", envFile, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("config: parse config file (tried YAML and JSON): %w", err)
		}
	}

	setDefaults(cfg)
	return cfg, nil
}

// SaveToFile writes cfg to path, choosing JSON or YAML by extension.
func SaveToFile(cfg *Config, path string) error {
	var data []byte
	var err error

	if len(path) > 5 && path[len(path)-5:] == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("config: marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write config file: %w", err)
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.Database != nil && cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	if cfg.KMS != nil {
		if cfg.KMS.Type == "" {
			cfg.KMS.Type = "dummy"
		}
		if cfg.KMS.Timeout == 0 {
			cfg.KMS.Timeout = 10 * time.Second
		}
	}

	if cfg.Encryption != nil {
		if cfg.Encryption.RotateInDays == 0 {
			cfg.Encryption.RotateInDays = 90
		}
		if cfg.Encryption.Algorithm == "" {
			cfg.Encryption.Algorithm = "aes256-gcm-siv"
		}
	}

	if cfg.DataServer != nil && cfg.DataServer.ShutdownTimeout == 0 {
		cfg.DataServer.ShutdownTimeout = 30 * time.Second
	}
	if cfg.ControlServer != nil && cfg.ControlServer.ShutdownTimeout == 0 {
		cfg.ControlServer.ShutdownTimeout = 30 * time.Second
	}

	if cfg.Client != nil && cfg.Client.Concurrency == 0 {
		cfg.Client.Concurrency = 4
	}

	if cfg.Logging != nil {
		if cfg.Logging.Level == "" {
			cfg.Logging.Level = "info"
		}
		if cfg.Logging.Output == "" {
			cfg.Logging.Output = "stdout"
		}
	}

	if cfg.Metrics != nil && cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}
