// Package config provides YAML-based configuration loading for the register.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Environment overrides, applied after the YAML file is parsed.
const (
	EnvDBPassword      = "VDS_DB_PASSWORD"
	EnvSlackWebhookURL = "VDS_SLACK_WEBHOOK_URL"
	EnvLogLevel        = "VDS_LOG_LEVEL"
)

// Config is the top-level configuration, loaded from vds.yaml.
type Config struct {
	LogLevel string          `yaml:"log_level"`
	Database DatabaseConfig  `yaml:"database"`
	Server   ServerConfig    `yaml:"server"`
	Notify   NotifyConfig    `yaml:"notify"`
	Digest   DigestConfig    `yaml:"digest"`
	Projects []ProjectConfig `yaml:"projects"`
}

// DatabaseConfig selects and addresses the relational store.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"` // sqlite only
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"` // postgres only
}

// ServerConfig holds settings for the dashboard API.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// NotifyConfig controls transmittal announcements. An empty webhook disables them.
type NotifyConfig struct {
	SlackWebhookURL string `yaml:"slack_webhook_url"`
	Channel         string `yaml:"channel"`
}

// DigestConfig controls the overdue-document digest.
type DigestConfig struct {
	Schedule string `yaml:"schedule"` // 5-field cron expression
}

// ProjectConfig seeds a project on `vds db init`.
type ProjectConfig struct {
	WANumber     string `yaml:"wa_number"`
	Title        string `yaml:"title"`
	ClientNumber string `yaml:"client_number"`
	DrmRefNumber string `yaml:"drm_ref_number"`
	Stub         string `yaml:"stub"`
	ClientTitle  string `yaml:"client_title"`
	Country      string `yaml:"country"`
	Location     string `yaml:"location"`
}

// Load reads a YAML config file from path and returns a validated Config.
// A .env file next to the config, if present, is loaded into the process
// environment first; variables already set are left alone.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	envPath := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load %s: %w", envPath, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overrides secrets and the log level from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDBPassword); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv(EnvSlackWebhookURL); v != "" {
		c.Notify.SlackWebhookURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			c.Database.Path = "vds.db"
		}
	case DriverMySQL:
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
	case DriverPostgres:
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.User == "" {
			c.Database.User = "postgres"
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Digest.Schedule == "" {
		c.Digest.Schedule = "0 8 * * 1-5"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case DriverSQLite:
	case DriverMySQL, DriverPostgres:
		if c.Database.Name == "" {
			errs = append(errs, fmt.Sprintf("database.name is required for %s", c.Database.Driver))
		}
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not one of sqlite, mysql, postgres", c.Database.Driver))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	seen := make(map[string]bool)
	for i, p := range c.Projects {
		if p.WANumber == "" {
			errs = append(errs, fmt.Sprintf("projects[%d].wa_number is required", i))
		} else if seen[p.WANumber] {
			errs = append(errs, fmt.Sprintf("projects[%d].wa_number %q is duplicated", i, p.WANumber))
		}
		seen[p.WANumber] = true
		if p.Title == "" {
			errs = append(errs, fmt.Sprintf("projects[%d].title is required", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
