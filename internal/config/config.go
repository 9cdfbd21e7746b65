package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/meltforce/fatiguetrack/internal/fatigue"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Logging   LoggingConfig   `yaml:"logging"`
	Fatigue   FatigueConfig   `yaml:"fatigue"`
	Sessions  SessionsConfig  `yaml:"sessions"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	// Path is the database file for the sqlite driver.
	Path string `yaml:"path"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File enables rotated file output. ToStdout additionally keeps stdout.
	File       string `yaml:"file"`
	ToStdout   bool   `yaml:"to_stdout"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// FatigueConfig overrides the built-in per-muscle rates. Keys are muscle
// group names as used in the API, e.g. "Chest" or "Lower Back".
type FatigueConfig struct {
	BaseFatigue   map[string]float64 `yaml:"base_fatigue"`
	RecoveryRates map[string]float64 `yaml:"recovery_rates"`
}

type SessionsConfig struct {
	// IdleTimeout closes sessions without activity for this long. Zero keeps
	// sessions open until closed explicitly.
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Tables returns the built-in rate tables with the overrides applied.
func (f FatigueConfig) Tables() fatigue.Tables {
	return fatigue.DefaultTables().Merge(toMuscleMap(f.BaseFatigue), toMuscleMap(f.RecoveryRates))
}

func toMuscleMap(m map[string]float64) map[fatigue.MuscleGroup]float64 {
	out := make(map[fatigue.MuscleGroup]float64, len(m))
	for k, v := range m {
		out[fatigue.MuscleGroup(k)] = v
	}
	return out
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix FATIGUETRACK_ and underscore-separated paths:
//
//	FATIGUETRACK_SERVER_HOST, FATIGUETRACK_SERVER_PORT,
//	FATIGUETRACK_DB_DRIVER, FATIGUETRACK_DB_HOST, FATIGUETRACK_DB_PORT,
//	FATIGUETRACK_DB_NAME, FATIGUETRACK_DB_USER, FATIGUETRACK_DB_PASSWORD,
//	FATIGUETRACK_DB_SSLMODE, FATIGUETRACK_DB_PATH,
//	FATIGUETRACK_AUTH_API_KEY, FATIGUETRACK_LOG_LEVEL, FATIGUETRACK_LOG_FILE
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FATIGUETRACK_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("FATIGUETRACK_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FATIGUETRACK_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("FATIGUETRACK_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("FATIGUETRACK_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("FATIGUETRACK_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("FATIGUETRACK_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("FATIGUETRACK_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("FATIGUETRACK_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("FATIGUETRACK_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("FATIGUETRACK_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("FATIGUETRACK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FATIGUETRACK_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverPostgres
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = "fatiguetrack"
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver %q is not one of postgres, sqlite, memory", c.Database.Driver)
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}
	for k, v := range c.Fatigue.BaseFatigue {
		if v < 0 {
			return fmt.Errorf("fatigue.base_fatigue[%s] must not be negative", k)
		}
	}
	for k, v := range c.Fatigue.RecoveryRates {
		if v < 0 {
			return fmt.Errorf("fatigue.recovery_rates[%s] must not be negative", k)
		}
	}
	if c.Sessions.IdleTimeout < 0 {
		return fmt.Errorf("sessions.idle_timeout must not be negative")
	}
	return nil
}
