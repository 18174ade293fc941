/*
Package config loads the ledger server configuration.

PRIORITY (lowest to highest):
  1. Defaults (Default)
  2. YAML file (LoadFile), when -config is given
  3. .env file, loaded into the process environment if present
  4. LEDGER_* environment variables (LoadFromEnv)
  5. Command-line flags, applied by cmd/server

EXAMPLE FILE:
  server:
    port: 8080
    cors_origins: ["http://localhost:3000"]
  database:
    type: sqlite
    path: ./ledger.db
  logger:
    mode: development
    file_enable: true
    filename: ./logs/ledger.log
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid configuration")

const (
	DatabaseSQLite = "sqlite"
	DatabaseMemory = "memory"

	LogModeProduction  = "production"
	LogModeDevelopment = "development"
)

type Config struct {
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
	Logger   Logger   `yaml:"logger"`
}

type Server struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	CORSOrigins  []string      `yaml:"cors_origins"`
}

// Addr is the listen address for http.Server.
func (s Server) Addr() string {
	return ":" + strconv.Itoa(s.Port)
}

type Database struct {
	Type string `yaml:"type"` // "sqlite" or "memory"
	Path string `yaml:"path"`
}

type Logger struct {
	Mode       string `yaml:"mode"` // "production" (JSON) or "development" (console)
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// Default returns the configuration used when nothing else is provided.
func Default() *Config {
	return &Config{
		Server: Server{
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
			CORSOrigins:  []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Database: Database{
			Type: DatabaseSQLite,
			Path: "./ledger.db",
		},
		Logger: Logger{
			Mode:     LogModeDevelopment,
			Filename: "./logs/ledger.log",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, an
// optional .env file and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

// LoadFile overlays values from a YAML file. Keys absent from the file
// keep their current value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w: %v", path, ErrInvalidConfig, err)
	}
	return nil
}

// LoadFromEnv applies LEDGER_* environment variables.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("LEDGER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LEDGER_PORT=%q: %w", v, ErrInvalidConfig)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("LEDGER_DB"); v != "" {
		if v == DatabaseMemory {
			c.Database.Type = DatabaseMemory
		} else {
			c.Database.Type = DatabaseSQLite
			c.Database.Path = v
		}
	}
	if v := os.Getenv("LEDGER_LOG_MODE"); v != "" {
		c.Logger.Mode = v
	}
	if v := os.Getenv("LEDGER_LOG_FILE"); v != "" {
		c.Logger.FileEnable = true
		c.Logger.Filename = v
	}
	if v := os.Getenv("LEDGER_CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
	return nil
}

// Validate checks port range, database type and log mode.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d: %w", c.Server.Port, ErrInvalidConfig)
	}
	switch c.Database.Type {
	case DatabaseMemory:
	case DatabaseSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("sqlite database path is required: %w", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("unknown database type %q: %w", c.Database.Type, ErrInvalidConfig)
	}
	switch c.Logger.Mode {
	case LogModeProduction, LogModeDevelopment:
	default:
		return fmt.Errorf("unknown log mode %q: %w", c.Logger.Mode, ErrInvalidConfig)
	}
	if c.Logger.FileEnable && c.Logger.Filename == "" {
		return fmt.Errorf("log filename is required when file logging is enabled: %w", ErrInvalidConfig)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
