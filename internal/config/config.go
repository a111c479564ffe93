// Package config loads the server configuration.
//
// LAYERS (later wins):
//  1. Defaults (setDefaults)
//  2. An optional YAML file, path given by CONFIG_FILE
//  3. Environment variables, named by each field's `env` tag
//
// The result is validated once, at process start. main loads a .env file
// into the environment before calling Load, so local development can keep
// DB_URL and GITHUB_API_TOKEN in .env.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sakif/graduate-showcase/internal/github"
)

// Config is the complete server configuration.
type Config struct {
	Server struct {
		Port               int      `yaml:"port" env:"PORT"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
	} `yaml:"server"`

	Database struct {
		// URL selects PostgreSQL when it is a postgres:// or postgresql:// URL.
		// Anything else (including empty) means SQLite at Path.
		URL             string        `yaml:"url" env:"DB_URL"`
		Path            string        `yaml:"path" env:"DB_PATH"`
		MaxConns        int32         `yaml:"max_conns" env:"DB_MAX_CONNS"`
		MinConns        int32         `yaml:"min_conns" env:"DB_MIN_CONNS"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	} `yaml:"database"`

	GitHub struct {
		Endpoint string        `yaml:"endpoint" env:"GITHUB_API_ENDPOINT"`
		Token    string        `yaml:"token" env:"GITHUB_API_TOKEN"`
		Timeout  time.Duration `yaml:"timeout" env:"GITHUB_TIMEOUT"`
	} `yaml:"github"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := processStructFields(cfg); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.Server.Port = 8080
	cfg.Server.CORSAllowedOrigins = []string{"*"}

	cfg.Database.Path = "data/graduates.db"
	cfg.Database.MaxConns = 10
	cfg.Database.ConnMaxLifetime = time.Hour

	cfg.GitHub.Endpoint = github.DefaultEndpoint
	cfg.GitHub.Timeout = 30 * time.Second

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
}

func (c *Config) validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Server.Port))
	}

	if !c.UsePostgres() && c.Database.Path == "" {
		errs = append(errs, errors.New("database path is required when DB_URL is not a postgres URL"))
	}
	if c.Database.MaxConns < 0 || c.Database.MinConns < 0 {
		errs = append(errs, errors.New("database connection limits must not be negative"))
	}
	if c.Database.MaxConns > 0 && c.Database.MinConns > c.Database.MaxConns {
		errs = append(errs, fmt.Errorf("min conns %d exceeds max conns %d", c.Database.MinConns, c.Database.MaxConns))
	}

	if u, err := url.Parse(c.GitHub.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("github endpoint %q is not an absolute URL", c.GitHub.Endpoint))
	}
	if c.GitHub.Timeout < 0 {
		errs = append(errs, errors.New("github timeout must not be negative"))
	}

	if _, err := parseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format %q must be text or json", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// UsePostgres reports whether Database.URL points at PostgreSQL.
func (c *Config) UsePostgres() bool {
	u := strings.ToLower(c.Database.URL)
	return strings.HasPrefix(u, "postgres://") || strings.HasPrefix(u, "postgresql://")
}

// LogLevel returns the configured slog level. Load has already validated it.
func (c *Config) LogLevel() slog.Level {
	level, _ := parseLevel(c.Logging.Level)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", s, err)
	}
	return level, nil
}
