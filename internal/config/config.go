// Package config loads console settings from defaults, an optional YAML file,
// a .env file and the process environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the console server and the CLI.
type Config struct {
	Addr           string        `yaml:"addr"`
	BackendURL     string        `yaml:"backend_url"`
	BackendTimeout time.Duration `yaml:"backend_timeout"`
	BackendRPS     float64       `yaml:"backend_rps"`
	BackendBurst   int           `yaml:"backend_burst"`
	JWTSecret      string        `yaml:"jwt_secret"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
	ConsoleRPS     float64       `yaml:"console_rps"`
	ConsoleBurst   int           `yaml:"console_burst"`
	DialogTTL      time.Duration `yaml:"dialog_ttl"`
}

// Default returns local-development defaults.
func Default() Config {
	return Config{
		Addr:           ":8080",
		BackendURL:     "http://localhost:3000",
		BackendTimeout: 15 * time.Second,
		BackendRPS:     20,
		BackendBurst:   40,
		LogLevel:       "info",
		LogFormat:      "text",
		ConsoleRPS:     5,
		ConsoleBurst:   10,
		DialogTTL:      30 * time.Minute,
	}
}

// Load builds the configuration. path names an optional YAML file; when empty
// the DOJO_CONFIG variable is consulted.
func Load(path string) (Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv("DOJO_CONFIG")
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("ADDR", &c.Addr)
	str("BACKEND_URL", &c.BackendURL)
	str("JWT_SECRET", &c.JWTSecret)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)

	var errs []error
	dur := func(key string, dst *time.Duration) {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	float := func(key string, dst *float64) {
		if v := getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	integer := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur("BACKEND_TIMEOUT", &c.BackendTimeout)
	dur("DIALOG_TTL", &c.DialogTTL)
	float("BACKEND_RPS", &c.BackendRPS)
	float("CONSOLE_RPS", &c.ConsoleRPS)
	integer("BACKEND_BURST", &c.BackendBurst)
	integer("CONSOLE_BURST", &c.ConsoleBurst)

	return errors.Join(errs...)
}

// Validate checks the settings the console server cannot run without.
func (c Config) Validate() error {
	var errs []error
	if c.BackendURL == "" {
		errs = append(errs, errors.New("BACKEND_URL is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.BackendTimeout <= 0 {
		errs = append(errs, errors.New("BACKEND_TIMEOUT must be positive"))
	}
	if c.BackendRPS <= 0 || c.BackendBurst <= 0 {
		errs = append(errs, errors.New("BACKEND_RPS and BACKEND_BURST must be positive"))
	}
	if c.ConsoleRPS <= 0 || c.ConsoleBurst <= 0 {
		errs = append(errs, errors.New("CONSOLE_RPS and CONSOLE_BURST must be positive"))
	}
	if c.DialogTTL <= 0 {
		errs = append(errs, errors.New("DIALOG_TTL must be positive"))
	}
	return errors.Join(errs...)
}

// Logger builds the slog logger described by LogLevel and LogFormat.
func (c Config) Logger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
