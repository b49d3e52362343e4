// Package config loads mazeduel settings from a YAML file, an optional .env
// file and MAZEDUEL_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/MJE43/maze-duel/internal/match"
)

// Environment variables that override the file.
const (
	EnvAddr      = "MAZEDUEL_ADDR"
	EnvDBPath    = "MAZEDUEL_DB_PATH"
	EnvLogLevel  = "MAZEDUEL_LOG_LEVEL"
	EnvLogFormat = "MAZEDUEL_LOG_FORMAT"
)

// Config is the full application configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`
	Match  match.Config `yaml:"match"`
}

// ServerConfig configures the local HTTP control surface.
type ServerConfig struct {
	Addr         string        `yaml:"addr" validate:"required,hostname_port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gte=0"`
}

// StoreConfig locates the bot registry database.
type StoreConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         "127.0.0.1:8090",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Store: StoreConfig{Path: "mazeduel.db"},
		Log:   LogConfig{Level: "info", Format: "text"},
		Match: match.DefaultConfig(),
	}
}

var validate = validator.New()

// Load reads path (skipped when empty), then .env from the working
// directory if present, then the environment. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv(EnvAddr); ok {
		cfg.Server.Addr = v
	}
	if v, ok := os.LookupEnv(EnvDBPath); ok {
		cfg.Store.Path = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		cfg.Log.Level = v
	}
	if v, ok := os.LookupEnv(EnvLogFormat); ok {
		cfg.Log.Format = v
	}
}

// Validate checks every section, including the match limits.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}
