package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v10"
)

// Prefix is prepended to every environment variable name.
const Prefix = "MDBOOK_SPLIT_"

const defaultMaxBodyBytes = 10 << 20 // 10MB

type Config struct {
	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// HTTP API
	Port         string `env:"PORT" envDefault:"8090"`
	APIKey       string `env:"API_KEY"`
	MaxBodyBytes int64  `env:"MAX_BODY_BYTES" envDefault:"10485760"`

	// Default for [preprocessor.split] heading-attributes.
	HeadingAttributes bool `env:"HEADING_ATTRIBUTES" envDefault:"false"`
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return parse(env.Options{Prefix: Prefix})
}

// LoadFrom reads the configuration from environ instead of the process
// environment. Keys carry the prefix.
func LoadFrom(environ map[string]string) (Config, error) {
	if environ == nil {
		environ = map[string]string{}
	}
	return parse(env.Options{Prefix: Prefix, Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.Port == "" {
		cfg.Port = "8090"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	return cfg, nil
}

func (c Config) Validate() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("%sLOG_LEVEL: unknown level %q", Prefix, c.LogLevel)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("%sLOG_FORMAT must be text or json, got %q", Prefix, c.LogFormat)
	}
	return nil
}

// Logger builds the process logger. w is stderr in practice; stdout is
// reserved for protocol output.
func (c Config) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
