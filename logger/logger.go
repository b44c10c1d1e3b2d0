// Package logger builds the zerolog logger shared by the server and the CLI.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Config selects the log level, format and static fields.
type Config struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=json console"`
	Env        string `mapstructure:"env" validate:"oneof=dev prod"`
	TimeFormat string `mapstructure:"time_format" validate:"oneof=rfc3339 rfc3339nano unix"`
	Service    string `mapstructure:"service"`
	Version    string `mapstructure:"version"`
	WithCaller bool   `mapstructure:"with_caller"`
}

func (c *Config) setDefaults() {
	if c.Env == "" {
		c.Env = "prod"
	}
	if c.Level == "" {
		if c.Env == "dev" {
			c.Level = "debug"
		} else {
			c.Level = "info"
		}
	}
	if c.Format == "" {
		if c.Env == "dev" {
			c.Format = "console"
		} else {
			c.Format = "json"
		}
	}
	if c.TimeFormat == "" {
		c.TimeFormat = "rfc3339"
	}
	if c.Service == "" {
		c.Service = "quill"
	}
	if c.Version == "" {
		c.Version = "dev"
	}
	if c.Env == "dev" {
		c.WithCaller = true
	}
}

// New validates cfg and returns a logger writing to stdout (json) or stderr (console).
func New(cfg Config) (zerolog.Logger, error) {
	var w io.Writer = os.Stdout
	if cfg.Format == "console" || (cfg.Format == "" && cfg.Env == "dev") {
		w = os.Stderr
	}
	return NewWithWriter(cfg, w)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(cfg Config, w io.Writer) (zerolog.Logger, error) {
	cfg.setDefaults()
	if err := validator.New().Struct(cfg); err != nil {
		return zerolog.Nop(), fmt.Errorf("logger config: %w", err)
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	switch cfg.TimeFormat {
	case "rfc3339nano":
		zerolog.TimeFieldFormat = "2006-01-02T15:04:05.999999999Z07:00"
	case "unix":
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	default:
		zerolog.TimeFieldFormat = "2006-01-02T15:04:05Z07:00"
	}

	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	ctx := zerolog.New(w).Level(level).With().Timestamp()
	if cfg.Format == "json" {
		ctx = ctx.Str("service", cfg.Service).Str("version", cfg.Version).Str("env", cfg.Env)
	}
	if cfg.WithCaller {
		ctx = ctx.Caller()
	}
	return ctx.Logger(), nil
}
