package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env  string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port string `env:"PORT" envDefault:"8080" validate:"required"`

	RedisURL    string `env:"REDIS_URL,required" validate:"required"`
	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	// DispatchTickSec is the dispatcher's polling interval.
	DispatchTickSec int `env:"DISPATCH_TICK_SEC" envDefault:"1" validate:"min=1,max=10"`
	// ExpansionIntervalMin is the queue planner's expansion cadence.
	ExpansionIntervalMin int `env:"EXPANSION_INTERVAL_MIN" envDefault:"10" validate:"min=1,max=60"`
	// HistoryRetentionHours bounds the catalogue GC window.
	HistoryRetentionHours int `env:"HISTORY_RETENTION_HOURS" envDefault:"24" validate:"min=1"`
	// Timezone is used only for display in helpers; cron expansion stays UTC-normalised.
	Timezone string `env:"TIMEZONE" envDefault:"UTC" validate:"required"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info" validate:"required,oneof=debug info warn error"`

	// JWTSecret signs/validates the Mutation API's HS256 bearer tokens.
	// The core only ever validates; it never issues a token.
	JWTSecret string `env:"JWT_SECRET,required" validate:"required"`

	// Operator alerting (internal/notify), required outside local dev.
	ResendAPIKey  string `env:"RESEND_API_KEY"   validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom    string `env:"RESEND_FROM"      validate:"required_if=Env production,required_if=Env staging"`
	OperatorEmail string `env:"OPERATOR_EMAIL"   validate:"required_if=Env production,required_if=Env staging"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SlogLevel converts the LOG_LEVEL string to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
