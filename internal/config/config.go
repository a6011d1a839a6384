package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Discord Bot
	DiscordToken string `env:"DISCORD_TOKEN"`

	// Discord OAuth2
	DiscordClientID     string `env:"DISCORD_CLIENT_ID"`
	DiscordClientSecret string `env:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURI  string `env:"DISCORD_REDIRECT_URI" envDefault:"http://localhost:3000/api/auth/callback"`

	// Database
	DatabaseURL string `env:"DATABASE_URL"`

	// Web Server
	WebBind string `env:"WEB_BIND" envDefault:"0.0.0.0:3000"`

	// Session
	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-only-change-me"`

	// Solver
	SolverBackend      string        `env:"SOLVER_BACKEND" envDefault:"bnb"`
	SolverTimeLimit    time.Duration `env:"SOLVER_TIME_LIMIT" envDefault:"30s"`
	SolverMaxTimeLimit time.Duration `env:"SOLVER_MAX_TIME_LIMIT" envDefault:"600s"`
	CBCPath            string        `env:"CBC_PATH" envDefault:"cbc"`
	MaxParticipants    int           `env:"MAX_PARTICIPANTS" envDefault:"30"`

	// Reminders for unpaid transfers; 0 disables them
	ReminderInterval time.Duration `env:"REMINDER_INTERVAL" envDefault:"24h"`

	// Logging
	LogEnv   string `env:"LOG_ENV" envDefault:"production"`
	LogLevel string `env:"LOG_LEVEL"`
}

func Load() (*Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DiscordToken == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DiscordClientID == "" {
		return fmt.Errorf("DISCORD_CLIENT_ID is required")
	}
	if c.DiscordClientSecret == "" {
		return fmt.Errorf("DISCORD_CLIENT_SECRET is required")
	}
	if c.SolverTimeLimit < time.Second {
		return fmt.Errorf("SOLVER_TIME_LIMIT must be at least 1s, got %s", c.SolverTimeLimit)
	}
	if c.SolverMaxTimeLimit < c.SolverTimeLimit {
		return fmt.Errorf("SOLVER_MAX_TIME_LIMIT (%s) is below SOLVER_TIME_LIMIT (%s)", c.SolverMaxTimeLimit, c.SolverTimeLimit)
	}
	if c.ReminderInterval < 0 {
		return fmt.Errorf("REMINDER_INTERVAL must not be negative, got %s", c.ReminderInterval)
	}
	if c.MaxParticipants < 2 {
		return fmt.Errorf("MAX_PARTICIPANTS must be at least 2, got %d", c.MaxParticipants)
	}
	return nil
}

// ClampTimeLimit maps a requested limit into [1s, SolverMaxTimeLimit]. Zero
// selects SolverTimeLimit.
func (c *Config) ClampTimeLimit(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return c.SolverTimeLimit
	case d < time.Second:
		return time.Second
	case d > c.SolverMaxTimeLimit:
		return c.SolverMaxTimeLimit
	}
	return d
}
