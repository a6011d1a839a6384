package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DATABASE_URL", "postgres://localhost/seisan")
	t.Setenv("DISCORD_CLIENT_ID", "client")
	t.Setenv("DISCORD_CLIENT_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:3000", cfg.WebBind)
	assert.Equal(t, "bnb", cfg.SolverBackend)
	assert.Equal(t, 30*time.Second, cfg.SolverTimeLimit)
	assert.Equal(t, 600*time.Second, cfg.SolverMaxTimeLimit)
	assert.Equal(t, "cbc", cfg.CBCPath)
	assert.Equal(t, 30, cfg.MaxParticipants)
	assert.Equal(t, 24*time.Hour, cfg.ReminderInterval)
	assert.Equal(t, "production", cfg.LogEnv)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SOLVER_BACKEND", "cbc")
	t.Setenv("SOLVER_TIME_LIMIT", "5s")
	t.Setenv("DISCORD_REDIRECT_URI", "https://seisan.example.com/api/auth/callback")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "cbc", cfg.SolverBackend)
	assert.Equal(t, 5*time.Second, cfg.SolverTimeLimit)
	assert.Equal(t, "https://seisan.example.com/api/auth/callback", cfg.DiscordRedirectURI)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{name: "missing token", key: "DISCORD_TOKEN", value: "", wantErr: "DISCORD_TOKEN is required"},
		{name: "missing database", key: "DATABASE_URL", value: "", wantErr: "DATABASE_URL is required"},
		{name: "short time limit", key: "SOLVER_TIME_LIMIT", value: "500ms", wantErr: "at least 1s"},
		{name: "bad duration", key: "SOLVER_TIME_LIMIT", value: "soon", wantErr: "parse env"},
		{name: "max below default", key: "SOLVER_MAX_TIME_LIMIT", value: "10s", wantErr: "below SOLVER_TIME_LIMIT"},
		{name: "negative reminder interval", key: "REMINDER_INTERVAL", value: "-1h", wantErr: "REMINDER_INTERVAL"},
		{name: "too few participants", key: "MAX_PARTICIPANTS", value: "1", wantErr: "MAX_PARTICIPANTS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestClampTimeLimit(t *testing.T) {
	cfg := &Config{SolverTimeLimit: 30 * time.Second, SolverMaxTimeLimit: time.Minute}
	assert.Equal(t, 30*time.Second, cfg.ClampTimeLimit(0))
	assert.Equal(t, time.Second, cfg.ClampTimeLimit(10*time.Millisecond))
	assert.Equal(t, time.Minute, cfg.ClampTimeLimit(time.Hour))
	assert.Equal(t, 7*time.Second, cfg.ClampTimeLimit(7*time.Second))
}
