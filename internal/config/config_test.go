package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Mode)
	assert.Equal(t, "STUDENT", cfg.Session.EnforcedRoles)
	assert.Equal(t, "24h", cfg.Session.IdleTimeout)
	assert.Equal(t, "1h", cfg.Session.CleanupInterval)
	assert.Equal(t, 10, cfg.RateLimit.LoginPerMinute)
}

func TestLoadConfig_FileValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	path := writeConfigFile(t, `
server:
  port: "9090"
session:
  enforced_roles: "STUDENT,PRESENTER"
  idle_timeout: "12h"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "STUDENT,PRESENTER", cfg.Session.EnforcedRoles)
	assert.Equal(t, "12h", cfg.Session.IdleTimeout)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("SESSION_IDLE_TIMEOUT", "6h")

	path := writeConfigFile(t, `
server:
  port: "9090"
session:
  idle_timeout: "12h"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "6h", cfg.Session.IdleTimeout)
}

func TestLoadConfig_MissingJWTSecret(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SESSION_IDLE_TIMEOUT", "one-day")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnforcedRoleSet(t *testing.T) {
	tests := []struct {
		name  string
		roles string
		want  map[string]bool
	}{
		{name: "single role", roles: "STUDENT", want: map[string]bool{"STUDENT": true}},
		{name: "multiple roles", roles: "STUDENT,PRESENTER", want: map[string]bool{"STUDENT": true, "PRESENTER": true}},
		{name: "whitespace and case", roles: " student , Mentor ", want: map[string]bool{"STUDENT": true, "MENTOR": true}},
		{name: "empty", roles: "", want: map[string]bool{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.Session.EnforcedRoles = tt.roles
			assert.Equal(t, tt.want, cfg.EnforcedRoleSet())
		})
	}
}

func TestGetPostgresConnectionString(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Host = "db.local"
	cfg.Database.Port = "5433"
	cfg.Database.User = "app"
	cfg.Database.Password = "pw"
	cfg.Database.DBName = "learnstack"

	assert.Equal(t,
		"postgres://app:pw@db.local:5433/learnstack?sslmode=disable",
		cfg.GetPostgresConnectionString())
}

func TestValidateConfig_Durations(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	path := writeConfigFile(t, `
jwt:
  access_token_expiration: "90m"
  refresh_token_expiration: "1440h"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	d, err := time.ParseDuration(cfg.JWT.AccessTokenExpiration)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, d)
}
