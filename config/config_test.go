package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CONFIG_ENV", "local")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "leave_management.db", cfg.Storage.DSN)
	assert.Equal(t, 5*time.Second, cfg.Storage.Timeout)
	assert.Equal(t, "leave_granted", cfg.Events.Topic)
	assert.Empty(t, cfg.Events.Brokers)
	assert.False(t, cfg.Leave.RejectRepeatedDates)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadConfig_EnvFileMergesOverBase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app-config.yaml", `
server:
  port: "9000"
storage:
  driver: sqlite
  dsn: base.db
leave:
  timezone: Europe/Paris
`)
	writeFile(t, dir, "staging.yaml", `
storage:
  dsn: staging.db
  timeout: 2s
events:
  brokers: ["kafka:9092"]
`)
	t.Setenv("CONFIG_ENV", "staging")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "staging.db", cfg.Storage.DSN)
	assert.Equal(t, 2*time.Second, cfg.Storage.Timeout)
	assert.Equal(t, []string{"kafka:9092"}, cfg.Events.Brokers)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", loc.String())
}

func TestLoadConfig_EnvironmentWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app-config.yaml", `
storage:
  driver: sqlite
`)
	t.Setenv("CONFIG_ENV", "local")
	t.Setenv("LEAVE_STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://leave@localhost/leave?sslmode=disable")
	t.Setenv("PORT", "7070")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "postgres://leave@localhost/leave?sslmode=disable", cfg.Storage.DSN)
	assert.Equal(t, "7070", cfg.Server.Port)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"LEAVE_STORAGE_DRIVER": "mongo"}},
		{"bad timezone", map[string]string{"LEAVE_LEAVE_TIMEZONE": "Mars/Olympus"}},
		{"zero timeout", map[string]string{"LEAVE_STORAGE_TIMEOUT": "0s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CONFIG_ENV", "local")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig(t.TempDir())
			assert.Error(t, err)
		})
	}
}
