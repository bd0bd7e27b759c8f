package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_PG_PASSWORD", "s3cret")
	path := writeConfig(t, `
postgres:
  host: localhost
  port: 5432
  user: app
  password: "${TEST_PG_PASSWORD}"
  database: stillwater
booking:
  weekdays: [sunday, monday]
  paid_from: "2026-02-03"
  price_minor: 9900
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Postgres.Password)
	assert.Contains(t, cfg.DSN(), "password=s3cret")
	assert.Equal(t, []time.Weekday{time.Sunday, time.Monday}, cfg.AllowedWeekdays())
	assert.Equal(t, time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC), cfg.PaidFrom())
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
postgres:
  host: localhost
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "disable", cfg.Postgres.SSLMode)
	assert.Equal(t, "INR", cfg.Booking.Currency)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL())
	assert.Equal(t, 30*time.Minute, cfg.PendingTTL())
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval())
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
