package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SHIFT_STALE_AFTER", "")
	t.Setenv("TIMEZONE", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.Shifts.StaleAfter)
	assert.Equal(t, time.Minute, cfg.Shifts.PauseCheck)
	assert.Equal(t, time.Hour, cfg.Shifts.FirstReminder)
	assert.Equal(t, 30*time.Minute, cfg.Shifts.RepeatReminder)
	assert.Equal(t, "Europe/Moscow", cfg.Shifts.Location.String())
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "shift_events", cfg.Kafka.Topic)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/taxi")
	t.Setenv("SHIFT_STALE_AFTER", "48h")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/taxi", cfg.DB.DSN())
	assert.Equal(t, 48*time.Hour, cfg.Shifts.StaleAfter)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, time.UTC, cfg.Shifts.Location)
}

func TestLoadInvalidValues(t *testing.T) {
	t.Setenv("SHIFT_SWEEP_INTERVAL", "soon")
	t.Setenv("DB_PORT", "abc")
	t.Setenv("TIMEZONE", "Mars/Olympus")

	cfg, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHIFT_SWEEP_INTERVAL")
	assert.Contains(t, err.Error(), "DB_PORT")
	assert.Contains(t, err.Error(), "TIMEZONE")
	assert.Equal(t, 10*time.Minute, cfg.Shifts.SweepInterval)
	assert.Equal(t, 5432, cfg.DB.Port)
}

func TestDSNFromParts(t *testing.T) {
	c := DBConfig{Host: "h", Port: 5433, User: "u", Password: "p", Database: "d"}
	assert.Equal(t, "postgres://u:p@h:5433/d", c.DSN())
}
