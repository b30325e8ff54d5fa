package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, BackendSQLite, cfg.ProfileBackend)
	assert.True(t, cfg.Journal)
	assert.Equal(t, time.Duration(0), cfg.AutosaveEvery)
	assert.Equal(t, "data/profiles.sqlite", cfg.ProfileDBPath())
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"ARENA_ADDR":            "127.0.0.1:9000",
		"ARENA_PROFILE_BACKEND": "redis",
		"ARENA_REDIS_ADDR":      "redis:6379",
		"ARENA_AUTOSAVE_EVERY":  "10s",
		"ARENA_JOURNAL":         "false",
		"ARENA_DEV_TOKENS":      "ana:t1, bob:t2,broken",
		"LOG_LEVEL":             "debug",
	})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, BackendRedis, cfg.ProfileBackend)
	assert.Equal(t, 10*time.Second, cfg.AutosaveEvery)
	assert.False(t, cfg.Journal)
	assert.Equal(t, map[string]string{"ana": "t1", "bob": "t2"}, cfg.ParseDevTokens())
}

func TestLoadFrom_Invalid(t *testing.T) {
	_, err := LoadFrom(map[string]string{"ARENA_PROFILE_BACKEND": "floppy"})
	assert.Error(t, err)
	_, err = LoadFrom(map[string]string{"LOG_LEVEL": "loud"})
	assert.Error(t, err)
	_, err = LoadFrom(map[string]string{"ARENA_AUTOSAVE_EVERY": "soon"})
	assert.Error(t, err)
}

func TestNewLogger_Level(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"LOG_LEVEL": "warn"})
	require.NoError(t, err)
	var buf bytes.Buffer
	log := cfg.NewLogger(&buf)
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
