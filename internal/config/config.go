// Package config loads process settings from the environment.
package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	// Listen address of the HTTP front door.
	Addr string `env:"ARENA_ADDR" envDefault:":8080"`

	// YAML tuning file; empty uses built-in defaults.
	TuningPath string `env:"ARENA_TUNING" envDefault:"configs/tuning.yaml"`

	// Root for sqlite files and the journal.
	DataDir string `env:"ARENA_DATA_DIR" envDefault:"data"`

	// One of sqlite, redis, memory.
	ProfileBackend string `env:"ARENA_PROFILE_BACKEND" envDefault:"sqlite"`
	RedisAddr      string `env:"ARENA_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword  string `env:"ARENA_REDIS_PASSWORD"`

	// Overrides the tuning autosave interval when set.
	AutosaveEvery time.Duration `env:"ARENA_AUTOSAVE_EVERY"`

	// Writes the combat/lifecycle journal under DataDir.
	Journal bool `env:"ARENA_JOURNAL" envDefault:"true"`

	// Comma-separated user:token pairs accepted in addition to the sessions table.
	DevTokens string `env:"ARENA_DEV_TOKENS"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

func Load() (Config, error) {
	return load(env.Options{})
}

// LoadFrom parses a fixed environment map instead of the process environment.
func LoadFrom(environ map[string]string) (Config, error) {
	return load(env.Options{Environment: environ})
}

func load(opts env.Options) (Config, error) {
	cfg := Config{}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, eris.Wrap(err, "failed to parse environment variables")
	}
	if err := cfg.validate(); err != nil {
		return cfg, eris.Wrap(err, "failed to validate config")
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.Addr == "" {
		return eris.New("listen address cannot be empty")
	}
	switch cfg.ProfileBackend {
	case BackendSQLite, BackendMemory:
	case BackendRedis:
		if cfg.RedisAddr == "" {
			return eris.New("redis address cannot be empty")
		}
	default:
		return eris.Errorf("unknown profile backend %q", cfg.ProfileBackend)
	}
	if cfg.AutosaveEvery < 0 {
		return eris.New("autosave interval cannot be negative")
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return eris.Wrapf(err, "bad log level %q", cfg.LogLevel)
	}
	return nil
}

func (cfg *Config) ProfileDBPath() string { return filepath.Join(cfg.DataDir, "profiles.sqlite") }
func (cfg *Config) SessionDBPath() string { return filepath.Join(cfg.DataDir, "sessions.sqlite") }

// ParseDevTokens splits DevTokens into a username -> token map.
func (cfg *Config) ParseDevTokens() map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(cfg.DevTokens, ",") {
		user, tok, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || user == "" || tok == "" {
			continue
		}
		out[user] = tok
	}
	return out
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (cfg *Config) NewLogger(out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}
	if cfg.LogFormat == "pretty" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
