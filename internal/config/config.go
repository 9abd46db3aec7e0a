// Package config loads application configuration from environment variables.
//
// WHY A CONFIG PACKAGE?
// Reading os.Getenv all over the codebase scatters defaults and makes it
// impossible to see the full configuration surface in one place. Instead we
// declare a single struct with env tags and parse it once at startup with
// caarlos0/env. Every component receives the values it needs through its
// constructor — no globals, no hidden state.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime configuration for the diary server.
//
// Defaults are chosen for local development; production deployments override
// them via the environment. JWT_SECRET has no default on purpose — starting
// an auth-backed API with a known secret would make every token forgeable.
type Config struct {
	// HTTP listen port.
	Port int `env:"PORT" envDefault:"8080"`

	// Path to the SQLite database file. ":memory:" gives a throwaway DB.
	DBPath string `env:"DB_PATH" envDefault:"data/diary.db"`

	// Directory the static single-page client is served from.
	StaticDir string `env:"STATIC_DIR" envDefault:"web/static"`

	// HMAC secret for signing bearer tokens. Required, min 16 chars
	// (enforced by auth.NewTokenService).
	JWTSecret string `env:"JWT_SECRET"`

	// Bearer token lifetime. Diary sessions are long-lived: a week by
	// default, after which the client must log in again.
	TokenLifetime time.Duration `env:"TOKEN_LIFETIME" envDefault:"168h"`

	// bcrypt work factor for password hashing.
	BcryptCost int `env:"BCRYPT_COST" envDefault:"12"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("config: JWT_SECRET must be set")
	}
	if cfg.TokenLifetime <= 0 {
		return nil, errors.New("config: TOKEN_LIFETIME must be positive")
	}

	return cfg, nil
}
