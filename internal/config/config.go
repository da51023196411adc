// Package config loads server configuration from the environment.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Server holds the configuration for the keygate API server.
type Server struct {
	Addr string `envconfig:"ADDR" default:":8443"`

	// DatabaseURL is the PostgreSQL DSN for secrets, tokens, locks and the sync queue.
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// JWTKey is the HS256 key validating caller bearer tokens.
	JWTKey string `envconfig:"JWT_KEY" required:"true"`

	// LockTTL is the crash-safety TTL on rotation locks.
	LockTTL time.Duration `envconfig:"LOCK_TTL" default:"2m"`

	// RevealTTL bounds the lifetime of one-time reveal tokens.
	RevealTTL time.Duration `envconfig:"REVEAL_TTL" default:"15m"`

	Engine Engine `envconfig:"ENGINE"`
}

// Engine holds cost engine client configuration.
type Engine struct {
	BaseURL string `envconfig:"BASE_URL" required:"true"`

	// RootKey authenticates administrative calls (onboarding, limits, readiness).
	RootKey string `envconfig:"ROOT_KEY" required:"true"`

	ProbeTimeout time.Duration `envconfig:"PROBE_TIMEOUT" default:"5s"`
	CallTimeout  time.Duration `envconfig:"CALL_TIMEOUT" default:"30s"`
}

// Load reads configuration from KEYGATE_* environment variables.
func Load() (*Server, error) {
	var cfg Server
	if err := envconfig.Process("keygate", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
