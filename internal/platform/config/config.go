package config

import (
	"os"
	"time"
)

// Sync captures tag synchronization settings the host app can override.
type Sync struct {
	BaseURL string
	TTL     time.Duration
}

// Simulator captures settings for the development tag-service simulator.
type Simulator struct {
	Addr          string
	JWTSigningKey string
}

// FromEnv builds sync config from environment variables so wiring code stays
// lean.
func FromEnv() Sync {
	baseURL := os.Getenv("TAGSYNC_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8089"
	}

	ttl := 30 * time.Second
	if raw := os.Getenv("TAGSYNC_TTL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			ttl = parsed
		}
	}

	return Sync{BaseURL: baseURL, TTL: ttl}
}

// SimulatorFromEnv builds simulator config from environment variables.
func SimulatorFromEnv() Simulator {
	addr := os.Getenv("TAGSIM_ADDR")
	if addr == "" {
		addr = ":8089"
	}

	key := os.Getenv("TAGSIM_JWT_KEY")
	if key == "" {
		// Development default; the simulator never faces the internet.
		key = "tagsim-dev-key"
	}

	return Simulator{Addr: addr, JWTSigningKey: key}
}
