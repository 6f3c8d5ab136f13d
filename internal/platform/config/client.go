// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"github.com/taibuivan/popgate/internal/platform/constants"
)

// Session backends understood by managerctl.
const (
	SessionBackendFile     = "file"
	SessionBackendMemory   = "memory"
	SessionBackendRedis    = "redis"
	SessionBackendPostgres = "postgres"
)

// ClientConfig holds the configuration of the managerctl client.
type ClientConfig struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	// GatewayOrigin, when set, routes every call through the gateway the same
	// way the dashboard does from the browser.
	GatewayOrigin string `env:"MANAGER_GATEWAY_ORIGIN"`

	PublicAPIBaseURL string `env:"NEXT_PUBLIC_API_BASE_URL"`
	APIBaseURL       string `env:"API_BASE_URL"`

	// Session persistence
	SessionBackend   string `env:"MANAGER_SESSION_BACKEND"   envDefault:"file"`
	SessionFile      string `env:"MANAGER_SESSION_FILE"`
	SessionNamespace string `env:"MANAGER_SESSION_NAMESPACE" envDefault:"default"`

	// Shared session backends
	RedisURL      string `env:"REDIS_URL"`
	DatabaseURL   string `env:"DATABASE_URL"`
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`
}

// LoadClient parses environment variables into a [ClientConfig].
func LoadClient() (*ClientConfig, error) {
	cfg := &ClientConfig{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if cfg.SessionFile == "" {
		cfg.SessionFile = defaultSessionFile()
	}

	switch cfg.SessionBackend {
	case SessionBackendFile, SessionBackendMemory:
	case SessionBackendRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("config: REDIS_URL is required for the %q session backend", cfg.SessionBackend)
		}
	case SessionBackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("config: DATABASE_URL is required for the %q session backend", cfg.SessionBackend)
		}
	default:
		return nil, fmt.Errorf("config: unknown session backend %q", cfg.SessionBackend)
	}

	return cfg, nil
}

// APIBase resolves the upstream API base used when calls bypass the gateway.
func (c *ClientConfig) APIBase() string {
	return Resolve(c.PublicAPIBaseURL, c.APIBaseURL, constants.DefaultAPIBaseURL)
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, constants.AppName, "session.json")
}
