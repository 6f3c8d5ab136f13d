// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into strongly-typed
Go structs, one for the gateway process and one for the managerctl client.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}
	upstreams := cfg.Upstreams()

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (gateway, session stores) via constructors.
  - Visible Fallbacks: every upstream base URL is resolved from an explicit
    [specific, generic, default] list by [Resolve].
*/
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/taibuivan/popgate/internal/platform/constants"
)

// # Configuration Schema

// Config holds all runtime configuration for the gateway server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"3000"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// RateLimitEnabled toggles the per-IP token bucket in front of the proxy.
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`

	// Upstream base URLs as found in the environment, before fallback resolution.
	Upstream UpstreamEnv
}

// UpstreamEnv holds the raw upstream variables. Both the browser-visible
// (NEXT_PUBLIC_*) and the server-only names are honoured, browser-visible first.
type UpstreamEnv struct {
	PublicAPIBaseURL        string `env:"NEXT_PUBLIC_API_BASE_URL"`
	APIBaseURL              string `env:"API_BASE_URL"`
	PublicStoreAPIBaseURL   string `env:"NEXT_PUBLIC_STORE_API_BASE_URL"`
	StoreAPIBaseURL         string `env:"STORE_API_BASE_URL"`
	PublicOrderQueryBaseURL string `env:"NEXT_PUBLIC_ORDERQUERY_API_BASE_URL"`
	OrderQueryBaseURL       string `env:"ORDERQUERY_API_BASE_URL"`
	PublicPaymentBaseURL    string `env:"NEXT_PUBLIC_PAYMENT_API_BASE_URL"`
	PaymentBaseURL          string `env:"PAYMENT_API_BASE_URL"`
}

// Upstreams is the resolved set of base URLs, trailing slashes stripped.
type Upstreams struct {
	API        string
	Store      string
	OrderQuery string
	Payment    string
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Upstreams resolves the fallback chains of every route family.
func (c *Config) Upstreams() Upstreams {
	return c.Upstream.Resolve()
}

// Resolve applies the fallback chains. Service-specific bases fall back to the
// resolved generic API base, which itself falls back to [constants.DefaultAPIBaseURL].
func (u UpstreamEnv) Resolve() Upstreams {
	api := Resolve(u.PublicAPIBaseURL, u.APIBaseURL, constants.DefaultAPIBaseURL)

	return Upstreams{
		API:        api,
		Store:      Resolve(u.PublicStoreAPIBaseURL, u.StoreAPIBaseURL, api),
		OrderQuery: Resolve(u.PublicOrderQueryBaseURL, u.OrderQueryBaseURL, api),
		Payment:    Resolve(u.PublicPaymentBaseURL, u.PaymentBaseURL, api),
	}
}

// # Fallback Resolution

// Resolve returns the first non-blank candidate with one trailing slash removed.
// Candidates are given in priority order; the last one is normally a default.
func Resolve(candidates ...string) string {
	for _, candidate := range candidates {
		trimmed := strings.TrimSpace(candidate)
		if trimmed != "" {
			return strings.TrimSuffix(trimmed, "/")
		}
	}
	return ""
}
