// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, storage keys and header names that are
shared between the gateway, the manager API client and the session stores.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Session: Token refresh thresholds, cooldowns and persisted key names.
  - Upstreams: Default base URL and route family prefixes.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "popgate"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 15 * time.Second

	// DefaultWriteTimeout is zero: forwarded calls rely on transport defaults.
	DefaultWriteTimeout = 0

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second

	// ReadinessDialTimeout bounds the TCP probe against the primary upstream.
	ReadinessDialTimeout = 2 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Session Lifecycle

const (
	// RefreshThreshold is how close to expiry an access token must be before
	// the client refreshes it proactively.
	RefreshThreshold = 5 * time.Minute

	// RefreshRequestTimeout bounds each attempt against the refresh endpoint.
	RefreshRequestTimeout = 5 * time.Second

	// RefreshRetryCooldown blocks refresh attempts after a network or server failure.
	RefreshRetryCooldown = 60 * time.Second
)

// # Persisted Session Keys

const (
	StorageKeyToken           = "manager_token"
	StorageKeyRefreshToken    = "manager_refresh_token"
	StorageKeyUser            = "manager_user"
	StorageKeySelectedStoreID = "manager_store_id"
	StorageKeySelectedPopupID = "manager_popup_id"
)

// # Upstreams

const (
	// DefaultAPIBaseURL is used when no API base URL is configured at all.
	DefaultAPIBaseURL = "http://localhost:8080"

	RouteStores     = "stores"
	RouteOrderQuery = "orderquery"
	RoutePayments   = "payments"
	RoutePayment    = "payment"

	// AliasLoopback and AliasDockerHost replace "localhost" when the primary
	// upstream cannot be reached from inside a container.
	AliasLoopback   = "127.0.0.1"
	AliasDockerHost = "host.docker.internal"
)

// # Manager API Paths

const (
	PathLogin   = "/api/users/v1/auth/login"
	PathRefresh = "/api/users/v1/auth/refresh"
	PathSignup  = "/api/users/v1/users/signup"

	PathOwnerStores  = "/api/stores/v1/owner/stores"
	PathPublicPopups = "/api/stores/v1/popups"

	// PublicPopupsMaxSize is the largest page the public popup listing accepts.
	PublicPopupsMaxSize = 100
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	HeaderAccept        = "Accept"
	HeaderXRefreshToken = "X-Refresh-Token"
	ContentTypeJSON     = "application/json"
	ContentTypeJSONUTF8 = "application/json; charset=utf-8"
	AuthSchemeBearer    = "Bearer"
)

// # JSON Field Identifiers

const (
	FieldData         = "data"
	FieldError        = "error"
	FieldCode         = "code"
	FieldMessage      = "message"
	FieldStatus       = "status"
	FieldChecks       = "checks"
	FieldToken        = "token"
	FieldAccessToken  = "accessToken"
	FieldRefreshToken = "refreshToken"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisPrefixSession = "manager:session:"
)
