// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package managerapi

import (
	"context"
	"net/http"
	"time"

	"github.com/taibuivan/popgate/internal/platform/constants"
)

// SessionExpiredHandler is called once when the session can no longer be
// renewed, after the stored session has been cleared. The dashboard shows an
// alert and redirects to the login page; managerctl prints a notice.
type SessionExpiredHandler func(ctx context.Context, err error)

// Option configures a [Client] or a [Refresher].
type Option func(*settings)

type settings struct {
	httpClient     *http.Client
	now            func() time.Time
	refreshTimeout time.Duration
	cooldown       time.Duration
	onExpired      SessionExpiredHandler
}

func newSettings(opts []Option) settings {
	s := settings{
		httpClient:     http.DefaultClient,
		now:            time.Now,
		refreshTimeout: constants.RefreshRequestTimeout,
		cooldown:       constants.RefreshRetryCooldown,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithHTTPClient replaces [http.DefaultClient].
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) { s.httpClient = client }
}

// WithClock replaces [time.Now] for expiry and cooldown checks.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithRefreshTimeout bounds each refresh attempt.
func WithRefreshTimeout(timeout time.Duration) Option {
	return func(s *settings) { s.refreshTimeout = timeout }
}

// WithRefreshCooldown sets how long refresh stays blocked after a network or server failure.
func WithRefreshCooldown(cooldown time.Duration) Option {
	return func(s *settings) { s.cooldown = cooldown }
}

// WithSessionExpiredHandler registers the global logout callback.
func WithSessionExpiredHandler(handler SessionExpiredHandler) Option {
	return func(s *settings) { s.onExpired = handler }
}
