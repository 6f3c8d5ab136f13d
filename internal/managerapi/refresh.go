// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package managerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/taibuivan/popgate/internal/platform/apperr"
	"github.com/taibuivan/popgate/internal/platform/constants"
	"github.com/taibuivan/popgate/internal/session"
)

var (
	// ErrRefreshDenied is the cause of every error returned after the refresh
	// endpoint rejected the refresh token, until [Refresher.Reset].
	ErrRefreshDenied = errors.New("managerapi: refresh denied")

	// ErrRefreshThrottled is the cause of errors returned during the cooldown window.
	ErrRefreshThrottled = errors.New("managerapi: refresh throttled")

	errNoCredentials = errors.New("managerapi: no stored credentials")
)

// Messages specific to token renewal.
const (
	messageRefreshThrottled = "토큰 갱신 재시도 대기 중입니다."
	messageRefreshNoToken   = "토큰 갱신에 실패했습니다."
)

// RefreshState is the observable state of a [Refresher].
type RefreshState string

const (
	StateIdle       RefreshState = "idle"
	StateRefreshing RefreshState = "refreshing"
	StateDenied     RefreshState = "denied"
	StateThrottled  RefreshState = "throttled"
)

// refreshKey is the single singleflight key; there is one session per Refresher.
const refreshKey = "refresh"

/*
Refresher renews the access token with the stored refresh token.

Concurrent callers share one attempt and its outcome. After the endpoint
rejects the refresh token (401/403) every call fails at once with
[ErrRefreshDenied] until [Refresher.Reset]. After a network or server failure
calls fail at once with [ErrRefreshThrottled] until the cooldown elapses.

# Concurrency

Safe for concurrent use. The shared attempt is not cancelled when one
caller's context ends; that caller simply stops waiting.
*/
type Refresher struct {
	store    *session.Store
	endpoint Endpoint
	logger   *slog.Logger
	settings settings

	group singleflight.Group

	mu           sync.Mutex
	inFlight     bool
	denied       bool
	blockedUntil time.Time
}

// NewRefresher creates a Refresher for the session held by store.
func NewRefresher(store *session.Store, endpoint Endpoint, logger *slog.Logger, opts ...Option) *Refresher {
	return &Refresher{
		store:    store,
		endpoint: endpoint,
		logger:   logger,
		settings: newSettings(opts),
	}
}

// Refresh returns a new access token, persisting it together with a user
// snapshot re-derived from its claims.
//
// Errors are [*apperr.AppError]: 401 when the session cannot be renewed,
// 503 during the cooldown window, 0 when the endpoint is unreachable, and
// the endpoint's own status otherwise.
func (r *Refresher) Refresh(ctx context.Context) (string, error) {
	results := r.group.DoChan(refreshKey, func() (any, error) {
		return r.attempt(context.WithoutCancel(ctx))
	})

	select {
	case result := <-results:
		if result.Err != nil {
			return "", result.Err
		}
		return result.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Reset clears the denied flag and the cooldown. Called on login and logout.
func (r *Refresher) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.denied = false
	r.blockedUntil = time.Time{}
}

// State reports what the next [Refresher.Refresh] call would run into.
func (r *Refresher) State() RefreshState {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.inFlight:
		return StateRefreshing
	case r.denied:
		return StateDenied
	case r.settings.now().Before(r.blockedUntil):
		return StateThrottled
	default:
		return StateIdle
	}
}

// # Attempt

// refreshOutcome is one HTTP exchange with the refresh endpoint.
type refreshOutcome struct {
	status  int
	payload any
}

func (r *Refresher) attempt(ctx context.Context) (string, error) {
	r.mu.Lock()
	denied := r.denied
	throttled := r.settings.now().Before(r.blockedUntil)
	if !denied && !throttled {
		r.inFlight = true
	}
	r.mu.Unlock()

	if denied {
		return "", apperr.SessionExpired(ErrRefreshDenied)
	}
	if throttled {
		return "", apperr.Wrap(http.StatusServiceUnavailable, messageRefreshThrottled, ErrRefreshThrottled)
	}

	defer func() {
		r.mu.Lock()
		r.inFlight = false
		r.mu.Unlock()
	}()

	refreshToken, err := r.store.RefreshToken(ctx)
	if err != nil {
		return "", fmt.Errorf("managerapi: read refresh token: %w", err)
	}
	accessToken, err := r.store.AccessToken(ctx)
	if err != nil {
		return "", fmt.Errorf("managerapi: read access token: %w", err)
	}
	if refreshToken == "" || accessToken == "" {
		return "", apperr.SessionExpired(errNoCredentials)
	}

	body, err := json.Marshal(map[string]string{
		"refreshToken":  refreshToken,
		"refresh_token": refreshToken,
	})
	if err != nil {
		return "", fmt.Errorf("managerapi: encode refresh body: %w", err)
	}

	// Some deployments reject refresh when an expired bearer is attached,
	// so a failed first attempt is repeated without it.
	var (
		outcome *refreshOutcome
		lastErr error
	)
	for _, bearer := range []string{accessToken, ""} {
		result, err := r.call(ctx, body, refreshToken, bearer)
		if err != nil {
			lastErr = err
			r.logger.Warn("token_refresh_attempt_failed",
				slog.Bool("with_bearer", bearer != ""),
				slog.Any("error", err),
			)
			continue
		}

		outcome = result
		if result.status >= http.StatusInternalServerError ||
			result.status == http.StatusUnauthorized ||
			result.status == http.StatusForbidden {
			continue
		}
		break
	}

	if outcome == nil {
		r.startCooldown()
		return "", apperr.Connectivity(r.endpoint.BaseURL(), lastErr)
	}

	if !isSuccess(outcome.status) {
		return "", r.reject(ctx, outcome)
	}

	return r.accept(ctx, unwrap(outcome.payload))
}

func (r *Refresher) call(ctx context.Context, body []byte, refreshToken, bearer string) (*refreshOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, r.settings.refreshTimeout)
	defer cancel()

	target, err := r.endpoint.URL(constants.PathRefresh, nil)
	if err != nil {
		return nil, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("managerapi: build refresh request: %w", err)
	}
	request.Header.Set(constants.HeaderAccept, constants.ContentTypeJSON)
	request.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	request.Header.Set(constants.HeaderXRefreshToken, refreshToken)
	if bearer != "" {
		request.Header.Set(constants.HeaderAuthorization, constants.AuthSchemeBearer+" "+bearer)
	}

	response, err := r.settings.httpClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}

	return &refreshOutcome{status: response.StatusCode, payload: parseBody(raw)}, nil
}

// reject records a non-OK final response and builds the error for it.
func (r *Refresher) reject(ctx context.Context, outcome *refreshOutcome) error {
	failure := &apperr.AppError{
		Status:  outcome.status,
		Message: ExtractMessage(outcome.payload, outcome.status),
		Payload: outcome.payload,
	}

	switch {
	case outcome.status == http.StatusUnauthorized || outcome.status == http.StatusForbidden:
		r.mu.Lock()
		r.denied = true
		r.blockedUntil = time.Time{}
		r.mu.Unlock()

		if err := r.store.PurgeTokens(ctx); err != nil {
			r.logger.Error("token_purge_failed", slog.Any("error", err))
		}
		failure.Cause = ErrRefreshDenied
		r.logger.Warn("token_refresh_denied", slog.Int("status", outcome.status))

	case outcome.status >= http.StatusInternalServerError:
		r.startCooldown()
		r.logger.Warn("token_refresh_server_error", slog.Int("status", outcome.status))
	}

	return failure
}

// accept persists the renewed token.
func (r *Refresher) accept(ctx context.Context, data any) (string, error) {
	token := stringField(data, constants.FieldAccessToken, constants.FieldToken)
	if token == "" {
		r.startCooldown()
		return "", apperr.New(http.StatusInternalServerError, messageRefreshNoToken, data)
	}

	previous, err := r.store.User(ctx)
	if err != nil {
		return "", fmt.Errorf("managerapi: read user: %w", err)
	}
	if err := r.store.SetAccessToken(ctx, token); err != nil {
		return "", fmt.Errorf("managerapi: store access token: %w", err)
	}
	if err := r.store.SetUser(ctx, session.UserFromToken(token, previous)); err != nil {
		return "", fmt.Errorf("managerapi: store user: %w", err)
	}
	if rotated := stringField(data, constants.FieldRefreshToken); rotated != "" {
		if err := r.store.SetRefreshToken(ctx, rotated); err != nil {
			return "", fmt.Errorf("managerapi: store refresh token: %w", err)
		}
	}

	r.mu.Lock()
	r.blockedUntil = time.Time{}
	r.mu.Unlock()

	r.logger.Debug("token_refreshed")
	return token, nil
}

func (r *Refresher) startCooldown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blockedUntil = r.settings.now().Add(r.settings.cooldown)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
