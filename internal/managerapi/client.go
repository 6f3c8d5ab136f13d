// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package managerapi is the manager dashboard's client for the popup-store API.

Every call goes through one pipeline:

 1. Build the URL for the configured [Endpoint] (gateway or upstream).
 2. Attach the stored access token, refreshing it first when it is about to expire.
 3. Send the request and parse the body (JSON, text or nothing).
 4. On 401, refresh once and replay the same request once.
 5. Unwrap {code, data} envelopes, or return an [*apperr.AppError].

When the session cannot be renewed the client clears it and calls the
[SessionExpiredHandler] exactly once until the next [Client.Login].

# Concurrency

A Client is safe for concurrent use. Token refreshes triggered by concurrent
requests are coalesced by the [Refresher].
*/
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
	"regexp"
	"sync/atomic"

	"github.com/taibuivan/popgate/internal/platform/apperr"
	"github.com/taibuivan/popgate/internal/platform/constants"
	"github.com/taibuivan/popgate/internal/platform/sec"
	"github.com/taibuivan/popgate/internal/session"
)

// RequestOptions configures a single [Client.Request].
type RequestOptions struct {
	// Method defaults to GET.
	Method string

	// Body is sent as JSON when non-nil.
	Body any

	Query  Query
	Header http.Header

	// SkipAuth sends the request without a bearer token and disables the
	// refresh-and-replay path.
	SkipAuth bool
}

// Client issues authenticated requests against the manager API.
type Client struct {
	store     *session.Store
	refresher *Refresher
	endpoint  Endpoint
	logger    *slog.Logger
	settings  settings

	// expired guards the session-expired handler; re-armed by Login.
	expired atomic.Bool
}

// NewClient creates a Client for the session held by store.
func NewClient(store *session.Store, endpoint Endpoint, logger *slog.Logger, opts ...Option) *Client {
	return &Client{
		store:     store,
		refresher: NewRefresher(store, endpoint, logger, opts...),
		endpoint:  endpoint,
		logger:    logger,
		settings:  newSettings(opts),
	}
}

// Refresher returns the coordinator shared by every request of this client.
func (c *Client) Refresher() *Refresher { return c.refresher }

// Store returns the session store.
func (c *Client) Store() *session.Store { return c.store }

// Endpoint returns the endpoint requests are sent to.
func (c *Client) Endpoint() Endpoint { return c.endpoint }

// # Pipeline

/*
Request sends one API call and returns the parsed response.

Returns:
  - any: the unwrapped data of a {code, data} envelope, the raw JSON value,
    the response text, or nil for an empty body
  - error: [*apperr.AppError] for every API failure
*/
func (c *Client) Request(ctx context.Context, path string, opts RequestOptions) (any, error) {
	call, err := c.prepare(path, opts)
	if err != nil {
		return nil, err
	}

	if call.auth {
		token, err := c.authorize(ctx)
		if err != nil {
			return nil, err
		}
		call.header.Set(constants.HeaderAuthorization, constants.AuthSchemeBearer+" "+token)
	}

	status, payload, err := c.send(ctx, call)
	if err != nil {
		return nil, apperr.Connectivity(c.endpoint.BaseURL(), err)
	}

	if isSuccess(status) {
		return unwrap(payload), nil
	}

	if call.auth && status == http.StatusUnauthorized {
		return c.replayAfterRefresh(ctx, call, status, payload)
	}

	return nil, apperr.New(status, ExtractMessage(payload, status), payload)
}

// Do is [Client.Request] with the result decoded into out. A nil out discards it.
func (c *Client) Do(ctx context.Context, path string, opts RequestOptions, out any) error {
	result, err := c.Request(ctx, path, opts)
	if err != nil || out == nil {
		return err
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("managerapi: re-encode response: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("managerapi: decode response: %w", err)
	}
	return nil
}

// call is a fully built request, kept so that it can be replayed verbatim.
type call struct {
	method string
	path   string
	target string
	header http.Header
	body   []byte
	auth   bool
}

func (c *Client) prepare(path string, opts RequestOptions) (*call, error) {
	target, err := c.endpoint.URL(path, opts.Query)
	if err != nil {
		return nil, err
	}

	prepared := &call{
		method: opts.Method,
		path:   path,
		target: target,
		header: make(http.Header),
		auth:   !opts.SkipAuth,
	}
	if prepared.method == "" {
		prepared.method = http.MethodGet
	}
	for key, values := range opts.Header {
		prepared.header[key] = append([]string(nil), values...)
	}

	if opts.Body != nil {
		prepared.body, err = json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("managerapi: encode body: %w", err)
		}
		prepared.header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	}

	return prepared, nil
}

// authorize returns the token to send, renewing it first when it is about to expire.
//
// A failed proactive refresh is not fatal unless the refresh token was
// rejected: the stale token is sent and a 401 drives recovery.
func (c *Client) authorize(ctx context.Context) (string, error) {
	token, err := c.store.AccessToken(ctx)
	if err != nil {
		return "", fmt.Errorf("managerapi: read access token: %w", err)
	}
	if token == "" {
		return "", apperr.Unauthorized(apperr.MessageLoginRequired)
	}

	refreshToken, err := c.store.RefreshToken(ctx)
	if err != nil {
		return "", fmt.Errorf("managerapi: read refresh token: %w", err)
	}
	if refreshToken == "" || !sec.IsExpiringSoon(token, c.settings.now()) {
		return token, nil
	}

	fresh, err := c.refresher.Refresh(ctx)
	switch {
	case err == nil:
		return fresh, nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "", err
	case apperr.IsAuthRejection(err):
		c.expireSession(ctx, err)
		return "", err
	default:
		c.logger.Warn("proactive_refresh_failed_using_stale_token", slog.Any("error", err))
		return token, nil
	}
}

// replayAfterRefresh handles a 401 on an authenticated call: renew the
// token once and send the same request once more.
func (c *Client) replayAfterRefresh(ctx context.Context, call *call, status int, payload any) (any, error) {
	refreshToken, err := c.store.RefreshToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("managerapi: read refresh token: %w", err)
	}
	if refreshToken == "" {
		failure := apperr.New(status, ExtractMessage(payload, status), payload)
		c.expireSession(ctx, failure)
		return nil, failure
	}

	fresh, err := c.refresher.Refresh(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if apperr.As(err) == nil {
			expired := apperr.SessionExpired(err)
			c.expireSession(ctx, expired)
			return nil, expired
		}
		if apperr.IsAuthRejection(err) {
			c.expireSession(ctx, err)
		}
		return nil, err
	}

	call.header.Set(constants.HeaderAuthorization, constants.AuthSchemeBearer+" "+fresh)

	status, payload, err = c.send(ctx, call)
	if err != nil {
		return nil, apperr.Connectivity(c.endpoint.BaseURL(), err)
	}
	if isSuccess(status) {
		return unwrap(payload), nil
	}

	failure := apperr.New(status, ExtractMessage(payload, status), payload)
	if apperr.IsAuthRejection(failure) {
		c.expireSession(ctx, failure)
	}
	return nil, failure
}

// expireSession is the global logout: clear the session, reset the
// refresher and notify the handler, once per login.
func (c *Client) expireSession(ctx context.Context, cause error) {
	if !c.expired.CompareAndSwap(false, true) {
		return
	}

	ctx = context.WithoutCancel(ctx)
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Error("session_clear_failed", slog.Any("error", err))
	}
	c.refresher.Reset()

	c.logger.Warn("session_expired", slog.Any("cause", cause))
	if c.settings.onExpired != nil {
		c.settings.onExpired(ctx, cause)
	}
}

// # Transport

func (c *Client) send(ctx context.Context, call *call) (int, any, error) {
	var body io.Reader
	if call.body != nil {
		body = bytes.NewReader(call.body)
	}

	request, err := http.NewRequestWithContext(ctx, call.method, call.target, body)
	if err != nil {
		return 0, nil, fmt.Errorf("managerapi: build request: %w", err)
	}
	request.Header = call.header.Clone()

	safeURL := maskURL(call.target)
	c.logger.Debug("manager_api_request",
		slog.String("method", call.method),
		slog.String("path", call.path),
		slog.String("url", safeURL),
		slog.Bool("auth", call.auth),
		slog.Bool("has_body", call.body != nil),
	)

	response, err := c.settings.httpClient.Do(request)
	if err != nil {
		c.logger.Error("manager_api_network_error",
			slog.String("method", call.method),
			slog.String("path", call.path),
			slog.String("url", safeURL),
			slog.Any("error", err),
		)
		return 0, nil, err
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("managerapi: read response: %w", err)
	}

	c.logger.Debug("manager_api_response",
		slog.String("method", call.method),
		slog.String("path", call.path),
		slog.String("url", safeURL),
		slog.Int("status", response.StatusCode),
	)

	return response.StatusCode, parseBody(raw), nil
}

var secretQuery = regexp.MustCompile(`(?i)([?&](?:token|refreshToken|authorization)=)[^&]+`)

// maskURL hides credential-like query values before a URL is logged.
func maskURL(rawURL string) string {
	return secretQuery.ReplaceAllString(rawURL, "${1}***")
}
