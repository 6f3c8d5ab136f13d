// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the centralized error type shared by the manager API
client and the edge gateway.

Architecture:

  - AppError: an HTTP-like status, a user-facing message and the parsed payload
    returned by the upstream (if any).
  - Status 0 is reserved for transport failures (DNS, refused connection, timeout).
  - Mapping: the gateway renders an AppError as {"code": <status>, "message": ...}.

Callers render Message; Payload is kept for callers that need upstream detail.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusConnectivity marks an error raised before any HTTP response was received.
const StatusConnectivity = 0

// Messages shown to the manager. They mirror the wording of the dashboard.
const (
	MessageLoginRequired  = "로그인이 필요합니다."
	MessageSessionExpired = "세션이 만료되었습니다. 다시 로그인해주세요."
)

// AppError is the canonical error type for popgate.
//
// # Security
//
// Cause is for logging only and is never rendered to HTTP clients.
type AppError struct {
	// Status is the HTTP status of the failed exchange, or 0 for transport failures.
	Status int `json:"code"`
	// Message is a human-readable description safe to show to the manager.
	Message string `json:"message"`
	// Payload is the parsed upstream body (JSON value, raw text or nil).
	Payload any `json:"-"`
	// Cause is the underlying error, used for logging and errors.Is only.
	Cause error `json:"-"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// New creates an [AppError] for an upstream response.
func New(status int, message string, payload any) *AppError {
	return &AppError{Status: status, Message: message, Payload: payload}
}

// Wrap is [New] with a cause attached.
func Wrap(status int, message string, cause error) *AppError {
	return &AppError{Status: status, Message: message, Cause: cause}
}

// # Client Errors (4xx)

// Unauthorized creates a 401 [AppError].
func Unauthorized(msg string) *AppError {
	return &AppError{Status: http.StatusUnauthorized, Message: msg}
}

// SessionExpired creates the 401 raised when the session can no longer be renewed.
func SessionExpired(cause error) *AppError {
	return &AppError{Status: http.StatusUnauthorized, Message: MessageSessionExpired, Cause: cause}
}

// TooManyRequests creates a 429 [AppError].
func TooManyRequests(msg string) *AppError {
	return &AppError{Status: http.StatusTooManyRequests, Message: msg}
}

// # Transport & Server Errors

// Connectivity creates the status-0 error raised when baseURL cannot be reached.
//
// The base URL is named so that a misconfigured deployment is obvious from the message.
func Connectivity(baseURL string, cause error) *AppError {
	return &AppError{
		Status:  StatusConnectivity,
		Message: fmt.Sprintf("API 서버(%s)에 연결할 수 없습니다. 주소/포트/CORS 설정을 확인해주세요.", baseURL),
		Cause:   cause,
	}
}

// BadGateway creates a 502 [AppError].
func BadGateway(msg string, cause error) *AppError {
	return &AppError{Status: http.StatusBadGateway, Message: msg, Cause: cause}
}

// Internal creates a 500 [AppError] wrapping an unexpected error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	return &AppError{
		Status:  http.StatusInternalServerError,
		Message: "An unexpected error occurred",
		Cause:   cause,
	}
}

// # Helpers

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// HasStatus reports whether err is an [*AppError] carrying one of statuses.
// With no statuses it reports whether err is an [*AppError] at all.
func HasStatus(err error, statuses ...int) bool {
	ae := As(err)
	if ae == nil {
		return false
	}
	if len(statuses) == 0 {
		return true
	}
	for _, status := range statuses {
		if ae.Status == status {
			return true
		}
	}
	return false
}

// IsAuthRejection reports whether err is a 401 or 403 [*AppError].
func IsAuthRejection(err error) bool {
	return HasStatus(err, http.StatusUnauthorized, http.StatusForbidden)
}
