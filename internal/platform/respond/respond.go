// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package respond provides HTTP response helpers used by the gateway's own endpoints.
//
// # Architecture
//
// Forwarded responses are relayed verbatim and never pass through here. This
// package only renders what the gateway itself answers: health probes, the
// orderquery auth gate, rate limiting and the 502 fallback. Errors share the
// {"code": <status>, "message": ...} envelope used by the upstream services.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/taibuivan/popgate/internal/platform/apperr"
	"github.com/taibuivan/popgate/internal/platform/constants"
	"github.com/taibuivan/popgate/internal/platform/ctxutil"
)

// SuccessEnvelope is the JSON envelope for successful responses.
type SuccessEnvelope struct {
	Code int `json:"code"`
	Data any `json:"data"`
}

// ErrorEnvelope is the JSON envelope for error responses.
type ErrorEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// JSON writes a JSON response with the given status code.
func JSON(writer http.ResponseWriter, statusCode int, payload any) {
	writer.Header().Set(constants.HeaderContentType, constants.ContentTypeJSONUTF8)
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

// OK writes a 200 OK response with data wrapped in the standard success envelope.
func OK(writer http.ResponseWriter, data any) {
	JSON(writer, http.StatusOK, SuccessEnvelope{Code: 0, Data: data})
}

// Error converts any Go error into the {"code","message"} error envelope.
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	appError := apperr.As(err)
	if appError == nil {
		ctxutil.GetLogger(request.Context()).ErrorContext(request.Context(), "unhandled_error_swallowed",
			slog.String("error", err.Error()),
		)
		appError = apperr.Internal(err)
	}

	status := appError.Status
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		ctxutil.GetLogger(request.Context()).ErrorContext(request.Context(), "gateway_error",
			slog.Int("status", status),
			slog.Any("cause", appError.Cause),
		)
	}

	JSON(writer, status, ErrorEnvelope{Code: status, Message: appError.Message})
}
