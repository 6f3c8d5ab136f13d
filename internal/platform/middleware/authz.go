// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"net/http"
	"strings"

	"github.com/taibuivan/popgate/internal/platform/apperr"
	"github.com/taibuivan/popgate/internal/platform/constants"
	"github.com/taibuivan/popgate/internal/platform/respond"
)

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
//
// The gateway only checks the shape of the header. Whether the token is valid
// is for the upstream to decide.
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], constants.AuthSchemeBearer) {
		return "", false
	}
	return parts[1], true
}

// RequireBearer rejects requests without a well-formed bearer header with a 401
// carrying message, before the wrapped handler runs.
func RequireBearer(message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if _, ok := BearerToken(request.Header.Get(constants.HeaderAuthorization)); !ok {
				respond.Error(writer, request, apperr.Unauthorized(message))
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}
