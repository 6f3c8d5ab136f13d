// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gateway

import (
	"net/http"
	"net/url"
	"strings"
)

const redacted = "[REDACTED]"

// sensitiveMarkers are matched case-insensitively against header and query names.
var sensitiveMarkers = []string{"authorization", "cookie", "token", "secret", "key", "password"}

func isSensitive(name string) bool {
	lowered := strings.ToLower(name)
	for _, marker := range sensitiveMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// redactHeaders flattens header for logging with secret values masked.
func redactHeaders(header http.Header) map[string]string {
	flat := make(map[string]string, len(header))
	for name, values := range header {
		if isSensitive(name) {
			flat[name] = redacted
			continue
		}
		flat[name] = strings.Join(values, ", ")
	}
	return flat
}

// redactURL masks secret query values. The URL used for forwarding is not modified.
func redactURL(target *url.URL) string {
	if target.RawQuery == "" {
		return target.String()
	}

	query := target.Query()
	for name := range query {
		if isSensitive(name) {
			query[name] = []string{redacted}
		}
	}

	masked := *target
	masked.RawQuery = query.Encode()
	return masked.String()
}
