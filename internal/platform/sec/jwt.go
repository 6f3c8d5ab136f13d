// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec reads bearer-token claims and normalizes roles.
//
// # Security
//
// Nothing in this package verifies a signature. Claims decoded here are only
// used locally, to predict expiry and to label the signed-in manager. They must
// never drive an authorization decision; the upstream services do that.
package sec

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taibuivan/popgate/internal/platform/constants"
)

// segmentDecoder decodes base64url segments, with or without padding.
var segmentDecoder = jwt.NewParser(jwt.WithPaddingAllowed())

// standardToURL maps the standard base64 alphabet onto the URL-safe one so
// that tokens produced by lenient encoders still decode.
var standardToURL = strings.NewReplacer("+", "-", "/", "_")

// DecodeClaims returns the payload of a compact token without verifying it.
//
// Any malformed input yields nil: fewer than two segments, bad base64 or a
// payload that is not a JSON object.
func DecodeClaims(token string) jwt.MapClaims {
	if token == "" {
		return nil
	}

	segments := strings.Split(token, ".")
	if len(segments) < 2 {
		return nil
	}

	raw, err := segmentDecoder.DecodeSegment(standardToURL.Replace(segments[1]))
	if err != nil {
		return nil
	}

	var claims jwt.MapClaims
	if err := json.Unmarshal(raw, &claims); err != nil || claims == nil {
		return nil
	}
	return claims
}

// ExpiresAt returns the token's exp claim, if one can be decoded.
func ExpiresAt(token string) (time.Time, bool) {
	claims := DecodeClaims(token)
	if claims == nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return stringExpiry(claims["exp"])
	}
	if exp == nil || exp.IsZero() {
		return time.Time{}, false
	}
	return exp.Time, true
}

// stringExpiry reads an exp claim some issuers send as a numeric string.
func stringExpiry(value any) (time.Time, bool) {
	text, ok := value.(string)
	if !ok {
		return time.Time{}, false
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || seconds <= 0 || math.IsInf(seconds, 0) || math.IsNaN(seconds) {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(seconds * 1000)), true
}

// IsExpiringSoon reports whether the token expires within [constants.RefreshThreshold] of now.
//
// Tokens without a readable exp claim are treated as not expiring, so a
// malformed token never forces a refresh on its own.
func IsExpiringSoon(token string, now time.Time) bool {
	exp, ok := ExpiresAt(token)
	if !ok {
		return false
	}
	return exp.Sub(now) <= constants.RefreshThreshold
}

// StringClaim returns a string claim, or "" when absent or not a string.
func StringClaim(claims jwt.MapClaims, name string) string {
	value, _ := claims[name].(string)
	return value
}
