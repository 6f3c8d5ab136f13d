// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package session persists the signed-in manager's credentials.

A session is an access token, an optional refresh token and a user snapshot
derived from the access token's claims. It is created on login, replaced in
place whenever a refresh succeeds, and destroyed on logout or when the server
rejects the refresh token.

Architecture:

  - KV: the persistence contract (memory, file, Redis, PostgreSQL backends).
  - Store: typed accessors over a KV for the five persisted keys.
  - User: the claims-derived snapshot, rebuilt after every refresh.

The store never validates token shapes; the claims decoder in platform/sec does.
*/
package session

import (
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taibuivan/popgate/internal/platform/sec"
)

// defaultName is shown when neither the token nor the previous session names the manager.
const defaultName = "매니저"

// Session is the complete credential set written on login.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         User
}

// User is the manager identity as last seen in an access token.
type User struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// UserFromToken derives a [User] from the token's claims. Every field missing
// from the claims is taken from fallback (which may be nil); the name then
// falls back to the email's local part and the role to UNKNOWN.
func UserFromToken(token string, fallback *User) User {
	claims := sec.DecodeClaims(token)
	if fallback == nil {
		fallback = &User{}
	}

	user := User{
		ID:    firstNonEmpty(claimID(claims), fallback.ID),
		Email: firstNonEmpty(sec.StringClaim(claims, "email"), fallback.Email),
	}

	user.Name = firstNonEmpty(sec.StringClaim(claims, "name"), fallback.Name, emailLocalPart(user.Email), defaultName)
	user.Role = firstNonEmpty(sec.StringClaim(claims, "role"), fallback.Role, string(sec.RoleUnknown))

	return user
}

// claimID renders the id claim, which upstreams send either as a number or a string.
func claimID(claims jwt.MapClaims) string {
	switch id := claims["id"].(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

func emailLocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
