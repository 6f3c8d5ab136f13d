// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import "strings"

// # Manager Roles

// Role is the upstream role claim, normalized to upper case without a ROLE_ prefix.
type Role string

const (
	RoleManager Role = "MANAGER"
	RoleOwner   Role = "OWNER"

	// RoleUnknown is stored when neither the token nor the previous session names a role.
	RoleUnknown Role = "UNKNOWN"
)

// NormalizeRole maps "role_manager", "ROLE_MANAGER" and "manager" to [RoleManager].
func NormalizeRole(role string) Role {
	if role == "" {
		return ""
	}
	normalized := strings.ToUpper(role)
	return Role(strings.TrimPrefix(normalized, "ROLE_"))
}

// IsManager reports whether the role grants the manager dashboard.
func (r Role) IsManager() bool {
	return r == RoleManager
}
