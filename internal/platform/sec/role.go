// Copyright (c) 2026 Zaffran Foods. All rights reserved.
// Author: platform@zaffran.shop

package sec

// # User Roles

// UserRole represents the authorization level granted to an account.
type UserRole string

const (
	// Unrestricted system access, including managing admins
	RoleSuperAdmin UserRole = "superadmin"

	// Can manage the storefront and customer accounts
	RoleAdmin UserRole = "admin"

	// Default role for registered customers
	RoleUser UserRole = "user"
)

// # Role Hierarchy

// AtLeast checks if the current role meets or exceeds the required target role.
func (r UserRole) AtLeast(target UserRole) bool {
	return r.level() >= target.level()
}

// level maps a role to a numeric hierarchy level for comparison logic.
func (r UserRole) level() int {

	// Linear scale (10-30) allows for future intermediate roles
	switch r {
	case RoleSuperAdmin:
		return 30
	case RoleAdmin:
		return 20
	case RoleUser:
		return 10
	default:
		return 0
	}
}

// # Capability Checks

// Action names a guarded operation on a target account.
type Action string

const (
	// ActionDeleteUser deletes an account and cascades its sessions and addresses.
	ActionDeleteUser Action = "user:delete"

	// ActionViewUser reads another account's private profile.
	ActionViewUser Action = "user:view"

	// ActionManageSessions lists or terminates another account's sessions.
	ActionManageSessions Action = "session:manage"
)

// Actor is the minimal identity needed for an authorization decision.
type Actor struct {
	UserID string
	Role   UserRole
}

// Can reports whether the actor may perform the action on the target account.
//
// Centralizing the decision here means new roles or actions never require
// touching handler call sites.
func Can(actor Actor, action Action, targetUserID string) bool {
	switch action {
	case ActionDeleteUser, ActionViewUser, ActionManageSessions:
		// Owners always control their own account; staff control every account.
		if actor.UserID == targetUserID {
			return true
		}
		return actor.Role.AtLeast(RoleAdmin)
	default:
		return false
	}
}
