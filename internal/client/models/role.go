// Package models defines the wire and session types shared by the console
// packages: cluster snapshots reported by the master, user records, upload
// requests/results and operator roles.
package models

import "strings"

// Role governs which dashboard view and which mutating actions are available.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

// ParseRole accepts the three known roles, case-insensitively.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

// CanSimulateFailure reports whether the role may mark chunkservers failed.
func (r Role) CanSimulateFailure() bool {
	return r == RoleAdmin || r == RoleManager
}

func (r Role) String() string { return string(r) }
