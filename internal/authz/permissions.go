// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package authz

import (
	"errors"
	"fmt"
	"sort"
)

// PermissionVersion identifies the closed permission list below. Bump it
// whenever a permission is added, renamed, or removed.
const PermissionVersion = 1

// Role is an administrative role. The set is closed.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleEditor     Role = "editor"
	RoleViewer     Role = "viewer"
)

// Permission is an atomic capability. The set is closed.
type Permission string

const (
	PermCreateNews        Permission = "create_news"
	PermUpdateNews        Permission = "update_news"
	PermDeleteNews        Permission = "delete_news"
	PermCreateDestination Permission = "create_destination"
	PermUpdateDestination Permission = "update_destination"
	PermDeleteDestination Permission = "delete_destination"
	PermCreateOfficial    Permission = "create_official"
	PermUpdateOfficial    Permission = "update_official"
	PermDeleteOfficial    Permission = "delete_official"
	PermCreateVillage     Permission = "create_village"
	PermUpdateVillage     Permission = "update_village"
	PermDeleteVillage     Permission = "delete_village"
	PermCreateGallery     Permission = "create_gallery"
	PermUpdateGallery     Permission = "update_gallery"
	PermDeleteGallery     Permission = "delete_gallery"

	PermViewContacts  Permission = "view_contacts"
	PermDeleteContact Permission = "delete_contact"

	PermViewUsers   Permission = "view_users"
	PermCreateUser  Permission = "create_user"
	PermUpdateUser  Permission = "update_user"
	PermDeleteUser  Permission = "delete_user"
	PermManageUsers Permission = "manage_users"

	PermViewAnalytics  Permission = "view_analytics"
	PermViewAuditLogs  Permission = "view_audit_logs"
	PermManageSettings Permission = "manage_settings"
)

var (
	// ErrUnknownRole is returned when a role string is not in the closed set.
	ErrUnknownRole = errors.New("unknown role")

	// ErrUnknownPermission is returned when a permission string is not in
	// the closed set.
	ErrUnknownPermission = errors.New("unknown permission")
)

// allPermissions is the closed list in declaration order.
var allPermissions = []Permission{
	PermCreateNews, PermUpdateNews, PermDeleteNews,
	PermCreateDestination, PermUpdateDestination, PermDeleteDestination,
	PermCreateOfficial, PermUpdateOfficial, PermDeleteOfficial,
	PermCreateVillage, PermUpdateVillage, PermDeleteVillage,
	PermCreateGallery, PermUpdateGallery, PermDeleteGallery,
	PermViewContacts, PermDeleteContact,
	PermViewUsers, PermCreateUser, PermUpdateUser, PermDeleteUser, PermManageUsers,
	PermViewAnalytics, PermViewAuditLogs, PermManageSettings,
}

var allRoles = []Role{RoleSuperAdmin, RoleAdmin, RoleEditor, RoleViewer}

type permissionSet map[Permission]struct{}

func newSet(perms ...Permission) permissionSet {
	s := make(permissionSet, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

func setWithout(excluded ...Permission) permissionSet {
	s := newSet(allPermissions...)
	for _, p := range excluded {
		delete(s, p)
	}
	return s
}

// rolePermissions is the fixed role table. Each role's set is declared on
// its own; nothing forces admin to be a subset of super_admin.
var rolePermissions = map[Role]permissionSet{
	RoleSuperAdmin: newSet(allPermissions...),
	RoleAdmin:      setWithout(PermManageSettings, PermDeleteUser),
	RoleEditor: newSet(
		PermCreateNews, PermUpdateNews, PermDeleteNews,
		PermCreateDestination, PermUpdateDestination,
		PermCreateOfficial, PermUpdateOfficial,
		PermCreateVillage, PermUpdateVillage,
		PermCreateGallery, PermUpdateGallery, PermDeleteGallery,
		PermViewContacts, PermViewAnalytics,
	),
	RoleViewer: newSet(PermViewAnalytics, PermViewContacts),
}

var permissionIndex = func() map[string]Permission {
	m := make(map[string]Permission, len(allPermissions))
	for _, p := range allPermissions {
		m[string(p)] = p
	}
	return m
}()

// ParseRole converts s to a Role.
func ParseRole(s string) (Role, error) {
	for _, r := range allRoles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// ParsePermission converts s to a Permission. Unknown strings are a
// configuration error and never map to an allow.
func ParsePermission(s string) (Permission, error) {
	p, ok := permissionIndex[s]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPermission, s)
	}
	return p, nil
}

// Valid reports whether r is in the closed role set.
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// Valid reports whether p is in the closed permission set.
func (p Permission) Valid() bool {
	_, ok := permissionIndex[string(p)]
	return ok
}

func (r Role) String() string       { return string(r) }
func (p Permission) String() string { return string(p) }

// HasPermission reports whether role holds permission.
func HasPermission(role Role, permission Permission) bool {
	set, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, ok = set[permission]
	return ok
}

// HasAnyPermission reports whether role holds at least one of permissions.
func HasAnyPermission(role Role, permissions ...Permission) bool {
	for _, p := range permissions {
		if HasPermission(role, p) {
			return true
		}
	}
	return false
}

// PermissionsFor returns the role's permissions sorted by name.
func PermissionsFor(role Role) []Permission {
	set := rolePermissions[role]
	out := make([]Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AllPermissions returns the closed permission list in declaration order.
func AllPermissions() []Permission {
	return append([]Permission(nil), allPermissions...)
}

// AllRoles returns the closed role list, most privileged first.
func AllRoles() []Role {
	return append([]Role(nil), allRoles...)
}
