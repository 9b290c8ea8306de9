// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

// Package authz holds the closed role and permission model of the admin API.
//
// Roles and permissions are typed string constants. The role table is
// compiled in; nothing creates permissions at runtime, and every string that
// enters the system from configuration or a token goes through ParseRole or
// ParsePermission, which reject unknown values.
//
// # Table
//
//	super_admin  every permission
//	admin        every permission except manage_settings and delete_user
//	editor       create/update on all content, delete_news, delete_gallery,
//	             view_contacts, view_analytics
//	viewer       view_analytics, view_contacts
//
// # Engines
//
// Two Authorizer implementations answer the same questions:
//
//   - StaticAuthorizer looks up the compiled table directly.
//   - CasbinEnforcer loads the table into a Casbin model (model.conf) as
//     one "p, role, permission" line per grant.
//
// The engine is chosen with authz.engine (AUTHZ_ENGINE). The test suite
// checks that both agree on every pair.
//
// # Middleware
//
//	r.With(authz.RequirePermission(authorizer, authz.PermDeleteUser, auth.RoleFromContext)).
//	    Delete("/users/{id}", h.DeleteUser)
//
// RequirePermission only reads the role already placed in the request
// context by authentication; it never parses tokens itself.
package authz
