// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package authz

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/tomtom215/govportal/internal/logging"
)

//go:embed model.conf
var embeddedModel string

// Authorizer decides whether a role holds a permission.
//
// The request gate and RequirePermission depend only on this interface, so
// the engine is a deployment choice (authz.engine) and never changes an
// answer. Implementations must deny unknown roles and permissions.
//
// Example usage:
//
//	authorizer, err := authz.NewAuthorizer(cfg.Authz.Engine)
//	if err != nil {
//	    return err
//	}
//	if !authorizer.Allowed(identity.Role, authz.PermDeleteUser) {
//	    // 403
//	}
type Authorizer interface {
	// Allowed reports whether role holds permission.
	Allowed(role Role, permission Permission) bool

	// Engine names the implementation for logs and metrics.
	Engine() string
}

// StaticAuthorizer answers from the compiled role table with a map lookup.
// It is the default engine and has no state.
type StaticAuthorizer struct{}

// Allowed implements Authorizer.
func (StaticAuthorizer) Allowed(role Role, permission Permission) bool {
	return HasPermission(role, permission)
}

// Engine implements Authorizer.
func (StaticAuthorizer) Engine() string { return "static" }

// CasbinEnforcer answers from a Casbin model seeded with the compiled role
// table.
//
// The embedded model.conf is a flat (role, permission) match: each policy
// line grants one permission to one role, with no role hierarchy and no
// wildcards. Seeding every line from PermissionsFor keeps the two engines
// in lockstep, and the package tests compare them over every role and
// permission pair.
//
// The underlying casbin.SyncedEnforcer is safe for concurrent use.
type CasbinEnforcer struct {
	enforcer *casbin.SyncedEnforcer
}

// NewCasbinEnforcer builds an enforcer holding one policy line per granted
// (role, permission) pair.
//
// Policies live only in memory; there is no file adapter or auto-reload,
// because the role table is fixed at compile time.
func NewCasbinEnforcer() (*CasbinEnforcer, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	for _, role := range allRoles {
		for _, perm := range PermissionsFor(role) {
			if _, err := enforcer.AddPolicy(string(role), string(perm)); err != nil {
				return nil, fmt.Errorf("failed to add policy %s/%s: %w", role, perm, err)
			}
		}
	}

	return &CasbinEnforcer{enforcer: enforcer}, nil
}

// Allowed implements Authorizer. Enforcement errors deny.
func (e *CasbinEnforcer) Allowed(role Role, permission Permission) bool {
	if !role.Valid() || !permission.Valid() {
		return false
	}
	ok, err := e.enforcer.Enforce(string(role), string(permission))
	if err != nil {
		logging.Error().Err(err).
			Str("role", string(role)).
			Str("permission", string(permission)).
			Msg("Casbin enforcement failed")
		return false
	}
	return ok
}

// Engine implements Authorizer.
func (e *CasbinEnforcer) Engine() string { return "casbin" }

// NewAuthorizer returns the Authorizer for the configured engine name:
// "static" (or empty) or "casbin".
func NewAuthorizer(engine string) (Authorizer, error) {
	switch engine {
	case "", "static":
		return StaticAuthorizer{}, nil
	case "casbin":
		return NewCasbinEnforcer()
	default:
		return nil, fmt.Errorf("unknown authz engine %q", engine)
	}
}
