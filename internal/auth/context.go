// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package auth

import (
	"context"

	"github.com/tomtom215/govportal/internal/authz"
)

type contextKey int

const (
	identityKey contextKey = iota
	clientIPKey
)

// WithIdentity stores a verified identity in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the identity stored by the gate.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// RoleFromContext is an authz.RoleResolver over the gate's identity.
func RoleFromContext(ctx context.Context) (authz.Role, bool) {
	id, ok := IdentityFromContext(ctx)
	if !ok || !id.Role.Valid() {
		return "", false
	}
	return id.Role, true
}

var _ authz.RoleResolver = RoleFromContext

// WithClientIP stores the resolved client address in ctx.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIPFromContext returns the resolved client address, or UnknownIP.
func ClientIPFromContext(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey).(string); ok && ip != "" {
		return ip
	}
	return UnknownIP
}
