// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package authz

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/govportal/internal/logging"
)

// RoleResolver returns the verified caller role stored in ctx.
type RoleResolver func(ctx context.Context) (Role, bool)

type forbiddenResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// DeniedFunc is called for each request RequirePermission rejects.
type DeniedFunc func(r *http.Request, role Role, permission Permission)

// RequirePermission returns middleware that rejects callers whose verified
// role lacks permission with 403. A missing role is also a 403: callers
// must run authentication first.
func RequirePermission(authorizer Authorizer, permission Permission, resolve RoleResolver, onDenied ...DeniedFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := resolve(r.Context())
			if !ok || !Decide(authorizer, role, permission) {
				logging.Ctx(r.Context()).Debug().
					Str("role", string(role)).
					Str("permission", string(permission)).
					Str("path", r.URL.Path).
					Msg("Permission denied")
				for _, fn := range onDenied {
					fn(r, role, permission)
				}
				writeForbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeForbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	if err := json.NewEncoder(w).Encode(forbiddenResponse{Error: "insufficient permissions"}); err != nil {
		logging.Error().Err(err).Msg("Failed to encode forbidden response")
	}
}
