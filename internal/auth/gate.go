// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package auth

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/govportal/internal/audit"
	"github.com/tomtom215/govportal/internal/authz"
	"github.com/tomtom215/govportal/internal/logging"
)

// Gate composes client IP resolution, the failed-attempt limiter, token
// verification and the permission model into route middleware. The order
// is fixed: rate limit, then identity, then permission.
type Gate struct {
	issuer     *TokenIssuer
	limiter    *RateLimiter
	authorizer authz.Authorizer
	ips        *ClientIPResolver
	audit      *audit.Logger
	security   *logging.SecurityLogger
}

// NewGate builds a gate. auditLog may be nil.
func NewGate(issuer *TokenIssuer, limiter *RateLimiter, authorizer authz.Authorizer, ips *ClientIPResolver, auditLog *audit.Logger) *Gate {
	return &Gate{
		issuer:     issuer,
		limiter:    limiter,
		authorizer: authorizer,
		ips:        ips,
		audit:      auditLog,
		security:   logging.NewSecurityLogger(),
	}
}

// Authorizer returns the permission engine the gate consults.
func (g *Gate) Authorizer() authz.Authorizer { return g.authorizer }

// AttemptSensitive rejects blocked client IPs with 429 before any other
// work. Handlers behind it report failures to the limiter themselves.
func (g *Gate) AttemptSensitive() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, ip := g.withClientIP(r)

			allowed, retryAfter, err := g.limiter.Check(r.Context(), ip)
			if err != nil {
				logging.Ctx(r.Context()).Error().Err(err).Str("ip", ip).Msg("Rate limit check failed")
				RecordGateDecision("error")
				WriteError(w, err)
				return
			}
			if !allowed {
				RecordGateDecision("rate_limited")
				RateLimitRejectionsTotal.Inc()
				g.security.LogRateLimited(ip, r.URL.Path)
				g.audit.Record(r.Context(), &audit.Event{
					Type:      audit.EventRateLimited,
					Severity:  audit.SeverityWarning,
					Outcome:   audit.OutcomeFailure,
					SourceIP:  ip,
					UserAgent: r.UserAgent(),
					Action:    r.Method + " " + r.URL.Path,
					Detail:    "client IP blocked after repeated failures",
				})
				e := newError(ErrRateLimited, nil)
				e.RetryAfter = retryAfter
				WriteError(w, e)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticated requires a valid access token cookie and stores the
// verified Identity in the request context.
func (g *Gate) Authenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, ip := g.withClientIP(r)

			token, ok := TokenFromRequest(r)
			if !ok {
				RecordTokenFailure("missing")
				RecordGateDecision("unauthenticated")
				WriteError(w, ErrAuthRequired)
				return
			}

			id, err := g.issuer.Verify(token)
			if err != nil {
				reason := "invalid"
				if errors.Is(err, ErrTokenExpired) {
					reason = "expired"
				}
				RecordTokenFailure(reason)
				RecordGateDecision("unauthenticated")
				g.security.LogTokenRejected(ip, r.URL.Path, reason)
				WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// Protect requires a valid token whose role holds permission.
func (g *Gate) Protect(permission authz.Permission) func(http.Handler) http.Handler {
	requirePerm := authz.RequirePermission(g.authorizer, permission, RoleFromContext, g.denied)
	return func(next http.Handler) http.Handler {
		return g.Authenticated()(requirePerm(g.allowed(next)))
	}
}

// ProtectAny requires a valid token whose role holds at least one of
// permissions.
func (g *Gate) ProtectAny(permissions ...authz.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		check := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := RoleFromContext(r.Context())
			if !ok || !g.allowsAny(role, permissions) {
				var first authz.Permission
				if len(permissions) > 0 {
					first = permissions[0]
				}
				g.denied(r, role, first)
				WriteError(w, ErrForbidden)
				return
			}
			g.allowed(next).ServeHTTP(w, r)
		})
		return g.Authenticated()(check)
	}
}

func (g *Gate) allowsAny(role authz.Role, permissions []authz.Permission) bool {
	for _, p := range permissions {
		if authz.Decide(g.authorizer, role, p) {
			return true
		}
	}
	return false
}

func (g *Gate) allowed(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RecordGateDecision("allowed")
		next.ServeHTTP(w, r)
	})
}

func (g *Gate) denied(r *http.Request, role authz.Role, permission authz.Permission) {
	RecordGateDecision("forbidden")
	id, _ := IdentityFromContext(r.Context())
	ip := ClientIPFromContext(r.Context())
	g.security.LogPermissionDenied(id.UserID, string(role), string(permission), ip, r.URL.Path)
	g.audit.Record(r.Context(), &audit.Event{
		Type:      audit.EventPermissionDenied,
		Severity:  audit.SeverityWarning,
		Outcome:   audit.OutcomeFailure,
		Actor:     audit.Actor{ID: id.UserID, Username: id.Username, Role: string(role)},
		Target:    &audit.Target{ID: string(permission), Kind: "permission"},
		SourceIP:  ip,
		UserAgent: r.UserAgent(),
		Action:    r.Method + " " + r.URL.Path,
	})
}

// withClientIP reuses an address resolved by earlier middleware.
func (g *Gate) withClientIP(r *http.Request) (*http.Request, string) {
	if ip, ok := r.Context().Value(clientIPKey).(string); ok && ip != "" {
		return r, ip
	}
	ip := g.ips.Resolve(r)
	return r.WithContext(WithClientIP(r.Context(), ip)), ip
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// WriteError writes err as the JSON failure envelope. An *Error keeps its
// status and client message; anything else is a 500 with a generic message.
func WriteError(w http.ResponseWriter, err error) {
	e, ok := AsError(err)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if e.RetryAfter > 0 {
		secs := int((e.RetryAfter + time.Second - 1) / time.Second)
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	writeJSONError(w, e.Status(), e.Message)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: message}); err != nil {
		logging.Error().Err(err).Msg("Failed to encode error response")
	}
}
