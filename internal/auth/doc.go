// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

/*
Package auth is the authentication and request gate for the admin API.

Components:

  - TokenIssuer: HS256 access and refresh tokens (golang-jwt/jwt/v5).
    Verification checks signature and expiry only and never touches the
    user store.
  - RateLimiter: failed attempts per client IP over a RateLimitStore
    (in-memory map or Redis). Five failures inside fifteen minutes block
    the IP for thirty minutes. Both clocks run from the last attempt.
  - Authenticator: the login use case. Rate limit, Turnstile bot check,
    account lockout, bcrypt password check, token issue, audit.
  - Gate: chi-compatible middleware. AttemptSensitive rejects blocked IPs
    with 429, Authenticated rejects a missing or bad auth-token cookie with
    401 and Protect adds a 403 permission check through internal/authz.
  - CSRFProtector: double-submit cookie validation for state-changing
    requests.
  - ClientIPResolver: forwarding headers honoured from trusted proxies only.

Every failure the gate can produce is an *Error whose Kind maps to one
HTTP status. Expired and malformed tokens share one client message.

Example:

	issuer, err := auth.NewTokenIssuer(&cfg.Security)
	limiter := auth.NewRateLimiter(auth.NewMemoryRateLimitStore(), &cfg.RateLimit)
	gate := auth.NewGate(issuer, limiter, authorizer, ips, auditLog)

	r.With(gate.Protect(authz.PermDeleteUser)).Delete("/api/v1/users/{id}", h.DeleteUser)
*/
package auth
