// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package auth

import (
	"net/http"
	"time"

	"github.com/tomtom215/govportal/internal/config"
)

// Session cookie names.
const (
	AccessCookieName  = "auth-token"
	RefreshCookieName = "refresh-token"
)

// CookieWriter sets and clears the session cookies.
type CookieWriter struct {
	secure bool
	domain string
	now    func() time.Time
}

// NewCookieWriter builds a writer from the security settings.
func NewCookieWriter(cfg *config.SecurityConfig) *CookieWriter {
	return &CookieWriter{secure: cfg.CookieSecure, domain: cfg.CookieDomain, now: time.Now}
}

// SetSession writes both session cookies for pair.
func (c *CookieWriter) SetSession(w http.ResponseWriter, pair TokenPair) {
	http.SetCookie(w, c.cookie(AccessCookieName, pair.AccessToken, pair.AccessExpiresAt))
	http.SetCookie(w, c.cookie(RefreshCookieName, pair.RefreshToken, pair.RefreshExpiresAt))
}

// ClearSession expires both session cookies.
func (c *CookieWriter) ClearSession(w http.ResponseWriter) {
	for _, name := range []string{AccessCookieName, RefreshCookieName} {
		ck := c.cookie(name, "", time.Time{})
		ck.MaxAge = -1 // sent as Max-Age=0
		ck.Expires = time.Unix(0, 0)
		http.SetCookie(w, ck)
	}
}

func (c *CookieWriter) cookie(name, value string, expires time.Time) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.domain,
		Secure:   c.secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
	if !expires.IsZero() {
		ck.Expires = expires
		ck.MaxAge = max(int(expires.Sub(c.now()).Seconds()), 1)
	}
	return ck
}

// TokenFromRequest returns the access token cookie value.
func TokenFromRequest(r *http.Request) (string, bool) {
	ck, err := r.Cookie(AccessCookieName)
	if err != nil || ck.Value == "" {
		return "", false
	}
	return ck.Value, true
}

// RefreshTokenFromRequest returns the refresh token cookie value.
func RefreshTokenFromRequest(r *http.Request) (string, bool) {
	ck, err := r.Cookie(RefreshCookieName)
	if err != nil || ck.Value == "" {
		return "", false
	}
	return ck.Value, true
}
