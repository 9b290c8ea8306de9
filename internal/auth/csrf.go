// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/govportal/internal/audit"
	"github.com/tomtom215/govportal/internal/config"
	"github.com/tomtom215/govportal/internal/logging"
)

// CSRF validation errors.
var (
	ErrCSRFTokenMissing = errors.New("CSRF token missing")
	ErrCSRFTokenInvalid = errors.New("CSRF token invalid")
	ErrCSRFTokenExpired = errors.New("CSRF token expired")
)

const (
	csrfNonceBytes   = 16
	csrfPayloadBytes = csrfNonceBytes + 8
)

// csrfKeyLabel separates the CSRF signing key from the JWT signing key
// derived from the same secret.
const csrfKeyLabel = "govportal-csrf-v1"

// CSRFProtector implements the double-submit cookie pattern: a token is set
// in a cookie readable by the admin frontend, and every state-changing
// request must echo it in a header.
//
// Tokens are self-validating. Each one carries a random nonce and its expiry,
// signed with HMAC-SHA256 under a key derived from the JWT secret:
//
//	base64url(nonce || expiry) "." base64url(mac)
//
// Nothing is stored per token, so any process sharing the secret accepts a
// token issued by any other, and a cookie value the server never signed is
// rejected.
type CSRFProtector struct {
	cookieName string
	headerName string
	ttl        time.Duration
	secure     bool
	domain     string
	exempt     []string
	key        []byte
	now        func() time.Time
	audit      *audit.Logger
}

// NewCSRFProtector builds a protector. exemptPaths are path prefixes that
// skip validation.
func NewCSRFProtector(cfg *config.CSRFConfig, security *config.SecurityConfig, exemptPaths ...string) *CSRFProtector {
	mac := hmac.New(sha256.New, []byte(security.JWTSecret))
	mac.Write([]byte(csrfKeyLabel))

	return &CSRFProtector{
		cookieName: cfg.CookieName,
		headerName: cfg.HeaderName,
		ttl:        cfg.TokenTTL,
		secure:     security.CookieSecure,
		domain:     security.CookieDomain,
		exempt:     exemptPaths,
		key:        mac.Sum(nil),
		now:        time.Now,
	}
}

// SetAuditLogger records rejected requests in the audit trail.
func (p *CSRFProtector) SetAuditLogger(l *audit.Logger) { p.audit = l }

// Protect validates state-changing requests. Safe methods pass through.
func (p *CSRFProtector) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) || p.isExempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if err := p.validate(r); err != nil {
			ip := ClientIPFromContext(r.Context())
			CSRFFailuresTotal.Inc()
			logging.NewSecurityLogger().LogCSRFFailure(ip, r.UserAgent(), r.URL.Path)
			p.audit.Record(r.Context(), &audit.Event{
				Type:      audit.EventCSRFRejected,
				Severity:  audit.SeverityWarning,
				Outcome:   audit.OutcomeFailure,
				SourceIP:  ip,
				UserAgent: r.UserAgent(),
				Action:    r.Method + " " + r.URL.Path,
				Detail:    err.Error(),
			})
			writeJSONError(w, http.StatusForbidden, csrfMessage(err))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Token returns the caller's current token, issuing and setting a new
// cookie when it has none or it expired.
func (p *CSRFProtector) Token(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(p.cookieName); err == nil && c.Value != "" && p.check(c.Value) == nil {
		return c.Value, nil
	}

	token, err := p.sign(p.now().Add(p.ttl))
	if err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     p.cookieName,
		Value:    token,
		Path:     "/",
		Domain:   p.domain,
		MaxAge:   int(p.ttl.Seconds()),
		Secure:   p.secure,
		HttpOnly: false, // read by the admin frontend
		SameSite: http.SameSiteStrictMode,
	})
	return token, nil
}

// HeaderName is the header clients echo the token in.
func (p *CSRFProtector) HeaderName() string { return p.headerName }

func (p *CSRFProtector) validate(r *http.Request) error {
	cookie, err := r.Cookie(p.cookieName)
	if err != nil || cookie.Value == "" {
		return ErrCSRFTokenMissing
	}
	header := r.Header.Get(p.headerName)
	if header == "" {
		return ErrCSRFTokenMissing
	}
	if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(header)) != 1 {
		return ErrCSRFTokenInvalid
	}
	return p.check(cookie.Value)
}

func (p *CSRFProtector) sign(expires time.Time) (string, error) {
	payload := make([]byte, csrfPayloadBytes)
	if _, err := rand.Read(payload[:csrfNonceBytes]); err != nil {
		return "", err
	}
	binary.BigEndian.PutUint64(payload[csrfNonceBytes:], uint64(expires.Unix()))

	enc := base64.RawURLEncoding
	return enc.EncodeToString(payload) + "." + enc.EncodeToString(p.mac(payload)), nil
}

// check verifies the signature first and the expiry second.
func (p *CSRFProtector) check(token string) error {
	encPayload, encMAC, ok := strings.Cut(token, ".")
	if !ok {
		return ErrCSRFTokenInvalid
	}
	payload, err := base64.RawURLEncoding.DecodeString(encPayload)
	if err != nil || len(payload) != csrfPayloadBytes {
		return ErrCSRFTokenInvalid
	}
	sig, err := base64.RawURLEncoding.DecodeString(encMAC)
	if err != nil || !hmac.Equal(sig, p.mac(payload)) {
		return ErrCSRFTokenInvalid
	}

	expires := time.Unix(int64(binary.BigEndian.Uint64(payload[csrfNonceBytes:])), 0)
	if !p.now().Before(expires) {
		return ErrCSRFTokenExpired
	}
	return nil
}

func (p *CSRFProtector) mac(payload []byte) []byte {
	m := hmac.New(sha256.New, p.key)
	m.Write(payload)
	return m.Sum(nil)
}

func (p *CSRFProtector) isExempt(path string) bool {
	for _, prefix := range p.exempt {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

func csrfMessage(err error) string {
	switch {
	case errors.Is(err, ErrCSRFTokenMissing):
		return "CSRF token missing"
	case errors.Is(err, ErrCSRFTokenInvalid):
		return "CSRF token invalid"
	case errors.Is(err, ErrCSRFTokenExpired):
		return "CSRF token expired"
	default:
		return "CSRF validation failed"
	}
}
