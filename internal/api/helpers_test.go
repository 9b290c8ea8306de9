// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/govportal/internal/audit"
	"github.com/tomtom215/govportal/internal/auth"
	"github.com/tomtom215/govportal/internal/authz"
	"github.com/tomtom215/govportal/internal/config"
	"github.com/tomtom215/govportal/internal/content"
	"github.com/tomtom215/govportal/internal/events"
	"github.com/tomtom215/govportal/internal/users"
)

const testPassword = "correct-horse-battery"

// rejectingBot fails any token equal to "bot".
type rejectingBot struct{}

func (rejectingBot) Verify(_ context.Context, token, _ string) error {
	if token == "bot" {
		return auth.ErrBotVerificationFailed
	}
	return nil
}

type testServer struct {
	t       *testing.T
	cfg     *config.Config
	handler http.Handler
	users   *users.MemoryStore
	content *content.Store
	bus     *gochannel.GoChannel
	checks  map[string]HealthCheck
}

type serverOption func(*config.Config)

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	cfg := config.Default()
	cfg.Security.JWTSecret = "test-secret-that-is-at-least-32-bytes-long"
	cfg.Security.CookieSecure = false
	cfg.Turnstile.Enabled = false
	for _, opt := range opts {
		opt(cfg)
	}

	store := users.NewMemoryStore()
	issuer, err := auth.NewTokenIssuer(&cfg.Security)
	if err != nil {
		t.Fatalf("NewTokenIssuer() error = %v", err)
	}
	authorizer, err := authz.NewAuthorizer(cfg.Authz.Engine)
	if err != nil {
		t.Fatalf("NewAuthorizer() error = %v", err)
	}
	ips, err := auth.NewClientIPResolver(cfg.Security.TrustedProxies)
	if err != nil {
		t.Fatalf("NewClientIPResolver() error = %v", err)
	}

	auditLog := audit.NewLogger(audit.NewMemoryStore(1000), audit.DefaultConfig())
	t.Cleanup(func() { _ = auditLog.Close() })

	limiter := auth.NewRateLimiter(auth.NewMemoryRateLimitStore(), &cfg.RateLimit)
	gate := auth.NewGate(issuer, limiter, authorizer, ips, auditLog)
	bot := rejectingBot{}
	authenticator := auth.NewAuthenticator(store, issuer, limiter, bot, auditLog, cfg.Lockout)

	publisher, bus := events.NewMemoryBus(cfg.Events.ContactTopic)
	t.Cleanup(func() { _ = publisher.Close() })

	var csrf *auth.CSRFProtector
	if cfg.CSRF.Enabled {
		csrf = auth.NewCSRFProtector(&cfg.CSRF, &cfg.Security)
	}

	ts := &testServer{
		t:       t,
		cfg:     cfg,
		users:   store,
		content: content.NewStore(),
		bus:     bus,
		checks:  map[string]HealthCheck{},
	}

	router, err := NewRouter(Dependencies{
		Config:       cfg,
		Auth:         authenticator,
		Issuer:       issuer,
		Gate:         gate,
		Limiter:      limiter,
		Bot:          bot,
		IPs:          ips,
		Cookies:      auth.NewCookieWriter(&cfg.Security),
		CSRF:         csrf,
		Content:      ts.content,
		Events:       publisher,
		Audit:        auditLog,
		HealthChecks: ts.checks,
		Version:      "test",
	})
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	ts.handler = router.Handler()
	return ts
}

// addUser stores an account with a low-cost hash of testPassword.
func (ts *testServer) addUser(username string, role authz.Role) *users.User {
	ts.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		ts.t.Fatalf("GenerateFromPassword() error = %v", err)
	}
	u := users.NewUser(username, username+"@example.gov", string(hash), role, time.Now())
	if err := ts.users.Create(context.Background(), u); err != nil {
		ts.t.Fatalf("Create(%s) error = %v", username, err)
	}
	return u
}

// client is one browser: a source address plus its cookie jar.
type client struct {
	ts      *testServer
	ip      string
	cookies map[string]*http.Cookie
	csrf    string
}

func (ts *testServer) client(ip string) *client {
	return &client{ts: ts, ip: ip, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.ts.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			if err := json.NewEncoder(&buf).Encode(b); err != nil {
				c.ts.t.Fatalf("encode body: %v", err)
			}
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = c.ip + ":40000"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	if c.csrf != "" {
		req.Header.Set(c.ts.cfg.CSRF.HeaderName, c.csrf)
	}

	rec := httptest.NewRecorder()
	c.ts.handler.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return rec
}

func (c *client) login(username, password string) *httptest.ResponseRecorder {
	c.ts.t.Helper()
	return c.do(http.MethodPost, "/api/v1/auth/login", map[string]any{
		"username": username,
		"password": password,
	})
}

// mustLogin logs in and fetches a CSRF token.
func (c *client) mustLogin(username string) *client {
	c.ts.t.Helper()
	if rec := c.login(username, testPassword); rec.Code != http.StatusOK {
		c.ts.t.Fatalf("login(%s) status = %d, body = %s", username, rec.Code, rec.Body.String())
	}
	c.fetchCSRF()
	return c
}

func (c *client) fetchCSRF() {
	c.ts.t.Helper()
	rec := c.do(http.MethodGet, "/api/v1/auth/csrf", nil)
	var resp struct {
		Data csrfResponse `json:"data"`
	}
	decodeBody(c.ts.t, rec, &resp)
	c.csrf = resp.Data.Token
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error string `json:"error"`
	}
	decodeBody(t, rec, &resp)
	return resp.Error
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, want, strings.TrimSpace(rec.Body.String()))
	}
}

var errUnhealthy = errors.New("connection refused")
