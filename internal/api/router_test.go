// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/govportal/internal/auth"
	"github.com/tomtom215/govportal/internal/authz"
	"github.com/tomtom215/govportal/internal/config"
	"github.com/tomtom215/govportal/internal/events"
)

func TestLogin_SetsAndLogoutClearsCookies(t *testing.T) {
	ts := newTestServer(t)
	ts.addUser("alice", authz.RoleAdmin)
	c := ts.client("203.0.113.10")

	rec := c.login("alice", testPassword)
	wantStatus(t, rec, http.StatusOK)

	var resp loginResponse
	decodeBody(t, rec, &resp)
	if !resp.Success || resp.User.Username != "alice" || resp.AccessToken == "" {
		t.Fatalf("login response = %+v", resp)
	}
	if len(resp.User.Permissions) == 0 {
		t.Error("login response must list the role's permissions")
	}

	for _, name := range []string{auth.AccessCookieName, auth.RefreshCookieName} {
		ck, ok := c.cookies[name]
		if !ok {
			t.Fatalf("cookie %s not set", name)
		}
		if !ck.HttpOnly {
			t.Errorf("cookie %s must be HttpOnly", name)
		}
		if ck.SameSite != http.SameSiteStrictMode {
			t.Errorf("cookie %s SameSite = %v, want Strict", name, ck.SameSite)
		}
	}

	c.fetchCSRF()
	wantStatus(t, c.do(http.MethodGet, "/api/v1/auth/me", nil), http.StatusOK)

	rec = c.do(http.MethodPost, "/api/v1/auth/logout", nil)
	wantStatus(t, rec, http.StatusOK)
	if len(c.cookies) != 1 {
		t.Errorf("cookies after logout = %v, want only the CSRF cookie", c.cookies)
	}
	wantStatus(t, c.do(http.MethodGet, "/api/v1/auth/me", nil), http.StatusUnauthorized)
}

func TestLogin_WrongPasswordIsGeneric(t *testing.T) {
	ts := newTestServer(t)
	ts.addUser("alice", authz.RoleAdmin)

	wrong := ts.client("203.0.113.11").login("alice", "not-the-password")
	unknown := ts.client("203.0.113.12").login("nobody", "not-the-password")

	wantStatus(t, wrong, http.StatusUnauthorized)
	wantStatus(t, unknown, http.StatusUnauthorized)
	if a, b := errorMessage(t, wrong), errorMessage(t, unknown); a != b {
		t.Errorf("wrong password message %q differs from unknown user message %q", a, b)
	}
}

func TestLogin_BlockedIPGets429EvenWithCorrectPassword(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) {
		cfg.Lockout.Enabled = false
	})
	ts.addUser("alice", authz.RoleAdmin)
	c := ts.client("203.0.113.20")

	for i := 0; i < ts.cfg.RateLimit.MaxAttempts; i++ {
		if rec := c.login("alice", "wrong-password"); rec.Code == http.StatusOK {
			t.Fatalf("attempt %d succeeded with a wrong password", i+1)
		}
	}

	rec := c.login("alice", testPassword)
	wantStatus(t, rec, http.StatusTooManyRequests)
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 must carry Retry-After")
	}
	if _, ok := c.cookies[auth.AccessCookieName]; ok {
		t.Error("a blocked login must not set a session cookie")
	}

	// Another address is unaffected.
	wantStatus(t, ts.client("203.0.113.21").login("alice", testPassword), http.StatusOK)
}

func TestLogin_ValidationDetails(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client("203.0.113.30")

	rec := c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "alice"})
	wantStatus(t, rec, http.StatusBadRequest)

	var resp APIResponse
	decodeBody(t, rec, &resp)
	if len(resp.Details) != 1 || resp.Details[0].Field != "password" || resp.Details[0].Tag != "required" {
		t.Errorf("details = %+v, want one required error on password", resp.Details)
	}

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"username":`},
		{"unknown field", `{"username":"a","password":"b","admin":true}`},
		{"trailing data", `{"username":"a","password":"b"}{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantStatus(t, c.do(http.MethodPost, "/api/v1/auth/login", tt.body), http.StatusBadRequest)
		})
	}
}

func TestProtectedRoutes_InvalidTokensShareOneResponse(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.addUser("alice", authz.RoleAdmin)

	expiredIssuer, err := auth.NewTokenIssuer(&ts.cfg.Security, auth.WithClock(func() time.Time {
		return time.Now().Add(-48 * time.Hour)
	}))
	if err != nil {
		t.Fatalf("NewTokenIssuer() error = %v", err)
	}
	expired, err := expiredIssuer.Issue(auth.Identity{
		UserID:   admin.ID,
		Username: admin.Username,
		Email:    admin.Email,
		Role:     admin.Role,
	}, false)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"malformed", "not.a.jwt"},
		{"expired", expired.AccessToken},
	}

	var messages []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ts.client("203.0.113.40")
			if tt.token != "" {
				c.cookies[auth.AccessCookieName] = &http.Cookie{Name: auth.AccessCookieName, Value: tt.token}
			}
			rec := c.do(http.MethodGet, "/api/v1/users", nil)
			wantStatus(t, rec, http.StatusUnauthorized)
			if tt.token != "" {
				messages = append(messages, errorMessage(t, rec))
			}
		})
	}
	if len(messages) == 2 && messages[0] != messages[1] {
		t.Errorf("expired message %q differs from malformed message %q", messages[1], messages[0])
	}
}

func TestProtectedRoutes_BearerHeaderIsNotACredential(t *testing.T) {
	ts := newTestServer(t)
	ts.addUser("alice", authz.RoleAdmin)
	c := ts.client("203.0.113.41").mustLogin("alice")

	token := c.cookies[auth.AccessCookieName].Value

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	req.RemoteAddr = "203.0.113.42:40000"
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	wantStatus(t, rec, http.StatusUnauthorized)
}

func TestPermissions_RoleMatrix(t *testing.T) {
	ts := newTestServer(t)
	ts.addUser("root", authz.RoleSuperAdmin)
	ts.addUser("alice", authz.RoleAdmin)
	ts.addUser("eddie", authz.RoleEditor)
	target := ts.addUser("vera", authz.RoleViewer)

	clients := map[string]*client{
		"root":  ts.client("198.51.100.1").mustLogin("root"),
		"alice": ts.client("198.51.100.2").mustLogin("alice"),
		"eddie": ts.client("198.51.100.3").mustLogin("eddie"),
		"vera":  ts.client("198.51.100.4").mustLogin("vera"),
	}

	tests := []struct {
		who    string
		method string
		path   string
		body   any
		want   int
	}{
		{"vera", http.MethodGet, "/api/v1/users", nil, http.StatusForbidden},
		{"vera", http.MethodDelete, "/api/v1/users/" + target.ID, nil, http.StatusForbidden},
		{"eddie", http.MethodGet, "/api/v1/audit", nil, http.StatusForbidden},
		{"eddie", http.MethodGet, "/api/v1/content", nil, http.StatusOK},
		{"vera", http.MethodGet, "/api/v1/content", nil, http.StatusForbidden},
		{"eddie", http.MethodPost, "/api/v1/content/news", map[string]any{"title": "Road works"}, http.StatusCreated},
		{"vera", http.MethodPost, "/api/v1/content/news", map[string]any{"title": "Road works"}, http.StatusForbidden},
		{"alice", http.MethodGet, "/api/v1/users", nil, http.StatusOK},
		{"alice", http.MethodGet, "/api/v1/audit", nil, http.StatusOK},
		{"alice", http.MethodPost, "/api/v1/users", map[string]any{
			"username": "second-root", "email": "r2@example.gov", "password": testPassword, "role": "super_admin",
		}, http.StatusForbidden},
		{"root", http.MethodPost, "/api/v1/users", map[string]any{
			"username": "second-root", "email": "r2@example.gov", "password": testPassword, "role": "super_admin",
		}, http.StatusCreated},
		{"root", http.MethodPost, "/api/v1/users/" + target.ID + "/unlock", nil, http.StatusOK},
		{"root", http.MethodDelete, "/api/v1/users/" + target.ID, nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.who+" "+tt.method+" "+tt.path, func(t *testing.T) {
			wantStatus(t, clients[tt.who].do(tt.method, tt.path, tt.body), tt.want)
		})
	}
}

func TestCSRF_AppliesAfterAuthentication(t *testing.T) {
	ts := newTestServer(t)
	ts.addUser("alice", authz.RoleAdmin)

	// No session: the caller learns it needs to log in, not that CSRF failed.
	anon := ts.client("198.51.100.10")
	wantStatus(t, anon.do(http.MethodPost, "/api/v1/content/news", map[string]any{"title": "x"}), http.StatusUnauthorized)

	c := ts.client("198.51.100.11").mustLogin("alice")
	token := c.csrf

	c.csrf = ""
	rec := c.do(http.MethodPost, "/api/v1/content/news", map[string]any{"title": "x"})
	wantStatus(t, rec, http.StatusForbidden)
	if msg := errorMessage(t, rec); !strings.Contains(msg, "CSRF") {
		t.Errorf("error = %q, want a CSRF message", msg)
	}

	c.csrf = "forged"
	wantStatus(t, c.do(http.MethodPost, "/api/v1/content/news", map[string]any{"title": "x"}), http.StatusForbidden)

	c.csrf = token
	wantStatus(t, c.do(http.MethodPost, "/api/v1/content/news", map[string]any{"title": "x"}), http.StatusCreated)
}

func TestCSRF_Disabled(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) { cfg.CSRF.Enabled = false })
	ts.addUser("alice", authz.RoleAdmin)
	c := ts.client("198.51.100.12").mustLogin("alice")

	if c.csrf != "" {
		t.Errorf("csrf token = %q, want none when disabled", c.csrf)
	}
	wantStatus(t, c.do(http.MethodPost, "/api/v1/content/news", map[string]any{"title": "x"}), http.StatusCreated)
}

func TestContent_PublicListShowsPublishedOnly(t *testing.T) {
	ts := newTestServer(t)
	ts.addUser("eddie", authz.RoleEditor)
	c := ts.client("198.51.100.20").mustLogin("eddie")

	wantStatus(t, c.do(http.MethodPost, "/api/v1/content/destination", map[string]any{"title": "Draft", "published": false}), http.StatusCreated)
	wantStatus(t, c.do(http.MethodPost, "/api/v1/content/destination", map[string]any{"title": "Waterfall", "published": true}), http.StatusCreated)

	rec := ts.client("198.51.100.21").do(http.MethodGet, "/api/v1/content/destination", nil)
	wantStatus(t, rec, http.StatusOK)

	var resp struct {
		Data []struct {
			Title string `json:"title"`
		} `json:"data"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Data) != 1 || resp.Data[0].Title != "Waterfall" {
		t.Errorf("public list = %+v, want only the published item", resp.Data)
	}

	wantStatus(t, ts.client("198.51.100.21").do(http.MethodGet, "/api/v1/content/unknown", nil), http.StatusNotFound)
}

func TestContact_BotFailuresCountAgainstIP(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client("192.0.2.50")

	form := map[string]any{
		"name":           "Resident",
		"email":          "resident@example.com",
		"subject":        "Street light",
		"message":        "The light on Main St is out.",
		"turnstileToken": "bot",
	}

	// Validation failures do not count.
	for i := 0; i < ts.cfg.RateLimit.MaxAttempts+1; i++ {
		wantStatus(t, c.do(http.MethodPost, "/api/v1/contact", map[string]any{"name": "x"}), http.StatusBadRequest)
	}

	for i := 0; i < ts.cfg.RateLimit.MaxAttempts; i++ {
		wantStatus(t, c.do(http.MethodPost, "/api/v1/contact", form), http.StatusBadRequest)
	}

	form["turnstileToken"] = "human"
	wantStatus(t, c.do(http.MethodPost, "/api/v1/contact", form), http.StatusTooManyRequests)

	// The same address is blocked at login too.
	wantStatus(t, c.login("anyone", "whatever-password"), http.StatusTooManyRequests)
}

func TestContact_StoredAndPublished(t *testing.T) {
	ts := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	messages, err := ts.bus.Subscribe(ctx, ts.cfg.Events.ContactTopic)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	rec := ts.client("192.0.2.60").do(http.MethodPost, "/api/v1/contact", map[string]any{
		"name":    "  Resident  ",
		"email":   "resident@example.com",
		"phone":   "+1 555 0100",
		"subject": "Permit question",
		"message": "How do I apply?",
	})
	wantStatus(t, rec, http.StatusCreated)

	select {
	case msg := <-messages:
		msg.Ack()
		var got events.ContactSubmission
		if err := json.Unmarshal(msg.Payload, &got); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if got.Name != "Resident" || got.SourceIP != "192.0.2.60" {
			t.Errorf("published submission = %+v", got)
		}
	case <-ctx.Done():
		t.Fatal("contact submission was not published")
	}

	if n := len(ts.content.Contacts(context.Background())); n != 1 {
		t.Errorf("stored contacts = %d, want 1", n)
	}
}

func TestPermissionsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.client("192.0.2.70").do(http.MethodGet, "/api/v1/auth/permissions", nil)
	wantStatus(t, rec, http.StatusOK)

	var resp struct {
		Data permissionsResponse `json:"data"`
	}
	decodeBody(t, rec, &resp)

	if resp.Data.Version != authz.PermissionVersion {
		t.Errorf("version = %d, want %d", resp.Data.Version, authz.PermissionVersion)
	}
	if len(resp.Data.Permissions) != len(authz.AllPermissions()) {
		t.Errorf("permissions = %d, want %d", len(resp.Data.Permissions), len(authz.AllPermissions()))
	}
	if got, want := len(resp.Data.Roles[authz.RoleSuperAdmin]), len(authz.AllPermissions()); got != want {
		t.Errorf("super_admin holds %d permissions, want %d", got, want)
	}
	for _, p := range resp.Data.Roles[authz.RoleViewer] {
		if strings.HasPrefix(string(p), "delete_") {
			t.Errorf("viewer holds %s", p)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.client("192.0.2.80").do(http.MethodGet, "/api/v1/auth/permissions", nil)

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not set")
	}
}

func TestFloodLimit(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) {
		cfg.Security.APIRateLimitReqs = 3
		cfg.Security.APIRateLimitWindow = time.Minute
	})
	c := ts.client("192.0.2.90")

	for i := 0; i < 3; i++ {
		wantStatus(t, c.do(http.MethodGet, "/api/v1/auth/permissions", nil), http.StatusOK)
	}
	wantStatus(t, c.do(http.MethodGet, "/api/v1/auth/permissions", nil), http.StatusTooManyRequests)

	// Health probes are outside the API group.
	wantStatus(t, c.do(http.MethodGet, "/health/live", nil), http.StatusOK)
}

func TestHealthReady(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client("192.0.2.100")

	wantStatus(t, c.do(http.MethodGet, "/health/ready", nil), http.StatusOK)

	ts.checks["users"] = func(context.Context) error { return errUnhealthy }
	rec := c.do(http.MethodGet, "/health/ready", nil)
	wantStatus(t, rec, http.StatusServiceUnavailable)

	var resp struct {
		Data HealthStatus `json:"data"`
	}
	decodeBody(t, rec, &resp)
	if resp.Data.Checks["users"] == "ok" {
		t.Errorf("checks = %v, want users reported unhealthy", resp.Data.Checks)
	}
	wantStatus(t, c.do(http.MethodGet, "/health", nil), http.StatusOK)
}

func TestNotFound(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.client("192.0.2.110").do(http.MethodGet, "/api/v1/nope", nil)
	wantStatus(t, rec, http.StatusNotFound)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
}
