// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/govportal/internal/authz"
	"github.com/tomtom215/govportal/internal/config"
)

var testIdentity = Identity{
	UserID:     "8f14e45f-ceea-467f-a0e6-0e3f5b2c1a01",
	Username:   "editor1",
	Email:      "editor1@example.gov",
	Role:       authz.RoleEditor,
	Department: "Tourism",
}

func TestNewTokenIssuer_RejectsMisconfiguration(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *config.SecurityConfig)
	}{
		{"empty secret", func(c *config.SecurityConfig) { c.JWTSecret = "" }},
		{"short secret", func(c *config.SecurityConfig) { c.JWTSecret = "too-short" }},
		{"zero access ttl", func(c *config.SecurityConfig) { c.AccessTokenTTL = 0 }},
		{"negative refresh ttl", func(c *config.SecurityConfig) { c.RefreshTokenTTL = -time.Hour }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg.Security)
			if _, err := NewTokenIssuer(&cfg.Security); err == nil {
				t.Fatal("NewTokenIssuer() error = nil, want error")
			}
		})
	}
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	clock := newFakeClock()
	issuer := newTestIssuer(t, clock)

	pair, err := issuer.Issue(testIdentity, false)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if want := clock.Now().Add(24 * time.Hour); !pair.AccessExpiresAt.Equal(want) {
		t.Errorf("AccessExpiresAt = %v, want %v", pair.AccessExpiresAt, want)
	}
	if want := clock.Now().Add(7 * 24 * time.Hour); !pair.RefreshExpiresAt.Equal(want) {
		t.Errorf("RefreshExpiresAt = %v, want %v", pair.RefreshExpiresAt, want)
	}

	got, err := issuer.Verify(pair.AccessToken)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got != testIdentity {
		t.Errorf("Verify() = %+v, want %+v", got, testIdentity)
	}

	userID, err := issuer.VerifyRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("VerifyRefresh() error = %v", err)
	}
	if userID != testIdentity.UserID {
		t.Errorf("VerifyRefresh() = %q, want %q", userID, testIdentity.UserID)
	}
}

func TestTokenIssuer_RememberMeLifetime(t *testing.T) {
	clock := newFakeClock()
	issuer := newTestIssuer(t, clock)

	pair, err := issuer.Issue(testIdentity, true)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	clock.Advance(6 * 24 * time.Hour)
	if _, err := issuer.Verify(pair.AccessToken); err != nil {
		t.Fatalf("Verify() after 6 days error = %v", err)
	}
	clock.Advance(24*time.Hour + time.Second)
	if _, err := issuer.Verify(pair.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Verify() after 7 days error = %v, want ErrTokenExpired", err)
	}
}

func TestTokenIssuer_Expiry(t *testing.T) {
	clock := newFakeClock()
	issuer := newTestIssuer(t, clock)

	pair, err := issuer.Issue(testIdentity, false)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	clock.Advance(24*time.Hour + time.Second)
	_, err = issuer.Verify(pair.AccessToken)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Verify() error = %v, want ErrTokenExpired", err)
	}
	if errors.Is(err, ErrTokenInvalid) {
		t.Error("expired token must not also classify as ErrTokenInvalid")
	}

	e, ok := AsError(err)
	if !ok {
		t.Fatalf("AsError(%v) failed", err)
	}
	if e.Message != "invalid or expired token" {
		t.Errorf("Message = %q, want generic token message", e.Message)
	}
}

func TestTokenIssuer_RejectsTampering(t *testing.T) {
	clock := newFakeClock()
	issuer := newTestIssuer(t, clock)
	pair, err := issuer.Issue(testIdentity, false)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	otherCfg := testConfig()
	otherCfg.Security.JWTSecret = strings.Repeat("x", 40)
	other, err := NewTokenIssuer(&otherCfg.Security, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewTokenIssuer() error = %v", err)
	}
	foreign, err := other.Issue(testIdentity, false)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	hs384 := claimsToken(t, jwt.SigningMethodHS384, []byte(testSecret), clock.Now())
	none := claimsToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, clock.Now())

	parts := strings.Split(pair.AccessToken, ".")
	flipped := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"wrong secret", foreign.AccessToken},
		{"bad signature", flipped},
		{"HS384", hs384},
		{"alg none", none},
		{"refresh token as access token", pair.RefreshToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Verify(tt.token)
			if !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("Verify() error = %v, want ErrTokenInvalid", err)
			}
		})
	}

	t.Run("access token as refresh token", func(t *testing.T) {
		if _, err := issuer.VerifyRefresh(pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("VerifyRefresh() error = %v, want ErrTokenInvalid", err)
		}
	})
}

func TestTokenIssuer_IssueRequiresCompleteIdentity(t *testing.T) {
	issuer := newTestIssuer(t, newFakeClock())

	if _, err := issuer.Issue(Identity{Role: authz.RoleAdmin}, false); err == nil {
		t.Error("Issue() without user id should fail")
	}
	if _, err := issuer.Issue(Identity{UserID: "u1", Role: "root"}, false); err == nil {
		t.Error("Issue() with unknown role should fail")
	}
}

// claimsToken signs a structurally valid access token with method.
func claimsToken(t *testing.T, method jwt.SigningMethod, key interface{}, now time.Time) string {
	t.Helper()
	claims := &accessClaims{
		Type:     accessTokenType,
		Username: testIdentity.Username,
		Role:     string(authz.RoleSuperAdmin),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "govportal",
			Subject:   testIdentity.UserID,
			Audience:  jwt.ClaimStrings{accessAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return s
}
