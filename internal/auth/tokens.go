// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/govportal/internal/authz"
	"github.com/tomtom215/govportal/internal/config"
)

const (
	accessTokenType  = "access"
	refreshTokenType = "refresh"

	accessAudience  = "govportal-admin"
	refreshAudience = "govportal-refresh"
)

// Identity is the verified caller asserted by an access token.
type Identity struct {
	UserID     string     `json:"id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	Role       authz.Role `json:"role"`
	Department string     `json:"department,omitempty"`
}

// TokenPair is the result of Issue.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

type accessClaims struct {
	Type       string `json:"typ"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	jwt.RegisteredClaims
}

// refreshClaims carry the user id (sub) and nothing else about the user.
type refreshClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenIssuer creates and verifies HS256 session tokens.
//
// Verification is self-contained: it checks the signature against the
// server secret and the expiry against the issuer's clock, and never
// consults the credential store. A role change or deactivation therefore
// takes effect on the user's next login or refresh, not on tokens already
// issued.
type TokenIssuer struct {
	secret      []byte
	issuer      string
	accessTTL   time.Duration
	rememberTTL time.Duration
	refreshTTL  time.Duration
	now         func() time.Time
}

// IssuerOption configures a TokenIssuer.
type IssuerOption func(*TokenIssuer)

// WithClock replaces time.Now. Tests use it to move past expiry.
func WithClock(now func() time.Time) IssuerOption {
	return func(t *TokenIssuer) { t.now = now }
}

// NewTokenIssuer builds an issuer from the security configuration.
//
// An empty or short secret is a misconfiguration and fails here rather than
// at the first request.
func NewTokenIssuer(cfg *config.SecurityConfig, opts ...IssuerOption) (*TokenIssuer, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but was empty")
	}
	if len(cfg.JWTSecret) < config.MinJWTSecretLength {
		return nil, fmt.Errorf("JWT_SECRET must be at least %d characters", config.MinJWTSecretLength)
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RememberMeTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, fmt.Errorf("token lifetimes must be positive")
	}

	t := &TokenIssuer{
		secret:      []byte(cfg.JWTSecret),
		issuer:      cfg.TokenIssuer,
		accessTTL:   cfg.AccessTokenTTL,
		rememberTTL: cfg.RememberMeTTL,
		refreshTTL:  cfg.RefreshTokenTTL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Issue signs an access token for id (24h, or 7d with rememberMe) and a
// refresh token (7d) carrying only the user id.
func (t *TokenIssuer) Issue(id Identity, rememberMe bool) (TokenPair, error) {
	if id.UserID == "" || !id.Role.Valid() {
		return TokenPair{}, fmt.Errorf("cannot issue token for incomplete identity")
	}

	now := t.now()
	accessTTL := t.accessTTL
	if rememberMe {
		accessTTL = t.rememberTTL
	}
	accessExp := now.Add(accessTTL)
	refreshExp := now.Add(t.refreshTTL)

	access := &accessClaims{
		Type:             accessTokenType,
		Username:         id.Username,
		Email:            id.Email,
		Role:             string(id.Role),
		Department:       id.Department,
		RegisteredClaims: t.registered(id.UserID, accessAudience, now, accessExp),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, access).SignedString(t.secret)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh := &refreshClaims{
		Type:             refreshTokenType,
		RegisteredClaims: t.registered(id.UserID, refreshAudience, now, refreshExp),
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refresh).SignedString(t.secret)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (t *TokenIssuer) registered(subject, audience string, now, exp time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    t.issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{audience},
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
}

// Verify checks an access token and returns the identity it asserts.
//
// Errors are always ErrTokenExpired or ErrTokenInvalid (wrapping the
// parser's reason). A refresh token is rejected as invalid.
func (t *TokenIssuer) Verify(token string) (Identity, error) {
	claims := &accessClaims{}
	if err := t.parse(token, claims, accessAudience); err != nil {
		return Identity{}, err
	}
	if claims.Type != accessTokenType {
		return Identity{}, newError(ErrTokenInvalid, fmt.Errorf("token type %q is not an access token", claims.Type))
	}

	role, err := authz.ParseRole(claims.Role)
	if err != nil {
		return Identity{}, newError(ErrTokenInvalid, err)
	}
	if claims.Subject == "" {
		return Identity{}, newError(ErrTokenInvalid, errors.New("token has no subject"))
	}

	return Identity{
		UserID:     claims.Subject,
		Username:   claims.Username,
		Email:      claims.Email,
		Role:       role,
		Department: claims.Department,
	}, nil
}

// VerifyRefresh checks a refresh token and returns the user id. An access
// token is rejected as invalid.
func (t *TokenIssuer) VerifyRefresh(token string) (string, error) {
	claims := &refreshClaims{}
	if err := t.parse(token, claims, refreshAudience); err != nil {
		return "", err
	}
	if claims.Type != refreshTokenType {
		return "", newError(ErrTokenInvalid, fmt.Errorf("token type %q is not a refresh token", claims.Type))
	}
	if claims.Subject == "" {
		return "", newError(ErrTokenInvalid, errors.New("token has no subject"))
	}
	return claims.Subject, nil
}

func (t *TokenIssuer) parse(token string, claims jwt.Claims, audience string) error {
	if token == "" {
		return ErrAuthRequired
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return newError(ErrTokenExpired, err)
		}
		return newError(ErrTokenInvalid, err)
	}
	if !parsed.Valid {
		return newError(ErrTokenInvalid, errors.New("token failed validation"))
	}
	return nil
}
