// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/govportal/internal/audit"
	"github.com/tomtom215/govportal/internal/auth"
	"github.com/tomtom215/govportal/internal/config"
	"github.com/tomtom215/govportal/internal/content"
	"github.com/tomtom215/govportal/internal/events"
	"github.com/tomtom215/govportal/internal/logging"
)

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// Dependencies is everything the HTTP layer needs. CSRF and Events may be
// nil (disabled); Audit may be nil.
type Dependencies struct {
	Config  *config.Config
	Auth    *auth.Authenticator
	Issuer  *auth.TokenIssuer
	Gate    *auth.Gate
	Limiter *auth.RateLimiter
	Bot     auth.BotVerifier
	IPs     *auth.ClientIPResolver
	Cookies *auth.CookieWriter
	CSRF    *auth.CSRFProtector
	Content *content.Store
	Events  *events.Publisher
	Audit   *audit.Logger

	HealthChecks map[string]HealthCheck
	Version      string
}

func (d *Dependencies) validate() error {
	switch {
	case d.Config == nil:
		return errors.New("api: config is required")
	case d.Auth == nil, d.Issuer == nil, d.Gate == nil, d.Limiter == nil:
		return errors.New("api: authenticator, issuer, gate and limiter are required")
	case d.Bot == nil, d.IPs == nil, d.Cookies == nil:
		return errors.New("api: bot verifier, client IP resolver and cookie writer are required")
	case d.Content == nil:
		return errors.New("api: content store is required")
	}
	return nil
}

// Handler holds the route handlers.
type Handler struct {
	deps      Dependencies
	security  *logging.SecurityLogger
	startTime time.Time
}

// NewHandler validates deps and returns the handlers.
func NewHandler(deps Dependencies) (*Handler, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}
	return &Handler{
		deps:      deps,
		security:  logging.NewSecurityLogger(),
		startTime: time.Now(),
	}, nil
}

// requestMeta describes the caller for use cases and audit events.
func requestMeta(r *http.Request) auth.RequestMeta {
	return auth.RequestMeta{
		IP:        auth.ClientIPFromContext(r.Context()),
		UserAgent: r.UserAgent(),
	}
}

// identity returns the verified caller. Routes behind the gate always have
// one; a missing identity is a wiring bug and fails closed.
func identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		auth.WriteError(w, auth.ErrAuthRequired)
		return auth.Identity{}, false
	}
	return id, true
}
