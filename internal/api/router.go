// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/govportal/internal/authz"
	"github.com/tomtom215/govportal/internal/content"
	"github.com/tomtom215/govportal/internal/middleware"
)

// Router wires handlers, the gate and infrastructure middleware.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter validates deps and builds the router.
func NewRouter(deps Dependencies) (*Router, error) {
	h, err := NewHandler(deps)
	if err != nil {
		return nil, err
	}
	return &Router{
		handler:       h,
		chiMiddleware: NewChiMiddleware(ChiMiddlewareConfigFrom(deps.Config)),
	}, nil
}

// csrf returns the CSRF middleware, or a pass-through when disabled.
func (router *Router) csrf() func(http.Handler) http.Handler {
	if p := router.handler.deps.CSRF; p != nil {
		return p.Protect
	}
	return func(next http.Handler) http.Handler { return next }
}

// protect is the admin chain: the gate first, so an anonymous caller gets
// 401 and never a CSRF 403, then CSRF on state-changing methods.
func (router *Router) protect(p authz.Permission) chi.Middlewares {
	return chi.Middlewares{router.handler.deps.Gate.Protect(p), router.csrf()}
}

// Handler builds the HTTP handler.
func (router *Router) Handler() http.Handler {
	h := router.handler
	gate := h.deps.Gate

	r := chi.NewRouter()

	// Applied to every route, in order.
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(h.deps.IPs.Middleware)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.Prometheus)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/health", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Get("/", h.Health)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(chimiddleware.Compress(5, "application/json"))

		r.Route("/auth", func(r chi.Router) {
			r.With(gate.AttemptSensitive()).Post("/login", h.Login)
			r.With(router.csrf()).Post("/logout", h.Logout)
			r.With(router.csrf()).Post("/refresh", h.Refresh)
			r.With(gate.Authenticated()).Get("/me", h.Me)
			r.Get("/csrf", h.CSRFToken)
			r.Get("/permissions", h.Permissions)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(router.protect(authz.PermViewUsers)...).Get("/", h.ListUsers)
			r.With(router.protect(authz.PermCreateUser)...).Post("/", h.CreateUser)
			r.With(router.protect(authz.PermViewUsers)...).Get("/{id}", h.GetUser)
			r.With(router.protect(authz.PermUpdateUser)...).Put("/{id}/active", h.SetUserActive)
			r.With(router.protect(authz.PermManageUsers)...).Post("/{id}/unlock", h.UnlockUser)
			r.With(router.protect(authz.PermDeleteUser)...).Delete("/{id}", h.DeleteUser)
		})

		r.Route("/audit", func(r chi.Router) {
			r.Use(router.protect(authz.PermViewAuditLogs)...)
			r.Get("/", h.ListAuditEvents)
			r.Get("/{id}", h.GetAuditEvent)
		})

		r.Route("/content", func(r chi.Router) {
			r.With(gate.ProtectAny(content.CreatePermissions()...)).Get("/", h.ContentSummary)

			for _, kind := range content.Kinds() {
				base := "/" + string(kind)
				r.Get(base, h.ListContent(kind))
				r.With(router.protect(kind.Permission(content.ActionCreate))...).Post(base, h.CreateContent(kind))
				r.With(router.protect(kind.Permission(content.ActionUpdate))...).Put(base+"/{id}", h.UpdateContent(kind))
				r.With(router.protect(kind.Permission(content.ActionDelete))...).Delete(base+"/{id}", h.DeleteContent(kind))
			}
		})

		r.Route("/contact", func(r chi.Router) {
			r.With(gate.AttemptSensitive()).Post("/", h.SubmitContact)
			r.With(router.protect(authz.PermViewContacts)...).Get("/", h.ListContacts)
			r.With(router.protect(authz.PermDeleteContact)...).Delete("/{id}", h.DeleteContact)
		})
	})

	return r
}
