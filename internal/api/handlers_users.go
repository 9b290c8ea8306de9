// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/govportal/internal/auth"
	"github.com/tomtom215/govportal/internal/users"
)

// ListUsers handles GET /api/v1/users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.Auth.ListUsers(r.Context())
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	out := make([]userResponse, len(list))
	for i, u := range list {
		out[i] = h.toUserResponse(u, false)
	}
	respondOK(w, r, out)
}

// GetUser handles GET /api/v1/users/{id}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.deps.Auth.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	respondOK(w, r, h.toUserResponse(u, true))
}

// CreateUser handles POST /api/v1/users.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	var in auth.CreateUserInput
	if !decodeAndValidate(w, r, &in, func() { in.Username = users.NormalizeUsername(in.Username) }) {
		return
	}

	u, err := h.deps.Auth.CreateUser(r.Context(), actor, in, requestMeta(r))
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	respondCreated(w, r, h.toUserResponse(u, false))
}

// SetUserActive handles PUT /api/v1/users/{id}/active.
func (h *Handler) SetUserActive(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	var req SetActiveRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	u, err := h.deps.Auth.SetActive(r.Context(), actor, chi.URLParam(r, "id"), *req.Active, requestMeta(r))
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	respondOK(w, r, h.toUserResponse(u, false))
}

// UnlockUser handles POST /api/v1/users/{id}/unlock.
func (h *Handler) UnlockUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	u, err := h.deps.Auth.Unlock(r.Context(), actor, chi.URLParam(r, "id"), requestMeta(r))
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	respondOK(w, r, h.toUserResponse(u, false))
}

// DeleteUser handles DELETE /api/v1/users/{id}.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.deps.Auth.DeleteUser(r.Context(), actor, id, requestMeta(r)); err != nil {
		writeAuthError(w, r, err)
		return
	}
	respondOK(w, r, map[string]string{"deleted": id})
}
