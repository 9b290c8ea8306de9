// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/govportal/internal/auth"
	"github.com/tomtom215/govportal/internal/authz"
	"github.com/tomtom215/govportal/internal/users"
)

// userResponse is the public view of an account.
type userResponse struct {
	ID          string             `json:"id"`
	Username    string             `json:"username"`
	Email       string             `json:"email"`
	DisplayName string             `json:"displayName,omitempty"`
	Department  string             `json:"department,omitempty"`
	Role        authz.Role         `json:"role"`
	Active      bool               `json:"active"`
	Locked      bool               `json:"locked"`
	LastLogin   *time.Time         `json:"lastLogin,omitempty"`
	Permissions []authz.Permission `json:"permissions,omitempty"`
}

// loginResponse is flat rather than wrapped in data, matching what the
// admin frontend reads.
type loginResponse struct {
	Success     bool         `json:"success"`
	User        userResponse `json:"user"`
	AccessToken string       `json:"accessToken"`
	ExpiresAt   time.Time    `json:"expiresAt"`
}

type meResponse struct {
	User              auth.Identity      `json:"user"`
	Permissions       []authz.Permission `json:"permissions"`
	PermissionVersion int                `json:"permissionVersion"`
}

type permissionsResponse struct {
	Version     int                               `json:"version"`
	Permissions []authz.Permission                `json:"permissions"`
	Roles       map[authz.Role][]authz.Permission `json:"roles"`
	Engine      string                            `json:"engine"`
}

type csrfResponse struct {
	Enabled    bool   `json:"enabled"`
	Token      string `json:"token,omitempty"`
	HeaderName string `json:"headerName,omitempty"`
}

func (h *Handler) toUserResponse(u *users.User, withPermissions bool) userResponse {
	out := userResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Department:  u.Department,
		Role:        u.Role,
		Active:      u.Active,
		Locked:      u.IsLocked(time.Now()),
	}
	if !u.LastLogin.IsZero() {
		t := u.LastLogin
		out.LastLogin = &t
	}
	if withPermissions {
		out.Permissions = h.permissionsFor(u.Role)
	}
	return out
}

// permissionsFor lists what role may do according to the active engine.
func (h *Handler) permissionsFor(role authz.Role) []authz.Permission {
	authorizer := h.deps.Gate.Authorizer()
	var out []authz.Permission
	for _, p := range authz.AllPermissions() {
		if authorizer.Allowed(role, p) {
			out = append(out, p)
		}
	}
	return out
}

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if !decodeAndValidate(w, r, &req, func() { req.Username = strings.TrimSpace(req.Username) }) {
		return
	}

	session, err := h.deps.Auth.Login(r.Context(), req, requestMeta(r))
	if err != nil {
		writeAuthError(w, r, err)
		return
	}

	h.deps.Cookies.SetSession(w, session.Tokens)
	respondJSON(w, http.StatusOK, loginResponse{
		Success:     true,
		User:        h.toUserResponse(session.User, true),
		AccessToken: session.Tokens.AccessToken,
		ExpiresAt:   session.Tokens.AccessExpiresAt,
	})
}

// Logout handles POST /api/v1/auth/logout. Cookies are cleared even when
// the access token is already expired; the audit event needs a valid one.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := auth.TokenFromRequest(r); ok {
		if id, err := h.deps.Issuer.Verify(token); err == nil {
			h.deps.Auth.Logout(r.Context(), id, requestMeta(r))
		}
	}
	h.deps.Cookies.ClearSession(w)
	respondOK(w, r, map[string]bool{"loggedOut": true})
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.RefreshTokenFromRequest(r)
	if !ok {
		auth.WriteError(w, auth.ErrAuthRequired)
		return
	}

	session, err := h.deps.Auth.Refresh(r.Context(), token, requestMeta(r))
	if err != nil {
		if _, isAuth := auth.AsError(err); isAuth {
			h.deps.Cookies.ClearSession(w)
		}
		writeAuthError(w, r, err)
		return
	}

	h.deps.Cookies.SetSession(w, session.Tokens)
	respondJSON(w, http.StatusOK, loginResponse{
		Success:     true,
		User:        h.toUserResponse(session.User, true),
		AccessToken: session.Tokens.AccessToken,
		ExpiresAt:   session.Tokens.AccessExpiresAt,
	})
}

// Me handles GET /api/v1/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	respondOK(w, r, meResponse{
		User:              id,
		Permissions:       h.permissionsFor(id.Role),
		PermissionVersion: authz.PermissionVersion,
	})
}

// Permissions handles GET /api/v1/auth/permissions: the closed, versioned
// permission list and the role table.
func (h *Handler) Permissions(w http.ResponseWriter, r *http.Request) {
	roles := make(map[authz.Role][]authz.Permission, len(authz.AllRoles()))
	for _, role := range authz.AllRoles() {
		roles[role] = h.permissionsFor(role)
	}
	respondOK(w, r, permissionsResponse{
		Version:     authz.PermissionVersion,
		Permissions: authz.AllPermissions(),
		Roles:       roles,
		Engine:      h.deps.Gate.Authorizer().Engine(),
	})
}

// CSRFToken handles GET /api/v1/auth/csrf.
func (h *Handler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	if h.deps.CSRF == nil {
		respondOK(w, r, csrfResponse{Enabled: false})
		return
	}
	token, err := h.deps.CSRF.Token(w, r)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	respondOK(w, r, csrfResponse{Enabled: true, Token: token, HeaderName: h.deps.CSRF.HeaderName()})
}
