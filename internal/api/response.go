// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/govportal/internal/audit"
	"github.com/tomtom215/govportal/internal/auth"
	"github.com/tomtom215/govportal/internal/authz"
	"github.com/tomtom215/govportal/internal/content"
	"github.com/tomtom215/govportal/internal/logging"
	"github.com/tomtom215/govportal/internal/users"
	"github.com/tomtom215/govportal/internal/validation"
)

// APIResponse is the envelope every JSON endpoint answers with.
type APIResponse struct {
	Success bool `json:"success"`

	// Data is the payload on success.
	Data any `json:"data,omitempty"`

	// Error is a client-safe message on failure.
	Error string `json:"error,omitempty"`

	// Details carries field-level validation failures.
	Details []validation.FieldError `json:"details,omitempty"`

	RequestID string `json:"requestId,omitempty"`
}

// PageMeta accompanies list responses that support offset paging.
type PageMeta struct {
	Total  int64 `json:"total"`
	Count  int   `json:"count"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

type pagedData struct {
	Items any      `json:"items"`
	Page  PageMeta `json:"page"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func respondOK(w http.ResponseWriter, r *http.Request, data any) {
	respondJSON(w, http.StatusOK, APIResponse{
		Success:   true,
		Data:      data,
		RequestID: logging.RequestIDFromContext(r.Context()),
	})
}

func respondCreated(w http.ResponseWriter, r *http.Request, data any) {
	respondJSON(w, http.StatusCreated, APIResponse{
		Success:   true,
		Data:      data,
		RequestID: logging.RequestIDFromContext(r.Context()),
	})
}

func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	respondJSON(w, status, APIResponse{
		Error:     message,
		RequestID: logging.RequestIDFromContext(r.Context()),
	})
}

func respondValidation(w http.ResponseWriter, r *http.Request, verr *validation.RequestValidationError) {
	respondJSON(w, http.StatusBadRequest, APIResponse{
		Error:     "validation failed",
		Details:   verr.Fields(),
		RequestID: logging.RequestIDFromContext(r.Context()),
	})
}

// writeAuthError maps a use-case error onto the envelope. Auth taxonomy
// errors keep their status and message; known store sentinels get their
// natural status; everything else is logged and hidden behind a 500.
func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	if e, ok := auth.AsError(err); ok {
		auth.WriteError(w, e)
		return
	}

	switch {
	case errors.Is(err, users.ErrNotFound),
		errors.Is(err, content.ErrNotFound),
		errors.Is(err, audit.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, users.ErrDuplicateUsername):
		respondError(w, r, http.StatusConflict, "username already exists")
	case errors.Is(err, auth.ErrSelfModification):
		respondError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, authz.ErrUnknownRole):
		respondError(w, r, http.StatusBadRequest, "unknown role")
	case errors.Is(err, content.ErrUnknownKind):
		respondError(w, r, http.StatusNotFound, "unknown content kind")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		respondError(w, r, http.StatusInternalServerError, "internal server error")
	}
}
