// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/govportal/internal/audit"
)

// ListAuditEvents handles GET /api/v1/audit.
//
// Query parameters: type (repeatable), outcome, actor_id, target_id,
// source_ip, since, until (RFC3339), limit, offset, order=asc.
func (h *Handler) ListAuditEvents(w http.ResponseWriter, r *http.Request) {
	if !h.deps.Audit.Enabled() {
		respondError(w, r, http.StatusServiceUnavailable, "audit trail is disabled")
		return
	}

	filter, err := auditFilterFromQuery(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	events, err := h.deps.Audit.Query(r.Context(), filter)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}

	countFilter := filter
	countFilter.Limit, countFilter.Offset = 0, 0
	total, err := h.deps.Audit.Count(r.Context(), countFilter)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}

	respondOK(w, r, pagedData{
		Items: events,
		Page: PageMeta{
			Total:  total,
			Count:  len(events),
			Limit:  filter.Limit,
			Offset: filter.Offset,
		},
	})
}

// GetAuditEvent handles GET /api/v1/audit/{id}.
func (h *Handler) GetAuditEvent(w http.ResponseWriter, r *http.Request) {
	if !h.deps.Audit.Enabled() {
		respondError(w, r, http.StatusServiceUnavailable, "audit trail is disabled")
		return
	}

	event, err := h.deps.Audit.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	respondOK(w, r, event)
}
