// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/govportal/internal/audit"
	"github.com/tomtom215/govportal/internal/auth"
	"github.com/tomtom215/govportal/internal/content"
)

type contentSummary struct {
	Counts   map[content.Kind]int `json:"counts"`
	Editable []content.Kind       `json:"editable"`
}

// ContentSummary handles GET /api/v1/content: item counts plus the kinds
// the caller may create.
func (h *Handler) ContentSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	authorizer := h.deps.Gate.Authorizer()
	editable := []content.Kind{}
	for _, k := range content.Kinds() {
		if authorizer.Allowed(id.Role, k.Permission(content.ActionCreate)) {
			editable = append(editable, k)
		}
	}
	respondOK(w, r, contentSummary{
		Counts:   h.deps.Content.Counts(r.Context()),
		Editable: editable,
	})
}

// ListContent returns the public GET /api/v1/content/{kind} handler for
// kind. The public site only sees published items.
func (h *Handler) ListContent(kind content.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := h.deps.Content.List(r.Context(), kind)
		if err != nil {
			writeAuthError(w, r, err)
			return
		}
		published := make([]content.Item, 0, len(items))
		for _, it := range items {
			if it.Published {
				published = append(published, it)
			}
		}
		respondOK(w, r, published)
	}
}

// CreateContent returns the POST /api/v1/content/{kind} handler for kind.
func (h *Handler) CreateContent(kind content.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity(w, r)
		if !ok {
			return
		}

		var req ContentItemRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		item, err := h.deps.Content.Create(r.Context(), kind, req.item(), id.UserID)
		if err != nil {
			writeAuthError(w, r, err)
			return
		}
		h.recordContentChange(r, id, kind, item.ID, "create")
		respondCreated(w, r, item)
	}
}

// UpdateContent returns the PUT /api/v1/content/{kind}/{id} handler for kind.
func (h *Handler) UpdateContent(kind content.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity(w, r)
		if !ok {
			return
		}

		var req ContentItemRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		item, err := h.deps.Content.Update(r.Context(), kind, chi.URLParam(r, "id"), req.item())
		if err != nil {
			writeAuthError(w, r, err)
			return
		}
		h.recordContentChange(r, id, kind, item.ID, "update")
		respondOK(w, r, item)
	}
}

// DeleteContent returns the DELETE /api/v1/content/{kind}/{id} handler for kind.
func (h *Handler) DeleteContent(kind content.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity(w, r)
		if !ok {
			return
		}

		itemID := chi.URLParam(r, "id")
		if err := h.deps.Content.Delete(r.Context(), kind, itemID); err != nil {
			writeAuthError(w, r, err)
			return
		}
		h.recordContentChange(r, id, kind, itemID, "delete")
		respondOK(w, r, map[string]string{"deleted": itemID})
	}
}

func (req ContentItemRequest) item() content.Item {
	return content.Item{Title: req.Title, Body: req.Body, Published: req.Published}
}

func (h *Handler) recordContentChange(r *http.Request, id auth.Identity, kind content.Kind, itemID, action string) {
	meta := requestMeta(r)
	h.deps.Audit.Record(r.Context(), &audit.Event{
		Type:      audit.EventContentChanged,
		Severity:  audit.SeverityInfo,
		Outcome:   audit.OutcomeSuccess,
		Actor:     audit.Actor{ID: id.UserID, Username: id.Username, Role: string(id.Role)},
		Target:    &audit.Target{ID: itemID, Kind: "content", Name: string(kind)},
		SourceIP:  meta.IP,
		UserAgent: meta.UserAgent,
		Action:    action + " " + string(kind),
	})
}
