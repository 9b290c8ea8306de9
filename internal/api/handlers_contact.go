// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/govportal/internal/audit"
	"github.com/tomtom215/govportal/internal/auth"
	"github.com/tomtom215/govportal/internal/content"
	"github.com/tomtom215/govportal/internal/events"
	"github.com/tomtom215/govportal/internal/logging"
)

// SubmitContact handles POST /api/v1/contact. It sits behind the attempt
// gate; a failed bot check counts against the client IP.
func (h *Handler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var form ContactForm
	if !decodeAndValidate(w, r, &form, func() {
		form.Name = strings.TrimSpace(form.Name)
		form.Email = strings.TrimSpace(form.Email)
		form.Subject = strings.TrimSpace(form.Subject)
	}) {
		return
	}

	ctx := r.Context()
	meta := requestMeta(r)

	if err := h.deps.Bot.Verify(ctx, form.TurnstileToken, meta.IP); err != nil {
		h.security.LogBotVerificationFailure(meta.IP, r.URL.Path, err.Error())
		if _, rerr := h.deps.Limiter.RecordFailedAttempt(ctx, meta.IP); rerr != nil {
			writeAuthError(w, r, rerr)
			return
		}
		h.deps.Audit.Record(ctx, &audit.Event{
			Type:      audit.EventBotRejected,
			Severity:  audit.SeverityWarning,
			Outcome:   audit.OutcomeFailure,
			SourceIP:  meta.IP,
			UserAgent: meta.UserAgent,
			Action:    "contact.submit",
			Detail:    "bot verification failed",
		})
		writeAuthError(w, r, auth.ErrBotVerificationFailed)
		return
	}

	stored := h.deps.Content.AddContact(ctx, content.Contact{
		Name:    form.Name,
		Email:   form.Email,
		Phone:   form.Phone,
		Subject: form.Subject,
		Message: form.Message,
	})

	// The submission is already stored; a bus outage must not lose it or
	// fail the visitor's request.
	if h.deps.Events != nil {
		err := h.deps.Events.PublishContact(ctx, &events.ContactSubmission{
			ID:          stored.ID,
			Name:        stored.Name,
			Email:       stored.Email,
			Phone:       stored.Phone,
			Subject:     stored.Subject,
			Message:     stored.Message,
			SourceIP:    meta.IP,
			SubmittedAt: stored.SubmittedAt,
		})
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("contact_id", stored.ID).Msg("Failed to publish contact submission")
		}
	}

	h.deps.Audit.Record(ctx, &audit.Event{
		Type:      audit.EventContactSubmitted,
		Severity:  audit.SeverityInfo,
		Outcome:   audit.OutcomeSuccess,
		Target:    &audit.Target{ID: stored.ID, Kind: "contact", Name: stored.Subject},
		SourceIP:  meta.IP,
		UserAgent: meta.UserAgent,
		Action:    "contact.submit",
	})
	respondCreated(w, r, map[string]string{"id": stored.ID})
}

// ListContacts handles GET /api/v1/contact.
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	respondOK(w, r, h.deps.Content.Contacts(r.Context()))
}

// DeleteContact handles DELETE /api/v1/contact/{id}.
func (h *Handler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	contactID := chi.URLParam(r, "id")
	if err := h.deps.Content.DeleteContact(r.Context(), contactID); err != nil {
		writeAuthError(w, r, err)
		return
	}

	meta := requestMeta(r)
	h.deps.Audit.Record(r.Context(), &audit.Event{
		Type:      audit.EventContactDeleted,
		Severity:  audit.SeverityInfo,
		Outcome:   audit.OutcomeSuccess,
		Actor:     audit.Actor{ID: id.UserID, Username: id.Username, Role: string(id.Role)},
		Target:    &audit.Target{ID: contactID, Kind: "contact"},
		SourceIP:  meta.IP,
		UserAgent: meta.UserAgent,
		Action:    "contact.delete",
	})
	respondOK(w, r, map[string]string{"deleted": contactID})
}
