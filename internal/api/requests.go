// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/govportal/internal/audit"
	"github.com/tomtom215/govportal/internal/validation"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

var errMalformedBody = errors.New("malformed request body")

// ContactForm is the public contact form.
type ContactForm struct {
	Name           string `json:"name" validate:"required,max=100"`
	Email          string `json:"email" validate:"required,email,max=254"`
	Phone          string `json:"phone" validate:"omitempty,phone,max=32"`
	Subject        string `json:"subject" validate:"required,max=200"`
	Message        string `json:"message" validate:"required,max=5000"`
	TurnstileToken string `json:"turnstileToken" validate:"max=2048"`
}

// SetActiveRequest toggles an account. Active is a pointer so that a
// missing field is a validation error rather than false.
type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// ContentItemRequest is the body for creating or replacing a content item.
type ContentItemRequest struct {
	Title     string `json:"title" validate:"required,max=200"`
	Body      string `json:"body" validate:"max=100000"`
	Published bool   `json:"published"`
}

// decodeJSON reads one JSON object into dst. Unknown fields and trailing
// data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errMalformedBody
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errMalformedBody
	}
	return nil
}

// decodeAndValidate writes the 400 response itself and reports whether
// the handler may continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any, normalize ...func()) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return false
	}
	for _, fn := range normalize {
		fn()
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		respondValidation(w, r, verr)
		return false
	}
	return true
}

// auditFilterFromQuery parses GET /audit query parameters. Malformed
// values are errors rather than silently ignored.
func auditFilterFromQuery(r *http.Request) (audit.Filter, error) {
	q := r.URL.Query()
	f := audit.Filter{
		ActorID:  q.Get("actor_id"),
		TargetID: q.Get("target_id"),
		SourceIP: q.Get("source_ip"),
	}

	for _, t := range q["type"] {
		f.Types = append(f.Types, audit.EventType(t))
	}

	switch o := audit.Outcome(q.Get("outcome")); o {
	case "", audit.OutcomeSuccess, audit.OutcomeFailure:
		f.Outcome = o
	default:
		return f, errors.New("outcome must be success or failure")
	}

	var err error
	if f.Since, err = parseTimeParam(q.Get("since"), "since"); err != nil {
		return f, err
	}
	if f.Until, err = parseTimeParam(q.Get("until"), "until"); err != nil {
		return f, err
	}
	if !f.Since.IsZero() && !f.Until.IsZero() && f.Until.Before(f.Since) {
		return f, errors.New("until must not be before since")
	}

	if f.Limit, err = parseIntParam(q.Get("limit"), "limit", audit.DefaultQueryLimit); err != nil {
		return f, err
	}
	f.Limit = min(f.Limit, audit.MaxQueryLimit)
	if f.Offset, err = parseIntParam(q.Get("offset"), "offset", 0); err != nil {
		return f, err
	}
	f.OldestFirst = q.Get("order") == "asc"
	return f, nil
}

func parseTimeParam(v, name string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, errors.New(name + " must be an RFC3339 timestamp")
	}
	return t, nil
}

func parseIntParam(v, name string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return n, nil
}
