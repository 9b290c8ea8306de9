// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

// Package validation validates request DTOs with go-playground/validator.
//
// A single validator instance is shared process-wide; it caches struct
// metadata and is safe for concurrent use. Field names in errors are taken
// from the json tag, so they match what the client sent:
//
//	type ContactForm struct {
//	    Email string `json:"email" validate:"required,email"`
//	}
//
//	if verr := validation.ValidateStruct(&form); verr != nil {
//	    // verr.Fields() -> [{Field: "email", Tag: "email", Message: "email must be a valid email address"}]
//	}
//
// Custom tags:
//   - username: 3 to 64 characters of lowercase letters, digits, '.', '_' or '-'
//   - phone: digits with optional leading '+', spaces, dashes and parentheses
package validation
