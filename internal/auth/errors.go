// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package auth

import (
	"errors"
	"net/http"
	"time"
)

// Kind classifies an authentication or authorization failure.
type Kind int

const (
	KindInvalidCredentials Kind = iota + 1
	KindAccountLocked
	KindAccountInactive
	KindTokenInvalid
	KindTokenExpired
	KindForbidden
	KindRateLimited
	KindBotVerificationFailed
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindAccountLocked:
		return "account_locked"
	case KindAccountInactive:
		return "account_inactive"
	case KindTokenInvalid:
		return "token_invalid"
	case KindTokenExpired:
		return "token_expired"
	case KindForbidden:
		return "forbidden"
	case KindRateLimited:
		return "rate_limited"
	case KindBotVerificationFailed:
		return "bot_verification_failed"
	default:
		return "unknown"
	}
}

// Status returns the HTTP status the kind maps to.
func (k Kind) Status() int {
	switch k {
	case KindInvalidCredentials, KindAccountLocked, KindAccountInactive, KindTokenInvalid, KindTokenExpired:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindBotVerificationFailed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified auth failure. Message is safe to show to clients.
type Error struct {
	Kind    Kind
	Message string

	// RetryAfter is set for KindRateLimited and KindAccountLocked.
	RetryAfter time.Duration

	// Err is the underlying cause, logged but never sent to clients.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind, so callers can write
// errors.Is(err, auth.ErrTokenExpired).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Status returns the HTTP status for the error.
func (e *Error) Status() int { return e.Kind.Status() }

const tokenMessage = "invalid or expired token"

var (
	ErrInvalidCredentials    = &Error{Kind: KindInvalidCredentials, Message: "invalid username or password"}
	ErrAccountLocked         = &Error{Kind: KindAccountLocked, Message: "account is temporarily locked due to repeated failed logins"}
	ErrAccountInactive       = &Error{Kind: KindAccountInactive, Message: "account is inactive"}
	ErrTokenInvalid          = &Error{Kind: KindTokenInvalid, Message: tokenMessage}
	ErrTokenExpired          = &Error{Kind: KindTokenExpired, Message: tokenMessage}
	ErrForbidden             = &Error{Kind: KindForbidden, Message: "insufficient permissions"}
	ErrRateLimited           = &Error{Kind: KindRateLimited, Message: "too many failed attempts, try again later"}
	ErrBotVerificationFailed = &Error{Kind: KindBotVerificationFailed, Message: "bot verification failed"}

	// ErrAuthRequired is a missing credential. It is a TokenInvalid.
	ErrAuthRequired = &Error{Kind: KindTokenInvalid, Message: "authentication required"}
)

// newError copies a sentinel and attaches a cause.
func newError(sentinel *Error, cause error) *Error {
	e := *sentinel
	e.Err = cause
	return &e
}

// AsError extracts an *Error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
