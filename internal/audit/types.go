// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package audit

import (
	"context"
	"errors"
	"time"
)

// EventType categorizes audit events.
type EventType string

const (
	EventLoginSuccess    EventType = "auth.login.success"
	EventLoginFailure    EventType = "auth.login.failure"
	EventAccountLocked   EventType = "auth.account.locked"
	EventAccountInactive EventType = "auth.account.inactive"
	EventAccountUnlocked EventType = "auth.account.unlocked"
	EventLogout          EventType = "auth.logout"
	EventTokenRefreshed  EventType = "auth.token.refreshed"
	EventBotRejected     EventType = "auth.bot.rejected"
	EventCSRFRejected    EventType = "auth.csrf.rejected"

	EventPermissionDenied EventType = "authz.denied"
	EventRateLimited      EventType = "ratelimit.blocked"

	EventUserCreated       EventType = "user.created"
	EventUserStatusChanged EventType = "user.status_changed"
	EventUserDeleted       EventType = "user.deleted"

	EventContentChanged   EventType = "content.changed"
	EventContactSubmitted EventType = "contact.submitted"
	EventContactDeleted   EventType = "contact.deleted"
)

// Severity indicates how urgently an operator should look at an event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeverityWarning:  1,
	SeverityCritical: 2,
}

// AtLeast reports whether s is as severe as floor. Unknown severities rank
// as info.
func (s Severity) AtLeast(floor Severity) bool {
	return severityRank[s] >= severityRank[floor]
}

// Outcome is the result of the audited action.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event is a single audit record.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Severity  Severity  `json:"severity"`
	Outcome   Outcome   `json:"outcome"`

	Actor  Actor   `json:"actor"`
	Target *Target `json:"target,omitempty"`

	SourceIP  string `json:"source_ip"`
	UserAgent string `json:"user_agent,omitempty"`

	Action   string            `json:"action"`
	Detail   string            `json:"detail,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`

	RequestID string `json:"request_id,omitempty"`
}

// Actor is who performed the action. Anonymous callers have an empty ID and
// the attempted username, if any.
type Actor struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Target is what the action was performed on.
type Target struct {
	ID   string `json:"id"`
	Kind string `json:"kind"` // user, content, contact, permission
	Name string `json:"name,omitempty"`
}

// Filter selects events for Query and Count. Zero fields match everything.
type Filter struct {
	Types       []EventType
	Outcome     Outcome
	ActorID     string
	TargetID    string
	SourceIP    string
	Since       time.Time
	Until       time.Time
	Limit       int
	Offset      int
	OldestFirst bool
}

// DefaultQueryLimit caps Query when Filter.Limit is unset.
const DefaultQueryLimit = 100

// MaxQueryLimit is the largest page the API hands out.
const MaxQueryLimit = 1000

// ErrNotFound is returned by Get for an unknown event id.
var ErrNotFound = errors.New("audit event not found")

// Store persists audit events.
type Store interface {
	Save(ctx context.Context, event *Event) error
	Get(ctx context.Context, id string) (*Event, error)
	// Query returns matching events, newest first unless OldestFirst is set.
	Query(ctx context.Context, filter Filter) ([]Event, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	// Purge deletes events older than cutoff and returns how many it removed.
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}

func (f Filter) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultQueryLimit
	case f.Limit > MaxQueryLimit:
		return MaxQueryLimit
	default:
		return f.Limit
	}
}

func (f Filter) matches(e *Event) bool {
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if e.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Outcome != "" && e.Outcome != f.Outcome {
		return false
	}
	if f.ActorID != "" && e.Actor.ID != f.ActorID {
		return false
	}
	if f.TargetID != "" && (e.Target == nil || e.Target.ID != f.TargetID) {
		return false
	}
	if f.SourceIP != "" && e.SourceIP != f.SourceIP {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
		return false
	}
	return true
}
