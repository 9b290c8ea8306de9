// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package logging

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Security event names. These are stable field values that alerting rules
// match on.
const (
	EventLoginSuccess      = "login_success"
	EventLoginFailed       = "login_failed"
	EventAccountLocked     = "account_locked"
	EventAccountInactive   = "account_inactive"
	EventAccountUnlocked   = "account_unlocked"
	EventIPBlocked         = "ip_blocked"
	EventRateLimited       = "rate_limited"
	EventPermissionDenied  = "permission_denied"
	EventTokenRejected     = "token_rejected"
	EventLogout            = "logout"
	EventCSRFFailed        = "csrf_failed"
	EventBotCheckFailed    = "bot_verification_failed"
	EventTokenRefreshed    = "token_refreshed"
	EventAccountStatusEdit = "account_status_changed"
)

// Lock reasons distinguish automatic lockout from an administrator's
// decision to deactivate an account.
const (
	ReasonFailedAttempts = "failed_attempts"
	ReasonAdminAction    = "admin_action"
)

// SecurityEvent is a security-relevant occurrence written to the log stream.
type SecurityEvent struct {
	Event     string
	UserID    string
	Username  string
	IPAddress string
	UserAgent string
	Success   bool
	Reason    string
	Details   map[string]string
}

// SecurityLogger writes authentication and authorization events with
// identifiers masked.
type SecurityLogger struct {
	logger zerolog.Logger
}

// NewSecurityLogger creates a security logger on top of the global logger.
func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{logger: With().Str("component", "security").Logger()}
}

// NewSecurityLoggerWithLogger creates a security logger on top of logger.
//
//nolint:gocritic // zerolog.Logger is passed by value
func NewSecurityLoggerWithLogger(logger zerolog.Logger) *SecurityLogger {
	return &SecurityLogger{logger: logger.With().Str("component", "security").Logger()}
}

// LogEvent writes event. Failures are logged at warn level.
func (l *SecurityLogger) LogEvent(event *SecurityEvent) {
	e := l.logger.Info()
	status := "success"
	if !event.Success {
		e = l.logger.Warn()
		status = "failed"
	}
	e = e.Str("event", event.Event).Str("status", status)

	if event.UserID != "" {
		e = e.Str("user_id", SanitizeUserID(event.UserID))
	}
	if event.Username != "" {
		e = e.Str("username", SanitizeUsername(event.Username))
	}
	if event.IPAddress != "" {
		e = e.Str("ip", event.IPAddress)
	}
	if event.UserAgent != "" {
		e = e.Str("user_agent", truncateString(event.UserAgent, 100))
	}
	if event.Reason != "" {
		e = e.Str("reason", SanitizeError(event.Reason))
	}
	for k, v := range event.Details {
		e = e.Str(k, SanitizeValue(k, v))
	}
	e.Msg("")
}

// LogLoginSuccess records an accepted login.
func (l *SecurityLogger) LogLoginSuccess(userID, username, ip, userAgent string) {
	l.LogEvent(&SecurityEvent{
		Event:     EventLoginSuccess,
		UserID:    userID,
		Username:  username,
		IPAddress: ip,
		UserAgent: userAgent,
		Success:   true,
	})
}

// LogLoginFailure records a rejected login.
func (l *SecurityLogger) LogLoginFailure(username, ip, userAgent, reason string) {
	l.LogEvent(&SecurityEvent{
		Event:     EventLoginFailed,
		Username:  username,
		IPAddress: ip,
		UserAgent: userAgent,
		Reason:    reason,
	})
}

// LogAccountLocked records an account locked after repeated failed passwords.
func (l *SecurityLogger) LogAccountLocked(userID, username, ip string, attempts int, until string) {
	l.LogEvent(&SecurityEvent{
		Event:     EventAccountLocked,
		UserID:    userID,
		Username:  username,
		IPAddress: ip,
		Reason:    ReasonFailedAttempts,
		Details: map[string]string{
			"failed_attempts": strconv.Itoa(attempts),
			"locked_until":    until,
		},
	})
}

// LogAccountInactive records a login attempt on an account an administrator
// deactivated.
func (l *SecurityLogger) LogAccountInactive(userID, username, ip string) {
	l.LogEvent(&SecurityEvent{
		Event:     EventAccountInactive,
		UserID:    userID,
		Username:  username,
		IPAddress: ip,
		Reason:    ReasonAdminAction,
	})
}

// LogIPBlocked records a client IP entering the blocked state.
func (l *SecurityLogger) LogIPBlocked(ip, until string) {
	l.LogEvent(&SecurityEvent{
		Event:     EventIPBlocked,
		IPAddress: ip,
		Reason:    ReasonFailedAttempts,
		Details:   map[string]string{"blocked_until": until},
	})
}

// LogRateLimited records a request rejected by the rate limiter.
func (l *SecurityLogger) LogRateLimited(ip, path string) {
	l.LogEvent(&SecurityEvent{
		Event:     EventRateLimited,
		IPAddress: ip,
		Details:   map[string]string{"path": path},
	})
}

// LogPermissionDenied records a request refused for lack of a permission.
func (l *SecurityLogger) LogPermissionDenied(userID, role, permission, ip, path string) {
	l.LogEvent(&SecurityEvent{
		Event:     EventPermissionDenied,
		UserID:    userID,
		IPAddress: ip,
		Details: map[string]string{
			"role":       role,
			"permission": permission,
			"path":       path,
		},
	})
}

// LogTokenRejected records a token that failed verification.
func (l *SecurityLogger) LogTokenRejected(ip, path, reason string) {
	l.LogEvent(&SecurityEvent{
		Event:     EventTokenRejected,
		IPAddress: ip,
		Reason:    reason,
		Details:   map[string]string{"path": path},
	})
}

// LogLogout records a logout.
func (l *SecurityLogger) LogLogout(userID, ip string) {
	l.LogEvent(&SecurityEvent{Event: EventLogout, UserID: userID, IPAddress: ip, Success: true})
}

// LogCSRFFailure records a CSRF validation failure.
func (l *SecurityLogger) LogCSRFFailure(ip, userAgent, path string) {
	l.LogEvent(&SecurityEvent{
		Event:     EventCSRFFailed,
		IPAddress: ip,
		UserAgent: userAgent,
		Details:   map[string]string{"path": path},
	})
}

// LogBotVerificationFailure records a failed Turnstile check.
func (l *SecurityLogger) LogBotVerificationFailure(ip, path, reason string) {
	l.LogEvent(&SecurityEvent{
		Event:     EventBotCheckFailed,
		IPAddress: ip,
		Reason:    reason,
		Details:   map[string]string{"path": path},
	})
}

// LogAccountStatusChange records an administrator activating, deactivating
// or unlocking an account.
func (l *SecurityLogger) LogAccountStatusChange(actorID, targetID, change string) {
	l.LogEvent(&SecurityEvent{
		Event:   EventAccountStatusEdit,
		UserID:  actorID,
		Success: true,
		Reason:  ReasonAdminAction,
		Details: map[string]string{"target_user_id": targetID, "change": change},
	})
}

// SanitizeToken masks a token, keeping the first and last four characters.
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeUserID masks a user ID.
func SanitizeUserID(userID string) string {
	if userID == "" {
		return ""
	}
	if len(userID) <= 8 {
		return "***"
	}
	return userID[:4] + "..." + userID[len(userID)-4:]
}

// SanitizeUsername keeps the first two characters of a username.
func SanitizeUsername(username string) string {
	if username == "" {
		return ""
	}
	if len(username) <= 2 {
		return "***"
	}
	return username[:2] + "***"
}

// SanitizeEmail masks the local part of an email address.
func SanitizeEmail(email string) string {
	if email == "" {
		return ""
	}
	at := strings.Index(email, "@")
	if at <= 0 {
		return "***"
	}
	local, domain := email[:at], email[at:]
	if len(local) <= 2 {
		return "***" + domain
	}
	return local[:2] + "***" + domain
}

// SanitizeError replaces messages that mention secrets with a generic text.
func SanitizeError(msg string) string {
	lower := strings.ToLower(msg)
	for _, pattern := range []string{"password", "secret", "bearer", "authorization", "cookie"} {
		if strings.Contains(lower, pattern) {
			return "authentication error"
		}
	}
	return truncateString(msg, 200)
}

var sensitiveKeys = map[string]bool{
	"access_token":  true,
	"refresh_token": true,
	"token":         true,
	"password":      true,
	"secret":        true,
	"authorization": true,
	"cookie":        true,
	"csrf_token":    true,
}

// SanitizeValue masks value when key names a secret or value looks like an
// email address.
func SanitizeValue(key, value string) string {
	if sensitiveKeys[strings.ToLower(key)] {
		return SanitizeToken(value)
	}
	if strings.Contains(value, "@") && strings.Contains(value, ".") {
		return SanitizeEmail(value)
	}
	return value
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
