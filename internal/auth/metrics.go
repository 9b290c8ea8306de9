// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginAttemptsTotal counts login attempts.
	// Labels:
	//   - outcome: "success", "invalid_credentials", "account_locked",
	//     "account_inactive", "rate_limited", "bot_verification_failed", "error"
	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Total number of login attempts by outcome",
		},
		[]string{"outcome"},
	)

	// GateDecisionsTotal counts request gate outcomes.
	// Labels:
	//   - outcome: "allowed", "unauthenticated", "forbidden", "rate_limited", "error"
	GateDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_gate_decisions_total",
			Help: "Total number of request gate decisions by outcome",
		},
		[]string{"outcome"},
	)

	// TokenFailuresTotal counts rejected tokens.
	// Labels:
	//   - reason: "missing", "invalid", "expired"
	TokenFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_failures_total",
			Help: "Total number of rejected session tokens by reason",
		},
		[]string{"reason"},
	)

	// RateLimitRejectionsTotal counts requests rejected by the failed-attempt limiter.
	RateLimitRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_rate_limit_rejections_total",
			Help: "Total number of requests rejected because the client IP is blocked",
		},
	)

	// IPBlocksTotal counts transitions of an IP into the blocked state.
	IPBlocksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_ip_blocks_total",
			Help: "Total number of client IPs blocked after repeated failures",
		},
	)

	// AccountLockoutsTotal counts accounts locked after repeated wrong passwords.
	AccountLockoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_account_lockouts_total",
			Help: "Total number of account lockouts",
		},
	)

	// CSRFFailuresTotal counts rejected state-changing requests.
	CSRFFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_csrf_failures_total",
			Help: "Total number of requests rejected by CSRF validation",
		},
	)

	// BotVerificationDuration measures Turnstile siteverify latency.
	// Labels:
	//   - result: "pass", "fail", "error", "circuit_open"
	BotVerificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auth_bot_verification_duration_seconds",
			Help:    "Duration of bot verification calls in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"result"},
	)
)

// RecordLoginAttempt records a login outcome.
func RecordLoginAttempt(outcome string) {
	LoginAttemptsTotal.WithLabelValues(outcome).Inc()
}

// RecordGateDecision records a gate outcome.
func RecordGateDecision(outcome string) {
	GateDecisionsTotal.WithLabelValues(outcome).Inc()
}

// RecordTokenFailure records a rejected token.
func RecordTokenFailure(reason string) {
	TokenFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordIPBlocked records an IP entering the blocked state.
func RecordIPBlocked() {
	IPBlocksTotal.Inc()
}

// RecordBotVerification records one verification call.
func RecordBotVerification(result string, d time.Duration) {
	BotVerificationDuration.WithLabelValues(result).Observe(d.Seconds())
}

// loginOutcome maps a Login error to its outcome label.
func loginOutcome(err error) string {
	if err == nil {
		return "success"
	}
	if e, ok := AsError(err); ok {
		return e.Kind.String()
	}
	return "error"
}
