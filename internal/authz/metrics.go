// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package authz

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthzDecisionsTotal counts permission decisions by role, permission,
	// engine and outcome. Both label sets are closed, so cardinality is
	// bounded by the role table.
	AuthzDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Total number of authorization decisions",
		},
		[]string{"role", "permission", "engine", "decision"},
	)

	// AuthzDecisionDuration tracks the latency of permission decisions.
	AuthzDecisionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "authz_decision_duration_seconds",
			Help:    "Duration of authorization decisions in seconds",
			Buckets: []float64{0.000001, 0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005},
		},
		[]string{"engine"},
	)

	// AuthzDeniedTotal tracks denied requests for alerting.
	AuthzDeniedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_denied_total",
			Help: "Total number of authorization denials (for alerting)",
		},
		[]string{"role", "permission"},
	)
)

// RecordAuthzDecision records one permission decision.
func RecordAuthzDecision(engine string, role Role, permission Permission, allowed bool, duration time.Duration) {
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	roleLabel := string(role)
	if !role.Valid() {
		roleLabel = "invalid"
	}
	permLabel := string(permission)
	if !permission.Valid() {
		permLabel = "invalid"
	}

	AuthzDecisionsTotal.WithLabelValues(roleLabel, permLabel, engine, decision).Inc()
	AuthzDecisionDuration.WithLabelValues(engine).Observe(duration.Seconds())
	if !allowed {
		AuthzDeniedTotal.WithLabelValues(roleLabel, permLabel).Inc()
	}
}

// Decide asks authorizer and records the outcome.
func Decide(authorizer Authorizer, role Role, permission Permission) bool {
	start := time.Now()
	allowed := authorizer.Allowed(role, permission)
	RecordAuthzDecision(authorizer.Engine(), role, permission, allowed, time.Since(start))
	return allowed
}
