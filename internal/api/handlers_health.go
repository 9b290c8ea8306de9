// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package api

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"
)

const healthCheckTimeout = 2 * time.Second

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status  string            `json:"status"` // healthy or degraded
	Version string            `json:"version"`
	Uptime  float64           `json:"uptimeSeconds"`
	Checks  map[string]string `json:"checks"`
}

// runChecks probes every dependency concurrently under one deadline.
func (h *Handler) runChecks(ctx context.Context) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.deps.HealthChecks))
	for name := range h.deps.HealthChecks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]string, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, check HealthCheck) {
			defer wg.Done()
			if err := check(ctx); err != nil {
				results[i] = "error: " + err.Error()
				return
			}
			results[i] = "ok"
		}(i, h.deps.HealthChecks[name])
	}
	wg.Wait()

	status := HealthStatus{
		Status:  "healthy",
		Version: h.deps.Version,
		Uptime:  time.Since(h.startTime).Seconds(),
		Checks:  make(map[string]string, len(names)),
	}
	for i, name := range names {
		status.Checks[name] = results[i]
		if results[i] != "ok" {
			status.Status = "degraded"
		}
	}
	return status
}

// Health handles GET /health. It always answers 200 and reports degraded
// dependencies in the body.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondOK(w, r, h.runChecks(r.Context()))
}

// HealthLive handles GET /health/live: the process is up.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondOK(w, r, map[string]any{
		"alive":         true,
		"uptimeSeconds": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles GET /health/ready: 503 until every check passes.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	status := h.runChecks(r.Context())
	if status.Status != "healthy" {
		respondJSON(w, http.StatusServiceUnavailable, APIResponse{Success: false, Data: status, Error: "not ready"})
		return
	}
	respondOK(w, r, status)
}
