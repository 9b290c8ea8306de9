// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// UnmatchedRoute labels requests no route matched.
const UnmatchedRoute = "unmatched"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "govportal_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "govportal_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}, // login pays one bcrypt comparison
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "govportal_http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)

	FloodLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "govportal_http_flood_limited_total",
			Help: "Total number of requests refused by the per-IP flood limit",
		},
		[]string{"route"},
	)

	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "govportal_build_info",
			Help: "Build information, always 1",
		},
		[]string{"version", "commit"},
	)
)

// RecordHTTPRequest records one completed request.
func RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	if route == "" {
		route = UnmatchedRoute
	}
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackInFlight increments or decrements the in-flight gauge.
func TrackInFlight(start bool) {
	if start {
		HTTPRequestsInFlight.Inc()
	} else {
		HTTPRequestsInFlight.Dec()
	}
}

// RecordFloodLimited counts a request refused by the flood limit.
func RecordFloodLimited(route string) {
	if route == "" {
		route = UnmatchedRoute
	}
	FloodLimitedTotal.WithLabelValues(route).Inc()
}

// SetBuildInfo publishes the running version.
func SetBuildInfo(version, commit string) {
	BuildInfo.Reset()
	BuildInfo.WithLabelValues(version, commit).Set(1)
}
