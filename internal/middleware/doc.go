// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

/*
Package middleware provides infrastructure HTTP middleware shared by every
route: request ID propagation, Prometheus instrumentation and access logging.

All middleware here has the chi signature func(http.Handler) http.Handler
and knows nothing about authentication; the authorization gate lives in
internal/auth.

Typical order in the router:

	r.Use(middleware.RequestID)      // X-Request-ID in, out and in the logging context
	r.Use(middleware.AccessLog)      // one structured line per request
	r.Use(middleware.Prometheus)     // request counters and latency by route pattern

RequestID accepts an upstream X-Request-ID only when it is short and made of
URL-safe characters; anything else is replaced with a new UUID so that
clients cannot inject arbitrary text into logs.
*/
package middleware
