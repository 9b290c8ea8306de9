// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

/*
Package metrics holds the process-wide HTTP and runtime metrics.

Security metrics live next to the code that produces them (internal/auth,
internal/authz, internal/events); this package covers request traffic and
build information. Everything is registered on the default Prometheus
registry through promauto and exposed at /metrics:

	curl http://localhost:8080/metrics

HTTP Metrics:
  - govportal_http_requests_total: requests by method, route and status
  - govportal_http_request_duration_seconds: latency by method and route
  - govportal_http_requests_in_flight: requests currently being served
  - govportal_http_flood_limited_total: requests refused by the coarse
    per-IP flood limit, by route

Build Metrics:
  - govportal_build_info: constant 1, labelled with version and commit

Route labels are chi route patterns (for example /api/v1/users/{id}), never
raw paths, so label cardinality stays bounded.
*/
package metrics
