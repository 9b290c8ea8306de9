// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

/*
Package api is the HTTP surface of the portal: the public site endpoints
and the administrative API, routed with chi.

Every response uses the APIResponse envelope; authorization failures come
from auth.WriteError with the same shape.

# Middleware order

Global, in order:

  - middleware.RequestID: X-Request-ID and logging correlation
  - middleware.AccessLog
  - chi Recoverer
  - auth.ClientIPResolver: the client address used by every later layer
  - CORS (only when origins are configured)
  - middleware.Prometheus

Under /api/v1, security headers, the per-IP flood limit (httprate) and
response compression apply to every route.

# Route protection

Administrative routes are wrapped as

	gate.Protect(permission) -> CSRF -> handler

so an anonymous caller is told to authenticate before any CSRF check runs.
Login and the public contact form sit behind gate.AttemptSensitive, which
rejects client IPs blocked after repeated failures with 429.

Content mutations are registered per kind, so each route names the exact
permission it requires (create_news, delete_gallery, ...).
*/
package api
