// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

/*
Package main is the entry point for the Govportal server: the public site
API and the administrative content management API of a government
information portal.

# Application Architecture

The server runs under a Suture v4 supervisor tree:

	RootSupervisor ("govportal")
	├── MaintenanceSupervisor ("maintenance-layer")
	│   ├── Rate limit sweeper
	│   └── Audit retention (when auditing is enabled)
	└── APISupervisor ("api-layer")
	    └── HTTP Server

Component initialization order:

 1. Configuration: Koanf v2 with defaults, config file and environment
 2. Logging: zerolog, with a slog bridge for the supervisor
 3. Stores: credential store (memory, BadgerDB, MongoDB or PostgreSQL),
    rate limit store (memory or Redis), audit store (memory or DuckDB)
 4. Message bus: Watermill over an in-process channel or NATS
 5. Bootstrap: the first super admin when the credential store is empty
 6. Authorization gate: token issuer, failed-attempt limiter, permission
    engine (static table or Casbin), client IP resolution
 7. HTTP router and supervisor tree

# Configuration

Configuration is loaded with precedence ENV > config file > defaults. The
essentials:

  - JWT_SECRET: token signing secret, 32+ characters (required)
  - USER_STORE: memory, badger, mongo or postgres
  - BOOTSTRAP_USERNAME, BOOTSTRAP_PASSWORD: first super admin
  - RATE_LIMIT_STORE: memory or redis
  - AUDIT_STORE: memory or duckdb
  - EVENTS_BACKEND: memory or nats
  - TURNSTILE_SECRET_KEY: Cloudflare Turnstile secret (required in production)

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains in-flight
requests within SHUTDOWN_TIMEOUT, then stores are closed in reverse
order of opening.

# Build Info

Version and commit are set at link time:

	go build -ldflags "-X main.version=1.2.0 -X main.commit=$(git rev-parse --short HEAD)" ./cmd/server
*/
package main
