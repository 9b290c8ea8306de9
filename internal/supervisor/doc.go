// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

// Package supervisor runs the portal's long-lived services under a suture
// supervisor tree.
//
// Services that return an error or panic are restarted with suture's
// failure decay and backoff. Supervisor events go to the process logger
// through sutureslog and the logging package's slog bridge.
//
// Usage:
//
//	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
//	tree.AddMaintenanceService(services.NewRateLimitSweeper(limiter, time.Minute))
//	tree.AddAPIService(services.NewHTTPServerService(srv, srv.Addr, 30*time.Second))
//	err := tree.Serve(ctx)
package supervisor
