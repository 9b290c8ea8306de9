// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

// Package services adapts the portal's long-running components to
// suture.Service: the HTTP server and the periodic maintenance jobs
// (rate limit sweeps, audit retention).
package services
