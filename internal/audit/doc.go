// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

// Package audit records the security audit trail of the admin API.
//
// Every decision the request gate and the Authenticator make that an
// operator may later need to reconstruct is written here: logins and their
// failures, lockouts, account status changes, permission denials, rate-limit
// blocks and contact-form submissions. The trail is readable through
// GET /api/v1/audit by holders of the view_audit_logs permission.
//
// # Stores
//
//   - MemoryStore: bounded ring kept in process memory. Development and
//     tests.
//   - DuckDBStore: durable table in a DuckDB file. Production.
//
// # Logger
//
// Logger buffers events on a channel and persists them from a single writer
// goroutine, so recording an event never blocks a request on storage I/O.
// When the buffer is full the event is dropped and a warning is logged.
// Retention cleanup runs from the supervisor through Logger.Purge.
//
// Example:
//
//	store := audit.NewMemoryStore(10000)
//	logger := audit.NewLogger(store, audit.DefaultConfig())
//	defer logger.Close()
//
//	logger.Log(&audit.Event{
//	    Type:     audit.EventLoginSuccess,
//	    Severity: audit.SeverityInfo,
//	    Outcome:  audit.OutcomeSuccess,
//	    Actor:    audit.Actor{ID: u.ID, Username: u.Username, Role: string(u.Role)},
//	    SourceIP: ip,
//	})
package audit
