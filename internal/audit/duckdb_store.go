// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // registers the "duckdb" driver
	"github.com/goccy/go-json"

	"github.com/tomtom215/govportal/internal/logging"
)

const duckdbSchema = `
	CREATE TABLE IF NOT EXISTS security_events (
		id TEXT PRIMARY KEY,
		occurred_at TIMESTAMPTZ NOT NULL,
		event_type TEXT NOT NULL,
		severity TEXT NOT NULL,
		outcome TEXT NOT NULL,
		actor_id TEXT,
		actor_username TEXT,
		actor_role TEXT,
		target_id TEXT,
		target_kind TEXT,
		target_name TEXT,
		source_ip TEXT NOT NULL,
		user_agent TEXT,
		action TEXT NOT NULL,
		detail TEXT,
		metadata JSON,
		request_id TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_security_events_time ON security_events(occurred_at);
	CREATE INDEX IF NOT EXISTS idx_security_events_type ON security_events(event_type);
	CREATE INDEX IF NOT EXISTS idx_security_events_actor ON security_events(actor_id);
	CREATE INDEX IF NOT EXISTS idx_security_events_ip ON security_events(source_ip);
`

const duckdbColumns = `id, occurred_at, event_type, severity, outcome,
	actor_id, actor_username, actor_role,
	target_id, target_kind, target_name,
	source_ip, user_agent, action, detail,
	CAST(metadata AS VARCHAR), request_id`

// DuckDBStore persists events in a DuckDB table.
type DuckDBStore struct {
	db     *sql.DB
	ownsDB bool
	// DuckDB allows a single writer per database file.
	mu sync.Mutex
}

// OpenDuckDBStore opens (or creates) the database file at path and ensures
// the schema exists.
func OpenDuckDBStore(ctx context.Context, path string) (*DuckDBStore, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping audit database: %w", err)
	}

	s := &DuckDBStore{db: db, ownsDB: true}
	if err := s.CreateTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewDuckDBStore wraps an open handle. The caller must run CreateTable and
// keeps ownership of db.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

// CreateTable creates the security_events table and its indexes.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	for _, stmt := range strings.Split(duckdbSchema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute audit schema statement: %w", err)
		}
	}
	logging.Debug().Msg("Audit table created/verified")
	return nil
}

// Save implements Store.
func (s *DuckDBStore) Save(ctx context.Context, event *Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	var targetID, targetKind, targetName sql.NullString
	if event.Target != nil {
		targetID = sql.NullString{String: event.Target.ID, Valid: true}
		targetKind = sql.NullString{String: event.Target.Kind, Valid: true}
		targetName = sql.NullString{String: event.Target.Name, Valid: event.Target.Name != ""}
	}

	var metadata sql.NullString
	if len(event.Metadata) > 0 {
		data, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode audit metadata: %w", err)
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO security_events (
			id, occurred_at, event_type, severity, outcome,
			actor_id, actor_username, actor_role,
			target_id, target_kind, target_name,
			source_ip, user_agent, action, detail, metadata, request_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Timestamp.UTC(), string(event.Type), string(event.Severity), string(event.Outcome),
		event.Actor.ID, event.Actor.Username, event.Actor.Role,
		targetID, targetKind, targetName,
		event.SourceIP, event.UserAgent, event.Action, event.Detail, metadata, event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("failed to save audit event: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *DuckDBStore) Get(ctx context.Context, id string) (*Event, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+duckdbColumns+" FROM security_events WHERE id = ?", id)
	event, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit event: %w", err)
	}
	return event, nil
}

// Query implements Store.
func (s *DuckDBStore) Query(ctx context.Context, filter Filter) ([]Event, error) {
	where, args := buildWhere(filter)

	order := "DESC"
	if filter.OldestFirst {
		order = "ASC"
	}
	query := fmt.Sprintf("SELECT %s FROM security_events%s ORDER BY occurred_at %s LIMIT %d",
		duckdbColumns, where, order, filter.limit())
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			logging.Warn().Err(err).Msg("Failed to scan audit event row")
			continue
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}
	return events, nil
}

// Count implements Store.
func (s *DuckDBStore) Count(ctx context.Context, filter Filter) (int64, error) {
	where, args := buildWhere(filter)
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM security_events"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count audit events: %w", err)
	}
	return n, nil
}

// Purge implements Store.
func (s *DuckDBStore) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, "DELETE FROM security_events WHERE occurred_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge audit events: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read purged count: %w", err)
	}
	return n, nil
}

// Close implements Store. A handle passed to NewDuckDBStore is left open.
func (s *DuckDBStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

func buildWhere(f Filter) (string, []any) {
	var conds []string
	var args []any

	if len(f.Types) > 0 {
		placeholders := make([]string, len(f.Types))
		for i, t := range f.Types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		conds = append(conds, "event_type IN ("+strings.Join(placeholders, ",")+")")
	}
	eq := func(column, value string) {
		if value != "" {
			conds = append(conds, column+" = ?")
			args = append(args, value)
		}
	}
	eq("outcome", string(f.Outcome))
	eq("actor_id", f.ActorID)
	eq("target_id", f.TargetID)
	eq("source_ip", f.SourceIP)

	if !f.Since.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, f.Since.UTC())
	}
	if !f.Until.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, f.Until.UTC())
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*Event, error) {
	var (
		e                                 Event
		eventType, severity, outcome      string
		actorID, actorUsername, actorRole sql.NullString
		targetID, targetKind, targetName  sql.NullString
		userAgent, detail, metadata       sql.NullString
		requestID                         sql.NullString
	)
	err := row.Scan(
		&e.ID, &e.Timestamp, &eventType, &severity, &outcome,
		&actorID, &actorUsername, &actorRole,
		&targetID, &targetKind, &targetName,
		&e.SourceIP, &userAgent, &e.Action, &detail,
		&metadata, &requestID,
	)
	if err != nil {
		return nil, err
	}

	e.Type = EventType(eventType)
	e.Severity = Severity(severity)
	e.Outcome = Outcome(outcome)
	e.Actor = Actor{ID: actorID.String, Username: actorUsername.String, Role: actorRole.String}
	if targetID.Valid {
		e.Target = &Target{ID: targetID.String, Kind: targetKind.String, Name: targetName.String}
	}
	e.UserAgent = userAgent.String
	e.Detail = detail.String
	e.RequestID = requestID.String
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &e.Metadata); err != nil {
			logging.Debug().Err(err).Str("event_id", e.ID).Msg("Failed to parse audit metadata")
		}
	}
	return &e, nil
}
