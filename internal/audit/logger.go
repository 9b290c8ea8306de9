// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/govportal/internal/config"
	"github.com/tomtom215/govportal/internal/logging"
)

// Config holds configuration for the audit logger.
type Config struct {
	// Enabled controls whether events are recorded at all.
	Enabled bool

	// MinSeverity drops events below this level.
	MinSeverity Severity

	// RetentionDays is how long Purge keeps events.
	RetentionDays int

	// BufferSize is the capacity of the async write channel.
	BufferSize int

	// LogToStdout also writes each event through the process logger.
	LogToStdout bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MinSeverity:   SeverityInfo,
		RetentionDays: 365,
		BufferSize:    1000,
	}
}

// Logger is the audit trail writer.
//
// Log and Record never block the request path: events go onto a buffered
// channel and a single goroutine saves them to the Store. When the buffer
// is full the event is dropped with a warning rather than stalling a login.
// Close flushes whatever is already buffered.
//
// A nil *Logger is valid and records nothing, so components built with
// auditing disabled can call it unconditionally.
//
// Example usage:
//
//	store, _ := audit.OpenStore(ctx, &cfg.Audit)
//	auditLog := audit.NewLogger(store, audit.ConfigFrom(&cfg.Audit))
//	defer auditLog.Close()
//
//	auditLog.Record(r.Context(), &audit.Event{
//	    Type:     audit.EventLoginFailure,
//	    Severity: audit.SeverityWarning,
//	    Outcome:  audit.OutcomeFailure,
//	    SourceIP: ip,
//	})
type Logger struct {
	config *Config
	store  Store
	now    func() time.Time

	events    chan *Event
	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewLogger starts the async writer for store.
func NewLogger(store Store, cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 1
	}

	l := &Logger{
		config: cfg,
		store:  store,
		now:    time.Now,
		events: make(chan *Event, cfg.BufferSize),
		stop:   make(chan struct{}),
	}

	l.wg.Add(1)
	go l.writer()

	return l
}

func (l *Logger) writer() {
	defer l.wg.Done()

	for {
		select {
		case <-l.stop:
			// Drain what is already buffered.
			for {
				select {
				case event := <-l.events:
					l.write(event)
				default:
					return
				}
			}
		case event := <-l.events:
			l.write(event)
		}
	}
}

func (l *Logger) write(event *Event) {
	if l.config.LogToStdout {
		if data, err := json.Marshal(event); err == nil {
			logging.Info().RawJSON("event", data).Msg("Audit event")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.store.Save(ctx, event); err != nil {
		logging.Error().Err(err).Str("event_id", event.ID).Str("type", string(event.Type)).Msg("Failed to save audit event")
	}
}

// Log queues event for persistence. ID and Timestamp are filled when unset.
// A full buffer drops the event.
func (l *Logger) Log(event *Event) {
	if l == nil || event == nil || !l.config.Enabled {
		return
	}
	if !event.Severity.AtLeast(l.config.MinSeverity) {
		return
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now().UTC()
	}

	select {
	case <-l.stop:
		return
	default:
	}

	select {
	case l.events <- event:
	default:
		logging.Warn().Str("event_id", event.ID).Str("type", string(event.Type)).Msg("Audit event buffer full, dropping event")
	}
}

// Record is Log with the request ID taken from ctx.
func (l *Logger) Record(ctx context.Context, event *Event) {
	if l == nil || event == nil {
		return
	}
	if event.RequestID == "" && ctx != nil {
		event.RequestID = logging.RequestIDFromContext(ctx)
	}
	l.Log(event)
}

// Close stops the writer after flushing buffered events.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.closeOnce.Do(func() {
		close(l.stop)
		l.wg.Wait()
	})
	return nil
}

// Purge removes events older than the retention period.
func (l *Logger) Purge(ctx context.Context) (int64, error) {
	cutoff := l.now().AddDate(0, 0, -l.config.RetentionDays)
	n, err := l.store.Purge(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit retention purge: %w", err)
	}
	if n > 0 {
		logging.Info().Int64("count", n).Time("cutoff", cutoff).Msg("Purged old audit events")
	}
	return n, nil
}

// Query returns events matching filter.
func (l *Logger) Query(ctx context.Context, filter Filter) ([]Event, error) {
	return l.store.Query(ctx, filter)
}

// Count returns the number of events matching filter.
func (l *Logger) Count(ctx context.Context, filter Filter) (int64, error) {
	return l.store.Count(ctx, filter)
}

// Get returns one event.
func (l *Logger) Get(ctx context.Context, id string) (*Event, error) {
	return l.store.Get(ctx, id)
}

// Enabled reports whether events are recorded.
func (l *Logger) Enabled() bool {
	return l != nil && l.config.Enabled
}

// OpenStore builds the configured Store.
func OpenStore(ctx context.Context, cfg *config.AuditConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(cfg.MaxEvents), nil
	case "duckdb":
		return OpenDuckDBStore(ctx, cfg.DuckDBPath)
	default:
		return nil, fmt.Errorf("unknown audit store %q", cfg.Backend)
	}
}

// ConfigFrom maps the application's audit section onto a logger Config.
func ConfigFrom(cfg *config.AuditConfig) *Config {
	return &Config{
		Enabled:       cfg.Enabled,
		MinSeverity:   SeverityInfo,
		RetentionDays: cfg.RetentionDays,
		BufferSize:    cfg.BufferSize,
	}
}
