// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/govportal/internal/config"
	"github.com/tomtom215/govportal/internal/logging"
)

// UnknownIP is the key used when the client address cannot be resolved.
// It is never blocked.
const UnknownIP = "unknown"

// RateLimitRecord is the failed-attempt state for one client IP.
type RateLimitRecord struct {
	Attempts     int       `json:"attempts"`
	LastAttempt  time.Time `json:"last_attempt"`
	BlockedUntil time.Time `json:"blocked_until,omitempty"`

	// ExpiresAt is when the record stops mattering: the end of the block,
	// or one window after the last attempt.
	ExpiresAt time.Time `json:"expires_at"`
}

// Blocked reports whether the record blocks at now.
func (r *RateLimitRecord) Blocked(now time.Time) bool {
	return !r.BlockedUntil.IsZero() && now.Before(r.BlockedUntil)
}

// RateLimitStore holds RateLimitRecords by IP.
type RateLimitStore interface {
	// Get returns the record for ip, or nil when there is none.
	Get(ctx context.Context, ip string) (*RateLimitRecord, error)

	// Update applies fn to the current record (nil when absent) as one
	// atomic read-modify-write. now is the limiter's clock; the stored
	// record expires ExpiresAt.Sub(now) later. A nil result deletes the
	// record.
	Update(ctx context.Context, ip string, now time.Time, fn func(*RateLimitRecord) *RateLimitRecord) (*RateLimitRecord, error)

	// Delete removes the record for ip.
	Delete(ctx context.Context, ip string) error

	// Sweep deletes records whose ExpiresAt is not after now.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// RateLimiter counts failed attempts per client IP.
//
// Two states per IP: Open and Blocked. The window and the block are both
// measured from the last attempt, so a client failing once per window
// never reaches the threshold.
type RateLimiter struct {
	store         RateLimitStore
	maxAttempts   int
	window        time.Duration
	blockDuration time.Duration
	now           func() time.Time
	security      *logging.SecurityLogger
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithRateLimitClock replaces time.Now.
func WithRateLimitClock(now func() time.Time) RateLimiterOption {
	return func(l *RateLimiter) { l.now = now }
}

// NewRateLimiter returns a limiter over store.
func NewRateLimiter(store RateLimitStore, cfg *config.RateLimitConfig, opts ...RateLimiterOption) *RateLimiter {
	l := &RateLimiter{
		store:         store,
		maxAttempts:   cfg.MaxAttempts,
		window:        cfg.Window,
		blockDuration: cfg.BlockDuration,
		now:           time.Now,
		security:      logging.NewSecurityLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check reports whether ip may attempt. When blocked it returns the time
// left on the block. An elapsed block is deleted and the IP is Open again.
func (l *RateLimiter) Check(ctx context.Context, ip string) (bool, time.Duration, error) {
	if ip == UnknownIP || ip == "" {
		return true, 0, nil
	}

	rec, err := l.store.Get(ctx, ip)
	if err != nil {
		return false, 0, fmt.Errorf("rate limit check: %w", err)
	}
	if rec == nil || rec.BlockedUntil.IsZero() {
		return true, 0, nil
	}

	now := l.now()
	if rec.Blocked(now) {
		return false, rec.BlockedUntil.Sub(now), nil
	}

	// The block has elapsed. Reset under the store's lock so that a failure
	// recorded since the Get is kept.
	var retryAfter time.Duration
	_, err = l.store.Update(ctx, ip, now, func(cur *RateLimitRecord) *RateLimitRecord {
		retryAfter = 0
		switch {
		case cur == nil:
			return nil
		case cur.Blocked(now):
			retryAfter = cur.BlockedUntil.Sub(now)
			return cur
		case !cur.BlockedUntil.IsZero():
			return nil
		default:
			return cur
		}
	})
	if err != nil {
		return false, 0, fmt.Errorf("rate limit reset: %w", err)
	}
	if retryAfter > 0 {
		return false, retryAfter, nil
	}
	return true, 0, nil
}

// RecordFailedAttempt counts one failure for ip and reports whether the IP
// is now blocked.
func (l *RateLimiter) RecordFailedAttempt(ctx context.Context, ip string) (bool, error) {
	if ip == UnknownIP || ip == "" {
		logging.Warn().Msg("Failed attempt from unresolved client IP; not rate limited")
		return false, nil
	}

	now := l.now()
	var justBlocked bool
	rec, err := l.store.Update(ctx, ip, now, func(cur *RateLimitRecord) *RateLimitRecord {
		justBlocked = false
		if cur != nil && cur.Blocked(now) {
			return cur
		}
		if cur == nil || !cur.BlockedUntil.IsZero() || now.Sub(cur.LastAttempt) >= l.window {
			cur = &RateLimitRecord{}
		}
		cur.Attempts++
		cur.LastAttempt = now
		cur.ExpiresAt = now.Add(l.window)
		if cur.Attempts >= l.maxAttempts {
			cur.BlockedUntil = now.Add(l.blockDuration)
			cur.ExpiresAt = cur.BlockedUntil
			justBlocked = true
		}
		return cur
	})
	if err != nil {
		return false, fmt.Errorf("rate limit record: %w", err)
	}

	if justBlocked {
		l.security.LogIPBlocked(ip, rec.BlockedUntil.Format(time.RFC3339))
		RecordIPBlocked()
	}
	return rec.Blocked(now), nil
}

// Clear resets ip to Open.
func (l *RateLimiter) Clear(ctx context.Context, ip string) error {
	if ip == UnknownIP || ip == "" {
		return nil
	}
	if err := l.store.Delete(ctx, ip); err != nil {
		return fmt.Errorf("rate limit clear: %w", err)
	}
	return nil
}

// Sweep deletes records whose window or block has elapsed.
func (l *RateLimiter) Sweep(ctx context.Context) (int, error) {
	n, err := l.store.Sweep(ctx, l.now())
	if err != nil {
		return 0, fmt.Errorf("rate limit sweep: %w", err)
	}
	if n > 0 {
		logging.Debug().Int("count", n).Msg("Swept expired rate limit records")
	}
	return n, nil
}

// MemoryRateLimitStore keeps records in process memory. Records are lost on
// restart.
type MemoryRateLimitStore struct {
	mu      sync.Mutex
	records map[string]RateLimitRecord
}

// NewMemoryRateLimitStore returns an empty store.
func NewMemoryRateLimitStore() *MemoryRateLimitStore {
	return &MemoryRateLimitStore{records: make(map[string]RateLimitRecord)}
}

// Get implements RateLimitStore.
func (s *MemoryRateLimitStore) Get(_ context.Context, ip string) (*RateLimitRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[ip]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Update implements RateLimitStore. Expiry is left to Sweep, so now is
// unused.
func (s *MemoryRateLimitStore) Update(_ context.Context, ip string, _ time.Time, fn func(*RateLimitRecord) *RateLimitRecord) (*RateLimitRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cur *RateLimitRecord
	if rec, ok := s.records[ip]; ok {
		cur = &rec
	}
	next := fn(cur)
	if next == nil {
		delete(s.records, ip)
		return nil, nil
	}
	s.records[ip] = *next
	out := *next
	return &out, nil
}

// Delete implements RateLimitStore.
func (s *MemoryRateLimitStore) Delete(_ context.Context, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, ip)
	return nil
}

// Sweep implements RateLimitStore.
func (s *MemoryRateLimitStore) Sweep(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for ip, rec := range s.records {
		if !rec.ExpiresAt.After(now) {
			delete(s.records, ip)
			n++
		}
	}
	return n, nil
}

// Len returns the number of records.
func (s *MemoryRateLimitStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
