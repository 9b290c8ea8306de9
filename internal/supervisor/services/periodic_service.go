// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package services

import (
	"context"
	"time"

	"github.com/tomtom215/govportal/internal/audit"
	"github.com/tomtom215/govportal/internal/logging"
)

// Job is one unit of periodic maintenance.
type Job func(ctx context.Context) error

// PeriodicService runs a Job on a fixed interval until cancellation.
//
// A failing run is logged and retried on the next tick; it does not end
// Serve, so one bad sweep never puts the service into suture's backoff.
// The first run happens one interval after Serve starts.
//
// Example usage:
//
//	svc := services.NewPeriodicService("session-report", time.Hour, func(ctx context.Context) error {
//	    return report(ctx)
//	})
//	tree.AddMaintenanceService(svc)
type PeriodicService struct {
	name     string
	interval time.Duration
	job      Job
}

// NewPeriodicService returns a service running job every interval. A
// non-positive interval becomes one minute.
func NewPeriodicService(name string, interval time.Duration, job Job) *PeriodicService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &PeriodicService{name: name, interval: interval, job: job}
}

// Serve implements suture.Service. The job gets Serve's ctx, so a job that
// honours cancellation ends with the service. Errors after cancellation
// are not logged.
func (p *PeriodicService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.job(ctx); err != nil && ctx.Err() == nil {
				logging.Error().Err(err).Str("service", p.name).Msg("Periodic job failed")
			}
		}
	}
}

// String implements fmt.Stringer.
func (p *PeriodicService) String() string {
	return p.name
}

// Sweeper is implemented by *auth.RateLimiter.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// NewRateLimitSweeper drops rate limit records whose window or block has
// elapsed.
func NewRateLimitSweeper(limiter Sweeper, interval time.Duration) *PeriodicService {
	return NewPeriodicService("ratelimit-sweeper", interval, func(ctx context.Context) error {
		_, err := limiter.Sweep(ctx)
		return err
	})
}

// NewAuditRetention purges audit events past the retention period.
func NewAuditRetention(l *audit.Logger, interval time.Duration) *PeriodicService {
	return NewPeriodicService("audit-retention", interval, func(ctx context.Context) error {
		_, err := l.Purge(ctx)
		return err
	})
}
