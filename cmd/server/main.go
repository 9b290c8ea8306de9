// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/tomtom215/govportal/internal/api"
	"github.com/tomtom215/govportal/internal/audit"
	"github.com/tomtom215/govportal/internal/auth"
	"github.com/tomtom215/govportal/internal/authz"
	"github.com/tomtom215/govportal/internal/config"
	"github.com/tomtom215/govportal/internal/content"
	"github.com/tomtom215/govportal/internal/events"
	"github.com/tomtom215/govportal/internal/logging"
	"github.com/tomtom215/govportal/internal/metrics"
	"github.com/tomtom215/govportal/internal/supervisor"
	"github.com/tomtom215/govportal/internal/supervisor/services"
	"github.com/tomtom215/govportal/internal/users"
)

// Set with -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})
	metrics.SetBuildInfo(version, commit)

	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Str("user_store", cfg.Users.Backend).
		Str("rate_limit_store", cfg.RateLimit.Store).
		Str("authz_engine", cfg.Authz.Engine).
		Msg("Starting Govportal")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Error().Err(err).Msg("Server stopped with error")
		stop()
		os.Exit(1)
	}
	logging.Info().Msg("Server stopped")
}

//nolint:gocyclo // sequential wiring of every component
func run(ctx context.Context, cfg *config.Config) error {
	userStore, err := users.Open(ctx, &cfg.Users)
	if err != nil {
		return fmt.Errorf("open user store: %w", err)
	}
	defer closeQuietly("user store", userStore)

	if err := bootstrapAdmin(ctx, &cfg.Users, userStore); err != nil {
		return err
	}

	rateStore, err := auth.OpenRateLimitStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open rate limit store: %w", err)
	}
	if c, ok := rateStore.(io.Closer); ok {
		defer closeQuietly("rate limit store", c)
	}

	var auditLog *audit.Logger
	if cfg.Audit.Enabled {
		auditStore, err := audit.OpenStore(ctx, &cfg.Audit)
		if err != nil {
			return fmt.Errorf("open audit store: %w", err)
		}
		defer closeQuietly("audit store", auditStore)
		auditLog = audit.NewLogger(auditStore, audit.ConfigFrom(&cfg.Audit))
		// Flushes buffered events; runs before the store closes.
		defer closeQuietly("audit logger", auditLog)
	}

	publisher, err := events.Open(&cfg.Events)
	if err != nil {
		return fmt.Errorf("open event publisher: %w", err)
	}
	defer closeQuietly("event publisher", publisher)

	authorizer, err := authz.NewAuthorizer(cfg.Authz.Engine)
	if err != nil {
		return fmt.Errorf("build authorizer: %w", err)
	}
	issuer, err := auth.NewTokenIssuer(&cfg.Security)
	if err != nil {
		return fmt.Errorf("build token issuer: %w", err)
	}
	ips, err := auth.NewClientIPResolver(cfg.Security.TrustedProxies)
	if err != nil {
		return fmt.Errorf("parse trusted proxies: %w", err)
	}

	limiter := auth.NewRateLimiter(rateStore, &cfg.RateLimit)
	bot := auth.NewBotVerifier(&cfg.Turnstile)
	gate := auth.NewGate(issuer, limiter, authorizer, ips, auditLog)
	authenticator := auth.NewAuthenticator(userStore, issuer, limiter, bot, auditLog, cfg.Lockout)

	var csrf *auth.CSRFProtector
	if cfg.CSRF.Enabled {
		csrf = auth.NewCSRFProtector(&cfg.CSRF, &cfg.Security)
		csrf.SetAuditLogger(auditLog)
	} else {
		logging.Warn().Msg("CSRF protection is disabled")
	}

	router, err := api.NewRouter(api.Dependencies{
		Config:       cfg,
		Auth:         authenticator,
		Issuer:       issuer,
		Gate:         gate,
		Limiter:      limiter,
		Bot:          bot,
		IPs:          ips,
		Cookies:      auth.NewCookieWriter(&cfg.Security),
		CSRF:         csrf,
		Content:      content.NewStore(),
		Events:       publisher,
		Audit:        auditLog,
		HealthChecks: healthChecks(userStore, rateStore, publisher, auditLog),
		Version:      version,
	})
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddMaintenanceService(services.NewRateLimitSweeper(limiter, cfg.RateLimit.SweepInterval))
	if auditLog.Enabled() && cfg.Audit.RetentionDays > 0 {
		tree.AddMaintenanceService(services.NewAuditRetention(auditLog, cfg.Audit.CleanupInterval))
	}
	tree.AddAPIService(services.NewHTTPServerService(srv, addr, cfg.Server.ShutdownTimeout))

	err = tree.Serve(ctx)
	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		logging.Warn().Int("count", len(report)).Msg("Services did not stop within the shutdown timeout")
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// bootstrapAdmin creates the configured super admin when the store is
// empty. Without bootstrap credentials an empty store is only a warning.
func bootstrapAdmin(ctx context.Context, cfg *config.UsersConfig, store users.Store) error {
	if cfg.BootstrapUsername == "" || cfg.BootstrapPassword == "" {
		if n, err := store.Count(ctx); err == nil && n == 0 {
			logging.Warn().Msg("No administrative users exist and no bootstrap credentials are configured")
		}
		return nil
	}

	hash, err := auth.HashPassword(cfg.BootstrapPassword)
	if err != nil {
		return fmt.Errorf("bootstrap password: %w", err)
	}
	u := users.NewUser(users.NormalizeUsername(cfg.BootstrapUsername), cfg.BootstrapEmail, hash, authz.RoleSuperAdmin, time.Now().UTC())
	u.DisplayName = "Administrator"

	created, err := users.Bootstrap(ctx, store, u)
	if err != nil {
		return err
	}
	if created {
		logging.Info().Str("username", u.Username).Msg("Created bootstrap super admin")
	}
	return nil
}

func healthChecks(userStore users.Store, rateStore auth.RateLimitStore, publisher *events.Publisher, auditLog *audit.Logger) map[string]api.HealthCheck {
	checks := map[string]api.HealthCheck{
		"users": func(ctx context.Context) error {
			_, err := userStore.Count(ctx)
			return err
		},
		"rate_limit": func(ctx context.Context) error {
			_, err := rateStore.Get(ctx, "health-probe")
			return err
		},
		"events": func(context.Context) error {
			if state := publisher.BreakerState(); state == "open" {
				return fmt.Errorf("publisher circuit breaker is %s", state)
			}
			return nil
		},
	}
	if auditLog.Enabled() {
		checks["audit"] = func(ctx context.Context) error {
			_, err := auditLog.Count(ctx, audit.Filter{})
			return err
		}
	}
	return checks
}

func closeQuietly(name string, c io.Closer) {
	if err := c.Close(); err != nil {
		logging.Error().Err(err).Str("component", name).Msg("Error during close")
	}
}
