// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// MinJWTSecretLength is the shortest accepted HMAC signing secret.
const MinJWTSecretLength = 32

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateSecurity,
		c.validateRateLimit,
		c.validateLockout,
		c.validateTurnstile,
		c.validateCSRF,
		c.validateAuthz,
		c.validateUsers,
		c.validateAudit,
		c.validateEvents,
		c.validateLogging,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.Server.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be development, staging or production, got %q", c.Server.Environment)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	s := c.Security
	if s.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(s.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", MinJWTSecretLength)
	}
	if err := requirePositive(map[string]time.Duration{
		"ACCESS_TOKEN_TTL":  s.AccessTokenTTL,
		"REMEMBER_ME_TTL":   s.RememberMeTTL,
		"REFRESH_TOKEN_TTL": s.RefreshTokenTTL,
	}); err != nil {
		return err
	}
	if c.IsProduction() {
		if !s.CookieSecure {
			return fmt.Errorf("COOKIE_SECURE=false is not allowed in production")
		}
		for _, origin := range s.CORSOrigins {
			if origin == "*" {
				return fmt.Errorf("CORS_ORIGINS=* is not allowed in production; list the site origins explicitly")
			}
		}
	}
	if !s.APIRateLimitDisabled {
		if s.APIRateLimitReqs < 1 {
			return fmt.Errorf("API_RATE_LIMIT_REQUESTS must be at least 1")
		}
		if s.APIRateLimitWindow <= 0 {
			return fmt.Errorf("API_RATE_LIMIT_WINDOW must be positive")
		}
	}
	return nil
}

func (c *Config) validateRateLimit() error {
	r := c.RateLimit
	switch r.Store {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required when RATE_LIMIT_STORE=redis")
		}
	default:
		return fmt.Errorf("RATE_LIMIT_STORE must be memory or redis, got %q", r.Store)
	}
	if r.MaxAttempts < 1 {
		return fmt.Errorf("RATE_LIMIT_MAX_ATTEMPTS must be at least 1")
	}
	return requirePositive(map[string]time.Duration{
		"RATE_LIMIT_WINDOW":         r.Window,
		"RATE_LIMIT_BLOCK_DURATION": r.BlockDuration,
		"RATE_LIMIT_SWEEP_INTERVAL": r.SweepInterval,
	})
}

func (c *Config) validateLockout() error {
	if !c.Lockout.Enabled {
		return nil
	}
	if c.Lockout.MaxAttempts < 1 {
		return fmt.Errorf("LOCKOUT_MAX_ATTEMPTS must be at least 1")
	}
	if c.Lockout.Duration <= 0 {
		return fmt.Errorf("LOCKOUT_DURATION must be positive")
	}
	return nil
}

func (c *Config) validateTurnstile() error {
	t := c.Turnstile
	if !t.Enabled {
		if c.IsProduction() {
			return fmt.Errorf("TURNSTILE_ENABLED=false is not allowed in production")
		}
		return nil
	}
	if t.SecretKey == "" {
		return fmt.Errorf("TURNSTILE_SECRET_KEY is required when Turnstile is enabled")
	}
	if err := validateHTTPURL(t.VerifyURL, "TURNSTILE_VERIFY_URL"); err != nil {
		return err
	}
	if t.Timeout <= 0 {
		return fmt.Errorf("TURNSTILE_TIMEOUT must be positive")
	}
	if t.RequestsPerSecond <= 0 || t.Burst < 1 {
		return fmt.Errorf("TURNSTILE_RPS and TURNSTILE_BURST must be positive")
	}
	return nil
}

func (c *Config) validateCSRF() error {
	if !c.CSRF.Enabled {
		return nil
	}
	if c.CSRF.CookieName == "" || c.CSRF.HeaderName == "" {
		return fmt.Errorf("CSRF_COOKIE_NAME and CSRF_HEADER_NAME are required when CSRF is enabled")
	}
	if c.CSRF.TokenTTL <= 0 {
		return fmt.Errorf("CSRF_TOKEN_TTL must be positive")
	}
	return nil
}

func (c *Config) validateAuthz() error {
	switch c.Authz.Engine {
	case "static", "casbin":
		return nil
	default:
		return fmt.Errorf("AUTHZ_ENGINE must be static or casbin, got %q", c.Authz.Engine)
	}
}

func (c *Config) validateUsers() error {
	u := c.Users
	switch u.Backend {
	case "memory":
		if c.IsProduction() {
			return fmt.Errorf("USER_STORE=memory is not allowed in production")
		}
	case "badger":
		if u.BadgerPath == "" {
			return fmt.Errorf("USER_STORE_PATH is required when USER_STORE=badger")
		}
	case "mongo":
		if !strings.HasPrefix(u.MongoURI, "mongodb://") && !strings.HasPrefix(u.MongoURI, "mongodb+srv://") {
			return fmt.Errorf("MONGO_URI must start with mongodb:// or mongodb+srv://")
		}
		if u.MongoDatabase == "" {
			return fmt.Errorf("MONGO_DATABASE is required when USER_STORE=mongo")
		}
	case "postgres":
		if u.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when USER_STORE=postgres")
		}
	default:
		return fmt.Errorf("USER_STORE must be memory, badger, mongo or postgres, got %q", u.Backend)
	}
	if (u.BootstrapUsername == "") != (u.BootstrapPassword == "") {
		return fmt.Errorf("BOOTSTRAP_USERNAME and BOOTSTRAP_PASSWORD must be set together")
	}
	return nil
}

func (c *Config) validateAudit() error {
	a := c.Audit
	if !a.Enabled {
		return nil
	}
	switch a.Backend {
	case "memory":
	case "duckdb":
		if a.DuckDBPath == "" {
			return fmt.Errorf("AUDIT_DUCKDB_PATH is required when AUDIT_STORE=duckdb")
		}
	default:
		return fmt.Errorf("AUDIT_STORE must be memory or duckdb, got %q", a.Backend)
	}
	if a.BufferSize < 1 {
		return fmt.Errorf("AUDIT_BUFFER_SIZE must be at least 1")
	}
	if a.RetentionDays < 1 {
		return fmt.Errorf("AUDIT_RETENTION_DAYS must be at least 1")
	}
	return nil
}

func (c *Config) validateEvents() error {
	switch c.Events.Backend {
	case "memory":
	case "nats":
		u, err := url.Parse(c.Events.NATSURL)
		if err != nil || (u.Scheme != "nats" && u.Scheme != "tls") || u.Host == "" {
			return fmt.Errorf("NATS_URL must be a nats:// or tls:// URL, got %q", c.Events.NATSURL)
		}
	default:
		return fmt.Errorf("EVENTS_BACKEND must be memory or nats, got %q", c.Events.Backend)
	}
	if c.Events.ContactTopic == "" {
		return fmt.Errorf("CONTACT_TOPIC is required")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a recognized level", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func requirePositive(values map[string]time.Duration) error {
	for name, d := range values {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, d)
		}
	}
	return nil
}

func validateHTTPURL(rawURL, fieldName string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	return nil
}
