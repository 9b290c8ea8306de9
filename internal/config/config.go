// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

// Package config loads and validates Govportal configuration.
//
// Configuration is layered with koanf: compiled defaults, then an optional
// YAML file (CONFIG_PATH or one of DefaultConfigPaths), then environment
// variables. Later layers win. Only environment variables listed in the
// mapping table are read.
package config

import (
	"time"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Lockout   LockoutConfig   `koanf:"lockout"`
	Turnstile TurnstileConfig `koanf:"turnstile"`
	CSRF      CSRFConfig      `koanf:"csrf"`
	Authz     AuthzConfig     `koanf:"authz"`
	Users     UsersConfig     `koanf:"users"`
	Redis     RedisConfig     `koanf:"redis"`
	Audit     AuditConfig     `koanf:"audit"`
	Events    EventsConfig    `koanf:"events"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production
}

// SecurityConfig holds token, cookie and general API protection settings.
type SecurityConfig struct {
	JWTSecret       string        `koanf:"jwt_secret"`
	TokenIssuer     string        `koanf:"token_issuer"`
	AccessTokenTTL  time.Duration `koanf:"access_token_ttl"`
	RememberMeTTL   time.Duration `koanf:"remember_me_ttl"`
	RefreshTokenTTL time.Duration `koanf:"refresh_token_ttl"`
	CookieSecure    bool          `koanf:"cookie_secure"`
	CookieDomain    string        `koanf:"cookie_domain"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	TrustedProxies  []string      `koanf:"trusted_proxies"`

	// Coarse per-IP request ceiling applied to every API route.
	APIRateLimitReqs     int           `koanf:"api_rate_limit_reqs"`
	APIRateLimitWindow   time.Duration `koanf:"api_rate_limit_window"`
	APIRateLimitDisabled bool          `koanf:"api_rate_limit_disabled"`
}

// RateLimitConfig configures the failed-attempt limiter guarding login and
// form submission.
type RateLimitConfig struct {
	Store         string        `koanf:"store"` // memory or redis
	MaxAttempts   int           `koanf:"max_attempts"`
	Window        time.Duration `koanf:"window"`
	BlockDuration time.Duration `koanf:"block_duration"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// LockoutConfig configures per-account lockout after repeated wrong passwords.
type LockoutConfig struct {
	Enabled     bool          `koanf:"enabled"`
	MaxAttempts int           `koanf:"max_attempts"`
	Duration    time.Duration `koanf:"duration"`
}

// TurnstileConfig configures Cloudflare Turnstile bot verification.
type TurnstileConfig struct {
	Enabled           bool          `koanf:"enabled"`
	SecretKey         string        `koanf:"secret_key"`
	VerifyURL         string        `koanf:"verify_url"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Burst             int           `koanf:"burst"`
}

// CSRFConfig configures double-submit cookie protection.
type CSRFConfig struct {
	Enabled    bool          `koanf:"enabled"`
	CookieName string        `koanf:"cookie_name"`
	HeaderName string        `koanf:"header_name"`
	TokenTTL   time.Duration `koanf:"token_ttl"`
}

// AuthzConfig selects the permission engine.
type AuthzConfig struct {
	Engine string `koanf:"engine"` // static or casbin
}

// UsersConfig selects and configures the credential store.
type UsersConfig struct {
	Backend       string `koanf:"backend"` // memory, badger, mongo, postgres
	BadgerPath    string `koanf:"badger_path"`
	MongoURI      string `koanf:"mongo_uri"`
	MongoDatabase string `koanf:"mongo_database"`
	PostgresDSN   string `koanf:"postgres_dsn"`

	// Bootstrap account created at startup when the store has no users.
	BootstrapUsername string `koanf:"bootstrap_username"`
	BootstrapPassword string `koanf:"bootstrap_password"`
	BootstrapEmail    string `koanf:"bootstrap_email"`
}

// RedisConfig configures the shared rate-limit store.
type RedisConfig struct {
	Addr      string `koanf:"addr"`
	Password  string `koanf:"password"`
	DB        int    `koanf:"db"`
	KeyPrefix string `koanf:"key_prefix"`
}

// AuditConfig configures the security audit trail.
type AuditConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Backend         string        `koanf:"backend"` // memory or duckdb
	DuckDBPath      string        `koanf:"duckdb_path"`
	MaxEvents       int           `koanf:"max_events"`
	BufferSize      int           `koanf:"buffer_size"`
	RetentionDays   int           `koanf:"retention_days"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// EventsConfig configures the message bus for contact-form submissions.
type EventsConfig struct {
	Backend      string `koanf:"backend"` // memory or nats
	NATSURL      string `koanf:"nats_url"`
	ContactTopic string `koanf:"contact_topic"`
}

// LoggingConfig configures the zerolog logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Load reads configuration from defaults, the optional config file and the
// environment, then validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
