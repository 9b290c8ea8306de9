// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists config file locations in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/govportal/config.yaml",
	"/etc/govportal/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultTurnstileVerifyURL is Cloudflare's siteverify endpoint.
const DefaultTurnstileVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			Environment:     "development",
		},
		Security: SecurityConfig{
			JWTSecret:            "",
			TokenIssuer:          "govportal",
			AccessTokenTTL:       24 * time.Hour,
			RememberMeTTL:        7 * 24 * time.Hour,
			RefreshTokenTTL:      7 * 24 * time.Hour,
			CookieSecure:         true,
			CORSOrigins:          []string{},
			TrustedProxies:       []string{},
			APIRateLimitReqs:     300,
			APIRateLimitWindow:   time.Minute,
			APIRateLimitDisabled: false,
		},
		RateLimit: RateLimitConfig{
			Store:         "memory",
			MaxAttempts:   5,
			Window:        15 * time.Minute,
			BlockDuration: 30 * time.Minute,
			SweepInterval: 5 * time.Minute,
		},
		Lockout: LockoutConfig{
			Enabled:     true,
			MaxAttempts: 5,
			Duration:    30 * time.Minute,
		},
		Turnstile: TurnstileConfig{
			Enabled:           true,
			VerifyURL:         DefaultTurnstileVerifyURL,
			Timeout:           10 * time.Second,
			RequestsPerSecond: 20,
			Burst:             40,
		},
		CSRF: CSRFConfig{
			Enabled:    true,
			CookieName: "_csrf",
			HeaderName: "X-CSRF-Token",
			TokenTTL:   24 * time.Hour,
		},
		Authz: AuthzConfig{
			Engine: "static",
		},
		Users: UsersConfig{
			Backend:       "memory",
			BadgerPath:    "/data/users",
			MongoDatabase: "govportal",
		},
		Redis: RedisConfig{
			Addr:      "127.0.0.1:6379",
			KeyPrefix: "govportal:ratelimit:",
		},
		Audit: AuditConfig{
			Enabled:         true,
			Backend:         "memory",
			DuckDBPath:      "/data/audit.duckdb",
			MaxEvents:       10000,
			BufferSize:      1000,
			RetentionDays:   365,
			CleanupInterval: 24 * time.Hour,
		},
		Events: EventsConfig{
			Backend:      "memory",
			NATSURL:      "nats://127.0.0.1:4222",
			ContactTopic: "contact.submitted",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads configuration with precedence ENV > file > defaults.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are split on commas when they arrive as a single string.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.trusted_proxies",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to config paths.
var envMappings = map[string]string{
	"http_host":        "server.host",
	"http_port":        "server.port",
	"read_timeout":     "server.read_timeout",
	"write_timeout":    "server.write_timeout",
	"idle_timeout":     "server.idle_timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"environment":      "server.environment",

	"jwt_secret":              "security.jwt_secret",
	"token_issuer":            "security.token_issuer",
	"access_token_ttl":        "security.access_token_ttl",
	"remember_me_ttl":         "security.remember_me_ttl",
	"refresh_token_ttl":       "security.refresh_token_ttl",
	"cookie_secure":           "security.cookie_secure",
	"cookie_domain":           "security.cookie_domain",
	"cors_origins":            "security.cors_origins",
	"trusted_proxies":         "security.trusted_proxies",
	"api_rate_limit_requests": "security.api_rate_limit_reqs",
	"api_rate_limit_window":   "security.api_rate_limit_window",
	"disable_api_rate_limit":  "security.api_rate_limit_disabled",

	"rate_limit_store":          "rate_limit.store",
	"rate_limit_max_attempts":   "rate_limit.max_attempts",
	"rate_limit_window":         "rate_limit.window",
	"rate_limit_block_duration": "rate_limit.block_duration",
	"rate_limit_sweep_interval": "rate_limit.sweep_interval",

	"lockout_enabled":      "lockout.enabled",
	"lockout_max_attempts": "lockout.max_attempts",
	"lockout_duration":     "lockout.duration",

	"turnstile_enabled":    "turnstile.enabled",
	"turnstile_secret_key": "turnstile.secret_key",
	"turnstile_verify_url": "turnstile.verify_url",
	"turnstile_timeout":    "turnstile.timeout",
	"turnstile_rps":        "turnstile.requests_per_second",
	"turnstile_burst":      "turnstile.burst",

	"csrf_enabled":     "csrf.enabled",
	"csrf_cookie_name": "csrf.cookie_name",
	"csrf_header_name": "csrf.header_name",
	"csrf_token_ttl":   "csrf.token_ttl",

	"authz_engine": "authz.engine",

	"user_store":         "users.backend",
	"user_store_path":    "users.badger_path",
	"mongo_uri":          "users.mongo_uri",
	"mongo_database":     "users.mongo_database",
	"postgres_dsn":       "users.postgres_dsn",
	"bootstrap_username": "users.bootstrap_username",
	"bootstrap_password": "users.bootstrap_password",
	"bootstrap_email":    "users.bootstrap_email",

	"redis_addr":       "redis.addr",
	"redis_password":   "redis.password",
	"redis_db":         "redis.db",
	"redis_key_prefix": "redis.key_prefix",

	"audit_enabled":          "audit.enabled",
	"audit_store":            "audit.backend",
	"audit_duckdb_path":      "audit.duckdb_path",
	"audit_max_events":       "audit.max_events",
	"audit_buffer_size":      "audit.buffer_size",
	"audit_retention_days":   "audit.retention_days",
	"audit_cleanup_interval": "audit.cleanup_interval",

	"events_backend": "events.backend",
	"nats_url":       "events.nats_url",
	"contact_topic":  "events.contact_topic",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its config path.
// Unmapped variables return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// Default returns the compiled defaults without reading a file or the
// environment. The JWT secret is left empty.
func Default() *Config {
	return defaultConfig()
}
