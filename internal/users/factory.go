// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/govportal/internal/authz"
	"github.com/tomtom215/govportal/internal/config"
	"github.com/tomtom215/govportal/internal/logging"
)

// Open returns the Store selected by cfg.Backend.
func Open(ctx context.Context, cfg *config.UsersConfig) (Store, error) {
	switch cfg.Backend {
	case "memory":
		logging.Warn().Msg("Using in-memory user store; accounts are lost on restart")
		return NewMemoryStore(), nil
	case "badger":
		return OpenBadgerStore(cfg.BadgerPath)
	case "mongo":
		return OpenMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case "postgres":
		return OpenPostgresStore(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown user store backend %q", cfg.Backend)
	}
}

// NewUser builds an active user with a fresh id. The caller supplies an
// already-hashed password.
func NewUser(username, email, passwordHash string, role authz.Role, now time.Time) *User {
	return &User{
		ID:           uuid.New().String(),
		Username:     NormalizeUsername(username),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Bootstrap creates u as a super_admin when the store is empty. It reports
// whether the account was created.
func Bootstrap(ctx context.Context, store Store, u *User) (bool, error) {
	n, err := store.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	u.Role = authz.RoleSuperAdmin
	u.Active = true
	if err := store.Create(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			return false, nil
		}
		return false, fmt.Errorf("create bootstrap user: %w", err)
	}
	logging.Info().Str("username", u.Username).Msg("Created bootstrap super_admin account")
	return true, nil
}
