// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

// Package users stores administrative accounts: credentials, role assignment
// and lockout state.
//
// The Store interface has four implementations selected by users.backend:
// an in-memory map for development and tests, BadgerDB for single-node
// deployments, MongoDB for production and PostgreSQL through the pgx
// database/sql driver.
package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tomtom215/govportal/internal/authz"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")

	// ErrDuplicateUsername is returned when creating a user whose username
	// is already taken.
	ErrDuplicateUsername = errors.New("username already exists")
)

// User is an administrative account.
//
// PasswordHash is excluded from JSON so it never reaches an API response.
// Stores that persist JSON wrap the user in their own record type.
type User struct {
	ID           string     `json:"id" bson:"_id"`
	Username     string     `json:"username" bson:"username"`
	Email        string     `json:"email" bson:"email"`
	DisplayName  string     `json:"displayName,omitempty" bson:"display_name,omitempty"`
	Department   string     `json:"department,omitempty" bson:"department,omitempty"`
	PasswordHash string     `json:"-" bson:"password_hash"`
	Role         authz.Role `json:"role" bson:"role"`
	Active       bool       `json:"active" bson:"active"`

	FailedLoginAttempts int       `json:"failedLoginAttempts" bson:"failed_login_attempts"`
	LockoutUntil        time.Time `json:"lockoutUntil,omitempty" bson:"lockout_until,omitempty"`
	LastLogin           time.Time `json:"lastLogin,omitempty" bson:"last_login,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

// IsLocked reports whether the account is locked at now.
func (u *User) IsLocked(now time.Time) bool {
	return !u.LockoutUntil.IsZero() && now.Before(u.LockoutUntil)
}

// LockRemaining returns how long the lock lasts from now, or zero.
func (u *User) LockRemaining(now time.Time) time.Duration {
	if !u.IsLocked(now) {
		return 0
	}
	return u.LockoutUntil.Sub(now)
}

// RecordFailedLogin counts one wrong password. When the count reaches
// maxAttempts the account locks for duration and RecordFailedLogin returns
// true.
//
// The first failure after a lock has expired starts a new cycle from one.
// LockoutUntil keeps its elapsed value until the account relocks; only
// RecordSuccessfulLogin and Unlock clear it.
func (u *User) RecordFailedLogin(now time.Time, maxAttempts int, duration time.Duration) bool {
	if u.lockExpired(now) && u.FailedLoginAttempts >= maxAttempts {
		u.FailedLoginAttempts = 0
	}
	u.FailedLoginAttempts++
	u.UpdatedAt = now
	if maxAttempts > 0 && u.FailedLoginAttempts >= maxAttempts {
		u.LockoutUntil = now.Add(duration)
		return true
	}
	return false
}

func (u *User) lockExpired(now time.Time) bool {
	return !u.LockoutUntil.IsZero() && !now.Before(u.LockoutUntil)
}

// RecordSuccessfulLogin clears lockout state and stamps the login time.
func (u *User) RecordSuccessfulLogin(now time.Time) {
	u.FailedLoginAttempts = 0
	u.LockoutUntil = time.Time{}
	u.LastLogin = now
	u.UpdatedAt = now
}

// Unlock clears lockout state (admin action).
func (u *User) Unlock(now time.Time) {
	u.FailedLoginAttempts = 0
	u.LockoutUntil = time.Time{}
	u.UpdatedAt = now
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	c := *u
	return &c
}

// NormalizeUsername folds a username for storage and lookup.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Store persists users. Implementations are safe for concurrent use.
type Store interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*User, error)
	Count(ctx context.Context) (int, error)
	Close() error
}
