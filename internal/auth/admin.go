// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/govportal/internal/audit"
	"github.com/tomtom215/govportal/internal/authz"
	"github.com/tomtom215/govportal/internal/users"
)

// ErrSelfModification is returned when an admin tries to deactivate or
// delete their own account.
var ErrSelfModification = errors.New("cannot deactivate or delete your own account")

// CreateUserInput is the account creation form.
type CreateUserInput struct {
	Username    string `json:"username" validate:"required,min=3,max=64,username"`
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
	Role        string `json:"role" validate:"required,oneof=super_admin admin editor viewer"`
	DisplayName string `json:"displayName" validate:"max=128"`
	Department  string `json:"department" validate:"max=128"`
}

// ListUsers returns every account sorted by username.
func (a *Authenticator) ListUsers(ctx context.Context) ([]*users.User, error) {
	return a.users.List(ctx)
}

// GetUser returns one account.
func (a *Authenticator) GetUser(ctx context.Context, id string) (*users.User, error) {
	return a.users.GetByID(ctx, id)
}

// CreateUser hashes the password and stores a new active account.
func (a *Authenticator) CreateUser(ctx context.Context, actor Identity, in CreateUserInput, meta RequestMeta) (*users.User, error) {
	role, err := authz.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}
	if role == authz.RoleSuperAdmin && actor.Role != authz.RoleSuperAdmin {
		return nil, newError(ErrForbidden, errors.New("only a super admin may create a super admin"))
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := users.NewUser(in.Username, in.Email, hash, role, a.now().UTC())
	u.DisplayName = in.DisplayName
	u.Department = in.Department
	if err := a.users.Create(ctx, u); err != nil {
		return nil, err
	}

	a.record(ctx, meta, audit.EventUserCreated, audit.SeverityInfo, audit.OutcomeSuccess,
		actorAudit(actor), userTarget(u), "role "+string(role))
	return u, nil
}

// SetActive enables or disables an account.
func (a *Authenticator) SetActive(ctx context.Context, actor Identity, id string, active bool, meta RequestMeta) (*users.User, error) {
	if !active && id == actor.UserID {
		return nil, ErrSelfModification
	}
	u, err := a.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Active == active {
		return u, nil
	}

	u.Active = active
	u.UpdatedAt = a.now().UTC()
	if err := a.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	change := "deactivated"
	if active {
		change = "activated"
	}
	a.security.LogAccountStatusChange(actor.UserID, u.ID, change)
	a.record(ctx, meta, audit.EventUserStatusChanged, audit.SeverityWarning, audit.OutcomeSuccess,
		actorAudit(actor), userTarget(u), change)
	return u, nil
}

// Unlock clears a lockout before it expires.
func (a *Authenticator) Unlock(ctx context.Context, actor Identity, id string, meta RequestMeta) (*users.User, error) {
	u, err := a.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Unlock(a.now().UTC())
	if err := a.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	a.security.LogAccountStatusChange(actor.UserID, u.ID, "unlocked")
	a.record(ctx, meta, audit.EventAccountUnlocked, audit.SeverityInfo, audit.OutcomeSuccess,
		actorAudit(actor), userTarget(u), "")
	return u, nil
}

// DeleteUser removes an account.
func (a *Authenticator) DeleteUser(ctx context.Context, actor Identity, id string, meta RequestMeta) error {
	if id == actor.UserID {
		return ErrSelfModification
	}
	u, err := a.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := a.users.Delete(ctx, id); err != nil {
		return err
	}

	a.security.LogAccountStatusChange(actor.UserID, id, "deleted")
	a.record(ctx, meta, audit.EventUserDeleted, audit.SeverityWarning, audit.OutcomeSuccess,
		actorAudit(actor), userTarget(u), "")
	return nil
}

func actorAudit(id Identity) audit.Actor {
	return audit.Actor{ID: id.UserID, Username: id.Username, Role: string(id.Role)}
}
