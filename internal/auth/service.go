// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/tomtom215/govportal/internal/audit"
	"github.com/tomtom215/govportal/internal/config"
	"github.com/tomtom215/govportal/internal/logging"
	"github.com/tomtom215/govportal/internal/users"
)

// LoginRequest is the login form.
type LoginRequest struct {
	Username       string `json:"username" validate:"required,max=64"`
	Password       string `json:"password" validate:"required,max=128"`
	TurnstileToken string `json:"turnstileToken" validate:"max=2048"`
	RememberMe     bool   `json:"rememberMe"`
}

// RequestMeta describes the client a use case runs for.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// Session is a successful login or refresh.
type Session struct {
	User   *users.User
	Tokens TokenPair
}

// Authenticator runs the login, refresh and logout use cases and the
// account administration that goes with them.
type Authenticator struct {
	users    users.Store
	issuer   *TokenIssuer
	limiter  *RateLimiter
	bot      BotVerifier
	audit    *audit.Logger
	security *logging.SecurityLogger
	lockout  config.LockoutConfig
	now      func() time.Time
}

// AuthenticatorOption configures an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithAuthenticatorClock replaces time.Now for lockout bookkeeping.
func WithAuthenticatorClock(now func() time.Time) AuthenticatorOption {
	return func(a *Authenticator) { a.now = now }
}

// NewAuthenticator wires the login use case. auditLog may be nil.
func NewAuthenticator(store users.Store, issuer *TokenIssuer, limiter *RateLimiter, bot BotVerifier, auditLog *audit.Logger, lockout config.LockoutConfig, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		users:    store,
		issuer:   issuer,
		limiter:  limiter,
		bot:      bot,
		audit:    auditLog,
		security: logging.NewSecurityLogger(),
		lockout:  lockout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Login authenticates req.
//
// Order: rate limit, bot verification, account lock, password, active flag.
// A blocked IP learns nothing else about the account. The active flag is
// only revealed to a caller who knows the password. Unknown usernames and
// wrong passwords return the same error after the same bcrypt work.
func (a *Authenticator) Login(ctx context.Context, req LoginRequest, meta RequestMeta) (*Session, error) {
	s, err := a.login(ctx, req, meta)
	RecordLoginAttempt(loginOutcome(err))
	return s, err
}

func (a *Authenticator) login(ctx context.Context, req LoginRequest, meta RequestMeta) (*Session, error) {
	username := users.NormalizeUsername(req.Username)

	allowed, retryAfter, err := a.limiter.Check(ctx, meta.IP)
	if err != nil {
		return nil, err
	}
	if !allowed {
		RateLimitRejectionsTotal.Inc()
		a.security.LogRateLimited(meta.IP, "login")
		a.record(ctx, meta, audit.EventRateLimited, audit.SeverityWarning, audit.OutcomeFailure,
			audit.Actor{Username: username}, nil, "login attempt from blocked client IP")
		e := newError(ErrRateLimited, nil)
		e.RetryAfter = retryAfter
		return nil, e
	}

	if err := a.bot.Verify(ctx, req.TurnstileToken, meta.IP); err != nil {
		a.security.LogBotVerificationFailure(meta.IP, "login", err.Error())
		a.record(ctx, meta, audit.EventBotRejected, audit.SeverityWarning, audit.OutcomeFailure,
			audit.Actor{Username: username}, nil, "bot verification failed")
		if _, ok := AsError(err); ok {
			return nil, err
		}
		return nil, newError(ErrBotVerificationFailed, err)
	}

	u, err := a.users.GetByUsername(ctx, username)
	if errors.Is(err, users.ErrNotFound) {
		equalizeTiming(req.Password)
		return nil, a.rejectCredentials(ctx, meta, username, "unknown user")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	now := a.now()
	if u.IsLocked(now) {
		equalizeTiming(req.Password)
		a.security.LogLoginFailure(username, meta.IP, meta.UserAgent, "account locked")
		a.record(ctx, meta, audit.EventLoginFailure, audit.SeverityWarning, audit.OutcomeFailure,
			actorOf(u), userTarget(u), "account locked")
		e := newError(ErrAccountLocked, nil)
		e.RetryAfter = u.LockRemaining(now)
		return nil, e
	}

	if !VerifyPassword(u.PasswordHash, req.Password) {
		return nil, a.wrongPassword(ctx, meta, u, now)
	}

	if !u.Active {
		a.security.LogAccountInactive(u.ID, u.Username, meta.IP)
		a.record(ctx, meta, audit.EventAccountInactive, audit.SeverityWarning, audit.OutcomeFailure,
			actorOf(u), userTarget(u), "login refused for inactive account")
		return nil, newError(ErrAccountInactive, nil)
	}

	if err := a.limiter.Clear(ctx, meta.IP); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to clear rate limit record after login")
	}
	u.RecordSuccessfulLogin(now)
	if err := a.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("save login state: %w", err)
	}

	pair, err := a.issuer.Issue(identityOf(u), req.RememberMe)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	a.security.LogLoginSuccess(u.ID, u.Username, meta.IP, meta.UserAgent)
	a.record(ctx, meta, audit.EventLoginSuccess, audit.SeverityInfo, audit.OutcomeSuccess,
		actorOf(u), nil, "")
	return &Session{User: u, Tokens: pair}, nil
}

// wrongPassword counts the failure against the IP and the account.
func (a *Authenticator) wrongPassword(ctx context.Context, meta RequestMeta, u *users.User, now time.Time) error {
	if !a.lockout.Enabled {
		return a.rejectCredentials(ctx, meta, u.Username, "wrong password")
	}

	locked := u.RecordFailedLogin(now, a.lockout.MaxAttempts, a.lockout.Duration)
	if err := a.users.Update(ctx, u); err != nil {
		return fmt.Errorf("save failed login: %w", err)
	}

	credErr := a.rejectCredentials(ctx, meta, u.Username, "wrong password")
	if !locked {
		return credErr
	}
	if _, ok := AsError(credErr); !ok {
		return credErr
	}

	AccountLockoutsTotal.Inc()
	a.security.LogAccountLocked(u.ID, u.Username, meta.IP, u.FailedLoginAttempts, u.LockoutUntil.Format(time.RFC3339))
	a.record(ctx, meta, audit.EventAccountLocked, audit.SeverityCritical, audit.OutcomeFailure,
		actorOf(u), userTarget(u), "locked after "+strconv.Itoa(u.FailedLoginAttempts)+" failed logins")

	e := newError(ErrAccountLocked, nil)
	e.RetryAfter = u.LockRemaining(now)
	return e
}

// rejectCredentials records a bad credential attempt against the client IP.
func (a *Authenticator) rejectCredentials(ctx context.Context, meta RequestMeta, username, reason string) error {
	if _, err := a.limiter.RecordFailedAttempt(ctx, meta.IP); err != nil {
		return err
	}
	a.security.LogLoginFailure(username, meta.IP, meta.UserAgent, reason)
	a.record(ctx, meta, audit.EventLoginFailure, audit.SeverityWarning, audit.OutcomeFailure,
		audit.Actor{Username: username}, nil, reason)
	return newError(ErrInvalidCredentials, nil)
}

// Refresh exchanges a refresh token for a new pair. The user is reloaded,
// so deactivation, deletion and role changes apply here.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string, meta RequestMeta) (*Session, error) {
	userID, err := a.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	u, err := a.users.GetByID(ctx, userID)
	if errors.Is(err, users.ErrNotFound) {
		return nil, newError(ErrTokenInvalid, err)
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !u.Active {
		return nil, newError(ErrAccountInactive, nil)
	}
	if now := a.now(); u.IsLocked(now) {
		e := newError(ErrAccountLocked, nil)
		e.RetryAfter = u.LockRemaining(now)
		return nil, e
	}

	pair, err := a.issuer.Issue(identityOf(u), false)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	a.record(ctx, meta, audit.EventTokenRefreshed, audit.SeverityInfo, audit.OutcomeSuccess, actorOf(u), nil, "")
	return &Session{User: u, Tokens: pair}, nil
}

// Logout records the end of a session. Tokens are stateless, so the caller
// clears the cookies.
func (a *Authenticator) Logout(ctx context.Context, id Identity, meta RequestMeta) {
	a.security.LogLogout(id.UserID, meta.IP)
	a.record(ctx, meta, audit.EventLogout, audit.SeverityInfo, audit.OutcomeSuccess,
		audit.Actor{ID: id.UserID, Username: id.Username, Role: string(id.Role)}, nil, "")
}

func (a *Authenticator) record(ctx context.Context, meta RequestMeta, typ audit.EventType, sev audit.Severity, outcome audit.Outcome, actor audit.Actor, target *audit.Target, detail string) {
	a.audit.Record(ctx, &audit.Event{
		Type:      typ,
		Severity:  sev,
		Outcome:   outcome,
		Actor:     actor,
		Target:    target,
		SourceIP:  meta.IP,
		UserAgent: meta.UserAgent,
		Action:    string(typ),
		Detail:    detail,
	})
}

func identityOf(u *users.User) Identity {
	return Identity{
		UserID:     u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Role:       u.Role,
		Department: u.Department,
	}
}

func actorOf(u *users.User) audit.Actor {
	return audit.Actor{ID: u.ID, Username: u.Username, Role: string(u.Role)}
}

func userTarget(u *users.User) *audit.Target {
	return &audit.Target{ID: u.ID, Kind: "user", Name: u.Username}
}
