// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/govportal/internal/audit"
	"github.com/tomtom215/govportal/internal/authz"
	"github.com/tomtom215/govportal/internal/users"
)

const testPassword = "correct-horse-battery"

type authFixture struct {
	auth   *Authenticator
	users  *users.MemoryStore
	clock  *fakeClock
	audit  *audit.Logger
	events *audit.MemoryStore
	user   *users.User
	admin  Identity
}

type rejectingBot struct{}

func (rejectingBot) Verify(context.Context, string, string) error {
	return newError(ErrBotVerificationFailed, errors.New("rejected"))
}

func newAuthFixture(t *testing.T, bot BotVerifier) *authFixture {
	t.Helper()
	clock := newFakeClock()
	cfg := testConfig()

	store := users.NewMemoryStore()
	hash, err := HashPassword(testPassword)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	u := users.NewUser("editor1", "editor1@example.gov", hash, authz.RoleEditor, clock.Now())
	if err := store.Create(context.Background(), u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	events := audit.NewMemoryStore(1000)
	auditLog := audit.NewLogger(events, audit.DefaultConfig())
	t.Cleanup(func() { auditLog.Close() })

	if bot == nil {
		bot = NoopBotVerifier{}
	}
	limiter := NewRateLimiter(NewMemoryRateLimitStore(), &cfg.RateLimit, WithRateLimitClock(clock.Now))
	a := NewAuthenticator(store, newTestIssuer(t, clock), limiter, bot, auditLog, cfg.Lockout, WithAuthenticatorClock(clock.Now))

	return &authFixture{
		auth:   a,
		users:  store,
		clock:  clock,
		audit:  auditLog,
		events: events,
		user:   u,
		admin:  Identity{UserID: "admin-1", Username: "root", Role: authz.RoleSuperAdmin},
	}
}

func (f *authFixture) login(password, ip string) (*Session, error) {
	return f.auth.Login(context.Background(), LoginRequest{Username: "editor1", Password: password}, RequestMeta{IP: ip, UserAgent: "test"})
}

func (f *authFixture) countEvents(t *testing.T, typ audit.EventType) int64 {
	t.Helper()
	f.audit.Close()
	n, err := f.events.Count(context.Background(), audit.Filter{Types: []audit.EventType{typ}})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	return n
}

func TestAuthenticator_LoginSuccess(t *testing.T) {
	f := newAuthFixture(t, nil)
	before := testutil.ToFloat64(LoginAttemptsTotal.WithLabelValues("success"))

	s, err := f.login(testPassword, "1.2.3.4")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if s.User.ID != f.user.ID || s.Tokens.AccessToken == "" || s.Tokens.RefreshToken == "" {
		t.Fatalf("Login() session = %+v", s)
	}

	stored, _ := f.users.GetByID(context.Background(), f.user.ID)
	if !stored.LastLogin.Equal(f.clock.Now()) {
		t.Errorf("LastLogin = %v, want %v", stored.LastLogin, f.clock.Now())
	}
	if got := testutil.ToFloat64(LoginAttemptsTotal.WithLabelValues("success")) - before; got != 1 {
		t.Errorf("success counter delta = %v, want 1", got)
	}
	if n := f.countEvents(t, audit.EventLoginSuccess); n != 1 {
		t.Errorf("login success events = %d, want 1", n)
	}
}

func TestAuthenticator_UnknownUserAndWrongPasswordLookAlike(t *testing.T) {
	f := newAuthFixture(t, nil)

	_, errWrong := f.login("wrong-password", "1.2.3.4")
	_, errUnknown := f.auth.Login(context.Background(), LoginRequest{Username: "nobody", Password: "x"}, RequestMeta{IP: "1.2.3.5"})

	for _, err := range []error{errWrong, errUnknown} {
		e, ok := AsError(err)
		if !ok || e.Kind != KindInvalidCredentials {
			t.Fatalf("Login() error = %v, want invalid credentials", err)
		}
	}
	if errWrong.Error() != errUnknown.Error() {
		t.Errorf("errors differ: %q vs %q", errWrong, errUnknown)
	}
}

func TestAuthenticator_RateLimitBeatsCorrectPassword(t *testing.T) {
	f := newAuthFixture(t, nil)
	const ip = "1.2.3.4"

	for i := 0; i < 5; i++ {
		if _, err := f.login("wrong-password", ip); err == nil {
			t.Fatalf("attempt %d succeeded with wrong password", i+1)
		}
		f.clock.Advance(time.Minute)
	}

	_, err := f.login(testPassword, ip)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("6th Login() error = %v, want ErrRateLimited", err)
	}
	e, _ := AsError(err)
	if e.Status() != 429 || e.RetryAfter <= 0 {
		t.Errorf("status = %d, RetryAfter = %v", e.Status(), e.RetryAfter)
	}
}

func TestAuthenticator_AccountLockout(t *testing.T) {
	f := newAuthFixture(t, nil)
	lockoutsBefore := testutil.ToFloat64(AccountLockoutsTotal)

	// Spread attempts across IPs so the per-IP limiter stays open.
	var err error
	for i := 0; i < 5; i++ {
		_, err = f.login("wrong-password", "10.0.0."+string(rune('1'+i)))
	}
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("5th wrong password error = %v, want ErrAccountLocked", err)
	}
	if got := testutil.ToFloat64(AccountLockoutsTotal) - lockoutsBefore; got != 1 {
		t.Errorf("AccountLockoutsTotal delta = %v, want 1", got)
	}

	if _, err := f.login(testPassword, "10.0.1.1"); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("correct password on locked account error = %v, want ErrAccountLocked", err)
	}

	if _, err := f.auth.Unlock(context.Background(), f.admin, f.user.ID, RequestMeta{IP: "10.9.9.9"}); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if _, err := f.login(testPassword, "10.0.1.2"); err != nil {
		t.Fatalf("Login() after unlock error = %v", err)
	}

	if n := f.countEvents(t, audit.EventAccountLocked); n != 1 {
		t.Errorf("account locked events = %d, want 1", n)
	}
}

func TestAuthenticator_LockExpires(t *testing.T) {
	f := newAuthFixture(t, nil)
	for i := 0; i < 5; i++ {
		_, _ = f.login("wrong-password", "10.0.0."+string(rune('1'+i)))
	}
	f.clock.Advance(30 * time.Minute)
	if _, err := f.login(testPassword, "10.0.1.1"); err != nil {
		t.Fatalf("Login() after lock expiry error = %v", err)
	}
}

func TestAuthenticator_InactiveAccount(t *testing.T) {
	f := newAuthFixture(t, nil)
	if _, err := f.auth.SetActive(context.Background(), f.admin, f.user.ID, false, RequestMeta{}); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}

	_, err := f.login(testPassword, "1.2.3.4")
	if !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("Login() error = %v, want ErrAccountInactive", err)
	}
	// Wrong password on an inactive account does not reveal the flag.
	if _, err := f.login("wrong-password", "1.2.3.4"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
	}
	if n := f.countEvents(t, audit.EventAccountInactive); n != 1 {
		t.Errorf("inactive events = %d, want 1", n)
	}
}

func TestAuthenticator_BotVerification(t *testing.T) {
	f := newAuthFixture(t, rejectingBot{})
	_, err := f.login(testPassword, "1.2.3.4")
	if !errors.Is(err, ErrBotVerificationFailed) {
		t.Fatalf("Login() error = %v, want ErrBotVerificationFailed", err)
	}
	if e, _ := AsError(err); e.Status() != 400 {
		t.Errorf("status = %d, want 400", e.Status())
	}
}

func TestAuthenticator_Refresh(t *testing.T) {
	f := newAuthFixture(t, nil)
	s, err := f.login(testPassword, "1.2.3.4")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	refreshed, err := f.auth.Refresh(context.Background(), s.Tokens.RefreshToken, RequestMeta{})
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if refreshed.User.ID != f.user.ID {
		t.Errorf("Refresh() user = %s, want %s", refreshed.User.ID, f.user.ID)
	}

	if _, err := f.auth.Refresh(context.Background(), s.Tokens.AccessToken, RequestMeta{}); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Refresh(access token) error = %v, want ErrTokenInvalid", err)
	}

	if _, err := f.auth.SetActive(context.Background(), f.admin, f.user.ID, false, RequestMeta{}); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}
	if _, err := f.auth.Refresh(context.Background(), s.Tokens.RefreshToken, RequestMeta{}); !errors.Is(err, ErrAccountInactive) {
		t.Errorf("Refresh() for inactive user error = %v, want ErrAccountInactive", err)
	}

	if err := f.auth.DeleteUser(context.Background(), f.admin, f.user.ID, RequestMeta{}); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if _, err := f.auth.Refresh(context.Background(), s.Tokens.RefreshToken, RequestMeta{}); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Refresh() for deleted user error = %v, want ErrTokenInvalid", err)
	}
}

func TestAuthenticator_AdminOperations(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()

	u, err := f.auth.CreateUser(ctx, f.admin, CreateUserInput{
		Username: "Viewer2",
		Email:    "viewer2@example.gov",
		Password: "long-enough-password",
		Role:     "viewer",
	}, RequestMeta{})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if u.Username != "viewer2" || u.Role != authz.RoleViewer || !u.Active {
		t.Errorf("CreateUser() = %+v", u)
	}

	if _, err := f.auth.CreateUser(ctx, f.admin, CreateUserInput{Username: "x", Email: "x@example.gov", Password: "long-enough-password", Role: "root"}, RequestMeta{}); !errors.Is(err, authz.ErrUnknownRole) {
		t.Errorf("CreateUser(unknown role) error = %v, want ErrUnknownRole", err)
	}
	if _, err := f.auth.CreateUser(ctx, f.admin, CreateUserInput{Username: "viewer2", Email: "v@example.gov", Password: "long-enough-password", Role: "viewer"}, RequestMeta{}); !errors.Is(err, users.ErrDuplicateUsername) {
		t.Errorf("CreateUser(duplicate) error = %v, want ErrDuplicateUsername", err)
	}
	plainAdmin := Identity{UserID: "admin-2", Username: "ops", Role: authz.RoleAdmin}
	if _, err := f.auth.CreateUser(ctx, plainAdmin, CreateUserInput{Username: "boss", Email: "boss@example.gov", Password: "long-enough-password", Role: "super_admin"}, RequestMeta{}); !errors.Is(err, ErrForbidden) {
		t.Errorf("CreateUser(super_admin by admin) error = %v, want ErrForbidden", err)
	}

	self := Identity{UserID: u.ID, Role: authz.RoleViewer}
	if _, err := f.auth.SetActive(ctx, self, u.ID, false, RequestMeta{}); !errors.Is(err, ErrSelfModification) {
		t.Errorf("SetActive(self) error = %v, want ErrSelfModification", err)
	}
	if err := f.auth.DeleteUser(ctx, self, u.ID, RequestMeta{}); !errors.Is(err, ErrSelfModification) {
		t.Errorf("DeleteUser(self) error = %v, want ErrSelfModification", err)
	}
	if err := f.auth.DeleteUser(ctx, f.admin, "missing", RequestMeta{}); !errors.Is(err, users.ErrNotFound) {
		t.Errorf("DeleteUser(missing) error = %v, want ErrNotFound", err)
	}

	list, err := f.auth.ListUsers(ctx)
	if err != nil || len(list) != 2 {
		t.Fatalf("ListUsers() = %d users, %v; want 2", len(list), err)
	}
	if n := f.countEvents(t, audit.EventUserCreated); n != 1 {
		t.Errorf("user created events = %d, want 1", n)
	}
}
