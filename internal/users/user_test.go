// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package users

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestUser_RecordFailedLogin_LocksAtMax(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	u := &User{}

	for i := 1; i < 5; i++ {
		if u.RecordFailedLogin(now, 5, 30*time.Minute) {
			t.Fatalf("attempt %d should not lock", i)
		}
	}
	if !u.RecordFailedLogin(now, 5, 30*time.Minute) {
		t.Fatal("fifth attempt should lock")
	}
	if !u.IsLocked(now.Add(29 * time.Minute)) {
		t.Error("account should be locked within the lockout duration")
	}
	if u.IsLocked(now.Add(30 * time.Minute)) {
		t.Error("account should unlock once the duration elapses")
	}
	if got := u.LockRemaining(now.Add(10 * time.Minute)); got != 20*time.Minute {
		t.Errorf("LockRemaining = %v, want 20m", got)
	}
}

func TestUser_RecordFailedLogin_ExpiredLockStartsNewCycle(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expired := now.Add(-time.Minute)
	u := &User{FailedLoginAttempts: 5, LockoutUntil: expired}

	if u.RecordFailedLogin(now, 5, 30*time.Minute) {
		t.Fatal("first failure after an expired lock should not relock")
	}
	if u.FailedLoginAttempts != 1 {
		t.Errorf("FailedLoginAttempts = %d, want 1", u.FailedLoginAttempts)
	}
	if !u.LockoutUntil.Equal(expired) {
		t.Errorf("LockoutUntil = %v, want it kept at %v", u.LockoutUntil, expired)
	}
	if u.IsLocked(now) {
		t.Error("expired lock should not count as locked")
	}
}

func TestUser_RecordFailedLogin_RelocksAfterExpiredLock(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	u := &User{}
	for i := 0; i < 5; i++ {
		u.RecordFailedLogin(start, 5, time.Minute)
	}
	firstLock := u.LockoutUntil

	later := start.Add(2 * time.Minute)
	for i := 1; i < 5; i++ {
		if u.RecordFailedLogin(later, 5, time.Minute) {
			t.Fatalf("failure %d of the second cycle should not lock", i)
		}
		if !u.LockoutUntil.Equal(firstLock) {
			t.Fatalf("failure %d changed LockoutUntil to %v", i, u.LockoutUntil)
		}
	}
	if !u.RecordFailedLogin(later, 5, time.Minute) {
		t.Fatal("fifth failure of the second cycle should lock")
	}
	if want := later.Add(time.Minute); !u.LockoutUntil.Equal(want) {
		t.Errorf("LockoutUntil = %v, want %v", u.LockoutUntil, want)
	}
}

func TestUser_SuccessAndUnlockClearLockout(t *testing.T) {
	now := time.Now()
	u := &User{FailedLoginAttempts: 5, LockoutUntil: now.Add(time.Hour)}
	u.RecordSuccessfulLogin(now)
	if u.IsLocked(now) || u.FailedLoginAttempts != 0 {
		t.Error("successful login should clear lockout state")
	}
	if !u.LastLogin.Equal(now) {
		t.Error("LastLogin should be stamped")
	}

	u = &User{FailedLoginAttempts: 5, LockoutUntil: now.Add(time.Hour)}
	u.Unlock(now)
	if u.IsLocked(now) || u.FailedLoginAttempts != 0 {
		t.Error("Unlock should clear lockout state")
	}
}

func TestUser_JSONOmitsPasswordHash(t *testing.T) {
	u := &User{ID: "u1", Username: "alice", PasswordHash: "$2a$10$secret"}
	data, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	for key := range decoded {
		if key == "PasswordHash" || key == "passwordHash" || key == "password_hash" {
			t.Fatalf("password hash serialized under %q", key)
		}
	}
}

func TestNormalizeUsername(t *testing.T) {
	tests := map[string]string{
		"Admin":    "admin",
		"  bob  ":  "bob",
		"carol":    "carol",
		"DÉSIRÉE": "désirée",
	}
	for in, want := range tests {
		if got := NormalizeUsername(in); got != want {
			t.Errorf("NormalizeUsername(%q) = %q, want %q", in, got, want)
		}
	}
}
