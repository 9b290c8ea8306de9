// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package audit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func sampleEvents() []*Event {
	return []*Event{
		{ID: "e1", Timestamp: baseTime, Type: EventLoginFailure, Severity: SeverityWarning, Outcome: OutcomeFailure,
			Actor: Actor{Username: "clerk"}, SourceIP: "1.2.3.4", Action: "login"},
		{ID: "e2", Timestamp: baseTime.Add(time.Minute), Type: EventLoginSuccess, Severity: SeverityInfo, Outcome: OutcomeSuccess,
			Actor: Actor{ID: "u1", Username: "clerk", Role: "editor"}, SourceIP: "1.2.3.4", Action: "login"},
		{ID: "e3", Timestamp: baseTime.Add(2 * time.Minute), Type: EventPermissionDenied, Severity: SeverityWarning, Outcome: OutcomeFailure,
			Actor: Actor{ID: "u1", Role: "editor"}, Target: &Target{ID: "delete_user", Kind: "permission"},
			SourceIP: "1.2.3.4", Action: "authorize", Metadata: map[string]string{"path": "/api/v1/users/u2"}},
		{ID: "e4", Timestamp: baseTime.Add(3 * time.Minute), Type: EventRateLimited, Severity: SeverityWarning, Outcome: OutcomeFailure,
			SourceIP: "5.6.7.8", Action: "rate_limit"},
	}
}

func seededStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore(100)
	for _, e := range sampleEvents() {
		if err := s.Save(context.Background(), e); err != nil {
			t.Fatalf("Save(%s): %v", e.ID, err)
		}
	}
	return s
}

func ids(events []Event) string {
	out := ""
	for i, e := range events {
		if i > 0 {
			out += ","
		}
		out += e.ID
	}
	return out
}

func TestMemoryStore_Query(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter Filter
		want   string
	}{
		{"all newest first", Filter{}, "e4,e3,e2,e1"},
		{"oldest first", Filter{OldestFirst: true}, "e1,e2,e3,e4"},
		{"by type", Filter{Types: []EventType{EventLoginFailure, EventLoginSuccess}}, "e2,e1"},
		{"by outcome", Filter{Outcome: OutcomeSuccess}, "e2"},
		{"by actor", Filter{ActorID: "u1"}, "e3,e2"},
		{"by target", Filter{TargetID: "delete_user"}, "e3"},
		{"by ip", Filter{SourceIP: "5.6.7.8"}, "e4"},
		{"since", Filter{Since: baseTime.Add(2 * time.Minute)}, "e4,e3"},
		{"until", Filter{Until: baseTime.Add(time.Minute)}, "e2,e1"},
		{"limit", Filter{Limit: 2}, "e4,e3"},
		{"offset", Filter{Limit: 2, Offset: 1}, "e3,e2"},
		{"no match", Filter{ActorID: "nobody"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query() error: %v", err)
			}
			if ids(got) != tt.want {
				t.Errorf("Query() = %q, want %q", ids(got), tt.want)
			}
		})
	}
}

func TestMemoryStore_Count(t *testing.T) {
	s := seededStore(t)
	n, err := s.Count(context.Background(), Filter{Outcome: OutcomeFailure, Limit: 1})
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if n != 3 {
		t.Errorf("Count() = %d, want 3 (limit ignored)", n)
	}
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	e, err := s.Get(ctx, "e3")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	e.Target.ID = "mutated"
	e.Metadata["path"] = "mutated"

	again, _ := s.Get(ctx, "e3")
	if again.Target.ID != "delete_user" || again.Metadata["path"] != "/api/v1/users/u2" {
		t.Error("mutating a returned event changed the stored event")
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_DropsOldestWhenFull(t *testing.T) {
	s := NewMemoryStore(10)
	ctx := context.Background()
	for i := 0; i < 11; i++ {
		_ = s.Save(ctx, &Event{ID: fmt.Sprintf("e%d", i), Timestamp: baseTime.Add(time.Duration(i) * time.Second)})
	}
	if s.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", s.Len())
	}
	if _, err := s.Get(ctx, "e0"); !errors.Is(err, ErrNotFound) {
		t.Error("oldest event should have been dropped")
	}
	if _, err := s.Get(ctx, "e10"); err != nil {
		t.Error("newest event should be kept")
	}
}

func TestMemoryStore_Purge(t *testing.T) {
	s := seededStore(t)
	n, err := s.Purge(context.Background(), baseTime.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("Purge() error: %v", err)
	}
	if n != 2 {
		t.Errorf("Purge() removed %d, want 2", n)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestMemoryStore_SaveNil(t *testing.T) {
	if err := NewMemoryStore(1).Save(context.Background(), nil); err == nil {
		t.Error("Save(nil) should fail")
	}
}

func TestFilterLimit(t *testing.T) {
	tests := map[int]int{0: DefaultQueryLimit, -5: DefaultQueryLimit, 10: 10, MaxQueryLimit + 1: MaxQueryLimit}
	for in, want := range tests {
		if got := (Filter{Limit: in}).limit(); got != want {
			t.Errorf("Filter{Limit: %d}.limit() = %d, want %d", in, got, want)
		}
	}
}

func TestSeverityAtLeast(t *testing.T) {
	if !SeverityCritical.AtLeast(SeverityWarning) {
		t.Error("critical should be at least warning")
	}
	if SeverityInfo.AtLeast(SeverityWarning) {
		t.Error("info should not be at least warning")
	}
	if !SeverityWarning.AtLeast(SeverityWarning) {
		t.Error("warning should be at least warning")
	}
}
