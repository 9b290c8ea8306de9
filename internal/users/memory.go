// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package users

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore implements Store in process memory. Contents are lost on
// restart.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]*User
	byUsername map[string]string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]*User),
		byUsername: make(map[string]string),
	}
}

// Create stores a new user.
func (s *MemoryStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := NormalizeUsername(u.Username)
	if _, taken := s.byUsername[name]; taken {
		return ErrDuplicateUsername
	}
	stored := u.Clone()
	stored.Username = name
	s.byID[u.ID] = stored
	s.byUsername[name] = u.ID
	return nil
}

// GetByID returns a copy of the user with id.
func (s *MemoryStore) GetByID(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u.Clone(), nil
}

// GetByUsername returns a copy of the user with username.
func (s *MemoryStore) GetByUsername(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[NormalizeUsername(username)]
	if !ok {
		return nil, ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

// Update replaces a stored user. The username cannot change.
func (s *MemoryStore) Update(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[u.ID]
	if !ok {
		return ErrNotFound
	}
	stored := u.Clone()
	stored.Username = existing.Username
	s.byID[u.ID] = stored
	return nil
}

// Delete removes a user.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byUsername, u.Username)
	delete(s.byID, id)
	return nil
}

// List returns all users ordered by username.
func (s *MemoryStore) List(_ context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*User, 0, len(s.byID))
	for _, u := range s.byID {
		out = append(out, u.Clone())
	}
	sortByUsername(out)
	return out, nil
}

// Count returns the number of users.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func sortByUsername(list []*User) {
	sort.Slice(list, func(i, j int) bool { return list[i].Username < list[j].Username })
}
