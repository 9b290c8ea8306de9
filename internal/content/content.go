// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

// Package content is a minimal in-memory content collaborator: items by
// kind and contact-form submissions. Real content CRUD lives in the CMS;
// this store gives the admin gate real routes to protect.
package content

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/govportal/internal/authz"
)

var (
	// ErrNotFound is returned for an unknown item or contact id.
	ErrNotFound = errors.New("content not found")

	// ErrUnknownKind is returned for a kind outside the closed set.
	ErrUnknownKind = errors.New("unknown content kind")
)

// Kind is a content type.
type Kind string

const (
	KindNews        Kind = "news"
	KindDestination Kind = "destination"
	KindOfficial    Kind = "official"
	KindVillage     Kind = "village"
	KindGallery     Kind = "gallery"
)

// Action is a mutation on a kind.
type Action int

const (
	ActionCreate Action = iota
	ActionUpdate
	ActionDelete
)

var kindPermissions = map[Kind][3]authz.Permission{
	KindNews:        {authz.PermCreateNews, authz.PermUpdateNews, authz.PermDeleteNews},
	KindDestination: {authz.PermCreateDestination, authz.PermUpdateDestination, authz.PermDeleteDestination},
	KindOfficial:    {authz.PermCreateOfficial, authz.PermUpdateOfficial, authz.PermDeleteOfficial},
	KindVillage:     {authz.PermCreateVillage, authz.PermUpdateVillage, authz.PermDeleteVillage},
	KindGallery:     {authz.PermCreateGallery, authz.PermUpdateGallery, authz.PermDeleteGallery},
}

// Kinds returns every kind, sorted.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindPermissions))
	for k := range kindPermissions {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseKind validates s.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := kindPermissions[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Permission returns the permission a mutation on k requires.
func (k Kind) Permission(a Action) authz.Permission {
	return kindPermissions[k][a]
}

// CreatePermissions lists the create permission of every kind.
func CreatePermissions() []authz.Permission {
	out := make([]authz.Permission, 0, len(kindPermissions))
	for _, k := range Kinds() {
		out = append(out, k.Permission(ActionCreate))
	}
	return out
}

// Item is one piece of content.
type Item struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title" validate:"required,max=200"`
	Body      string    `json:"body" validate:"max=100000"`
	Published bool      `json:"published"`
	AuthorID  string    `json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Contact is a stored contact-form submission.
type Contact struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	Subject     string    `json:"subject"`
	Message     string    `json:"message"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Store keeps items and contacts in memory.
type Store struct {
	mu       sync.RWMutex
	items    map[Kind]map[string]*Item
	contacts []*Contact
	now      func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	items := make(map[Kind]map[string]*Item, len(kindPermissions))
	for k := range kindPermissions {
		items[k] = make(map[string]*Item)
	}
	return &Store{items: items, now: time.Now}
}

// List returns the items of kind, newest first.
func (s *Store) List(_ context.Context, kind Kind) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID, ok := s.items[kind]
	if !ok {
		return nil, ErrUnknownKind
	}
	out := make([]Item, 0, len(byID))
	for _, it := range byID {
		out = append(out, *it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Create stores a new item of kind.
func (s *Store) Create(_ context.Context, kind Kind, in Item, authorID string) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.items[kind]
	if !ok {
		return Item{}, ErrUnknownKind
	}
	now := s.now().UTC()
	it := &Item{
		ID:        uuid.New().String(),
		Kind:      kind,
		Title:     in.Title,
		Body:      in.Body,
		Published: in.Published,
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	byID[it.ID] = it
	return *it, nil
}

// Update replaces title, body and published on an existing item.
func (s *Store) Update(_ context.Context, kind Kind, id string, in Item) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, err := s.lookup(kind, id)
	if err != nil {
		return Item{}, err
	}
	it.Title = in.Title
	it.Body = in.Body
	it.Published = in.Published
	it.UpdatedAt = s.now().UTC()
	return *it, nil
}

// Delete removes an item.
func (s *Store) Delete(_ context.Context, kind Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookup(kind, id); err != nil {
		return err
	}
	delete(s.items[kind], id)
	return nil
}

// Counts returns the number of items per kind.
func (s *Store) Counts(_ context.Context) map[Kind]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Kind]int, len(s.items))
	for k, byID := range s.items {
		out[k] = len(byID)
	}
	return out
}

func (s *Store) lookup(kind Kind, id string) (*Item, error) {
	byID, ok := s.items[kind]
	if !ok {
		return nil, ErrUnknownKind
	}
	it, ok := byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return it, nil
}

// AddContact stores a submission. ID and SubmittedAt are filled when empty.
func (s *Store) AddContact(_ context.Context, c Contact) Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.SubmittedAt.IsZero() {
		c.SubmittedAt = s.now().UTC()
	}
	stored := c
	s.contacts = append(s.contacts, &stored)
	return c
}

// Contacts returns submissions, newest first.
func (s *Store) Contacts(_ context.Context) []Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Contact, len(s.contacts))
	for i, c := range s.contacts {
		out[len(s.contacts)-1-i] = *c
	}
	return out
}

// DeleteContact removes a submission.
func (s *Store) DeleteContact(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.contacts {
		if c.ID == id {
			s.contacts = append(s.contacts[:i], s.contacts[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
