// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Key prefixes for BadgerDB storage
const (
	userKeyPrefix     = "user:"
	usernameKeyPrefix = "username:"
)

// badgerRecord carries the password hash that User hides from JSON.
type badgerRecord struct {
	*User
	PasswordHash string `json:"password_hash"`
}

// BadgerStore implements Store on an embedded BadgerDB.
type BadgerStore struct {
	db     *badger.DB
	ownsDB bool
}

// NewBadgerStore wraps an open database. Close does not close db.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// OpenBadgerStore opens (or creates) a database at path.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return &BadgerStore{db: db, ownsDB: true}, nil
}

func encodeUser(u *User) ([]byte, error) {
	data, err := json.Marshal(badgerRecord{User: u, PasswordHash: u.PasswordHash})
	if err != nil {
		return nil, fmt.Errorf("marshal user: %w", err)
	}
	return data, nil
}

func decodeUser(val []byte) (*User, error) {
	rec := badgerRecord{User: &User{}}
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	rec.User.PasswordHash = rec.PasswordHash
	return rec.User, nil
}

func getUser(txn *badger.Txn, id string) (*User, error) {
	item, err := txn.Get([]byte(userKeyPrefix + id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	var u *User
	err = item.Value(func(val []byte) error {
		var decodeErr error
		u, decodeErr = decodeUser(val)
		return decodeErr
	})
	return u, err
}

// Create stores a new user and its username index entry in one transaction.
func (s *BadgerStore) Create(_ context.Context, u *User) error {
	stored := u.Clone()
	stored.Username = NormalizeUsername(u.Username)
	data, err := encodeUser(stored)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		nameKey := []byte(usernameKeyPrefix + stored.Username)
		if _, err := txn.Get(nameKey); err == nil {
			return ErrDuplicateUsername
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check username: %w", err)
		}

		if err := txn.Set([]byte(userKeyPrefix+stored.ID), data); err != nil {
			return fmt.Errorf("set user: %w", err)
		}
		if err := txn.Set(nameKey, []byte(stored.ID)); err != nil {
			return fmt.Errorf("set username index: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a user by id.
func (s *BadgerStore) GetByID(_ context.Context, id string) (*User, error) {
	var u *User
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		u, err = getUser(txn, id)
		return err
	})
	return u, err
}

// GetByUsername resolves the username index, then loads the user.
func (s *BadgerStore) GetByUsername(_ context.Context, username string) (*User, error) {
	var u *User
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(usernameKeyPrefix + NormalizeUsername(username)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get username index: %w", err)
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("read username index: %w", err)
		}
		u, err = getUser(txn, string(id))
		return err
	})
	return u, err
}

// Update replaces a stored user. The username cannot change.
func (s *BadgerStore) Update(_ context.Context, u *User) error {
	return s.db.Update(func(txn *badger.Txn) error {
		existing, err := getUser(txn, u.ID)
		if err != nil {
			return err
		}
		stored := u.Clone()
		stored.Username = existing.Username
		data, err := encodeUser(stored)
		if err != nil {
			return err
		}
		return txn.Set([]byte(userKeyPrefix+u.ID), data)
	})
}

// Delete removes a user and its username index entry.
func (s *BadgerStore) Delete(_ context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		existing, err := getUser(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete([]byte(userKeyPrefix + id)); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if err := txn.Delete([]byte(usernameKeyPrefix + existing.Username)); err != nil {
			return fmt.Errorf("delete username index: %w", err)
		}
		return nil
	})
}

// List returns all users ordered by username.
func (s *BadgerStore) List(_ context.Context) ([]*User, error) {
	var list []*User
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(userKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				u, err := decodeUser(val)
				if err != nil {
					return err
				}
				list = append(list, u)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	sortByUsername(list)
	return list, nil
}

// Count returns the number of users.
func (s *BadgerStore) Count(_ context.Context) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(userKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Close closes the database if this store opened it.
func (s *BadgerStore) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}
