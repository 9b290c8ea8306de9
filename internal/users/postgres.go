// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tomtom215/govportal/internal/authz"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

const pgSchema = `
create table if not exists admin_users (
	id                    text primary key,
	username              text not null unique,
	email                 text not null,
	display_name          text not null default '',
	department            text not null default '',
	password_hash         text not null,
	role                  text not null,
	active                boolean not null default true,
	failed_login_attempts integer not null default 0,
	lockout_until         timestamptz,
	last_login            timestamptz,
	created_at            timestamptz not null,
	updated_at            timestamptz not null
)`

const pgSelectColumns = `id, username, email, display_name, department, password_hash, role, active,
	failed_login_attempts, lockout_until, last_login, created_at, updated_at`

// PostgresStore implements Store on PostgreSQL through database/sql.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgresStore opens a pgx-backed pool and creates the table.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	s := NewPostgresStore(db)
	if err := s.CreateTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an open handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateTable creates admin_users if missing.
func (s *PostgresStore) CreateTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, pgSchema); err != nil {
		return fmt.Errorf("create admin_users table: %w", err)
	}
	return nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u                  User
		role               string
		lockout, lastLogin sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.DisplayName, &u.Department, &u.PasswordHash,
		&role, &u.Active, &u.FailedLoginAttempts, &lockout, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = authz.Role(role)
	if lockout.Valid {
		u.LockoutUntil = lockout.Time
	}
	if lastLogin.Valid {
		u.LastLogin = lastLogin.Time
	}
	return &u, nil
}

// Create inserts a new user.
func (s *PostgresStore) Create(ctx context.Context, u *User) error {
	_, err := s.db.ExecContext(ctx, `
		insert into admin_users (id, username, email, display_name, department, password_hash, role, active,
			failed_login_attempts, lockout_until, last_login, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		u.ID, NormalizeUsername(u.Username), u.Email, u.DisplayName, u.Department, u.PasswordHash,
		string(u.Role), u.Active, u.FailedLoginAttempts, nullTime(u.LockoutUntil), nullTime(u.LastLogin),
		u.CreatedAt, u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) queryOne(ctx context.Context, where string, arg any) (*User, error) {
	row := s.db.QueryRowContext(ctx, `select `+pgSelectColumns+` from admin_users where `+where, arg)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

// GetByID retrieves a user by id.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*User, error) {
	return s.queryOne(ctx, "id = $1", id)
}

// GetByUsername retrieves a user by username.
func (s *PostgresStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.queryOne(ctx, "username = $1", NormalizeUsername(username))
}

// Update writes every mutable field. The username cannot change.
func (s *PostgresStore) Update(ctx context.Context, u *User) error {
	res, err := s.db.ExecContext(ctx, `
		update admin_users set email=$2, display_name=$3, department=$4, password_hash=$5, role=$6,
			active=$7, failed_login_attempts=$8, lockout_until=$9, last_login=$10, updated_at=$11
		where id=$1`,
		u.ID, u.Email, u.DisplayName, u.Department, u.PasswordHash, string(u.Role),
		u.Active, u.FailedLoginAttempts, nullTime(u.LockoutUntil), nullTime(u.LastLogin), u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return requireOneRow(res)
}

// Delete removes a user.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from admin_users where id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireOneRow(res)
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all users ordered by username.
func (s *PostgresStore) List(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, `select `+pgSelectColumns+` from admin_users order by username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var list []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// Count returns the number of users.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `select count(*) from admin_users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// Close closes the pool.
func (s *PostgresStore) Close() error { return s.db.Close() }
