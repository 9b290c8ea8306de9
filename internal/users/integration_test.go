// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

//go:build integration

package users

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/tomtom215/govportal/internal/testinfra"
)

func TestMongoStore_Integration(t *testing.T) {
	testinfra.SkipIfNoDocker(t)
	ctx := context.Background()

	mongo, err := testinfra.NewMongoContainer(ctx)
	if err != nil {
		t.Fatalf("start mongo: %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, mongo)

	runStoreSuite(t, func(t *testing.T) Store {
		s, err := OpenMongoStore(ctx, mongo.URI, "govportal_"+uuid.New().String()[:8])
		if err != nil {
			t.Fatalf("OpenMongoStore: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestPostgresStore_Integration(t *testing.T) {
	testinfra.SkipIfNoDocker(t)
	ctx := context.Background()

	pg, err := testinfra.NewPostgresContainer(ctx)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, pg)

	runStoreSuite(t, func(t *testing.T) Store {
		s, err := OpenPostgresStore(ctx, pg.URI)
		if err != nil {
			t.Fatalf("OpenPostgresStore: %v", err)
		}
		if _, err := s.db.ExecContext(ctx, "truncate admin_users"); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}
