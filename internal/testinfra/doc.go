// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

// Package testinfra starts backing services for integration tests with
// testcontainers-go. Everything here is behind the integration build tag.
//
//	func TestMongoStore(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    mongo, err := testinfra.NewMongoContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, mongo)
//
//	    store, err := users.OpenMongoStore(ctx, mongo.URI, "govportal_test")
//	    // ...
//	}
//
// Tests are skipped when Docker is unavailable. The first run pulls images.
package testinfra
