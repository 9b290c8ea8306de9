// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

//go:build integration

package testinfra

import (
	"context"
	"time"

	"github.com/testcontainers/testcontainers-go"
)

const (
	DefaultMongoImage    = "mongo:7"
	DefaultRedisImage    = "redis:7-alpine"
	DefaultPostgresImage = "postgres:16-alpine"

	postgresUser     = "govportal"
	postgresPassword = "govportal"
	postgresDB       = "govportal"
)

// ServiceContainer is a running backing service.
type ServiceContainer struct {
	testcontainers.Container
	// Addr is host:port of the mapped service port.
	Addr string
	// URI is a client connection string for the service.
	URI string
}

// NewMongoContainer starts a MongoDB server.
func NewMongoContainer(ctx context.Context) (*ServiceContainer, error) {
	c, addr, err := startService(ctx, serviceSpec{
		image:        DefaultMongoImage,
		port:         "27017/tcp",
		waitLog:      "Waiting for connections",
		startTimeout: 90 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return &ServiceContainer{Container: c, Addr: addr, URI: "mongodb://" + addr}, nil
}

// NewRedisContainer starts a Redis server.
func NewRedisContainer(ctx context.Context) (*ServiceContainer, error) {
	c, addr, err := startService(ctx, serviceSpec{
		image:        DefaultRedisImage,
		port:         "6379/tcp",
		waitLog:      "Ready to accept connections",
		startTimeout: 60 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return &ServiceContainer{Container: c, Addr: addr, URI: "redis://" + addr}, nil
}

// NewPostgresContainer starts a PostgreSQL server with a govportal database.
func NewPostgresContainer(ctx context.Context) (*ServiceContainer, error) {
	c, addr, err := startService(ctx, serviceSpec{
		image: DefaultPostgresImage,
		port:  "5432/tcp",
		env: map[string]string{
			"POSTGRES_USER":     postgresUser,
			"POSTGRES_PASSWORD": postgresPassword,
			"POSTGRES_DB":       postgresDB,
		},
		startTimeout: 90 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	dsn := "postgres://" + postgresUser + ":" + postgresPassword + "@" + addr + "/" + postgresDB + "?sslmode=disable"
	return &ServiceContainer{Container: c, Addr: addr, URI: dsn}, nil
}
