// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// SkipIfNoDocker skips the test if Docker is not available.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()

	if !IsDockerAvailable() {
		t.Skip("Skipping test: Docker not available")
	}
}

// IsDockerAvailable checks if Docker daemon is running and accessible.
func IsDockerAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "docker", "info")
	return cmd.Run() == nil
}

// CleanupContainer terminates container at test end and logs failures.
func CleanupContainer(t *testing.T, ctx context.Context, container testcontainers.Container) {
	t.Helper()

	if container != nil {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	}
}

// serviceSpec describes a single-port service container.
type serviceSpec struct {
	image        string
	port         string // e.g. "27017/tcp"
	env          map[string]string
	waitLog      string
	startTimeout time.Duration
}

// startService starts the container and returns it with its mapped
// host:port address.
func startService(ctx context.Context, spec serviceSpec) (testcontainers.Container, string, error) {
	strategies := []wait.Strategy{wait.ForListeningPort(spec.port)}
	if spec.waitLog != "" {
		strategies = append(strategies, wait.ForLog(spec.waitLog))
	}

	req := testcontainers.ContainerRequest{
		Image:        spec.image,
		ExposedPorts: []string{spec.port},
		Env:          spec.env,
		WaitingFor:   wait.ForAll(strategies...).WithStartupTimeout(spec.startTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("start %s: %w", spec.image, err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, "", fmt.Errorf("container host: %w", err)
	}
	mapped, err := container.MappedPort(ctx, spec.port)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, "", fmt.Errorf("mapped port: %w", err)
	}
	return container, fmt.Sprintf("%s:%s", host, mapped.Port()), nil
}
