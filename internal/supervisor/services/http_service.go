// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/govportal/internal/logging"
)

// HTTPServer is the part of *http.Server the service drives.
//
// Keeping it to two methods lets tests substitute a fake that blocks until
// shut down, or fails on listen, without binding a port.
//
// Satisfied by *http.Server from net/http:
//   - ListenAndServe() error
//   - Shutdown(ctx context.Context) error
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService runs the portal's HTTP server under the supervisor.
//
// http.Server blocks in ListenAndServe and stops through a separate
// Shutdown call; suture expects one Serve(ctx) that returns when ctx is
// canceled. The service bridges the two:
//
//  1. ListenAndServe runs in its own goroutine
//  2. Serve waits for a listener error or for ctx to be canceled
//  3. On cancellation, Shutdown drains in-flight requests within
//     shutdownTimeout
//
// A listener error (port in use, for example) is returned so the API layer
// supervisor can restart the service with backoff.
//
// Example usage:
//
//	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
//	server := &http.Server{Addr: addr, Handler: router.Handler()}
//	svc := services.NewHTTPServerService(server, addr, cfg.Server.ShutdownTimeout)
//	tree.AddAPIService(svc)
type HTTPServerService struct {
	server          HTTPServer
	addr            string
	shutdownTimeout time.Duration
}

// NewHTTPServerService wraps server.
//
// addr is only used for logging. shutdownTimeout bounds how long Shutdown
// waits for active connections; a non-positive value becomes 10s.
func NewHTTPServerService(server HTTPServer, addr string, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{server: server, addr: addr, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service.
//
// It returns ctx.Err() after a graceful shutdown, or the wrapped listener
// error. http.ErrServerClosed is expected during shutdown and is never
// reported as a failure.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", h.addr).Msg("HTTP server listening")
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		// ctx is already canceled; shutdown gets its own deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		logging.Info().Dur("timeout", h.shutdownTimeout).Msg("Shutting down HTTP server")
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

// String implements fmt.Stringer; suture names the service with it.
func (h *HTTPServerService) String() string {
	return "http-server"
}
