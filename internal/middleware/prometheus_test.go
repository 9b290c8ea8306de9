// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/govportal/internal/logging"
	"github.com/tomtom215/govportal/internal/metrics"
)

func testRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(Prometheus)
	r.Get("/api/v1/users/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	r.Get("/implicit", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func TestPrometheus_LabelsByRoutePattern(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		route  string
		status string
	}{
		{"param route", "/api/v1/users/8f14e45f", "/api/v1/users/{id}", "403"},
		{"implicit 200", "/implicit", "/implicit", "200"},
		{"no match", "/nope", metrics.UnmatchedRoute, "404"},
	}

	router := testRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, tt.route, tt.status)
			before := testutil.ToFloat64(c)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if got := testutil.ToFloat64(c) - before; got != 1 {
				t.Errorf("counter{route=%q,status=%s} delta = %v, want 1", tt.route, tt.status, got)
			}
		})
	}
}

func TestPrometheus_RawPathNeverLabelled(t *testing.T) {
	router := testRouter()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/secret-id-42", nil))

	c := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/users/secret-id-42", "403")
	if got := testutil.ToFloat64(c); got != 0 {
		t.Errorf("raw path became a label value (%v)", got)
	}
}

func TestAccessLog_LevelByStatus(t *testing.T) {
	var buf bytes.Buffer
	prev := logging.Logger()
	logging.SetLogger(logging.NewTestLogger(&buf))
	t.Cleanup(func() { logging.SetLogger(prev) })

	r := chi.NewRouter()
	r.Use(RequestID, AccessLog)
	r.Get("/boom", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	tests := []struct {
		path      string
		wantLevel string
		wantRoute string
	}{
		{"/boom", `"level":"error"`, `"route":"/boom"`},
		{"/missing", `"level":"warn"`, `"route":""`},
	}

	for _, tt := range tests {
		buf.Reset()
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

		out := buf.String()
		for _, want := range []string{tt.wantLevel, tt.wantRoute, `"request_id":`, `"component":"http"`} {
			if !strings.Contains(out, want) {
				t.Errorf("GET %s log %q missing %s", tt.path, out, want)
			}
		}
	}
}
