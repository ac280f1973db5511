package v0_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v0 "github.com/hustsync/hustsync/internal/api/v0"
)

type checkerFunc func(context.Context) error

func (f checkerFunc) CheckReadiness(ctx context.Context) error { return f(ctx) }

func TestHealthRoutes(t *testing.T) {
	t.Parallel()

	notReady := checkerFunc(func(context.Context) error { return errors.New("store closed") })
	ready := checkerFunc(func(context.Context) error { return nil })

	tests := []struct {
		name       string
		checker    v0.ReadinessChecker
		path       string
		wantStatus int
		wantKey    string
		wantValue  string
	}{
		{name: "health", checker: notReady, path: "/health", wantStatus: http.StatusOK, wantKey: "status", wantValue: "healthy"},
		{name: "ready", checker: ready, path: "/readiness", wantStatus: http.StatusOK, wantKey: "status", wantValue: "ready"},
		{name: "nil checker is ready", checker: nil, path: "/readiness", wantStatus: http.StatusOK, wantKey: "status", wantValue: "ready"},
		{
			name:       "not ready",
			checker:    notReady,
			path:       "/readiness",
			wantStatus: http.StatusServiceUnavailable,
			wantKey:    "error",
			wantValue:  "not ready: store closed",
		},
		{name: "unknown path", checker: ready, path: "/healthz", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rr := httptest.NewRecorder()
			healthRouter(tt.checker).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantKey == "" {
				return
			}
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			var body map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.wantValue, body[tt.wantKey])
		})
	}
}

func TestVersionEndpoint(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	healthRouter(nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/version", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	for _, key := range []string{"version", "commit", "build_date", "go_version", "platform"} {
		assert.Contains(t, body, key)
	}
}

func healthRouter(checker v0.ReadinessChecker) http.Handler {
	r := chi.NewRouter()
	v0.RegisterHealthRoutes(r, checker)
	return r
}
