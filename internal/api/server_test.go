package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/hustsync/hustsync/internal/api"
	"github.com/hustsync/hustsync/internal/manager/mocks"
	"github.com/hustsync/hustsync/internal/status"
)

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	// health does not touch the service
	server := api.NewServer(mocks.NewMockService(ctrl))

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	var response map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
}

func TestReadinessEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		readinessErr   error
		expectedStatus int
		expectedKey    string
	}{
		{name: "store ready", expectedStatus: http.StatusOK, expectedKey: "status"},
		{
			name:           "store not ready",
			readinessErr:   fmt.Errorf("store is not ready: database not open"),
			expectedStatus: http.StatusServiceUnavailable,
			expectedKey:    "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)

			svc := mocks.NewMockService(ctrl)
			svc.EXPECT().CheckReadiness(gomock.Any()).Return(tt.readinessErr)

			rr := httptest.NewRecorder()
			api.NewServer(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readiness", nil))

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			var response map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
			assert.Contains(t, response, tt.expectedKey)
		})
	}
}

func TestManagerRoutesAreMounted(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	svc := mocks.NewMockService(ctrl)
	svc.EXPECT().WebStatus(gomock.Any()).Return([]status.WebMirrorStatus{{Name: "elvish"}}, nil)

	server := api.NewServer(svc, api.WithMiddlewares(middleware.RequestID, api.LoggingMiddleware))

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"name":"elvish"`)

	rr = httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)

	rr := httptest.NewRecorder()
	api.NewServer(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, api.MetricsPath, nil))
	assert.Equal(t, http.StatusNotFound, rr.Code, "metrics are off without a handler")

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("hustsync_manager_workers 2\n"))
	})
	rr = httptest.NewRecorder()
	api.NewServer(svc, api.WithMetricsHandler(metrics)).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, api.MetricsPath, nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "hustsync_manager_workers")
}
