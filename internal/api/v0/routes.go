// Package v0 provides the health, readiness and version endpoints shared by
// the manager API and the worker control server.
package v0

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hustsync/hustsync/internal/api/common"
	"github.com/hustsync/hustsync/internal/versions"
)

// ReadinessChecker reports whether a component can serve requests
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status"`
}

// RegisterHealthRoutes adds /health, /readiness and /version to r.
// A nil checker is always ready.
func RegisterHealthRoutes(r chi.Router, checker ReadinessChecker) {
	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(checker))
	r.Get("/version", versionHandler)
}

// healthHandler handles GET /health
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, HealthResponse{Status: "healthy"}, http.StatusOK)
}

// readinessHandler handles GET /readiness
func readinessHandler(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.CheckReadiness(r.Context()); err != nil {
				common.WriteErrorResponse(w, "not ready: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		common.WriteJSONResponse(w, HealthResponse{Status: "ready"}, http.StatusOK)
	}
}

// versionHandler handles GET /version
func versionHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, versions.GetVersionInfo(), http.StatusOK)
}
