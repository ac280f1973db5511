package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hustsync/hustsync/internal/api/common"
	v0 "github.com/hustsync/hustsync/internal/api/v0"
	"github.com/hustsync/hustsync/internal/protocol"
	"github.com/hustsync/hustsync/internal/status"
)

// Controller is what the control server drives
type Controller interface {
	Dispatch(ctx context.Context, cmd protocol.WorkerCmd) error
	Jobs() []status.MirrorStatus
}

// NewControlRouter returns the worker control API.
// POST / takes a WorkerCmd, GET /ping answers liveness and GET /jobs lists local job status.
// The health and version routes are served as on the manager.
func NewControlRouter(c Controller) *chi.Mux {
	r := chi.NewRouter()
	v0.RegisterHealthRoutes(r, nil)

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		common.WriteJSONResponse(w, map[string]string{"msg": "pong"}, http.StatusOK)
	})

	r.Get("/jobs", func(w http.ResponseWriter, _ *http.Request) {
		common.WriteJSONResponse(w, c.Jobs(), http.StatusOK)
	})

	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		var cmd protocol.WorkerCmd
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			common.WriteErrorResponse(w, "invalid command: "+err.Error(), http.StatusBadRequest)
			return
		}

		err := c.Dispatch(r.Context(), cmd)
		switch {
		case err == nil:
			common.WriteJSONResponse(w, map[string]string{"msg": "OK"}, http.StatusOK)
		case errors.Is(err, ErrUnknownMirror):
			common.WriteErrorResponse(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, ErrNotRunning):
			common.WriteErrorResponse(w, err.Error(), http.StatusServiceUnavailable)
		default:
			common.WriteErrorResponse(w, err.Error(), http.StatusInternalServerError)
		}
	})

	return r
}
