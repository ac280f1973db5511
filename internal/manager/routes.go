package manager

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hustsync/hustsync/internal/api/common"
	"github.com/hustsync/hustsync/internal/protocol"
	"github.com/hustsync/hustsync/internal/status"
	"github.com/hustsync/hustsync/internal/store"
	"github.com/hustsync/hustsync/internal/versions"
)

// maxBodySize bounds JSON request bodies
const maxBodySize = 1 << 20

// Routes handles HTTP requests for the manager API
type Routes struct {
	service Service
}

// NewRoutes creates a new Routes instance with the given service
func NewRoutes(svc Service) *Routes {
	return &Routes{service: svc}
}

// Router creates the manager API router
func Router(svc Service) http.Handler {
	routes := NewRoutes(svc)

	r := chi.NewRouter()

	r.Get(protocol.PingPath, routes.ping)

	r.Get(protocol.WorkersPath, routes.listWorkers)
	r.Post(protocol.WorkersPath, routes.registerWorker)
	r.Route(protocol.WorkersPath+"/{workerID}", func(r chi.Router) {
		r.Put("/", routes.refreshWorker)
		r.Delete("/", routes.deleteWorker)

		r.Get("/jobs", routes.listJobs)
		r.Get("/jobs/{mirror}", routes.getJob)
		r.Post("/jobs/{mirror}", routes.updateJob)
		r.Delete("/jobs/{mirror}", routes.deleteJob)

		r.Get("/schedules", routes.getSchedules)
		r.Post("/schedules", routes.updateSchedules)

		r.Get("/commands", routes.pollCommands)
	})

	r.Post(protocol.CmdPath, routes.sendCommand)
	r.Get(protocol.JobsPath, routes.webStatus)
	r.Delete(protocol.DisabledPath, routes.flushDisabled)

	return r
}

// ping handles GET /ping
func (*Routes) ping(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, map[string]string{"msg": "pong"}, http.StatusOK)
}

// listWorkers handles GET /workers
func (routes *Routes) listWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := routes.service.ListWorkers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, workers, http.StatusOK)
}

// registerWorker handles POST /workers
func (routes *Routes) registerWorker(w http.ResponseWriter, r *http.Request) {
	var ws status.WorkerStatus
	if !decodeBody(w, r, &ws) {
		return
	}

	if v := versions.ParseUserAgent(r.UserAgent()); versions.IsNewerVersion(v, versions.Version) {
		slog.WarnContext(r.Context(), "Worker runs a newer version than the manager",
			"worker", ws.ID, "worker_version", v, "manager_version", versions.Version)
	}

	created, err := routes.service.RegisterWorker(r.Context(), ws)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, created, http.StatusOK)
}

// refreshWorker handles PUT /workers/{workerID}
func (routes *Routes) refreshWorker(w http.ResponseWriter, r *http.Request) {
	workerID, ok := urlParam(w, r, "workerID")
	if !ok {
		return
	}
	ws, err := routes.service.RefreshWorker(r.Context(), workerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, ws, http.StatusOK)
}

// deleteWorker handles DELETE /workers/{workerID}
func (routes *Routes) deleteWorker(w http.ResponseWriter, r *http.Request) {
	workerID, ok := urlParam(w, r, "workerID")
	if !ok {
		return
	}
	if err := routes.service.DeleteWorker(r.Context(), workerID); err != nil {
		writeServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, map[string]string{"msg": "deleted"}, http.StatusOK)
}

// listJobs handles GET /workers/{workerID}/jobs
func (routes *Routes) listJobs(w http.ResponseWriter, r *http.Request) {
	workerID, ok := urlParam(w, r, "workerID")
	if !ok {
		return
	}
	jobs, err := routes.service.ListJobs(r.Context(), workerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, jobs, http.StatusOK)
}

// getJob handles GET /workers/{workerID}/jobs/{mirror}
func (routes *Routes) getJob(w http.ResponseWriter, r *http.Request) {
	workerID, mirror, ok := jobParams(w, r)
	if !ok {
		return
	}
	rec, err := routes.service.GetJob(r.Context(), workerID, mirror)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, rec, http.StatusOK)
}

// updateJob handles POST /workers/{workerID}/jobs/{mirror}
func (routes *Routes) updateJob(w http.ResponseWriter, r *http.Request) {
	workerID, mirror, ok := jobParams(w, r)
	if !ok {
		return
	}
	var rec status.MirrorStatus
	if !decodeBody(w, r, &rec) {
		return
	}
	stored, err := routes.service.UpdateJob(r.Context(), workerID, mirror, rec)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, stored, http.StatusOK)
}

// deleteJob handles DELETE /workers/{workerID}/jobs/{mirror}
func (routes *Routes) deleteJob(w http.ResponseWriter, r *http.Request) {
	workerID, mirror, ok := jobParams(w, r)
	if !ok {
		return
	}
	if err := routes.service.DeleteJob(r.Context(), workerID, mirror); err != nil {
		writeServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, map[string]string{"msg": "deleted"}, http.StatusOK)
}

// getSchedules handles GET /workers/{workerID}/schedules
func (routes *Routes) getSchedules(w http.ResponseWriter, r *http.Request) {
	workerID, ok := urlParam(w, r, "workerID")
	if !ok {
		return
	}
	s, err := routes.service.GetSchedules(r.Context(), workerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, s, http.StatusOK)
}

// updateSchedules handles POST /workers/{workerID}/schedules
func (routes *Routes) updateSchedules(w http.ResponseWriter, r *http.Request) {
	workerID, ok := urlParam(w, r, "workerID")
	if !ok {
		return
	}
	var s protocol.MirrorSchedules
	if !decodeBody(w, r, &s) {
		return
	}
	if err := routes.service.UpdateSchedules(r.Context(), workerID, s); err != nil {
		writeServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, map[string]string{"msg": "OK"}, http.StatusOK)
}

// pollCommands handles GET /workers/{workerID}/commands
func (routes *Routes) pollCommands(w http.ResponseWriter, r *http.Request) {
	workerID, ok := urlParam(w, r, "workerID")
	if !ok {
		return
	}
	cmds, err := routes.service.PollCommands(r.Context(), workerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, cmds, http.StatusOK)
}

// sendCommand handles POST /cmd
func (routes *Routes) sendCommand(w http.ResponseWriter, r *http.Request) {
	var cmd protocol.ClientCmd
	if !decodeBody(w, r, &cmd) {
		return
	}
	if err := routes.service.SendCommand(r.Context(), cmd); err != nil {
		writeServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, map[string]string{"msg": "OK"}, http.StatusOK)
}

// webStatus handles GET /jobs
func (routes *Routes) webStatus(w http.ResponseWriter, r *http.Request) {
	jobs, err := routes.service.WebStatus(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, jobs, http.StatusOK)
}

// flushDisabled handles DELETE /jobs/disabled
func (routes *Routes) flushDisabled(w http.ResponseWriter, r *http.Request) {
	n, err := routes.service.FlushDisabled(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, map[string]any{"msg": "flushed", "count": n}, http.StatusOK)
}

func urlParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v, err := common.NameParam(r, name)
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return v, true
}

func jobParams(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	workerID, ok := urlParam(w, r, "workerID")
	if !ok {
		return "", "", false
	}
	mirror, ok := urlParam(w, r, "mirror")
	if !ok {
		return "", "", false
	}
	return workerID, mirror, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		common.WriteErrorResponse(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// writeServiceError maps service errors onto HTTP status codes
func writeServiceError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrWorkerNotFound), errors.Is(err, store.ErrMirrorNotFound):
		code = http.StatusNotFound
	case errors.Is(err, store.ErrWorkerExists), errors.Is(err, store.ErrStaleUpdate):
		code = http.StatusConflict
	case errors.Is(err, ErrInvalidRequest):
		code = http.StatusBadRequest
	}
	common.WriteErrorResponse(w, err.Error(), code)
}
